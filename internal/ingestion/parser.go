package ingestion

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"PerpIndexer/internal/chain"
	"PerpIndexer/internal/event"
)

// Parser converts raw JSON wire events into canonical typed events.
// Payloads may carry an explicit "schema" tag; when absent, the protocol
// version is derived from the network's fork schedule at the event's
// block.
type Parser struct {
	network string
}

func NewParser(network string) *Parser {
	return &Parser{network: network}
}

// Parse dispatches on the canonical event type the subject was mapped
// to. Versioned wire shapes reduce to their canonical form here so the
// engine never sees a legacy schema.
func (p *Parser) Parse(raw RawEvent) (event.Event, error) {
	switch raw.EventType {
	case event.TypeMarketCreated:
		return parseMarketCreated(raw.Data)
	case event.TypeOracleUpdated:
		return parseOracleUpdated(raw.Data)
	case event.TypeOrderCreated:
		return p.parseOrderCreated(raw.Data)
	case event.TypePositionProcessed:
		return p.parsePositionProcessed(raw.Data)
	case event.TypeAccountPositionProcessed:
		return p.parseAccountPositionProcessed(raw.Data)
	case event.TypeOracleVersionRequested:
		return parseOracleVersionRequested(raw.Data)
	case event.TypeOracleVersionFulfilled:
		return parseOracleVersionFulfilled(raw.Data)
	case event.TypeOperatorUpdated:
		return parseOperatorUpdated(raw.Data)
	case event.TypeTriggerOrderPlaced:
		return parseTriggerOrderPlaced(raw.Data)
	case event.TypeTriggerOrderExecuted:
		return parseTriggerOrderExecuted(raw.Data)
	case event.TypeTriggerOrderCancelled:
		return parseTriggerOrderCancelled(raw.Data)
	case event.TypeVaultUpdated:
		return parseVaultUpdated(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type %q", raw.EventType)
	}
}

// --- JSON wire formats ---
// Field names use snake_case to match the chain extractor's producers.

type logMetaJSON struct {
	TxHash      string `json:"tx_hash"`
	LogIndex    uint   `json:"log_index"`
	BlockNumber int64  `json:"block_number"`
	BlockTs     int64  `json:"block_ts"`
}

func (m logMetaJSON) meta() (event.LogMeta, error) {
	if len(m.TxHash) != 66 {
		return event.LogMeta{}, fmt.Errorf("bad tx_hash %q", m.TxHash)
	}
	return event.LogMeta{
		TxHash:         common.HexToHash(m.TxHash),
		LogIndex:       m.LogIndex,
		BlockNumber:    m.BlockNumber,
		BlockTimestamp: m.BlockTs,
	}, nil
}

func parseAddr(s, field string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("bad %s %q", field, s)
	}
	return common.HexToAddress(s), nil
}

// fork resolves the protocol version for an event: an explicit schema
// tag wins, otherwise the network fork schedule at the block decides.
func (p *Parser) fork(schema string, block int64) (event.ProtocolVersion, error) {
	if schema == "" {
		return chain.ActiveFork(p.network, block), nil
	}
	v := event.ProtocolVersion(schema)
	switch v {
	case event.V2_0_1, event.V2_0_2, event.V2_1, event.V2_2:
		return v, nil
	default:
		return "", fmt.Errorf("unknown schema %q", schema)
	}
}

type receiptLogJSON struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

func parseReceipt(logs []receiptLogJSON) ([]*types.Log, error) {
	if len(logs) == 0 {
		return nil, nil
	}
	out := make([]*types.Log, 0, len(logs))
	for _, l := range logs {
		addr, err := parseAddr(l.Address, "receipt log address")
		if err != nil {
			return nil, err
		}
		topics := make([]common.Hash, 0, len(l.Topics))
		for _, t := range l.Topics {
			topics = append(topics, common.HexToHash(t))
		}
		out = append(out, &types.Log{
			Address: addr,
			Topics:  topics,
			Data:    common.FromHex(l.Data),
		})
	}
	return out, nil
}

type marketCreatedJSON struct {
	logMetaJSON
	Market string `json:"market"`
	Token  string `json:"token"`
	Oracle string `json:"oracle"`
	Payoff string `json:"payoff,omitempty"`
}

func parseMarketCreated(data []byte) (*event.MarketCreated, error) {
	var j marketCreatedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse MarketCreated: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	market, err := parseAddr(j.Market, "market")
	if err != nil {
		return nil, err
	}
	token, err := parseAddr(j.Token, "token")
	if err != nil {
		return nil, err
	}
	oracle, err := parseAddr(j.Oracle, "oracle")
	if err != nil {
		return nil, err
	}
	e := &event.MarketCreated{
		LogMeta: meta,
		Market:  market,
		Token:   token,
		Oracle:  oracle,
	}
	if j.Payoff != "" {
		payoff, err := parseAddr(j.Payoff, "payoff")
		if err != nil {
			return nil, err
		}
		e.Payoff = &payoff
	}
	return e, nil
}

type oracleUpdatedJSON struct {
	logMetaJSON
	Market      string `json:"market,omitempty"`
	Oracle      string `json:"oracle,omitempty"`
	NewProvider string `json:"new_provider"`
}

func parseOracleUpdated(data []byte) (*event.OracleUpdated, error) {
	var j oracleUpdatedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OracleUpdated: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	provider, err := parseAddr(j.NewProvider, "new_provider")
	if err != nil {
		return nil, err
	}
	e := &event.OracleUpdated{LogMeta: meta, NewProvider: provider}
	switch {
	case j.Market != "":
		market, err := parseAddr(j.Market, "market")
		if err != nil {
			return nil, err
		}
		e.Market = &market
	case j.Oracle != "":
		oracle, err := parseAddr(j.Oracle, "oracle")
		if err != nil {
			return nil, err
		}
		e.Oracle = &oracle
	default:
		return nil, fmt.Errorf("OracleUpdated carries neither market nor oracle")
	}
	return e, nil
}

type orderCreatedJSON struct {
	logMetaJSON
	Schema  string `json:"schema,omitempty"`
	Market  string `json:"market"`
	Account string `json:"account"`

	// v2.0.x / v2.1 shape: signed deltas at an oracle version.
	OracleVersion int64 `json:"oracle_version,omitempty"`
	Maker         int64 `json:"maker,omitempty"`
	Long          int64 `json:"long,omitempty"`
	Short         int64 `json:"short,omitempty"`

	// v2.2 shape: pos/neg splits at an order timestamp.
	Timestamp int64 `json:"timestamp,omitempty"`
	MakerPos  int64 `json:"maker_pos,omitempty"`
	MakerNeg  int64 `json:"maker_neg,omitempty"`
	LongPos   int64 `json:"long_pos,omitempty"`
	LongNeg   int64 `json:"long_neg,omitempty"`
	ShortPos  int64 `json:"short_pos,omitempty"`
	ShortNeg  int64 `json:"short_neg,omitempty"`

	Collateral int64 `json:"collateral"`

	Protection        bool   `json:"protection,omitempty"`
	Liquidator        string `json:"liquidator,omitempty"`
	Referrer          string `json:"referrer,omitempty"`
	GuaranteeReferrer string `json:"guarantee_referrer,omitempty"`
	GuaranteePrice    *int64 `json:"guarantee_price,omitempty"`

	Receipt []receiptLogJSON `json:"receipt,omitempty"`
}

func (p *Parser) parseOrderCreated(data []byte) (*event.OrderCreated, error) {
	var j orderCreatedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OrderCreated: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	market, err := parseAddr(j.Market, "market")
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(j.Account, "account")
	if err != nil {
		return nil, err
	}
	fork, err := p.fork(j.Schema, j.BlockNumber)
	if err != nil {
		return nil, err
	}
	receipt, err := parseReceipt(j.Receipt)
	if err != nil {
		return nil, err
	}

	if fork == event.V2_2 {
		shape := &event.OrderCreatedV22{
			LogMeta:    meta,
			Market:     market,
			Account:    account,
			Timestamp:  j.Timestamp,
			MakerPos:   j.MakerPos,
			MakerNeg:   j.MakerNeg,
			LongPos:    j.LongPos,
			LongNeg:    j.LongNeg,
			ShortPos:   j.ShortPos,
			ShortNeg:   j.ShortNeg,
			Collateral: j.Collateral,
			Protection: j.Protection,
			Receipt:    receipt,
		}
		if j.Liquidator != "" {
			if shape.Liquidator, err = parseAddr(j.Liquidator, "liquidator"); err != nil {
				return nil, err
			}
		}
		if j.Referrer != "" {
			if shape.Referrer, err = parseAddr(j.Referrer, "referrer"); err != nil {
				return nil, err
			}
		}
		if j.GuaranteeReferrer != "" {
			if shape.GuaranteeReferrer, err = parseAddr(j.GuaranteeReferrer, "guarantee_referrer"); err != nil {
				return nil, err
			}
		}
		shape.GuaranteePrice = j.GuaranteePrice
		return shape.Normalize(), nil
	}

	shape := &event.OrderCreatedV20{
		LogMeta:       meta,
		Fork:          fork,
		Market:        market,
		Account:       account,
		OracleVersion: j.OracleVersion,
		Maker:         j.Maker,
		Long:          j.Long,
		Short:         j.Short,
		Collateral:    j.Collateral,
		Receipt:       receipt,
	}
	return shape.Normalize(), nil
}

type accumulationResultJSON struct {
	PnlMaker int64 `json:"pnl_maker"`
	PnlLong  int64 `json:"pnl_long"`
	PnlShort int64 `json:"pnl_short"`

	FundingMaker int64 `json:"funding_maker"`
	FundingLong  int64 `json:"funding_long"`
	FundingShort int64 `json:"funding_short"`

	InterestMaker int64 `json:"interest_maker"`
	InterestLong  int64 `json:"interest_long"`
	InterestShort int64 `json:"interest_short"`

	PositionFeeMaker int64 `json:"position_fee_maker"`
	ExposureMaker    int64 `json:"exposure_maker"`

	PositionFeeMarket int64 `json:"position_fee_market"`
	FundingMarket     int64 `json:"funding_market"`
	InterestMarket    int64 `json:"interest_market"`
	ExposureMarket    int64 `json:"exposure_market"`
}

func (r accumulationResultJSON) result() event.VersionAccumulationResult {
	return event.VersionAccumulationResult{
		PnlMaker:          r.PnlMaker,
		PnlLong:           r.PnlLong,
		PnlShort:          r.PnlShort,
		FundingMaker:      r.FundingMaker,
		FundingLong:       r.FundingLong,
		FundingShort:      r.FundingShort,
		InterestMaker:     r.InterestMaker,
		InterestLong:      r.InterestLong,
		InterestShort:     r.InterestShort,
		PositionFeeMaker:  r.PositionFeeMaker,
		ExposureMaker:     r.ExposureMaker,
		PositionFeeMarket: r.PositionFeeMarket,
		FundingMarket:     r.FundingMarket,
		InterestMarket:    r.InterestMarket,
		ExposureMarket:    r.ExposureMarket,
	}
}

type positionProcessedJSON struct {
	logMetaJSON
	Schema string `json:"schema,omitempty"`
	Market string `json:"market"`

	// v2.0.x / v2.1 shape.
	FromOracleVersion int64 `json:"from_oracle_version,omitempty"`
	ToOracleVersion   int64 `json:"to_oracle_version,omitempty"`
	ToOrderID         int64 `json:"to_order_id,omitempty"`

	// v2.2 shape.
	OrderTimestamp int64 `json:"order_timestamp,omitempty"`
	OrderID        int64 `json:"order_id,omitempty"`

	Result accumulationResultJSON `json:"result"`
}

func (p *Parser) parsePositionProcessed(data []byte) (*event.PositionProcessed, error) {
	var j positionProcessedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PositionProcessed: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	market, err := parseAddr(j.Market, "market")
	if err != nil {
		return nil, err
	}
	fork, err := p.fork(j.Schema, j.BlockNumber)
	if err != nil {
		return nil, err
	}

	if fork == event.V2_2 {
		shape := &event.PositionProcessedV22{
			LogMeta:        meta,
			Market:         market,
			OrderTimestamp: j.OrderTimestamp,
			OrderID:        j.OrderID,
			Result:         j.Result.result(),
		}
		return shape.Normalize(), nil
	}
	shape := &event.PositionProcessedV20{
		LogMeta:           meta,
		Fork:              fork,
		Market:            market,
		FromOracleVersion: j.FromOracleVersion,
		ToOracleVersion:   j.ToOracleVersion,
		ToOrderID:         j.ToOrderID,
		Result:            j.Result.result(),
	}
	return shape.Normalize(), nil
}

type accountProcessedJSON struct {
	logMetaJSON
	Schema  string `json:"schema,omitempty"`
	Market  string `json:"market"`
	Account string `json:"account"`

	// v2.0.x / v2.1 shape.
	FromOracleVersion int64 `json:"from_oracle_version,omitempty"`
	ToOracleVersion   int64 `json:"to_oracle_version,omitempty"`
	ToOrderID         int64 `json:"to_order_id,omitempty"`
	CollateralAmount  int64 `json:"collateral_amount,omitempty"`
	Keeper            int64 `json:"keeper,omitempty"`
	PositionFee       int64 `json:"position_fee,omitempty"`

	// v2.2 shape.
	OrderTimestamp int64 `json:"order_timestamp,omitempty"`
	OrderID        int64 `json:"order_id,omitempty"`
	Collateral     int64 `json:"collateral,omitempty"`
	Offset         int64 `json:"offset,omitempty"`
	TradeFee       int64 `json:"trade_fee,omitempty"`
	SettlementFee  int64 `json:"settlement_fee,omitempty"`
	LiquidationFee int64 `json:"liquidation_fee,omitempty"`
	SubtractiveFee int64 `json:"subtractive_fee,omitempty"`
	SolverFee      int64 `json:"solver_fee,omitempty"`
	PriceOverride  int64 `json:"price_override,omitempty"`
}

func (p *Parser) parseAccountPositionProcessed(data []byte) (*event.AccountPositionProcessed, error) {
	var j accountProcessedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse AccountPositionProcessed: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	market, err := parseAddr(j.Market, "market")
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(j.Account, "account")
	if err != nil {
		return nil, err
	}
	fork, err := p.fork(j.Schema, j.BlockNumber)
	if err != nil {
		return nil, err
	}

	if fork == event.V2_2 {
		shape := &event.AccountPositionProcessedV22{
			LogMeta:        meta,
			Market:         market,
			Account:        account,
			OrderTimestamp: j.OrderTimestamp,
			OrderID:        j.OrderID,
			Collateral:     j.Collateral,
			Offset:         j.Offset,
			TradeFee:       j.TradeFee,
			SettlementFee:  j.SettlementFee,
			LiquidationFee: j.LiquidationFee,
			SubtractiveFee: j.SubtractiveFee,
			SolverFee:      j.SolverFee,
			PriceOverride:  j.PriceOverride,
		}
		return shape.Normalize(), nil
	}
	shape := &event.AccountPositionProcessedV20{
		LogMeta:           meta,
		Fork:              fork,
		Market:            market,
		Account:           account,
		FromOracleVersion: j.FromOracleVersion,
		ToOracleVersion:   j.ToOracleVersion,
		ToOrderID:         j.ToOrderID,
		CollateralAmount:  j.CollateralAmount,
		Keeper:            j.Keeper,
		PositionFee:       j.PositionFee,
	}
	return shape.Normalize(), nil
}

type oracleVersionJSON struct {
	logMetaJSON
	SubOracle    string `json:"sub_oracle"`
	Version      int64  `json:"version"`
	Price        int64  `json:"price,omitempty"`
	Valid        bool   `json:"valid,omitempty"`
	PriceOnEvent bool   `json:"price_on_event,omitempty"`
}

func parseOracleVersionRequested(data []byte) (*event.OracleVersionRequested, error) {
	var j oracleVersionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OracleVersionRequested: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	subOracle, err := parseAddr(j.SubOracle, "sub_oracle")
	if err != nil {
		return nil, err
	}
	return &event.OracleVersionRequested{
		LogMeta:   meta,
		SubOracle: subOracle,
		Version:   j.Version,
	}, nil
}

func parseOracleVersionFulfilled(data []byte) (*event.OracleVersionFulfilled, error) {
	var j oracleVersionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OracleVersionFulfilled: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	subOracle, err := parseAddr(j.SubOracle, "sub_oracle")
	if err != nil {
		return nil, err
	}
	return &event.OracleVersionFulfilled{
		LogMeta:      meta,
		SubOracle:    subOracle,
		Version:      j.Version,
		Price:        j.Price,
		Valid:        j.Valid,
		PriceOnEvent: j.PriceOnEvent,
	}, nil
}

type operatorUpdatedJSON struct {
	logMetaJSON
	Source       string `json:"source"`
	Account      string `json:"account"`
	Operator     string `json:"operator"`
	Enabled      bool   `json:"enabled"`
	MultiInvoker bool   `json:"multi_invoker"`
}

func parseOperatorUpdated(data []byte) (*event.OperatorUpdated, error) {
	var j operatorUpdatedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse OperatorUpdated: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	source, err := parseAddr(j.Source, "source")
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(j.Account, "account")
	if err != nil {
		return nil, err
	}
	operator, err := parseAddr(j.Operator, "operator")
	if err != nil {
		return nil, err
	}
	return &event.OperatorUpdated{
		LogMeta:      meta,
		Source:       source,
		Account:      account,
		Operator:     operator,
		Enabled:      j.Enabled,
		MultiInvoker: j.MultiInvoker,
	}, nil
}

type triggerOrderJSON struct {
	logMetaJSON
	Source  string `json:"source"`
	Market  string `json:"market,omitempty"`
	Account string `json:"account,omitempty"`
	Nonce   int64  `json:"nonce"`

	Side       int32 `json:"side,omitempty"`
	Comparison int32 `json:"comparison,omitempty"`
	Fee        int64 `json:"fee,omitempty"`
	Price      int64 `json:"price,omitempty"`
	Delta      int64 `json:"delta,omitempty"`

	InterfaceFeeAmount    int64  `json:"interface_fee_amount,omitempty"`
	InterfaceFeeReceiver  string `json:"interface_fee_receiver,omitempty"`
	InterfaceFee2Amount   int64  `json:"interface_fee2_amount,omitempty"`
	InterfaceFee2Receiver string `json:"interface_fee2_receiver,omitempty"`

	Referrer  string `json:"referrer,omitempty"`
	Updatable bool   `json:"updatable,omitempty"`
}

func parseTriggerOrderPlaced(data []byte) (*event.TriggerOrderPlaced, error) {
	var j triggerOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TriggerOrderPlaced: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	source, err := parseAddr(j.Source, "source")
	if err != nil {
		return nil, err
	}
	market, err := parseAddr(j.Market, "market")
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(j.Account, "account")
	if err != nil {
		return nil, err
	}
	e := &event.TriggerOrderPlaced{
		LogMeta:             meta,
		Source:              source,
		Market:              market,
		Account:             account,
		Nonce:               j.Nonce,
		Side:                j.Side,
		Comparison:          j.Comparison,
		Fee:                 j.Fee,
		Price:               j.Price,
		Delta:               j.Delta,
		InterfaceFeeAmount:  j.InterfaceFeeAmount,
		InterfaceFee2Amount: j.InterfaceFee2Amount,
		Updatable:           j.Updatable,
	}
	if j.InterfaceFeeReceiver != "" {
		if e.InterfaceFeeReceiver, err = parseAddr(j.InterfaceFeeReceiver, "interface_fee_receiver"); err != nil {
			return nil, err
		}
	}
	if j.InterfaceFee2Receiver != "" {
		if e.InterfaceFee2Receiver, err = parseAddr(j.InterfaceFee2Receiver, "interface_fee2_receiver"); err != nil {
			return nil, err
		}
	}
	if j.Referrer != "" {
		if e.Referrer, err = parseAddr(j.Referrer, "referrer"); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func parseTriggerOrderExecuted(data []byte) (*event.TriggerOrderExecuted, error) {
	var j triggerOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TriggerOrderExecuted: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	source, err := parseAddr(j.Source, "source")
	if err != nil {
		return nil, err
	}
	return &event.TriggerOrderExecuted{LogMeta: meta, Source: source, Nonce: j.Nonce}, nil
}

func parseTriggerOrderCancelled(data []byte) (*event.TriggerOrderCancelled, error) {
	var j triggerOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TriggerOrderCancelled: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	source, err := parseAddr(j.Source, "source")
	if err != nil {
		return nil, err
	}
	return &event.TriggerOrderCancelled{LogMeta: meta, Source: source, Nonce: j.Nonce}, nil
}

type vaultUpdatedJSON struct {
	logMetaJSON
	Vault         string `json:"vault"`
	Sender        string `json:"sender"`
	Account       string `json:"account"`
	Version       int64  `json:"version"`
	DepositAssets int64  `json:"deposit_assets,omitempty"`
	RedeemShares  int64  `json:"redeem_shares,omitempty"`
	ClaimAssets   int64  `json:"claim_assets,omitempty"`
}

func parseVaultUpdated(data []byte) (*event.VaultUpdated, error) {
	var j vaultUpdatedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse VaultUpdated: %w", err)
	}
	meta, err := j.meta()
	if err != nil {
		return nil, err
	}
	vault, err := parseAddr(j.Vault, "vault")
	if err != nil {
		return nil, err
	}
	sender, err := parseAddr(j.Sender, "sender")
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(j.Account, "account")
	if err != nil {
		return nil, err
	}
	return &event.VaultUpdated{
		LogMeta:       meta,
		Vault:         vault,
		Sender:        sender,
		Account:       account,
		Version:       j.Version,
		DepositAssets: j.DepositAssets,
		RedeemShares:  j.RedeemShares,
		ClaimAssets:   j.ClaimAssets,
	}, nil
}
