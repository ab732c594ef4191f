package event

import "github.com/ethereum/go-ethereum/common"

// AccountPositionProcessed is the canonical account-level settlement
// event: the protocol has processed the account's position up to
// ToVersion / ToOrderID and reports the fee components charged there.
type AccountPositionProcessed struct {
	LogMeta
	Version ProtocolVersion

	Market  common.Address
	Account common.Address

	ToVersion int64
	ToOrderID int64

	// Collateral is the account's collateral delta accumulated at this
	// settlement (pnl + funding + interest, before fees).
	Collateral int64

	// Offset is the fee portion not credited to the market's fee pool.
	Offset int64

	TradeFee       int64
	SettlementFee  int64
	LiquidationFee int64

	// SubtractiveFee is the portion of fees attributed to the referrer.
	SubtractiveFee int64

	// SolverFee is the portion attributed to the guarantee referrer.
	SolverFee int64

	// PriceOverride is the collateral adjustment from a solver-matched
	// guarantee price differing from the oracle price.
	PriceOverride int64
}

func (e *AccountPositionProcessed) Type() Type { return TypeAccountPositionProcessed }

// AccountPositionProcessedV20 is the v2.0.x / v2.1 shape: a single
// accumulation result with keeper and position-fee components. The
// liquidation fee is not on the event in these versions (v2.0.x derives
// it from the liquidating order's collateral withdrawal, v2.1 reads it
// from the risk parameter side channel).
type AccountPositionProcessedV20 struct {
	LogMeta
	Fork ProtocolVersion

	Market  common.Address
	Account common.Address

	FromOracleVersion int64
	ToOracleVersion   int64
	ToOrderID         int64

	CollateralAmount int64
	Keeper           int64
	PositionFee      int64
}

// Normalize reduces the legacy shape to the canonical call. The legacy
// positionFee is entirely "trade fee"; there is no offset split.
func (e *AccountPositionProcessedV20) Normalize() *AccountPositionProcessed {
	return &AccountPositionProcessed{
		LogMeta:       e.LogMeta,
		Version:       e.Fork,
		Market:        e.Market,
		Account:       e.Account,
		ToVersion:     e.ToOracleVersion,
		ToOrderID:     e.ToOrderID,
		Collateral:    e.CollateralAmount,
		TradeFee:      e.PositionFee,
		SettlementFee: e.Keeper,
	}
}

// AccountPositionProcessedV22 is the v2.2 shape: the fee decomposition
// arrives fully structured on the event.
type AccountPositionProcessedV22 struct {
	LogMeta

	Market  common.Address
	Account common.Address

	OrderTimestamp int64
	OrderID        int64

	Collateral     int64
	Offset         int64
	TradeFee       int64
	SettlementFee  int64
	LiquidationFee int64
	SubtractiveFee int64
	SolverFee      int64
	PriceOverride  int64
}

func (e *AccountPositionProcessedV22) Normalize() *AccountPositionProcessed {
	return &AccountPositionProcessed{
		LogMeta:        e.LogMeta,
		Version:        V2_2,
		Market:         e.Market,
		Account:        e.Account,
		ToVersion:      e.OrderTimestamp,
		ToOrderID:      e.OrderID,
		Collateral:     e.Collateral,
		Offset:         e.Offset,
		TradeFee:       e.TradeFee,
		SettlementFee:  e.SettlementFee,
		LiquidationFee: e.LiquidationFee,
		SubtractiveFee: e.SubtractiveFee,
		SolverFee:      e.SolverFee,
		PriceOverride:  e.PriceOverride,
	}
}

// PositionProcessed is the canonical market-level settlement event,
// carrying the version's incremental accumulation result.
type PositionProcessed struct {
	LogMeta
	Version ProtocolVersion

	Market common.Address

	ToVersion int64
	ToOrderID int64

	Result VersionAccumulationResult
}

func (e *PositionProcessed) Type() Type { return TypePositionProcessed }

// VersionAccumulationResult is the incremental amount distributed to each
// side's accumulator at one oracle version, plus the market-level fee
// components.
type VersionAccumulationResult struct {
	PnlMaker int64
	PnlLong  int64
	PnlShort int64

	FundingMaker int64
	FundingLong  int64
	FundingShort int64

	InterestMaker int64
	InterestLong  int64
	InterestShort int64

	PositionFeeMaker int64
	ExposureMaker    int64

	// Market-level components (credited to the market/protocol, not to a
	// side's accumulator).
	PositionFeeMarket int64
	FundingMarket     int64
	InterestMarket    int64
	ExposureMarket    int64
}

// PositionProcessedV20 is the v2.0.x / v2.1 shape.
type PositionProcessedV20 struct {
	LogMeta
	Fork ProtocolVersion

	Market common.Address

	FromOracleVersion int64
	ToOracleVersion   int64
	ToOrderID         int64

	Result VersionAccumulationResult
}

func (e *PositionProcessedV20) Normalize() *PositionProcessed {
	return &PositionProcessed{
		LogMeta:   e.LogMeta,
		Version:   e.Fork,
		Market:    e.Market,
		ToVersion: e.ToOracleVersion,
		ToOrderID: e.ToOrderID,
		Result:    e.Result,
	}
}

// PositionProcessedV22 is the v2.2 shape: keyed by order rather than by
// version span.
type PositionProcessedV22 struct {
	LogMeta

	Market common.Address

	OrderTimestamp int64
	OrderID        int64

	Result VersionAccumulationResult
}

func (e *PositionProcessedV22) Normalize() *PositionProcessed {
	return &PositionProcessed{
		LogMeta:   e.LogMeta,
		Version:   V2_2,
		Market:    e.Market,
		ToVersion: e.OrderTimestamp,
		ToOrderID: e.OrderID,
		Result:    e.Result,
	}
}
