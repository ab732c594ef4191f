package entity

import "github.com/ethereum/go-ethereum/common"

// OrderAccumulation is a named bundle of signed 6-decimal sub-components
// of a collateral delta. It is owned independently by an Order, by a
// Position, and by every bucketed aggregate that needs "sum of underlying
// order accumulations since last observation".
//
// Callers that mutate an accumulation snapshot it first and propagate the
// before/after diff to the enclosing aggregates; the derived nets are
// recomputed by the mutation helpers.
type OrderAccumulation struct {
	ID string `json:"id"`

	// Derived nets.
	CollateralAccumulation int64 `json:"collateral_accumulation"`
	FeeAccumulation        int64 `json:"fee_accumulation"`

	// Collateral sub-components.
	CollateralOffset           int64 `json:"collateral_subAccumulation_offset"`
	CollateralPnl              int64 `json:"collateral_subAccumulation_pnl"`
	CollateralFunding          int64 `json:"collateral_subAccumulation_funding"`
	CollateralInterest         int64 `json:"collateral_subAccumulation_interest"`
	CollateralMakerPositionFee int64 `json:"collateral_subAccumulation_makerPositionFee"`
	CollateralMakerExposure    int64 `json:"collateral_subAccumulation_makerExposure"`
	CollateralPriceOverride    int64 `json:"collateral_subAccumulation_priceOverride"`

	// Fee sub-components.
	FeeTrade        int64 `json:"fee_subAccumulation_trade"`
	FeeSettlement   int64 `json:"fee_subAccumulation_settlement"`
	FeeLiquidation  int64 `json:"fee_subAccumulation_liquidation"`
	FeeAdditive     int64 `json:"fee_subAccumulation_additive"`
	FeeTriggerOrder int64 `json:"fee_subAccumulation_triggerOrder"`

	// Fee portions attributed to referrers/solvers.
	SubtractiveFee int64 `json:"metadata_subtractiveFee"`
	SolverFee      int64 `json:"metadata_solverFee"`
}

func (a *OrderAccumulation) EntityKind() Kind { return KindOrderAccumulation }
func (a *OrderAccumulation) EntityID() string { return a.ID }

// Recompute refreshes the derived nets from the sub-components.
func (a *OrderAccumulation) Recompute() {
	a.CollateralAccumulation = a.CollateralOffset + a.CollateralPnl + a.CollateralFunding +
		a.CollateralInterest + a.CollateralMakerPositionFee + a.CollateralMakerExposure +
		a.CollateralPriceOverride
	a.FeeAccumulation = a.FeeTrade + a.FeeSettlement + a.FeeLiquidation +
		a.FeeAdditive + a.FeeTriggerOrder
}

// Snapshot returns a value copy taken before mutation.
func (a *OrderAccumulation) Snapshot() OrderAccumulation {
	return *a
}

// Diff returns the field-wise difference after-minus-before, with the
// receiver as "after". The result's ID is empty: it is a value, not a
// stored entity.
func (a *OrderAccumulation) Diff(before OrderAccumulation) OrderAccumulation {
	return OrderAccumulation{
		CollateralAccumulation:     a.CollateralAccumulation - before.CollateralAccumulation,
		FeeAccumulation:            a.FeeAccumulation - before.FeeAccumulation,
		CollateralOffset:           a.CollateralOffset - before.CollateralOffset,
		CollateralPnl:              a.CollateralPnl - before.CollateralPnl,
		CollateralFunding:          a.CollateralFunding - before.CollateralFunding,
		CollateralInterest:         a.CollateralInterest - before.CollateralInterest,
		CollateralMakerPositionFee: a.CollateralMakerPositionFee - before.CollateralMakerPositionFee,
		CollateralMakerExposure:    a.CollateralMakerExposure - before.CollateralMakerExposure,
		CollateralPriceOverride:    a.CollateralPriceOverride - before.CollateralPriceOverride,
		FeeTrade:                   a.FeeTrade - before.FeeTrade,
		FeeSettlement:              a.FeeSettlement - before.FeeSettlement,
		FeeLiquidation:             a.FeeLiquidation - before.FeeLiquidation,
		FeeAdditive:                a.FeeAdditive - before.FeeAdditive,
		FeeTriggerOrder:            a.FeeTriggerOrder - before.FeeTriggerOrder,
		SubtractiveFee:             a.SubtractiveFee - before.SubtractiveFee,
		SolverFee:                  a.SolverFee - before.SolverFee,
	}
}

// Add folds a diff into the accumulation.
func (a *OrderAccumulation) Add(d OrderAccumulation) {
	a.CollateralAccumulation += d.CollateralAccumulation
	a.FeeAccumulation += d.FeeAccumulation
	a.CollateralOffset += d.CollateralOffset
	a.CollateralPnl += d.CollateralPnl
	a.CollateralFunding += d.CollateralFunding
	a.CollateralInterest += d.CollateralInterest
	a.CollateralMakerPositionFee += d.CollateralMakerPositionFee
	a.CollateralMakerExposure += d.CollateralMakerExposure
	a.CollateralPriceOverride += d.CollateralPriceOverride
	a.FeeTrade += d.FeeTrade
	a.FeeSettlement += d.FeeSettlement
	a.FeeLiquidation += d.FeeLiquidation
	a.FeeAdditive += d.FeeAdditive
	a.FeeTriggerOrder += d.FeeTriggerOrder
	a.SubtractiveFee += d.SubtractiveFee
	a.SolverFee += d.SolverFee
}

// IsZero reports whether every field of a diff is zero.
func (a OrderAccumulation) IsZero() bool {
	return a == OrderAccumulation{ID: a.ID}
}

// MarketAccumulation is the market-granularity bucketed aggregate. Market
// buckets carry side-split channel fields and rate snapshots in addition
// to the owned OrderAccumulation child.
type MarketAccumulation struct {
	ID        string         `json:"id"`
	Market    common.Address `json:"market"`
	Bucket    Bucket         `json:"bucket"`
	Timestamp int64          `json:"timestamp"`

	// Accumulation is the owned OrderAccumulation id (fee/collateral sums
	// of all account accumulations in the bucket).
	Accumulation string `json:"accumulation"`

	// Traded unit volume per side.
	Maker int64 `json:"maker"`
	Long  int64 `json:"long"`
	Short int64 `json:"short"`

	// Traded notional per side.
	MakerNotional int64 `json:"makerNotional"`
	LongNotional  int64 `json:"longNotional"`
	ShortNotional int64 `json:"shortNotional"`

	// Side-split accumulation channels.
	PnlMaker         int64 `json:"pnlMaker"`
	PnlLong          int64 `json:"pnlLong"`
	PnlShort         int64 `json:"pnlShort"`
	FundingMaker     int64 `json:"fundingMaker"`
	FundingLong      int64 `json:"fundingLong"`
	FundingShort     int64 `json:"fundingShort"`
	InterestMaker    int64 `json:"interestMaker"`
	InterestLong     int64 `json:"interestLong"`
	InterestShort    int64 `json:"interestShort"`
	PositionFeeMaker int64 `json:"positionFeeMaker"`
	ExposureMaker    int64 `json:"exposureMaker"`

	// Market-level fee components from position processing.
	PositionFeeMarket int64 `json:"positionFeeMarket"`
	FundingMarket     int64 `json:"fundingMarket"`
	InterestMarket    int64 `json:"interestMarket"`
	ExposureMarket    int64 `json:"exposureMarket"`

	// Annualized rate snapshots (overwritten each settlement in bucket).
	FundingRateMaker  int64 `json:"fundingRateMaker"`
	FundingRateLong   int64 `json:"fundingRateLong"`
	FundingRateShort  int64 `json:"fundingRateShort"`
	InterestRateMaker int64 `json:"interestRateMaker"`
	InterestRateLong  int64 `json:"interestRateLong"`
	InterestRateShort int64 `json:"interestRateShort"`

	Trades       int64 `json:"trades"`
	Traders      int64 `json:"traders"`
	Liquidations int64 `json:"liquidations"`
}

func (m *MarketAccumulation) EntityKind() Kind { return KindMarketAccumulation }
func (m *MarketAccumulation) EntityID() string { return m.ID }

// MarketAccountAccumulation is the (market, account)-granularity bucket.
type MarketAccountAccumulation struct {
	ID            string         `json:"id"`
	Market        common.Address `json:"market"`
	Account       common.Address `json:"account"`
	MarketAccount string         `json:"marketAccount"`
	Bucket        Bucket         `json:"bucket"`
	Timestamp     int64          `json:"timestamp"`

	Accumulation      string `json:"accumulation"`
	TakerAccumulation string `json:"takerAccumulation"`

	Maker         int64 `json:"maker"`
	Long          int64 `json:"long"`
	Short         int64 `json:"short"`
	MakerNotional int64 `json:"makerNotional"`
	LongNotional  int64 `json:"longNotional"`
	ShortNotional int64 `json:"shortNotional"`

	Trades       int64 `json:"trades"`
	Liquidations int64 `json:"liquidations"`
}

func (m *MarketAccountAccumulation) EntityKind() Kind { return KindMarketAccountAccumulation }
func (m *MarketAccountAccumulation) EntityID() string { return m.ID }

// AccountAccumulation is the account-granularity bucket across markets.
type AccountAccumulation struct {
	ID        string         `json:"id"`
	Account   common.Address `json:"account"`
	Bucket    Bucket         `json:"bucket"`
	Timestamp int64          `json:"timestamp"`

	Accumulation      string `json:"accumulation"`
	TakerAccumulation string `json:"takerAccumulation"`

	MakerNotional int64 `json:"makerNotional"`
	LongNotional  int64 `json:"longNotional"`
	ShortNotional int64 `json:"shortNotional"`

	Trades int64 `json:"trades"`
}

func (a *AccountAccumulation) EntityKind() Kind { return KindAccountAccumulation }
func (a *AccountAccumulation) EntityID() string { return a.ID }

// ReferrerAccumulation attributes referred volume and subtractive fees to
// a referrer per bucket.
type ReferrerAccumulation struct {
	ID        string         `json:"id"`
	Referrer  common.Address `json:"referrer"`
	Bucket    Bucket         `json:"bucket"`
	Timestamp int64          `json:"timestamp"`

	ReferredMakerNotional int64 `json:"referredMakerNotional"`
	ReferredLongNotional  int64 `json:"referredLongNotional"`
	ReferredShortNotional int64 `json:"referredShortNotional"`

	SubtractiveFee int64 `json:"subtractiveFee"`
	SolverFee      int64 `json:"solverFee"`

	ReferredTrades int64 `json:"referredTrades"`
}

func (r *ReferrerAccumulation) EntityKind() Kind { return KindReferrerAccumulation }
func (r *ReferrerAccumulation) EntityID() string { return r.ID }

// ProtocolAccumulation is the protocol-wide bucket: the sum over all
// markets sharing the bucket key.
type ProtocolAccumulation struct {
	ID        string `json:"id"`
	Bucket    Bucket `json:"bucket"`
	Timestamp int64  `json:"timestamp"`

	Accumulation string `json:"accumulation"`

	MakerNotional int64 `json:"makerNotional"`
	LongNotional  int64 `json:"longNotional"`
	ShortNotional int64 `json:"shortNotional"`

	PnlMaker         int64 `json:"pnlMaker"`
	PnlLong          int64 `json:"pnlLong"`
	PnlShort         int64 `json:"pnlShort"`
	FundingMaker     int64 `json:"fundingMaker"`
	FundingLong      int64 `json:"fundingLong"`
	FundingShort     int64 `json:"fundingShort"`
	InterestMaker    int64 `json:"interestMaker"`
	InterestLong     int64 `json:"interestLong"`
	InterestShort    int64 `json:"interestShort"`
	PositionFeeMaker int64 `json:"positionFeeMaker"`
	ExposureMaker    int64 `json:"exposureMaker"`

	PositionFeeMarket int64 `json:"positionFeeMarket"`
	FundingMarket     int64 `json:"fundingMarket"`
	InterestMarket    int64 `json:"interestMarket"`
	ExposureMarket    int64 `json:"exposureMarket"`

	Trades       int64 `json:"trades"`
	Traders      int64 `json:"traders"`
	Liquidations int64 `json:"liquidations"`
}

func (p *ProtocolAccumulation) EntityKind() Kind { return KindProtocolAccumulation }
func (p *ProtocolAccumulation) EntityID() string { return p.ID }
