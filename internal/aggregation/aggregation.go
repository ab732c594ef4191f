// Package aggregation maintains the bucketed rollups: every trade and
// every accumulation delta is folded into the hourly, daily, weekly and
// all-time aggregates at market-account, account, market, referrer and
// protocol granularity in the same event transaction that produced it.
package aggregation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/big6"
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/store"
)

// SecondsPerYear annualizes per-settlement rates.
const SecondsPerYear = 31_536_000

// Aggregator folds settlement output into the bucketed aggregates.
type Aggregator struct {
	store store.Store
}

func New(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Trade is one fulfilled order's volume contribution.
type Trade struct {
	Side     entity.Side
	Size     int64 // absolute unit size of the delta
	Notional int64

	Liquidation       bool
	Referrer          common.Address
	GuaranteeReferrer common.Address
}

var zeroAddress common.Address

// RecordTrade folds a fulfilled order's volume into every bucket at all
// granularities. Trader counts are derived from trade-count transitions:
// a market-account's first trade in a bucket makes its account one of the
// market's traders for that bucket, and an account's first trade in a
// bucket makes it one of the protocol's traders.
func (ag *Aggregator) RecordTrade(ma *entity.MarketAccount, t Trade, timestamp int64) {
	for _, bucket := range entity.Buckets {
		bucketTS := bucket.Timestamp(timestamp)

		maa := store.LoadOrCreateMarketAccountAccumulation(ag.store, ma, bucket, bucketTS)
		aa := store.LoadOrCreateAccountAccumulation(ag.store, ma.Account, bucket, bucketTS)
		market := store.LoadOrCreateMarketAccumulation(ag.store, ma.Market, bucket, bucketTS)
		protocol := store.LoadOrCreateProtocolAccumulation(ag.store, bucket, bucketTS)

		switch t.Side {
		case entity.SideMaker:
			maa.Maker += t.Size
			maa.MakerNotional += t.Notional
			aa.MakerNotional += t.Notional
			market.Maker += t.Size
			market.MakerNotional += t.Notional
			protocol.MakerNotional += t.Notional
		case entity.SideLong:
			maa.Long += t.Size
			maa.LongNotional += t.Notional
			aa.LongNotional += t.Notional
			market.Long += t.Size
			market.LongNotional += t.Notional
			protocol.LongNotional += t.Notional
		case entity.SideShort:
			maa.Short += t.Size
			maa.ShortNotional += t.Notional
			aa.ShortNotional += t.Notional
			market.Short += t.Size
			market.ShortNotional += t.Notional
			protocol.ShortNotional += t.Notional
		}

		if maa.Trades == 0 {
			market.Traders++
		}
		maa.Trades++
		if aa.Trades == 0 {
			protocol.Traders++
		}
		aa.Trades++
		market.Trades++
		protocol.Trades++

		if t.Liquidation {
			maa.Liquidations++
			market.Liquidations++
			protocol.Liquidations++
		}

		if t.Referrer != zeroAddress {
			ra := store.LoadOrCreateReferrerAccumulation(ag.store, t.Referrer, bucket, bucketTS)
			switch t.Side {
			case entity.SideMaker:
				ra.ReferredMakerNotional += t.Notional
			case entity.SideLong:
				ra.ReferredLongNotional += t.Notional
			case entity.SideShort:
				ra.ReferredShortNotional += t.Notional
			}
			ra.ReferredTrades++
			ag.store.Save(ra)
		}

		ag.store.Save(maa)
		ag.store.Save(aa)
		ag.store.Save(market)
		ag.store.Save(protocol)
	}
}

// PropagateDiff folds an order accumulation delta into every bucketed
// aggregate that sums over it. The taker flag routes the delta into the
// taker-only children as well; referrer attributions are split out to the
// referrer aggregates.
func (ag *Aggregator) PropagateDiff(ma *entity.MarketAccount, taker bool, referrer, guaranteeReferrer common.Address, diff entity.OrderAccumulation, timestamp int64) {
	if diff.IsZero() {
		return
	}
	for _, bucket := range entity.Buckets {
		bucketTS := bucket.Timestamp(timestamp)

		maa := store.LoadOrCreateMarketAccountAccumulation(ag.store, ma, bucket, bucketTS)
		aa := store.LoadOrCreateAccountAccumulation(ag.store, ma.Account, bucket, bucketTS)
		market := store.LoadOrCreateMarketAccumulation(ag.store, ma.Market, bucket, bucketTS)
		protocol := store.LoadOrCreateProtocolAccumulation(ag.store, bucket, bucketTS)

		ag.addDiff(maa.Accumulation, diff)
		ag.addDiff(aa.Accumulation, diff)
		ag.addDiff(market.Accumulation, diff)
		ag.addDiff(protocol.Accumulation, diff)
		if taker {
			ag.addDiff(maa.TakerAccumulation, diff)
			ag.addDiff(aa.TakerAccumulation, diff)
		}

		if referrer != zeroAddress && diff.SubtractiveFee != 0 {
			ra := store.LoadOrCreateReferrerAccumulation(ag.store, referrer, bucket, bucketTS)
			ra.SubtractiveFee += diff.SubtractiveFee
			ag.store.Save(ra)
		}
		if guaranteeReferrer != zeroAddress && diff.SolverFee != 0 {
			ra := store.LoadOrCreateReferrerAccumulation(ag.store, guaranteeReferrer, bucket, bucketTS)
			ra.SolverFee += diff.SolverFee
			ag.store.Save(ra)
		}
	}
}

func (ag *Aggregator) addDiff(accumulationID string, diff entity.OrderAccumulation) {
	a := store.LoadOrCreateOrderAccumulation(ag.store, accumulationID)
	a.Add(diff)
	ag.store.Save(a)
}

// MarketSettlement is one version's market-level accumulation output plus
// the annualized rate snapshots computed from it.
type MarketSettlement struct {
	Result event.VersionAccumulationResult

	FundingRateMaker  int64
	FundingRateLong   int64
	FundingRateShort  int64
	InterestRateMaker int64
	InterestRateLong  int64
	InterestRateShort int64
}

// RecordMarketSettlement folds a market settlement's side-split channels
// and market-level fee components into the market and protocol buckets.
// Rates are snapshots, not sums: each settlement in a bucket overwrites
// the previous one, leaving the bucket holding the latest rate.
func (ag *Aggregator) RecordMarketSettlement(marketAddr common.Address, s MarketSettlement, timestamp int64) {
	r := s.Result
	for _, bucket := range entity.Buckets {
		bucketTS := bucket.Timestamp(timestamp)

		market := store.LoadOrCreateMarketAccumulation(ag.store, marketAddr, bucket, bucketTS)
		protocol := store.LoadOrCreateProtocolAccumulation(ag.store, bucket, bucketTS)

		market.PnlMaker += r.PnlMaker
		market.PnlLong += r.PnlLong
		market.PnlShort += r.PnlShort
		market.FundingMaker += r.FundingMaker
		market.FundingLong += r.FundingLong
		market.FundingShort += r.FundingShort
		market.InterestMaker += r.InterestMaker
		market.InterestLong += r.InterestLong
		market.InterestShort += r.InterestShort
		market.PositionFeeMaker += r.PositionFeeMaker
		market.ExposureMaker += r.ExposureMaker
		market.PositionFeeMarket += r.PositionFeeMarket
		market.FundingMarket += r.FundingMarket
		market.InterestMarket += r.InterestMarket
		market.ExposureMarket += r.ExposureMarket

		market.FundingRateMaker = s.FundingRateMaker
		market.FundingRateLong = s.FundingRateLong
		market.FundingRateShort = s.FundingRateShort
		market.InterestRateMaker = s.InterestRateMaker
		market.InterestRateLong = s.InterestRateLong
		market.InterestRateShort = s.InterestRateShort

		protocol.PnlMaker += r.PnlMaker
		protocol.PnlLong += r.PnlLong
		protocol.PnlShort += r.PnlShort
		protocol.FundingMaker += r.FundingMaker
		protocol.FundingLong += r.FundingLong
		protocol.FundingShort += r.FundingShort
		protocol.InterestMaker += r.InterestMaker
		protocol.InterestLong += r.InterestLong
		protocol.InterestShort += r.InterestShort
		protocol.PositionFeeMaker += r.PositionFeeMaker
		protocol.ExposureMaker += r.ExposureMaker
		protocol.PositionFeeMarket += r.PositionFeeMarket
		protocol.FundingMarket += r.FundingMarket
		protocol.InterestMarket += r.InterestMarket
		protocol.ExposureMarket += r.ExposureMarket

		ag.store.Save(market)
		ag.store.Save(protocol)
	}
}

// AnnualizedRate converts a per-unit accumulator delta over an elapsed
// span into an annualized fraction of notional: delta scaled by
// seconds-per-year over elapsed, divided by price. Zero elapsed time or
// price yields zero rather than a division error.
func AnnualizedRate(perUnitDelta, price, elapsedSeconds int64) int64 {
	if perUnitDelta == 0 || price == 0 || elapsedSeconds == 0 {
		return 0
	}
	num := new(big.Int).Mul(big.NewInt(perUnitDelta), big.NewInt(SecondsPerYear))
	num.Mul(num, big.NewInt(big6.Base))
	den := new(big.Int).Mul(big.NewInt(price), big.NewInt(elapsedSeconds))
	return num.Quo(num, den).Int64()
}
