package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/accumulator"
	"PerpIndexer/internal/aggregation"
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/fees"
	"PerpIndexer/internal/store"
)

// SettleMarketPosition applies a market-level settlement: it extends the
// cumulative per-unit accumulator chain by one version, folds the settled
// market order into market-wide exposure, maintains socialization
// periods, and rolls the version's result into the market and protocol
// buckets.
func (l *Ledger) SettleMarketPosition(ctx context.Context, e *event.PositionProcessed) error {
	market, err := store.Market(l.store, e.Market)
	if err != nil {
		return fmt.Errorf("settlement for unknown market: %w", err)
	}

	fromVersion := market.LatestVersion
	prev := l.loadAccumulator(e.Market, fromVersion)

	// The accumulator is cumulative: each version's value is the prior
	// value plus this version's result distributed over the exposure it
	// accrued to, which is the exposure before this settlement's order
	// folds in.
	r := e.Result
	next := &entity.MarketAccumulator{
		ID:      entity.MarketAccumulatorID(e.Market, e.ToVersion),
		Market:  e.Market,
		Version: e.ToVersion,

		PnlMaker: accumulator.Increment(prev.PnlMaker, r.PnlMaker, market.Maker),
		PnlLong:  accumulator.Increment(prev.PnlLong, r.PnlLong, market.Long),
		PnlShort: accumulator.Increment(prev.PnlShort, r.PnlShort, market.Short),

		FundingMaker: accumulator.Increment(prev.FundingMaker, r.FundingMaker, market.Maker),
		FundingLong:  accumulator.Increment(prev.FundingLong, r.FundingLong, market.Long),
		FundingShort: accumulator.Increment(prev.FundingShort, r.FundingShort, market.Short),

		InterestMaker: accumulator.Increment(prev.InterestMaker, r.InterestMaker, market.Maker),
		InterestLong:  accumulator.Increment(prev.InterestLong, r.InterestLong, market.Long),
		InterestShort: accumulator.Increment(prev.InterestShort, r.InterestShort, market.Short),

		PositionFeeMaker: accumulator.Increment(prev.PositionFeeMaker, r.PositionFeeMaker, market.Maker),
		ExposureMaker:    accumulator.Increment(prev.ExposureMaker, r.ExposureMaker, market.Maker),
	}
	l.store.Save(next)

	elapsed := e.ToVersion - fromVersion
	settlement := aggregation.MarketSettlement{
		Result:            r,
		FundingRateMaker:  aggregation.AnnualizedRate(next.FundingMaker-prev.FundingMaker, market.LatestPrice, elapsed),
		FundingRateLong:   aggregation.AnnualizedRate(next.FundingLong-prev.FundingLong, market.LatestPrice, elapsed),
		FundingRateShort:  aggregation.AnnualizedRate(next.FundingShort-prev.FundingShort, market.LatestPrice, elapsed),
		InterestRateMaker: aggregation.AnnualizedRate(next.InterestMaker-prev.InterestMaker, market.LatestPrice, elapsed),
		InterestRateLong:  aggregation.AnnualizedRate(next.InterestLong-prev.InterestLong, market.LatestPrice, elapsed),
		InterestRateShort: aggregation.AnnualizedRate(next.InterestShort-prev.InterestShort, market.LatestPrice, elapsed),
	}

	// Fold the settled market order into market-wide exposure, if its
	// oracle version produced a valid price.
	if e.ToOrderID > market.LatestOrderID {
		if mo, merr := store.MarketOrder(l.store, entity.MarketOrderID(e.Market, e.ToOrderID)); merr == nil {
			if l.orderVersionValid(ctx, mo.OracleVersion) {
				market.Maker += mo.Maker
				market.Long += mo.Long
				market.Short += mo.Short
			}
			mo.NewMaker = market.Maker
			mo.NewLong = market.Long
			mo.NewShort = market.Short
			l.store.Save(mo)
		}
	}

	l.trackSocialization(market, e.ToVersion)

	market.LatestVersion = e.ToVersion
	market.LatestOrderID = e.ToOrderID
	l.store.Save(market)

	l.agg.RecordMarketSettlement(e.Market, settlement, e.ToVersion)
	return nil
}

// trackSocialization opens or closes the market's socialization period
// after an exposure change. Periods are append-only history; at most one
// is open per market.
func (l *Ledger) trackSocialization(market *entity.Market, version int64) {
	socialized := entity.Socialized(market.Maker, market.Long, market.Short)

	switch {
	case socialized && market.CurrentSocializationPeriod == "":
		p := &entity.MarketSocializationPeriod{
			ID:           entity.SocializationPeriodID(market.ID, version),
			Market:       market.ID,
			StartVersion: version,
			StartMaker:   market.Maker,
			StartLong:    market.Long,
			StartShort:   market.Short,
		}
		l.store.Save(p)
		market.CurrentSocializationPeriod = p.ID
		l.log.Info().
			Str("market", market.ID.Hex()).
			Int64("version", version).
			Msg("socialization period opened")
	case !socialized && market.CurrentSocializationPeriod != "":
		if p, err := store.SocializationPeriod(l.store, market.CurrentSocializationPeriod); err == nil {
			p.EndVersion = version
			l.store.Save(p)
		}
		market.CurrentSocializationPeriod = ""
		l.log.Info().
			Str("market", market.ID.Hex()).
			Int64("version", version).
			Msg("socialization period closed")
	}
}

// SettleAccountPosition applies an account-level settlement: the span
// since the account's previous settlement accrues to the previous order
// through the accumulator chain, the newly settled order receives its fee
// decomposition, and the order's exposure delta folds into the settled
// position when its oracle version was valid.
func (l *Ledger) SettleAccountPosition(ctx context.Context, e *event.AccountPositionProcessed) error {
	ma, err := store.MarketAccount(l.store, entity.MarketAccountID(e.Market, e.Account))
	if err != nil {
		return fmt.Errorf("settlement for unknown account: %w", err)
	}

	l.accrueSpan(ma, e)

	order, oerr := store.Order(l.store, entity.OrderID(e.Market, e.Account, e.ToOrderID))
	if oerr != nil {
		// Settlement of the empty genesis order: nothing to decompose.
		ma.LatestVersion = e.ToVersion
		ma.LatestOrderID = e.ToOrderID
		l.store.Save(ma)
		return nil
	}

	acc := store.LoadOrCreateOrderAccumulation(l.store, order.Accumulation)
	before := acc.Snapshot()
	acc.FeeTrade += e.TradeFee
	acc.FeeSettlement += e.SettlementFee
	acc.CollateralOffset += e.Offset
	acc.CollateralPriceOverride += e.PriceOverride
	acc.SubtractiveFee += e.SubtractiveFee
	acc.SolverFee += e.SolverFee

	// The liquidation fee is charged once per order, through whichever
	// path the protocol version supplies it.
	if order.Liquidation && acc.FeeLiquidation == 0 {
		fee := e.LiquidationFee
		if e.Version.Before(event.V2_2) {
			derived, ferr := fees.LiquidationFee(ctx, e.Version, e.Market, 0, l.caller)
			if ferr != nil {
				return ferr
			}
			fee = derived
		}
		acc.FeeLiquidation = fee
	}
	liquidationCharged := acc.FeeLiquidation - before.FeeLiquidation

	ma.Collateral += e.Collateral + e.Offset + e.PriceOverride - e.TradeFee - e.SettlementFee - liquidationCharged
	order.EndCollateral = ma.Collateral

	// The exposure delta folds in once, on the settlement that first
	// reaches this order. Later settlements at the same order are
	// span-only accruals.
	if e.ToOrderID > ma.LatestOrderID {
		l.foldExposure(ctx, ma, order, e)
	}

	ma.LatestVersion = e.ToVersion
	ma.LatestOrderID = e.ToOrderID
	l.store.Save(ma)
	l.store.Save(order)
	l.applyAccumulationDiff(ma, order, before, acc, e.ToVersion)
	return nil
}

// accrueSpan settles the interval since the account's previous
// settlement: the exposure held over that span accrues each accumulator
// channel's cumulative delta, credited to the order that established it.
func (l *Ledger) accrueSpan(ma *entity.MarketAccount, e *event.AccountPositionProcessed) {
	if ma.LatestOrderID == 0 {
		return
	}
	size := ma.Magnitude()
	side := ma.Side()
	if size == 0 || side == entity.SideNone {
		return
	}
	prevOrder, err := store.Order(l.store, entity.OrderID(e.Market, e.Account, ma.LatestOrderID))
	if err != nil {
		return
	}

	from := l.loadAccumulator(e.Market, ma.LatestVersion)
	to := l.loadAccumulator(e.Market, e.ToVersion)

	acc := store.LoadOrCreateOrderAccumulation(l.store, prevOrder.Accumulation)
	before := acc.Snapshot()
	acc.CollateralPnl += accumulator.Accumulated(to, from, size, side, accumulator.ChannelPnl)
	acc.CollateralFunding += accumulator.Accumulated(to, from, size, side, accumulator.ChannelFunding)
	acc.CollateralInterest += accumulator.Accumulated(to, from, size, side, accumulator.ChannelInterest)
	if side == entity.SideMaker {
		acc.CollateralMakerPositionFee += accumulator.Accumulated(to, from, size, side, accumulator.ChannelPositionFee)
		acc.CollateralMakerExposure += accumulator.Accumulated(to, from, size, side, accumulator.ChannelExposure)
	}
	l.applyAccumulationDiff(ma, prevOrder, before, acc, e.ToVersion)
}

// foldExposure applies the settled order's exposure delta. A valid
// version folds the delta into the settled account and position state; an
// invalid one records an invalidation offset under the schema versions
// that do not emit a corrective order.
func (l *Ledger) foldExposure(ctx context.Context, ma *entity.MarketAccount, order *entity.Order, e *event.AccountPositionProcessed) {
	if !l.orderVersionValid(ctx, order.OracleVersion) {
		if e.Version.Before(event.V2_2) {
			ma.MakerInvalidation += order.Maker
			ma.LongInvalidation += order.Long
			ma.ShortInvalidation += order.Short
			ma.PendingMaker -= order.Maker
			ma.PendingLong -= order.Long
			ma.PendingShort -= order.Short
		}
		return
	}

	ma.Maker += order.Maker
	ma.Long += order.Long
	ma.Short += order.Short

	pos, err := store.Position(l.store, order.Position)
	if err != nil {
		return
	}
	magBefore := pos.Magnitude()
	pos.Maker += order.Maker
	pos.Long += order.Long
	pos.Short += order.Short
	// StartCollateral is not snapshotted here: it was taken when the
	// position opened at order creation, before settlement deltas.
	if magBefore == 0 && pos.Magnitude() != 0 {
		pos.StartMaker = pos.Maker
		pos.StartLong = pos.Long
		pos.StartShort = pos.Short
		pos.StartVersion = e.ToVersion
	}
	l.store.Save(pos)
}

// orderVersionValid resolves an order's oracle-version validity, falling
// back to a live read for versions not yet fulfilled locally.
func (l *Ledger) orderVersionValid(ctx context.Context, oracleVersionID string) bool {
	if oracleVersionID == "" {
		return false
	}
	v, err := store.OracleVersion(l.store, oracleVersionID)
	if err != nil {
		return false
	}
	return l.tracker.VersionValid(ctx, v)
}

// loadAccumulator returns the market accumulator at a version, or a
// zero-valued one when the version predates indexing.
func (l *Ledger) loadAccumulator(market common.Address, version int64) *entity.MarketAccumulator {
	id := entity.MarketAccumulatorID(market, version)
	if a, err := store.MarketAccumulator(l.store, id); err == nil {
		return a
	}
	return &entity.MarketAccumulator{ID: id, Market: market, Version: version}
}
