package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/fees"
	"PerpIndexer/internal/store"
)

var zeroAddress common.Address

// HandleOrderCreated applies a canonical order-creation call. Multiple
// calls for the same account at the same oracle version merge into one
// Order. The collateral delta applies immediately; the exposure delta
// stays pending until the oracle version settles.
func (l *Ledger) HandleOrderCreated(ctx context.Context, e *event.OrderCreated) error {
	market, err := store.Market(l.store, e.Market)
	if err != nil {
		return fmt.Errorf("order for unknown market: %w", err)
	}
	ma := store.LoadOrCreateMarketAccount(l.store, e.Market, e.Account)

	// Advance the order-sequence counters when the version moves forward.
	if e.OracleTimestamp > market.CurrentVersion {
		market.CurrentVersion = e.OracleTimestamp
		market.CurrentOrderID++
	}
	if e.OracleTimestamp > ma.CurrentVersion {
		ma.CurrentVersion = e.OracleTimestamp
		ma.CurrentOrderID++
	}

	// A zero-to-non-zero pending exposure transition begins a new position.
	pendingBefore := entity.Magnitude(ma.PendingMaker, ma.PendingLong, ma.PendingShort)
	ma.PendingMaker += e.Maker
	ma.PendingLong += e.Long
	ma.PendingShort += e.Short
	pendingAfter := entity.Magnitude(ma.PendingMaker, ma.PendingLong, ma.PendingShort)
	newPosition := pendingBefore == 0 && pendingAfter != 0
	if newPosition {
		ma.PositionNonce++
	}
	position := store.LoadOrCreateCurrentPosition(l.store, ma)

	orderID := entity.OrderID(e.Market, e.Account, ma.CurrentOrderID)
	order, err := store.Order(l.store, orderID)
	if err != nil {
		order = &entity.Order{
			ID:              orderID,
			MarketAccount:   ma.ID,
			Position:        position.ID,
			MarketOrder:     entity.MarketOrderID(e.Market, market.CurrentOrderID),
			OrderID:         ma.CurrentOrderID,
			Version:         e.OracleTimestamp,
			StartCollateral: ma.Collateral,
			Accumulation:    store.LoadOrCreateOrderAccumulation(l.store, entity.OwnedAccumulationID("order", orderID)).ID,
		}
	}
	if !order.HasTransaction(e.TxHash) {
		order.TransactionHashes = append(order.TransactionHashes, e.TxHash)
	}

	order.Maker += e.Maker
	order.Long += e.Long
	order.Short += e.Short
	order.MakerTotal += abs(e.Maker)
	order.LongTotal += abs(e.Long)
	order.ShortTotal += abs(e.Short)
	order.NewMaker = ma.PendingMaker
	order.NewLong = ma.PendingLong
	order.NewShort = ma.PendingShort
	order.Collateral += e.Collateral
	ma.Collateral += e.Collateral

	// Snapshot the collateral the position starts from at creation time,
	// once the opening order's own collateral delta has applied. Taking
	// it here keeps later settlement deltas out of the snapshot.
	if newPosition {
		position.StartCollateral = ma.Collateral
	}

	// Liquidation and referral metadata are first-write-wins.
	if e.Liquidation && !order.Liquidation {
		order.Liquidation = true
		order.Liquidator = e.Liquidator
	}
	if e.Referrer != zeroAddress && order.Referrer == zeroAddress {
		order.Referrer = e.Referrer
	}
	if e.GuaranteeReferrer != zeroAddress && order.GuaranteeReferrer == zeroAddress {
		order.GuaranteeReferrer = e.GuaranteeReferrer
	}
	if e.GuaranteePrice != nil && order.GuaranteePrice == nil {
		p := *e.GuaranteePrice
		order.GuaranteePrice = &p
	}

	// Out-of-band fees leave receipt-log evidence on pure withdrawals.
	sizeDelta := e.Maker + e.Long + e.Short
	receipt := fees.ProcessReceipt(e.Receipt, e.Collateral, sizeDelta)

	acc := store.LoadOrCreateOrderAccumulation(l.store, order.Accumulation)
	before := acc.Snapshot()
	acc.FeeAdditive += receipt.InterfaceFee
	acc.FeeTriggerOrder += receipt.OrderFee

	// Under the earliest schema the liquidating withdrawal is itself the
	// liquidation fee. Later schemas deliver the fee at settlement.
	if e.Liquidation && e.Version.Before(event.V2_1) && acc.FeeLiquidation == 0 {
		fee, ferr := fees.LiquidationFee(ctx, e.Version, e.Market, e.Collateral, l.caller)
		if ferr != nil {
			return ferr
		}
		acc.FeeLiquidation = fee
	}

	// Classify the collateral flow net of reclassified fees.
	feePortion := receipt.InterfaceFee + receipt.OrderFee + acc.FeeLiquidation - before.FeeLiquidation
	netDelta := e.Collateral + feePortion
	if netDelta > 0 {
		order.DepositTotal += netDelta
	} else {
		order.WithdrawalTotal += -netDelta
	}
	position.NetDeposits += netDelta
	l.store.Save(position)

	// Market-level order aggregation at the same version.
	moID := entity.MarketOrderID(e.Market, market.CurrentOrderID)
	mo, err := store.MarketOrder(l.store, moID)
	if err != nil {
		mo = &entity.MarketOrder{
			ID:      moID,
			Market:  e.Market,
			OrderID: market.CurrentOrderID,
			Version: e.OracleTimestamp,
		}
	}
	mo.Maker += e.Maker
	mo.Long += e.Long
	mo.Short += e.Short
	mo.MakerTotal += abs(e.Maker)
	mo.LongTotal += abs(e.Long)
	mo.ShortTotal += abs(e.Short)

	// Link both orders to the oracle version they settle at.
	subOracle := l.subOracleFor(market)
	version := l.tracker.GetOrCreateVersion(subOracle, e.OracleTimestamp, false, nil, 0)
	version.LinkOrder(order.ID)
	l.store.Save(version)
	order.OracleVersion = version.ID
	mo.OracleVersion = version.ID

	l.store.Save(order)
	l.store.Save(mo)
	l.store.Save(ma)
	l.store.Save(market)
	l.applyAccumulationDiff(ma, order, before, acc, e.BlockTimestamp)

	l.log.Debug().
		Str("order", order.ID).
		Int64("maker", e.Maker).
		Int64("long", e.Long).
		Int64("short", e.Short).
		Int64("collateral", e.Collateral).
		Bool("liquidation", order.Liquidation).
		Msg("order created")
	return nil
}

// subOracleFor resolves the sub-oracle keying a market's price versions.
// Before any provider update is indexed the oracle aggregator itself is
// the key.
func (l *Ledger) subOracleFor(market *entity.Market) common.Address {
	o, err := store.Oracle(l.store, market.Oracle)
	if err != nil || o.SubOracle == zeroAddress {
		return market.Oracle
	}
	return o.SubOracle
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
