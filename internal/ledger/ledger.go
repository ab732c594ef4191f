// Package ledger applies canonical protocol events to the entity store.
// It is the accounting core: order creation, oracle fulfillment, market
// and account settlement, and the factory/operator/trigger/vault side
// surfaces all land here. Handlers are synchronous and single-threaded;
// every mutation in a handler belongs to the same event transaction.
package ledger

import (
	"github.com/rs/zerolog"

	"PerpIndexer/internal/aggregation"
	"PerpIndexer/internal/chain"
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/oracle"
	"PerpIndexer/internal/store"
)

// Ledger is the event-application core. It implements oracle.Settler:
// the tracker calls back into FulfillOrder when a version fulfills valid.
type Ledger struct {
	store   store.Store
	agg     *aggregation.Aggregator
	caller  chain.Caller
	tracker *oracle.Tracker
	log     zerolog.Logger
}

func New(s store.Store, agg *aggregation.Aggregator, caller chain.Caller, tracker *oracle.Tracker, log zerolog.Logger) *Ledger {
	return &Ledger{
		store:   s,
		agg:     agg,
		caller:  caller,
		tracker: tracker,
		log:     log,
	}
}

// applyAccumulationDiff folds a mutated order accumulation's before/after
// delta into the owning position's accumulation and the bucketed
// aggregates. Every order-accumulation mutation routes through here so
// the rollups never drift from the per-order records.
func (l *Ledger) applyAccumulationDiff(ma *entity.MarketAccount, order *entity.Order, before entity.OrderAccumulation, acc *entity.OrderAccumulation, timestamp int64) {
	acc.Recompute()
	l.store.Save(acc)

	diff := acc.Diff(before)
	if diff.IsZero() {
		return
	}

	if order.Position != "" {
		if pos, err := store.Position(l.store, order.Position); err == nil {
			posAcc := store.LoadOrCreateOrderAccumulation(l.store, pos.Accumulation)
			posAcc.Add(diff)
			l.store.Save(posAcc)
		}
	}

	taker := entity.SideOf(order.MakerTotal, order.LongTotal, order.ShortTotal).IsTaker()
	l.agg.PropagateDiff(ma, taker, order.Referrer, order.GuaranteeReferrer, diff, timestamp)
}
