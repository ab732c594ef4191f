// Package core drives the single-threaded deterministic event loop:
// dedup, ordering validation, dispatch into the ledger and oracle
// tracker, and hand-off of the resulting entity writes to persistence.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/ledger"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/oracle"
	"PerpIndexer/internal/store"
)

// Batch is the persistence unit for one applied event: the entities it
// dirtied plus the event's identity for the processed_events table.
type Batch struct {
	Sequence  int64
	Key       string
	EventType event.Type
	Block     int64
	Timestamp int64
	StateHash [32]byte
	Entities  []entity.Entity
}

// Engine applies normalized chain events in delivery order. All state
// transitions happen on the caller's goroutine; the persist channel is
// the only cross-goroutine boundary.
type Engine struct {
	store   *store.Memory
	ledger  *ledger.Ledger
	tracker *oracle.Tracker

	idempotency *IdempotencyChecker
	ordering    *OrderingValidator
	hasher      *StateHasher

	sequence int64

	persistChan chan<- Batch

	metrics *observability.Metrics
	log     zerolog.Logger
}

func NewEngine(
	s *store.Memory,
	l *ledger.Ledger,
	tracker *oracle.Tracker,
	idempotency *IdempotencyChecker,
	persistChan chan<- Batch,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		store:       s,
		ledger:      l,
		tracker:     tracker,
		idempotency: idempotency,
		ordering:    NewOrderingValidator(metrics),
		hasher:      NewStateHasher(),
		persistChan: persistChan,
		metrics:     metrics,
		log:         log,
	}
}

// ProcessEvent validates, applies, and emits one event. Handler errors
// are fatal to the stream: the event stays unacknowledged and the
// watermark is already advanced, so the caller must stop rather than
// skip.
func (e *Engine) ProcessEvent(ctx context.Context, evt event.Event) error {
	start := time.Now()
	eventType := string(evt.Type())
	key := evt.Key()

	isDuplicate := e.idempotency.IsDuplicate(eventType, key)

	if err := e.ordering.Validate(partition(evt), evt.Block(), evt.Index(), isDuplicate); err != nil {
		if e.metrics != nil {
			e.metrics.EventsRejected.WithLabelValues(eventType, "ordering").Inc()
		}
		return err
	}

	if isDuplicate {
		if e.metrics != nil {
			e.metrics.EventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		e.log.Debug().
			Str("event_type", eventType).
			Str("key", key).
			Msg("duplicate event skipped")
		return nil
	}

	if err := e.dispatch(ctx, evt); err != nil {
		return fmt.Errorf("apply %s %s: %w", eventType, key, err)
	}

	e.sequence++
	batch := Batch{
		Sequence:  e.sequence,
		Key:       key,
		EventType: evt.Type(),
		Block:     evt.Block(),
		Timestamp: time.Now().UnixNano(),
		StateHash: e.hasher.ComputeHash(e.sequence, key),
		Entities:  e.store.DrainDirty(),
	}

	if e.persistChan != nil {
		select {
		case e.persistChan <- batch:
		default:
			if e.metrics != nil {
				e.metrics.PersistBackpressure.Inc()
			}
			e.persistChan <- batch
		}
	}

	e.idempotency.MarkProcessed(key)

	if e.metrics != nil {
		e.metrics.EventsApplied.WithLabelValues(eventType).Inc()
		e.metrics.EventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		e.metrics.EngineSequence.Set(float64(e.sequence))
		e.metrics.EngineBlock.Set(float64(evt.Block()))
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, evt event.Event) error {
	switch ev := evt.(type) {
	case *event.MarketCreated:
		return e.ledger.HandleMarketCreated(ev)
	case *event.OracleUpdated:
		return e.ledger.HandleOracleUpdated(ev)
	case *event.OrderCreated:
		return e.ledger.HandleOrderCreated(ctx, ev)
	case *event.PositionProcessed:
		return e.ledger.SettleMarketPosition(ctx, ev)
	case *event.AccountPositionProcessed:
		return e.ledger.SettleAccountPosition(ctx, ev)
	case *event.OracleVersionRequested:
		e.tracker.HandleRequested(ev)
		return nil
	case *event.OracleVersionFulfilled:
		return e.tracker.HandleFulfilled(ctx, ev, e.ledger)
	case *event.OperatorUpdated:
		return e.ledger.HandleOperatorUpdated(ev)
	case *event.TriggerOrderPlaced:
		return e.ledger.HandleTriggerOrderPlaced(ev)
	case *event.TriggerOrderExecuted:
		return e.ledger.HandleTriggerOrderExecuted(ev)
	case *event.TriggerOrderCancelled:
		return e.ledger.HandleTriggerOrderCancelled(ev)
	case *event.VaultUpdated:
		return e.ledger.HandleVaultUpdated(ev)
	default:
		return fmt.Errorf("unknown event type %q", evt.Type())
	}
}

// partition buckets ordering validation: market events order within
// their market, oracle events within their sub-oracle, and everything
// else globally.
func partition(evt event.Event) string {
	switch ev := evt.(type) {
	case *event.OrderCreated:
		return "market:" + ev.Market.Hex()
	case *event.PositionProcessed:
		return "market:" + ev.Market.Hex()
	case *event.AccountPositionProcessed:
		return "market:" + ev.Market.Hex()
	case *event.OracleVersionRequested:
		return "oracle:" + ev.SubOracle.Hex()
	case *event.OracleVersionFulfilled:
		return "oracle:" + ev.SubOracle.Hex()
	default:
		return "global"
	}
}

// Sequence returns the number of events applied since start.
func (e *Engine) Sequence() int64 {
	return e.sequence
}

// StateHash returns the current hash-chain tip.
func (e *Engine) StateHash() [32]byte {
	return e.hasher.PrevHash()
}

// Restore seeds the engine counters from the persisted tip during
// startup recovery.
func (e *Engine) Restore(sequence int64, stateHash [32]byte) {
	e.sequence = sequence
	e.hasher.SetPrevHash(stateHash)
}
