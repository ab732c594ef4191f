package core

import (
	"container/list"

	"PerpIndexer/internal/observability"
)

// DBIdempotencyChecker is the cold-path dedup lookup against the
// processed_events table.
type DBIdempotencyChecker interface {
	SeenEvent(key string) (bool, error)
}

// IdempotencyChecker deduplicates events on their txHash:logIndex key
// with a two-tier lookup: an in-memory LRU for the hot path and
// Postgres for keys that aged out of the LRU.
//
// Not thread-safe: only accessed from the single-threaded engine.
type IdempotencyChecker struct {
	lru     *idempotencyLRU
	db      DBIdempotencyChecker
	metrics *observability.Metrics
}

func NewIdempotencyChecker(capacity int, db DBIdempotencyChecker, metrics *observability.Metrics) *IdempotencyChecker {
	return &IdempotencyChecker{
		lru:     newIdempotencyLRU(capacity),
		db:      db,
		metrics: metrics,
	}
}

// IsDuplicate reports whether the event key has already been processed.
// A failed Postgres lookup counts as not-duplicate so a DB outage cannot
// stall ingestion; replays slipping through here are still absorbed by
// the persistence layer's upsert semantics.
func (ic *IdempotencyChecker) IsDuplicate(eventType string, key string) bool {
	if ic.lru.contains(key) {
		if ic.metrics != nil {
			ic.metrics.DedupDuplicates.WithLabelValues(eventType, "lru").Inc()
		}
		return true
	}

	if ic.db != nil {
		seen, err := ic.db.SeenEvent(key)
		if err != nil {
			if ic.metrics != nil {
				ic.metrics.DedupLookupErrors.Inc()
			}
			return false
		}
		if seen {
			if ic.metrics != nil {
				ic.metrics.DedupDuplicates.WithLabelValues(eventType, "postgres").Inc()
			}
			ic.lru.add(key)
			return true
		}
	}
	return false
}

// MarkProcessed records the key after the event has been applied.
func (ic *IdempotencyChecker) MarkProcessed(key string) {
	ic.lru.add(key)
	if ic.metrics != nil {
		ic.metrics.DedupLRUSize.Set(float64(ic.lru.size()))
	}
}

// Warm preloads recently processed keys so a restart does not pay a
// Postgres round-trip for every redelivered event.
func (ic *IdempotencyChecker) Warm(keys []string) {
	for _, key := range keys {
		ic.lru.add(key)
	}
	if ic.metrics != nil {
		ic.metrics.DedupLRUSize.Set(float64(ic.lru.size()))
	}
}

// Size returns the current LRU occupancy.
func (ic *IdempotencyChecker) Size() int {
	return ic.lru.size()
}

type idempotencyLRU struct {
	capacity int
	cache    map[string]*list.Element
	order    *list.List
}

func newIdempotencyLRU(capacity int) *idempotencyLRU {
	return &idempotencyLRU{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (lru *idempotencyLRU) contains(key string) bool {
	elem, ok := lru.cache[key]
	if ok {
		lru.order.MoveToFront(elem)
	}
	return ok
}

func (lru *idempotencyLRU) add(key string) {
	if elem, ok := lru.cache[key]; ok {
		lru.order.MoveToFront(elem)
		return
	}
	lru.cache[key] = lru.order.PushFront(key)
	if lru.order.Len() > lru.capacity {
		oldest := lru.order.Back()
		lru.order.Remove(oldest)
		delete(lru.cache, oldest.Value.(string))
	}
}

func (lru *idempotencyLRU) size() int {
	return lru.order.Len()
}
