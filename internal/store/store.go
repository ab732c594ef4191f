// Package store defines the key-value entity store the ledger runs
// against, with load/create/save semantics. The concrete store is
// injected into every handler; the in-memory implementation doubles as
// the test harness.
package store

import (
	"errors"
	"fmt"

	"PerpIndexer/internal/entity"
)

// ErrNotFound signals a missing required entity. Handlers treat it as
// fatal: it indicates an event-ordering violation that would otherwise
// silently corrupt the ledger.
var ErrNotFound = errors.New("entity not found")

// Store is the entity key-value store.
type Store interface {
	// Load returns the entity or nil when absent.
	Load(kind entity.Kind, id string) entity.Entity

	// Save upserts the entity and marks it dirty for persistence.
	Save(e entity.Entity)
}

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(kind entity.Kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// load is the generic typed lookup.
func load[T entity.Entity](s Store, kind entity.Kind, id string) (T, bool) {
	var zero T
	e := s.Load(kind, id)
	if e == nil {
		return zero, false
	}
	return e.(T), true
}
