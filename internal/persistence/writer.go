// Package persistence writes the engine's entity mutations to Postgres
// behind the event loop: an upsert-only entity table materializes the
// current state, and a processed_events table records every applied
// event for idempotency and restart recovery.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"PerpIndexer/internal/core"
)

// EntityWriter batch-upserts entities and processed-event rows. Upserts
// make replays harmless: rewriting an entity from the same event stream
// converges on the same row.
type EntityWriter struct {
	db *sql.DB
}

func NewEntityWriter(db *sql.DB) *EntityWriter {
	return &EntityWriter{db: db}
}

// WriteBatches writes the entity upserts and processed-event rows of a
// batch run in a single transaction. Later batches win on entity
// conflicts because batches arrive in apply order.
func (w *EntityWriter) WriteBatches(ctx context.Context, batches []core.Batch) error {
	if len(batches) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := w.upsertEntities(ctx, tx, batches); err != nil {
		return err
	}
	if err := w.insertProcessedEvents(ctx, tx, batches); err != nil {
		return err
	}
	return tx.Commit()
}

func (w *EntityWriter) upsertEntities(ctx context.Context, tx *sql.Tx, batches []core.Batch) error {
	// Deduplicate within the flush window: the same entity dirtied by
	// several events only needs its final image written.
	type rowKey struct {
		kind string
		id   string
	}
	latest := make(map[rowKey][]byte)
	var order []rowKey
	for _, b := range batches {
		for _, e := range b.Entities {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal %s %s: %w", e.EntityKind(), e.EntityID(), err)
			}
			k := rowKey{kind: string(e.EntityKind()), id: e.EntityID()}
			if _, seen := latest[k]; !seen {
				order = append(order, k)
			}
			latest[k] = data
		}
	}
	if len(order) == 0 {
		return nil
	}

	values := make([]string, 0, len(order))
	args := make([]interface{}, 0, len(order)*3)
	for i, k := range order {
		base := i * 3
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
		args = append(args, k.kind, k.id, latest[k])
	}

	query := `INSERT INTO perp.entities (kind, id, data) VALUES ` +
		strings.Join(values, ", ") +
		` ON CONFLICT (kind, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert entities: %w", err)
	}
	return nil
}

func (w *EntityWriter) insertProcessedEvents(ctx context.Context, tx *sql.Tx, batches []core.Batch) error {
	values := make([]string, 0, len(batches))
	args := make([]interface{}, 0, len(batches)*5)
	for i, b := range batches {
		base := i * 5
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, b.Key, string(b.EventType), b.Block, b.Sequence, b.StateHash[:])
	}

	query := `INSERT INTO perp.processed_events (key, event_type, block_number, sequence, state_hash) VALUES ` +
		strings.Join(values, ", ") +
		` ON CONFLICT (key) DO NOTHING`

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert processed events: %w", err)
	}
	return nil
}
