package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/store"
)

// Loader rebuilds the in-memory entity store from Postgres on startup.
// The entity table is the materialized state, so recovery is a full
// reload plus the processed-events tip; no separate snapshots exist.
type Loader struct {
	db *sql.DB
}

func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// LoadEntities decodes every persisted entity into the store without
// marking it dirty. Rows of unknown kind fail loudly: they mean the
// schema and the binary disagree.
func (l *Loader) LoadEntities(ctx context.Context, s *store.Memory) (int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT kind, id, data FROM perp.entities`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var kind, id string
		var data []byte
		if err := rows.Scan(&kind, &id, &data); err != nil {
			return count, err
		}

		e := entity.NewForKind(entity.Kind(kind))
		if e == nil {
			return count, fmt.Errorf("unknown entity kind %q (id %s)", kind, id)
		}
		if err := json.Unmarshal(data, e); err != nil {
			return count, fmt.Errorf("decode %s %s: %w", kind, id, err)
		}
		s.Restore(e)
		count++
	}
	return count, rows.Err()
}

// Tip returns the highest persisted sequence and its state hash, or
// zeros on an empty table (cold start).
func (l *Loader) Tip(ctx context.Context) (int64, [32]byte, error) {
	var seq int64
	var hash []byte
	err := l.db.QueryRowContext(ctx, `
		SELECT sequence, state_hash FROM perp.processed_events
		ORDER BY sequence DESC LIMIT 1
	`).Scan(&seq, &hash)
	if err == sql.ErrNoRows {
		return 0, [32]byte{}, nil
	}
	if err != nil {
		return 0, [32]byte{}, err
	}

	var tip [32]byte
	copy(tip[:], hash)
	return seq, tip, nil
}
