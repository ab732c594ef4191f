package persistence_test

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/core"
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/persistence"
	"PerpIndexer/internal/store"
	"PerpIndexer/internal/testutil"
)

func TestWriteAndReloadRoundTrip(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	market := common.HexToAddress("0x90a664846960aafa2c164605aebb8e9ac338f9a0")

	batches := []core.Batch{
		{
			Sequence:  1,
			Key:       "0xaaaa:0",
			EventType: event.TypeMarketCreated,
			Block:     100,
			Timestamp: 1700000000,
			StateHash: sha256.Sum256([]byte("one")),
			Entities: []entity.Entity{
				&entity.Market{ID: market, LatestPrice: 2_000_000},
			},
		},
		{
			Sequence:  2,
			Key:       "0xbbbb:1",
			EventType: event.TypeOracleVersionFulfilled,
			Block:     101,
			Timestamp: 1700000010,
			StateHash: sha256.Sum256([]byte("two")),
			Entities: []entity.Entity{
				// Same row twice in one flush window: last image wins.
				&entity.Market{ID: market, LatestPrice: 2_100_000},
			},
		},
	}

	writer := persistence.NewEntityWriter(db)
	if err := writer.WriteBatches(ctx, batches); err != nil {
		t.Fatalf("WriteBatches() error = %v", err)
	}

	mem := store.NewMemory()
	loader := persistence.NewLoader(db)
	loaded, err := loader.LoadEntities(ctx, mem)
	if err != nil {
		t.Fatalf("LoadEntities() error = %v", err)
	}
	if loaded != 1 {
		t.Errorf("LoadEntities() = %d entities, want 1", loaded)
	}

	got := mem.Load(entity.KindMarket, market.Hex())
	if got == nil {
		t.Fatal("Load market = nil after reload")
	}
	m := got.(*entity.Market)
	if m.LatestPrice != 2_100_000 {
		t.Errorf("LatestPrice = %d, want 2100000 (final image in flush window)", m.LatestPrice)
	}

	seq, hash, err := loader.Tip(ctx)
	if err != nil {
		t.Fatalf("Tip() error = %v", err)
	}
	if seq != 2 {
		t.Errorf("Tip() sequence = %d, want 2", seq)
	}
	if want := sha256.Sum256([]byte("two")); hash != want {
		t.Errorf("Tip() hash = %x, want %x", hash, want)
	}
}

func TestSeenEventColdPath(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	writer := persistence.NewEntityWriter(db)
	if err := writer.WriteBatches(ctx, []core.Batch{{
		Sequence:  1,
		Key:       "0xcccc:7",
		EventType: event.TypeOrderCreated,
		Block:     100,
		Timestamp: 1700000000,
		StateHash: sha256.Sum256([]byte("one")),
	}}); err != nil {
		t.Fatalf("WriteBatches() error = %v", err)
	}

	checker := persistence.NewPostgresIdempotencyChecker(db)
	seen, err := checker.SeenEvent("0xcccc:7")
	if err != nil {
		t.Fatalf("SeenEvent() error = %v", err)
	}
	if !seen {
		t.Error("SeenEvent(persisted key) = false, want true")
	}

	seen, err = checker.SeenEvent("0xdddd:0")
	if err != nil {
		t.Fatalf("SeenEvent() error = %v", err)
	}
	if seen {
		t.Error("SeenEvent(unknown key) = true, want false")
	}

	keys, err := checker.RecentKeys(ctx, 10)
	if err != nil {
		t.Fatalf("RecentKeys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "0xcccc:7" {
		t.Errorf("RecentKeys() = %v, want [0xcccc:7]", keys)
	}
}

func TestWriteBatchesIsIdempotent(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	batch := []core.Batch{{
		Sequence:  1,
		Key:       "0xeeee:0",
		EventType: event.TypeVaultUpdated,
		Block:     100,
		Timestamp: 1700000000,
		StateHash: sha256.Sum256([]byte("one")),
	}}

	writer := persistence.NewEntityWriter(db)
	if err := writer.WriteBatches(ctx, batch); err != nil {
		t.Fatalf("first WriteBatches() error = %v", err)
	}
	// Redelivered after a crash between flush and ack.
	if err := writer.WriteBatches(ctx, batch); err != nil {
		t.Fatalf("second WriteBatches() error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM perp.processed_events WHERE key = $1`, "0xeeee:0",
	).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Errorf("processed_events rows = %d, want 1", count)
	}
}
