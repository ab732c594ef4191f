package oracle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/oracle"
	"PerpIndexer/internal/store"
)

type fakeCaller struct {
	price int64
	valid bool
	err   error
	calls int
}

func (f *fakeCaller) VersionAt(ctx context.Context, subOracle common.Address, timestamp int64) (int64, bool, error) {
	f.calls++
	return f.price, f.valid, f.err
}

func (f *fakeCaller) LiquidationFee(ctx context.Context, market common.Address) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeCaller) TransformPayoff(ctx context.Context, payoff common.Address, price int64) (int64, error) {
	return price, nil
}

type recordingSettler struct {
	orders []string
	prices []int64
	err    error
}

func (r *recordingSettler) FulfillOrder(ctx context.Context, orderID string, price int64, version *entity.OracleVersion) error {
	if r.err != nil {
		return r.err
	}
	r.orders = append(r.orders, orderID)
	r.prices = append(r.prices, price)
	return nil
}

var subOracle = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func newTracker(s store.Store, caller *fakeCaller) *oracle.Tracker {
	if caller == nil {
		return oracle.NewTracker(s, nil, zerolog.Nop())
	}
	return oracle.NewTracker(s, caller, zerolog.Nop())
}

func TestGetOrCreateVersion_FirstWriteWins(t *testing.T) {
	s := store.NewMemory()
	tr := newTracker(s, nil)

	tx1 := common.HexToHash("0x01")
	tx2 := common.HexToHash("0x02")

	v := tr.GetOrCreateVersion(subOracle, 100, true, &tx1, 1000)
	if !v.Requested {
		t.Fatal("version not marked requested")
	}
	if v.RequestTransactionHash == nil || *v.RequestTransactionHash != tx1 {
		t.Errorf("RequestTransactionHash = %v, want %s", v.RequestTransactionHash, tx1)
	}

	// A second request for the same version must not overwrite metadata.
	v = tr.GetOrCreateVersion(subOracle, 100, true, &tx2, 2000)
	if *v.RequestTransactionHash != tx1 {
		t.Errorf("RequestTransactionHash = %s, want first writer %s", *v.RequestTransactionHash, tx1)
	}
	if v.RequestTimestamp != 1000 {
		t.Errorf("RequestTimestamp = %d, want 1000", v.RequestTimestamp)
	}
}

func TestGetOrCreateVersion_UnrequestedThenRequested(t *testing.T) {
	s := store.NewMemory()
	tr := newTracker(s, nil)

	// Referenced by an order before any request event.
	v := tr.GetOrCreateVersion(subOracle, 200, false, nil, 0)
	if v.Requested {
		t.Error("version created by reference should be unrequested")
	}

	tx := common.HexToHash("0x03")
	v = tr.GetOrCreateVersion(subOracle, 200, true, &tx, 3000)
	if !v.Requested {
		t.Error("request event should mark the version requested")
	}
	if v.RequestTransactionHash == nil || *v.RequestTransactionHash != tx {
		t.Errorf("RequestTransactionHash = %v, want %s", v.RequestTransactionHash, tx)
	}
}

func TestHandleFulfilled_SettlesLinkedOrdersInInsertionOrder(t *testing.T) {
	s := store.NewMemory()
	tr := newTracker(s, nil)

	v := tr.GetOrCreateVersion(subOracle, 300, false, nil, 0)
	v.LinkOrder("order-a")
	v.LinkOrder("order-b")
	v.LinkOrder("order-a") // duplicate link is a no-op
	s.Save(v)

	settler := &recordingSettler{}
	evt := &event.OracleVersionFulfilled{
		LogMeta:      event.LogMeta{TxHash: common.HexToHash("0x04"), BlockTimestamp: 4000},
		SubOracle:    subOracle,
		Version:      300,
		Price:        2_500_000,
		Valid:        true,
		PriceOnEvent: true,
	}
	if err := tr.HandleFulfilled(context.Background(), evt, settler); err != nil {
		t.Fatalf("HandleFulfilled: %v", err)
	}

	if len(settler.orders) != 2 || settler.orders[0] != "order-a" || settler.orders[1] != "order-b" {
		t.Errorf("settled orders = %v, want [order-a order-b]", settler.orders)
	}
	if settler.prices[0] != 2_500_000 {
		t.Errorf("settled price = %d, want 2500000", settler.prices[0])
	}

	got, err := store.OracleVersion(s, entity.OracleVersionID(subOracle, 300))
	if err != nil {
		t.Fatalf("reload version: %v", err)
	}
	if !got.Fulfilled || !got.Valid || got.Price != 2_500_000 {
		t.Errorf("version after fulfillment = %+v", got)
	}
}

func TestHandleFulfilled_InvalidSkipsSettlement(t *testing.T) {
	s := store.NewMemory()
	tr := newTracker(s, nil)

	v := tr.GetOrCreateVersion(subOracle, 400, false, nil, 0)
	v.LinkOrder("order-c")
	s.Save(v)

	settler := &recordingSettler{}
	evt := &event.OracleVersionFulfilled{
		LogMeta:      event.LogMeta{TxHash: common.HexToHash("0x05"), BlockTimestamp: 5000},
		SubOracle:    subOracle,
		Version:      400,
		Valid:        false,
		PriceOnEvent: true,
	}
	if err := tr.HandleFulfilled(context.Background(), evt, settler); err != nil {
		t.Fatalf("HandleFulfilled: %v", err)
	}
	if len(settler.orders) != 0 {
		t.Errorf("invalid version settled orders %v, want none", settler.orders)
	}

	got, _ := store.OracleVersion(s, entity.OracleVersionID(subOracle, 400))
	if !got.Fulfilled || got.Valid {
		t.Errorf("version = %+v, want fulfilled and invalid", got)
	}
}

func TestHandleFulfilled_ReplayedFulfillmentSettlesOnce(t *testing.T) {
	s := store.NewMemory()
	tr := newTracker(s, nil)

	v := tr.GetOrCreateVersion(subOracle, 500, false, nil, 0)
	v.LinkOrder("order-d")
	s.Save(v)

	settler := &recordingSettler{}
	evt := &event.OracleVersionFulfilled{
		LogMeta:      event.LogMeta{TxHash: common.HexToHash("0x06"), BlockTimestamp: 6000},
		SubOracle:    subOracle,
		Version:      500,
		Price:        1_000_000,
		Valid:        true,
		PriceOnEvent: true,
	}
	if err := tr.HandleFulfilled(context.Background(), evt, settler); err != nil {
		t.Fatalf("first fulfillment: %v", err)
	}
	if err := tr.HandleFulfilled(context.Background(), evt, settler); err != nil {
		t.Fatalf("replayed fulfillment: %v", err)
	}
	if len(settler.orders) != 1 {
		t.Errorf("settled %d times, want 1", len(settler.orders))
	}
}

func TestHandleFulfilled_PriceReadBackForLegacyShape(t *testing.T) {
	s := store.NewMemory()
	caller := &fakeCaller{price: 3_300_000, valid: false}
	tr := newTracker(s, caller)

	evt := &event.OracleVersionFulfilled{
		LogMeta:      event.LogMeta{TxHash: common.HexToHash("0x07"), BlockTimestamp: 7000},
		SubOracle:    subOracle,
		Version:      600,
		PriceOnEvent: false,
	}
	if err := tr.HandleFulfilled(context.Background(), evt, &recordingSettler{}); err != nil {
		t.Fatalf("HandleFulfilled: %v", err)
	}
	if caller.calls != 1 {
		t.Errorf("caller invoked %d times, want 1", caller.calls)
	}

	got, _ := store.OracleVersion(s, entity.OracleVersionID(subOracle, 600))
	if got.Price != 3_300_000 {
		t.Errorf("Price = %d, want read-back 3300000", got.Price)
	}
	// Legacy fulfillments are always valid regardless of the read-back flag.
	if !got.Valid {
		t.Error("legacy fulfillment should be valid")
	}
}

func TestVersionValid_LiveFallback(t *testing.T) {
	s := store.NewMemory()
	caller := &fakeCaller{price: 1_000_000, valid: true}
	tr := newTracker(s, caller)

	v := tr.GetOrCreateVersion(subOracle, 700, false, nil, 0)
	if !tr.VersionValid(context.Background(), v) {
		t.Error("unfulfilled version with live valid read should be valid")
	}

	caller.err = errors.New("rpc down")
	if tr.VersionValid(context.Background(), v) {
		t.Error("failed live read should yield invalid")
	}

	v.Fulfilled = true
	v.Valid = true
	if !tr.VersionValid(context.Background(), v) {
		t.Error("fulfilled valid version should not consult the caller")
	}
}
