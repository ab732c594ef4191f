package aggregation_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/aggregation"
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/store"
)

var (
	testMarket   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testAccount  = common.HexToAddress("0x0000000000000000000000000000000000000002")
	testAccount2 = common.HexToAddress("0x0000000000000000000000000000000000000003")
	testReferrer = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

func TestRecordTrade_AllBucketsReceiveVolume(t *testing.T) {
	s := store.NewMemory()
	ag := aggregation.New(s)
	ma := store.LoadOrCreateMarketAccount(s, testMarket, testAccount)

	ts := int64(1_700_000_000)
	ag.RecordTrade(ma, aggregation.Trade{
		Side:     entity.SideLong,
		Size:     10_000_000,
		Notional: 25_000_000,
	}, ts)

	for _, bucket := range entity.Buckets {
		id := entity.BucketedID(bucket, testMarket.Hex(), bucket.Timestamp(ts))
		m, ok := s.Load(entity.KindMarketAccumulation, id).(*entity.MarketAccumulation)
		if !ok {
			t.Fatalf("bucket %s: market accumulation missing", bucket)
		}
		if m.Long != 10_000_000 {
			t.Errorf("bucket %s: Long = %d, want 10000000", bucket, m.Long)
		}
		if m.LongNotional != 25_000_000 {
			t.Errorf("bucket %s: LongNotional = %d, want 25000000", bucket, m.LongNotional)
		}
		if m.Trades != 1 {
			t.Errorf("bucket %s: Trades = %d, want 1", bucket, m.Trades)
		}
	}
}

func TestRecordTrade_TraderCountedOncePerBucket(t *testing.T) {
	s := store.NewMemory()
	ag := aggregation.New(s)
	ma := store.LoadOrCreateMarketAccount(s, testMarket, testAccount)

	// Two trades by the same account inside the same hour.
	ag.RecordTrade(ma, aggregation.Trade{Side: entity.SideLong, Size: 1_000_000, Notional: 2_000_000}, 1000)
	ag.RecordTrade(ma, aggregation.Trade{Side: entity.SideLong, Size: 1_000_000, Notional: 2_000_000}, 2000)

	// A different account trades once in the same hour.
	ma2 := store.LoadOrCreateMarketAccount(s, testMarket, testAccount2)
	ag.RecordTrade(ma2, aggregation.Trade{Side: entity.SideShort, Size: 1_000_000, Notional: 2_000_000}, 2500)

	id := entity.BucketedID(entity.BucketHourly, testMarket.Hex(), 0)
	m := s.Load(entity.KindMarketAccumulation, id).(*entity.MarketAccumulation)
	if m.Trades != 3 {
		t.Errorf("Trades = %d, want 3", m.Trades)
	}
	if m.Traders != 2 {
		t.Errorf("Traders = %d, want 2", m.Traders)
	}

	pid := entity.BucketedID(entity.BucketHourly, "protocol", 0)
	p := s.Load(entity.KindProtocolAccumulation, pid).(*entity.ProtocolAccumulation)
	if p.Trades != 3 || p.Traders != 2 {
		t.Errorf("protocol Trades/Traders = %d/%d, want 3/2", p.Trades, p.Traders)
	}
}

func TestRecordTrade_ReferredVolume(t *testing.T) {
	s := store.NewMemory()
	ag := aggregation.New(s)
	ma := store.LoadOrCreateMarketAccount(s, testMarket, testAccount)

	ag.RecordTrade(ma, aggregation.Trade{
		Side:     entity.SideShort,
		Size:     5_000_000,
		Notional: 12_000_000,
		Referrer: testReferrer,
	}, 100)

	id := entity.BucketedID(entity.BucketAll, testReferrer.Hex(), 0)
	r, ok := s.Load(entity.KindReferrerAccumulation, id).(*entity.ReferrerAccumulation)
	if !ok {
		t.Fatal("referrer accumulation missing")
	}
	if r.ReferredShortNotional != 12_000_000 {
		t.Errorf("ReferredShortNotional = %d, want 12000000", r.ReferredShortNotional)
	}
	if r.ReferredTrades != 1 {
		t.Errorf("ReferredTrades = %d, want 1", r.ReferredTrades)
	}
}

func TestPropagateDiff_FansOutToEveryGranularity(t *testing.T) {
	s := store.NewMemory()
	ag := aggregation.New(s)
	ma := store.LoadOrCreateMarketAccount(s, testMarket, testAccount)

	diff := entity.OrderAccumulation{
		CollateralPnl:  7_000_000,
		FeeTrade:       -250_000,
		SubtractiveFee: 100_000,
	}
	diff.CollateralAccumulation = diff.CollateralPnl
	diff.FeeAccumulation = diff.FeeTrade

	ag.PropagateDiff(ma, true, testReferrer, common.Address{}, diff, 5000)

	check := func(owner, ownerID string) {
		t.Helper()
		a, ok := s.Load(entity.KindOrderAccumulation, entity.OwnedAccumulationID(owner, ownerID)).(*entity.OrderAccumulation)
		if !ok {
			t.Fatalf("%s accumulation missing", owner)
		}
		if a.CollateralPnl != 7_000_000 {
			t.Errorf("%s: CollateralPnl = %d, want 7000000", owner, a.CollateralPnl)
		}
		if a.FeeTrade != -250_000 {
			t.Errorf("%s: FeeTrade = %d, want -250000", owner, a.FeeTrade)
		}
	}

	hourly := entity.BucketHourly
	check("marketAccount", entity.BucketedID(hourly, ma.ID, hourly.Timestamp(5000)))
	check("marketAccountTaker", entity.BucketedID(hourly, ma.ID, hourly.Timestamp(5000)))
	check("account", entity.BucketedID(hourly, testAccount.Hex(), hourly.Timestamp(5000)))
	check("market", entity.BucketedID(hourly, testMarket.Hex(), hourly.Timestamp(5000)))
	check("protocol", entity.BucketedID(hourly, "protocol", hourly.Timestamp(5000)))

	rid := entity.BucketedID(hourly, testReferrer.Hex(), hourly.Timestamp(5000))
	r := s.Load(entity.KindReferrerAccumulation, rid).(*entity.ReferrerAccumulation)
	if r.SubtractiveFee != 100_000 {
		t.Errorf("referrer SubtractiveFee = %d, want 100000", r.SubtractiveFee)
	}
}

func TestPropagateDiff_MakerSkipsTakerChildren(t *testing.T) {
	s := store.NewMemory()
	ag := aggregation.New(s)
	ma := store.LoadOrCreateMarketAccount(s, testMarket, testAccount)

	diff := entity.OrderAccumulation{CollateralPnl: 1_000_000, CollateralAccumulation: 1_000_000}
	ag.PropagateDiff(ma, false, common.Address{}, common.Address{}, diff, 0)

	id := entity.OwnedAccumulationID("marketAccountTaker", entity.BucketedID(entity.BucketHourly, ma.ID, 0))
	a := s.Load(entity.KindOrderAccumulation, id).(*entity.OrderAccumulation)
	if a.CollateralPnl != 0 {
		t.Errorf("taker child CollateralPnl = %d, want 0 for maker flow", a.CollateralPnl)
	}
}

func TestAnnualizedRate(t *testing.T) {
	// 0.0001 per unit over one hour at price 1.00 annualizes to
	// 0.0001 * 8760.
	got := aggregation.AnnualizedRate(100, 1_000_000, 3600)
	if got != 876_000 {
		t.Errorf("AnnualizedRate = %d, want 876000", got)
	}

	if got := aggregation.AnnualizedRate(100, 1_000_000, 0); got != 0 {
		t.Errorf("zero elapsed: got %d, want 0", got)
	}
	if got := aggregation.AnnualizedRate(100, 0, 3600); got != 0 {
		t.Errorf("zero price: got %d, want 0", got)
	}
}
