package ledger_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/aggregation"
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/ledger"
	"PerpIndexer/internal/oracle"
	"PerpIndexer/internal/store"
)

var (
	market     = common.HexToAddress("0x0000000000000000000000000000000000000010")
	oracleAddr = common.HexToAddress("0x0000000000000000000000000000000000000020")
	token      = common.HexToAddress("0x0000000000000000000000000000000000000030")
	account    = common.HexToAddress("0x0000000000000000000000000000000000000040")
	liquidator = common.HexToAddress("0x0000000000000000000000000000000000000050")
)

type harness struct {
	store   *store.Memory
	tracker *oracle.Tracker
	ledger  *ledger.Ledger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := store.NewMemory()
	tracker := oracle.NewTracker(s, nil, zerolog.Nop())
	led := ledger.New(s, aggregation.New(s), nil, tracker, zerolog.Nop())

	if err := led.HandleMarketCreated(&event.MarketCreated{
		Market: market,
		Token:  token,
		Oracle: oracleAddr,
	}); err != nil {
		t.Fatalf("create market: %v", err)
	}
	return &harness{store: s, tracker: tracker, ledger: led}
}

func meta(tx byte, ts int64) event.LogMeta {
	return event.LogMeta{TxHash: common.Hash{tx}, BlockTimestamp: ts}
}

func (h *harness) createOrder(t *testing.T, e *event.OrderCreated) {
	t.Helper()
	if err := h.ledger.HandleOrderCreated(context.Background(), e); err != nil {
		t.Fatalf("order created: %v", err)
	}
}

func (h *harness) fulfill(t *testing.T, version, price int64, valid bool) {
	t.Helper()
	err := h.tracker.HandleFulfilled(context.Background(), &event.OracleVersionFulfilled{
		LogMeta:      meta(0xff, version),
		SubOracle:    oracleAddr,
		Version:      version,
		Price:        price,
		Valid:        valid,
		PriceOnEvent: true,
	}, h.ledger)
	if err != nil {
		t.Fatalf("fulfill version %d: %v", version, err)
	}
}

func (h *harness) settle(t *testing.T, pv event.ProtocolVersion, version, orderID int64, result event.VersionAccumulationResult, collateral int64) {
	t.Helper()
	err := h.ledger.SettleMarketPosition(context.Background(), &event.PositionProcessed{
		Version:   pv,
		Market:    market,
		ToVersion: version,
		ToOrderID: orderID,
		Result:    result,
	})
	if err != nil {
		t.Fatalf("settle market at %d: %v", version, err)
	}
	err = h.ledger.SettleAccountPosition(context.Background(), &event.AccountPositionProcessed{
		Version:    pv,
		Market:     market,
		Account:    account,
		ToVersion:  version,
		ToOrderID:  orderID,
		Collateral: collateral,
	})
	if err != nil {
		t.Fatalf("settle account at %d: %v", version, err)
	}
}

func (h *harness) marketAccount(t *testing.T) *entity.MarketAccount {
	t.Helper()
	ma, err := store.MarketAccount(h.store, entity.MarketAccountID(market, account))
	if err != nil {
		t.Fatalf("market account: %v", err)
	}
	return ma
}

func (h *harness) orderAccumulation(t *testing.T, orderID int64) *entity.OrderAccumulation {
	t.Helper()
	o, err := store.Order(h.store, entity.OrderID(market, account, orderID))
	if err != nil {
		t.Fatalf("order %d: %v", orderID, err)
	}
	a, err := store.OrderAccumulation(h.store, o.Accumulation)
	if err != nil {
		t.Fatalf("order %d accumulation: %v", orderID, err)
	}
	return a
}

func TestOpenMakerPosition(t *testing.T) {
	h := newHarness(t)
	version := int64(7_200_000)

	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(1, version-60),
		Version:         event.V2_2,
		Market:          market,
		Account:         account,
		OracleTimestamp: version,
		Maker:           100_000_000,
		Collateral:      1_000_000_000,
	})
	h.fulfill(t, version, 1_050_000, true)
	h.settle(t, event.V2_2, version, 1, event.VersionAccumulationResult{}, 0)

	ma := h.marketAccount(t)
	if ma.Maker != 100_000_000 {
		t.Errorf("settled maker = %d, want 100000000", ma.Maker)
	}
	if ma.Collateral != 1_000_000_000 {
		t.Errorf("collateral = %d, want 1000000000", ma.Collateral)
	}

	pos, err := store.Position(h.store, entity.PositionID(ma.ID, 1))
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.OpenSize != 100_000_000 {
		t.Errorf("OpenSize = %d, want 100000000", pos.OpenSize)
	}
	if pos.OpenNotional != 105_000_000 {
		t.Errorf("OpenNotional = %d, want 105000000", pos.OpenNotional)
	}
	if pos.StartCollateral != 1_000_000_000 {
		t.Errorf("StartCollateral = %d, want 1000000000", pos.StartCollateral)
	}
	if pos.StartVersion != version {
		t.Errorf("StartVersion = %d, want %d", pos.StartVersion, version)
	}

	m, err := store.Market(h.store, market)
	if err != nil {
		t.Fatalf("market: %v", err)
	}
	if m.Maker != 100_000_000 {
		t.Errorf("market maker = %d, want 100000000", m.Maker)
	}
	if m.LatestPrice != 1_050_000 {
		t.Errorf("LatestPrice = %d, want 1050000", m.LatestPrice)
	}
	if m.LatestVersion != version || m.LatestOrderID != 1 {
		t.Errorf("latest version/order = %d/%d, want %d/1", m.LatestVersion, m.LatestOrderID, version)
	}
}

func TestFundingAccruesToHoldingOrder(t *testing.T) {
	h := newHarness(t)
	v1 := int64(7_200_000)
	v2 := v1 + 3600

	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(1, v1-60),
		Version:         event.V2_2,
		Market:          market,
		Account:         account,
		OracleTimestamp: v1,
		Maker:           100_000_000,
		Collateral:      1_000_000_000,
	})
	h.fulfill(t, v1, 1_000_000, true)
	h.settle(t, event.V2_2, v1, 1, event.VersionAccumulationResult{}, 0)

	// Partial close one hour later; 50 tokens of funding accrued to the
	// maker side over the hour.
	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(2, v2-60),
		Version:         event.V2_2,
		Market:          market,
		Account:         account,
		OracleTimestamp: v2,
		Maker:           -50_000_000,
	})
	h.fulfill(t, v2, 1_100_000, true)
	h.settle(t, event.V2_2, v2, 2,
		event.VersionAccumulationResult{FundingMaker: 50_000_000}, 50_000_000)

	// 50 tokens over 100 units is 0.5 per unit; the holding order accrues
	// it back over its 100 units.
	acc1 := h.orderAccumulation(t, 1)
	if acc1.CollateralFunding != 50_000_000 {
		t.Errorf("order 1 funding = %d, want 50000000", acc1.CollateralFunding)
	}
	if acc1.CollateralAccumulation != 50_000_000 {
		t.Errorf("order 1 collateral net = %d, want 50000000", acc1.CollateralAccumulation)
	}

	a, err := store.MarketAccumulator(h.store, entity.MarketAccumulatorID(market, v2))
	if err != nil {
		t.Fatalf("accumulator: %v", err)
	}
	if a.FundingMaker != 500_000 {
		t.Errorf("per-unit funding = %d, want 500000", a.FundingMaker)
	}

	ma := h.marketAccount(t)
	if ma.Maker != 50_000_000 {
		t.Errorf("settled maker = %d, want 50000000", ma.Maker)
	}
	if ma.Collateral != 1_050_000_000 {
		t.Errorf("collateral = %d, want 1050000000", ma.Collateral)
	}

	pos, _ := store.Position(h.store, entity.PositionID(ma.ID, 1))
	if pos.CloseSize != 50_000_000 {
		t.Errorf("CloseSize = %d, want 50000000", pos.CloseSize)
	}
	if pos.CloseNotional != 55_000_000 {
		t.Errorf("CloseNotional = %d, want 55000000", pos.CloseNotional)
	}

	// The funding flows into the position's accumulation and every bucket
	// that sums over it; the protocol bucket matches the market bucket.
	posAcc, err := store.OrderAccumulation(h.store, pos.Accumulation)
	if err != nil {
		t.Fatalf("position accumulation: %v", err)
	}
	if posAcc.CollateralFunding != 50_000_000 {
		t.Errorf("position funding = %d, want 50000000", posAcc.CollateralFunding)
	}

	hourly := entity.BucketHourly
	marketAccID := entity.OwnedAccumulationID("market", entity.BucketedID(hourly, market.Hex(), hourly.Timestamp(v2)))
	protocolAccID := entity.OwnedAccumulationID("protocol", entity.BucketedID(hourly, "protocol", hourly.Timestamp(v2)))
	mAcc, err := store.OrderAccumulation(h.store, marketAccID)
	if err != nil {
		t.Fatalf("market bucket accumulation: %v", err)
	}
	pAcc, err := store.OrderAccumulation(h.store, protocolAccID)
	if err != nil {
		t.Fatalf("protocol bucket accumulation: %v", err)
	}
	if mAcc.CollateralFunding != 50_000_000 {
		t.Errorf("market bucket funding = %d, want 50000000", mAcc.CollateralFunding)
	}
	if pAcc.CollateralFunding != mAcc.CollateralFunding || pAcc.CollateralAccumulation != mAcc.CollateralAccumulation {
		t.Errorf("protocol bucket funding/net = %d/%d, want %d/%d",
			pAcc.CollateralFunding, pAcc.CollateralAccumulation,
			mAcc.CollateralFunding, mAcc.CollateralAccumulation)
	}
}

func TestLiquidationFeeFromWithdrawal(t *testing.T) {
	h := newHarness(t)
	v1 := int64(100_000)
	v2 := int64(103_600)

	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(1, v1-60),
		Version:         event.V2_0_1,
		Market:          market,
		Account:         account,
		OracleTimestamp: v1,
		Long:            10_000_000,
		Collateral:      20_000_000,
	})
	h.fulfill(t, v1, 2_000_000, true)
	h.settle(t, event.V2_0_1, v1, 1, event.VersionAccumulationResult{}, 0)

	// The liquidating order withdraws the fee as collateral.
	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(2, v2-60),
		Version:         event.V2_0_1,
		Market:          market,
		Account:         account,
		OracleTimestamp: v2,
		Long:            -10_000_000,
		Collateral:      -5_000_000,
		Liquidation:     true,
		Liquidator:      liquidator,
	})
	h.fulfill(t, v2, 1_500_000, true)
	h.settle(t, event.V2_0_1, v2, 2, event.VersionAccumulationResult{}, 0)

	acc := h.orderAccumulation(t, 2)
	if acc.FeeLiquidation != 5_000_000 {
		t.Errorf("FeeLiquidation = %d, want 5000000", acc.FeeLiquidation)
	}

	order, _ := store.Order(h.store, entity.OrderID(market, account, 2))
	if !order.Liquidation || order.Liquidator != liquidator {
		t.Errorf("liquidation metadata = %v/%s", order.Liquidation, order.Liquidator.Hex())
	}
	// The withdrawal was the fee, not a collateral outflow.
	if order.WithdrawalTotal != 0 {
		t.Errorf("WithdrawalTotal = %d, want 0", order.WithdrawalTotal)
	}

	hourly := entity.BucketHourly
	id := entity.BucketedID(hourly, market.Hex(), hourly.Timestamp(v2))
	m, ok := h.store.Load(entity.KindMarketAccumulation, id).(*entity.MarketAccumulation)
	if !ok {
		t.Fatal("market bucket missing")
	}
	if m.Liquidations != 1 {
		t.Errorf("Liquidations = %d, want 1", m.Liquidations)
	}
}

func TestInvalidVersionLeavesExposureUnchanged(t *testing.T) {
	h := newHarness(t)
	version := int64(500_000)

	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(1, version-60),
		Version:         event.V2_1,
		Market:          market,
		Account:         account,
		OracleTimestamp: version,
		Maker:           10_000_000,
		Collateral:      50_000_000,
	})
	h.fulfill(t, version, 0, false)
	h.settle(t, event.V2_1, version, 1, event.VersionAccumulationResult{}, 0)

	ma := h.marketAccount(t)
	if ma.Maker != 0 {
		t.Errorf("settled maker = %d, want 0", ma.Maker)
	}
	if ma.PendingMaker != 0 {
		t.Errorf("pending maker = %d, want 0 after invalidation", ma.PendingMaker)
	}
	if ma.MakerInvalidation != 10_000_000 {
		t.Errorf("MakerInvalidation = %d, want 10000000", ma.MakerInvalidation)
	}
	// Collateral deposits still apply.
	if ma.Collateral != 50_000_000 {
		t.Errorf("collateral = %d, want 50000000", ma.Collateral)
	}

	m, _ := store.Market(h.store, market)
	if m.Maker != 0 {
		t.Errorf("market maker = %d, want 0", m.Maker)
	}

	pos, err := store.Position(h.store, entity.PositionID(ma.ID, 1))
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.Magnitude() != 0 {
		t.Errorf("position magnitude = %d, want 0", pos.Magnitude())
	}
}

func TestOrdersMergeAtSameVersion(t *testing.T) {
	h := newHarness(t)
	version := int64(900_000)

	// Two updates in different transactions, same oracle version.
	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(1, version-120),
		Version:         event.V2_2,
		Market:          market,
		Account:         account,
		OracleTimestamp: version,
		Long:            5_000_000,
		Collateral:      10_000_000,
	})
	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(2, version-60),
		Version:         event.V2_2,
		Market:          market,
		Account:         account,
		OracleTimestamp: version,
		Long:            3_000_000,
		Collateral:      -2_000_000,
	})

	ma := h.marketAccount(t)
	if ma.CurrentOrderID != 1 {
		t.Fatalf("CurrentOrderID = %d, want 1 (same version merges)", ma.CurrentOrderID)
	}

	order, err := store.Order(h.store, entity.OrderID(market, account, 1))
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if order.Long != 8_000_000 {
		t.Errorf("merged long delta = %d, want 8000000", order.Long)
	}
	if order.LongTotal != 8_000_000 {
		t.Errorf("LongTotal = %d, want 8000000", order.LongTotal)
	}
	if order.Collateral != 8_000_000 {
		t.Errorf("merged collateral = %d, want 8000000", order.Collateral)
	}
	if order.DepositTotal != 10_000_000 || order.WithdrawalTotal != 2_000_000 {
		t.Errorf("deposit/withdrawal = %d/%d, want 10000000/2000000", order.DepositTotal, order.WithdrawalTotal)
	}
	if len(order.TransactionHashes) != 2 {
		t.Errorf("transactions = %d, want 2", len(order.TransactionHashes))
	}

	mo, err := store.MarketOrder(h.store, entity.MarketOrderID(market, 1))
	if err != nil {
		t.Fatalf("market order: %v", err)
	}
	if mo.Long != 8_000_000 {
		t.Errorf("market order long = %d, want 8000000", mo.Long)
	}
}

func TestSocializationPeriodLifecycle(t *testing.T) {
	h := newHarness(t)
	account2 := common.HexToAddress("0x0000000000000000000000000000000000000060")
	v1, v2, v3 := int64(10_000), int64(20_000), int64(30_000)

	settleMarket := func(version, orderID int64) {
		t.Helper()
		err := h.ledger.SettleMarketPosition(context.Background(), &event.PositionProcessed{
			Version: event.V2_2, Market: market,
			ToVersion: version, ToOrderID: orderID,
		})
		if err != nil {
			t.Fatalf("settle market at %d: %v", version, err)
		}
	}

	h.createOrder(t, &event.OrderCreated{
		LogMeta: meta(1, v1 - 60), Version: event.V2_2,
		Market: market, Account: account,
		OracleTimestamp: v1, Maker: 60_000_000, Collateral: 500_000_000,
	})
	h.fulfill(t, v1, 1_000_000, true)
	settleMarket(v1, 1)

	// A second account goes long 100 against maker 60: the majority side
	// exceeds maker-backed capacity.
	h.createOrder(t, &event.OrderCreated{
		LogMeta: meta(2, v2 - 60), Version: event.V2_2,
		Market: market, Account: account2,
		OracleTimestamp: v2, Long: 100_000_000, Collateral: 200_000_000,
	})
	h.fulfill(t, v2, 1_000_000, true)
	settleMarket(v2, 2)

	m, _ := store.Market(h.store, market)
	if m.CurrentSocializationPeriod == "" {
		t.Fatal("expected an open socialization period")
	}
	p, err := store.SocializationPeriod(h.store, m.CurrentSocializationPeriod)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	if p.StartVersion != v2 || p.EndVersion != 0 {
		t.Errorf("period start/end = %d/%d, want %d/0", p.StartVersion, p.EndVersion, v2)
	}
	if p.StartMaker != 60_000_000 || p.StartLong != 100_000_000 {
		t.Errorf("period exposure = %d/%d, want 60000000/100000000", p.StartMaker, p.StartLong)
	}

	// Closing the long restores balance and ends the period.
	h.createOrder(t, &event.OrderCreated{
		LogMeta: meta(3, v3 - 60), Version: event.V2_2,
		Market: market, Account: account2,
		OracleTimestamp: v3, Long: -100_000_000,
	})
	h.fulfill(t, v3, 1_000_000, true)
	settleMarket(v3, 3)

	m, _ = store.Market(h.store, market)
	if m.CurrentSocializationPeriod != "" {
		t.Error("socialization period should be closed")
	}
	p, _ = store.SocializationPeriod(h.store, p.ID)
	if p.EndVersion != v3 {
		t.Errorf("EndVersion = %d, want %d", p.EndVersion, v3)
	}
}

func TestRepeatedSettlementAccruesWithoutRefolding(t *testing.T) {
	h := newHarness(t)
	v1 := int64(7_200_000)
	v2 := v1 + 3600

	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(1, v1-60),
		Version:         event.V2_0_1,
		Market:          market,
		Account:         account,
		OracleTimestamp: v1,
		Maker:           100_000_000,
		Collateral:      1_000_000_000,
	})
	h.fulfill(t, v1, 1_000_000, true)
	h.settle(t, event.V2_0_1, v1, 1, event.VersionAccumulationResult{}, 0)

	// The position is held with no new order, so the next settlement
	// re-reports the same order id: a span-only accrual, not a new fold.
	h.fulfill(t, v2, 1_000_000, true)
	h.settle(t, event.V2_0_1, v2, 1,
		event.VersionAccumulationResult{FundingMaker: 50_000_000}, 50_000_000)

	ma := h.marketAccount(t)
	if ma.Maker != 100_000_000 {
		t.Errorf("settled maker = %d, want 100000000 (order folded once)", ma.Maker)
	}
	if ma.LatestVersion != v2 {
		t.Errorf("LatestVersion = %d, want %d", ma.LatestVersion, v2)
	}

	pos, err := store.Position(h.store, entity.PositionID(ma.ID, 1))
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.Maker != 100_000_000 {
		t.Errorf("position maker = %d, want 100000000", pos.Maker)
	}

	// The span still accrues to the holding order.
	acc := h.orderAccumulation(t, 1)
	if acc.CollateralFunding != 50_000_000 {
		t.Errorf("holding order funding = %d, want 50000000", acc.CollateralFunding)
	}
}

func TestOffsetCreditsSettledCollateral(t *testing.T) {
	h := newHarness(t)
	version := int64(7_200_000)

	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(1, version-60),
		Version:         event.V2_2,
		Market:          market,
		Account:         account,
		OracleTimestamp: version,
		Long:            10_000_000,
		Collateral:      100_000_000,
	})
	h.fulfill(t, version, 2_000_000, true)

	err := h.ledger.SettleMarketPosition(context.Background(), &event.PositionProcessed{
		Version: event.V2_2, Market: market,
		ToVersion: version, ToOrderID: 1,
	})
	if err != nil {
		t.Fatalf("settle market: %v", err)
	}
	err = h.ledger.SettleAccountPosition(context.Background(), &event.AccountPositionProcessed{
		Version:   event.V2_2,
		Market:    market,
		Account:   account,
		ToVersion: version,
		ToOrderID: 1,
		Offset:    3_000_000,
		TradeFee:  1_000_000,
	})
	if err != nil {
		t.Fatalf("settle account: %v", err)
	}

	// collateral + offset - trade fee; the same offset lands on the
	// order's accumulation.
	ma := h.marketAccount(t)
	if ma.Collateral != 102_000_000 {
		t.Errorf("collateral = %d, want 102000000", ma.Collateral)
	}
	acc := h.orderAccumulation(t, 1)
	if acc.CollateralOffset != 3_000_000 {
		t.Errorf("CollateralOffset = %d, want 3000000", acc.CollateralOffset)
	}
	if acc.FeeTrade != 1_000_000 {
		t.Errorf("FeeTrade = %d, want 1000000", acc.FeeTrade)
	}
}

func TestStartCollateralSnapshotAtOrderCreation(t *testing.T) {
	h := newHarness(t)
	version := int64(7_200_000)

	h.createOrder(t, &event.OrderCreated{
		LogMeta:         meta(1, version-60),
		Version:         event.V2_2,
		Market:          market,
		Account:         account,
		OracleTimestamp: version,
		Maker:           10_000_000,
		Collateral:      50_000_000,
	})

	// Snapshotted when the position opens, before any settlement runs.
	ma := h.marketAccount(t)
	pos, err := store.Position(h.store, entity.PositionID(ma.ID, 1))
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.StartCollateral != 50_000_000 {
		t.Errorf("StartCollateral = %d, want 50000000 at creation", pos.StartCollateral)
	}

	h.fulfill(t, version, 1_000_000, true)
	err = h.ledger.SettleMarketPosition(context.Background(), &event.PositionProcessed{
		Version: event.V2_2, Market: market,
		ToVersion: version, ToOrderID: 1,
	})
	if err != nil {
		t.Fatalf("settle market: %v", err)
	}
	err = h.ledger.SettleAccountPosition(context.Background(), &event.AccountPositionProcessed{
		Version:   event.V2_2,
		Market:    market,
		Account:   account,
		ToVersion: version,
		ToOrderID: 1,
		TradeFee:  2_000_000,
	})
	if err != nil {
		t.Fatalf("settle account: %v", err)
	}

	// The opening settlement's fee reduces the running collateral but not
	// the snapshot.
	ma = h.marketAccount(t)
	if ma.Collateral != 48_000_000 {
		t.Errorf("collateral = %d, want 48000000", ma.Collateral)
	}
	pos, _ = store.Position(h.store, entity.PositionID(ma.ID, 1))
	if pos.StartCollateral != 50_000_000 {
		t.Errorf("StartCollateral = %d, want 50000000 after settlement", pos.StartCollateral)
	}
}
