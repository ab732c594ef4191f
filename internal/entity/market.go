package entity

import "github.com/ethereum/go-ethereum/common"

// Market is one tradable instrument. Created on MarketCreated, mutated on
// every order creation and every settlement, never deleted.
type Market struct {
	ID     common.Address `json:"id"`
	Token  common.Address `json:"token"`
	Oracle common.Address `json:"oracle"`

	// Payoff is the legacy payoff transform contract; nil from v2.2 on.
	Payoff *common.Address `json:"payoff,omitempty"`

	// Settled market-wide exposure.
	Maker int64 `json:"maker"`
	Long  int64 `json:"long"`
	Short int64 `json:"short"`

	LatestPrice int64 `json:"latestPrice"`

	// Version/order-sequence counters. Current advances on order creation,
	// latest on settlement.
	LatestVersion  int64 `json:"latestVersion"`
	CurrentVersion int64 `json:"currentVersion"`
	LatestOrderID  int64 `json:"latestOrderId"`
	CurrentOrderID int64 `json:"currentOrderId"`

	// CurrentSocializationPeriod references the open
	// MarketSocializationPeriod, if any.
	CurrentSocializationPeriod string `json:"currentSocializationPeriod,omitempty"`
}

func (m *Market) EntityKind() Kind { return KindMarket }
func (m *Market) EntityID() string { return addrID(m.ID) }

// MarketOrder aggregates all accounts' deltas settling at the same oracle
// version: one per (market, order-sequence).
type MarketOrder struct {
	ID      string         `json:"id"`
	Market  common.Address `json:"market"`
	OrderID int64          `json:"orderId"`
	Version int64          `json:"version"`

	OracleVersion string `json:"oracleVersion"`

	// Net per-side deltas.
	Maker int64 `json:"maker"`
	Long  int64 `json:"long"`
	Short int64 `json:"short"`

	// Absolute per-side totals.
	MakerTotal int64 `json:"makerTotal"`
	LongTotal  int64 `json:"longTotal"`
	ShortTotal int64 `json:"shortTotal"`

	// Resulting market-wide exposure once settled.
	NewMaker int64 `json:"newMaker"`
	NewLong  int64 `json:"newLong"`
	NewShort int64 `json:"newShort"`
}

func (m *MarketOrder) EntityKind() Kind { return KindMarketOrder }
func (m *MarketOrder) EntityID() string { return m.ID }

// MarketAccumulator is the cumulative per-unit ledger for a market at one
// oracle version: each field is the prior version's value plus this
// version's incremental result divided by the exposure it was distributed
// across. Values are cumulative, not incremental.
type MarketAccumulator struct {
	ID      string         `json:"id"`
	Market  common.Address `json:"market"`
	Version int64          `json:"version"`

	PnlMaker int64 `json:"pnlMaker"`
	PnlLong  int64 `json:"pnlLong"`
	PnlShort int64 `json:"pnlShort"`

	FundingMaker int64 `json:"fundingMaker"`
	FundingLong  int64 `json:"fundingLong"`
	FundingShort int64 `json:"fundingShort"`

	InterestMaker int64 `json:"interestMaker"`
	InterestLong  int64 `json:"interestLong"`
	InterestShort int64 `json:"interestShort"`

	PositionFeeMaker int64 `json:"positionFeeMaker"`
	ExposureMaker    int64 `json:"exposureMaker"`
}

func (m *MarketAccumulator) EntityKind() Kind { return KindMarketAccumulator }
func (m *MarketAccumulator) EntityID() string { return m.ID }

// MarketSocializationPeriod is an append-only log entry covering a span
// during which majority-side exposure exceeded maker-backed capacity.
type MarketSocializationPeriod struct {
	ID           string         `json:"id"`
	Market       common.Address `json:"market"`
	StartVersion int64          `json:"startVersion"`
	StartMaker   int64          `json:"startMaker"`
	StartLong    int64          `json:"startLong"`
	StartShort   int64          `json:"startShort"`

	// EndVersion is zero while the period is open.
	EndVersion int64 `json:"endVersion,omitempty"`
}

func (m *MarketSocializationPeriod) EntityKind() Kind { return KindMarketSocializationPeriod }
func (m *MarketSocializationPeriod) EntityID() string { return m.ID }

// Socialized reports whether an exposure triple requires proportional
// loss-sharing: the majority side strictly exceeds what the minority side
// plus maker liquidity can back.
func Socialized(maker, long, short int64) bool {
	major, minor := long, short
	if short > long {
		major, minor = short, long
	}
	return major > minor+maker
}
