package entity

import "github.com/ethereum/go-ethereum/common"

// Account is a protocol participant.
type Account struct {
	ID common.Address `json:"id"`

	// Operators approved at the market factory.
	Operators []common.Address `json:"operators"`

	// MultiInvokerOperators approved at the multi-invoker.
	MultiInvokerOperators []common.Address `json:"multiInvokerOperators"`
}

func (a *Account) EntityKind() Kind { return KindAccount }
func (a *Account) EntityID() string { return addrID(a.ID) }

// MarketAccount is the per-(market, account) ledger state. Created lazily
// on the first event referencing the pair.
type MarketAccount struct {
	ID      string         `json:"id"`
	Market  common.Address `json:"market"`
	Account common.Address `json:"account"`

	// PositionNonce is the position generation counter: bumped each time
	// exposure transitions from zero to non-zero.
	PositionNonce int64 `json:"positionNonce"`

	LatestVersion  int64 `json:"latestVersion"`
	CurrentVersion int64 `json:"currentVersion"`
	LatestOrderID  int64 `json:"latestOrderId"`
	CurrentOrderID int64 `json:"currentOrderId"`

	// Collateral is the cumulative account collateral in the market.
	Collateral int64 `json:"collateral"`

	// Settled exposure.
	Maker int64 `json:"maker"`
	Long  int64 `json:"long"`
	Short int64 `json:"short"`

	// Pending (unsettled) exposure.
	PendingMaker int64 `json:"pendingMaker"`
	PendingLong  int64 `json:"pendingLong"`
	PendingShort int64 `json:"pendingShort"`

	// Invalidation offsets back out pending deltas whose oracle version
	// came back invalid. Maintained for pre-v2.2 protocol versions only.
	MakerInvalidation int64 `json:"makerInvalidation"`
	LongInvalidation  int64 `json:"longInvalidation"`
	ShortInvalidation int64 `json:"shortInvalidation"`
}

func (m *MarketAccount) EntityKind() Kind { return KindMarketAccount }
func (m *MarketAccount) EntityID() string { return m.ID }

// Side returns the side of the account's settled exposure.
func (m *MarketAccount) Side() Side {
	return SideOf(m.Maker, m.Long, m.Short)
}

// Magnitude returns the size of the account's settled exposure.
func (m *MarketAccount) Magnitude() int64 {
	return Magnitude(m.Maker, m.Long, m.Short)
}

// IsTaker reports whether the account currently takes directional exposure.
func (m *MarketAccount) IsTaker() bool {
	return m.Side().IsTaker()
}
