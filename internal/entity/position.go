package entity

import "github.com/ethereum/go-ethereum/common"

// Position is one contiguous holding period for a MarketAccount: it
// begins when exposure goes from zero to non-zero and ends when it
// returns to zero. Exactly one position per MarketAccount is current;
// prior positions are immutable history.
type Position struct {
	ID            string `json:"id"`
	MarketAccount string `json:"marketAccount"`
	Nonce         int64  `json:"nonce"`

	// Settled exposure: the sum of settled order deltas.
	Maker int64 `json:"maker"`
	Long  int64 `json:"long"`
	Short int64 `json:"short"`

	// Starting snapshot taken when the position opened.
	StartMaker      int64 `json:"startMaker"`
	StartLong       int64 `json:"startLong"`
	StartShort      int64 `json:"startShort"`
	StartCollateral int64 `json:"startCollateral"`
	StartVersion    int64 `json:"startVersion"`

	// Running open/close size and notional for average entry/exit price.
	OpenSize      int64 `json:"openSize"`
	OpenNotional  int64 `json:"openNotional"`
	CloseSize     int64 `json:"closeSize"`
	CloseNotional int64 `json:"closeNotional"`

	// NetDeposits is the collateral flow excluding fees.
	NetDeposits int64 `json:"netDeposits"`

	// Accumulation is the position's owned OrderAccumulation id.
	Accumulation string `json:"accumulation"`
}

func (p *Position) EntityKind() Kind { return KindPosition }
func (p *Position) EntityID() string { return p.ID }

// Magnitude returns the settled size of the position.
func (p *Position) Magnitude() int64 {
	return Magnitude(p.Maker, p.Long, p.Short)
}

// Order is one per (market, account, per-account order-sequence). Created
// once and mutated in place as related fees arrive: an order can receive
// contributions from multiple events before its oracle version fulfills.
type Order struct {
	ID            string `json:"id"`
	MarketAccount string `json:"marketAccount"`
	Position      string `json:"position"`
	MarketOrder   string `json:"marketOrder"`
	OrderID       int64  `json:"orderId"`
	Version       int64  `json:"version"`
	OracleVersion string `json:"oracleVersion"`

	// Per-side deltas and absolute totals.
	Maker      int64 `json:"maker"`
	Long       int64 `json:"long"`
	Short      int64 `json:"short"`
	MakerTotal int64 `json:"makerTotal"`
	LongTotal  int64 `json:"longTotal"`
	ShortTotal int64 `json:"shortTotal"`

	// Resulting position exposure once fulfilled.
	NewMaker int64 `json:"newMaker"`
	NewLong  int64 `json:"newLong"`
	NewShort int64 `json:"newShort"`

	// Collateral flow while the order was current.
	Collateral      int64 `json:"collateral"`
	StartCollateral int64 `json:"startCollateral"`
	EndCollateral   int64 `json:"endCollateral"`
	DepositTotal    int64 `json:"depositTotal"`
	WithdrawalTotal int64 `json:"withdrawalTotal"`

	ExecutionPrice int64 `json:"executionPrice"`

	// Liquidation metadata; first-write-wins.
	Liquidation bool           `json:"liquidation"`
	Liquidator  common.Address `json:"liquidator"`

	// Referrer metadata; first-write-wins.
	Referrer          common.Address `json:"referrer"`
	GuaranteeReferrer common.Address `json:"guaranteeReferrer"`

	// GuaranteePrice is set for solver-matched trades, which settle at a
	// pre-agreed price rather than the oracle version's.
	GuaranteePrice *int64 `json:"guaranteePrice,omitempty"`

	// TransactionHashes lists every transaction that contributed to the
	// order; used to reject replayed contributions.
	TransactionHashes []common.Hash `json:"transactionHashes"`

	// Accumulation is the order's owned OrderAccumulation id.
	Accumulation string `json:"accumulation"`
}

func (o *Order) EntityKind() Kind { return KindOrder }
func (o *Order) EntityID() string { return o.ID }

// Size returns the signed size delta of the order.
func (o *Order) Size() int64 {
	return OrderSize(o.Maker, o.Long, o.Short)
}

// HasTransaction reports whether txHash already contributed to the order.
func (o *Order) HasTransaction(txHash common.Hash) bool {
	for _, h := range o.TransactionHashes {
		if h == txHash {
			return true
		}
	}
	return false
}
