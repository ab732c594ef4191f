package event

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// OrderCreated is the canonical order-creation call: every versioned
// shape reduces to it. Exactly one of Maker/Long/Short is non-zero per
// event by protocol construction.
type OrderCreated struct {
	LogMeta
	Version ProtocolVersion

	Market  common.Address
	Account common.Address

	// OracleTimestamp is the oracle version the order settles at.
	OracleTimestamp int64

	Maker      int64
	Long       int64
	Short      int64
	Collateral int64

	// Liquidation metadata (first-write-wins downstream).
	Liquidation bool
	Liquidator  common.Address

	// Referral metadata.
	Referrer          common.Address
	GuaranteeReferrer common.Address

	// GuaranteePrice is non-nil for solver-matched trades.
	GuaranteePrice *int64

	// Receipt carries the transaction's logs for out-of-band fee
	// evidence (interface/keeper fee emissions).
	Receipt []*types.Log
}

func (e *OrderCreated) Type() Type { return TypeOrderCreated }

// OrderCreatedV20 is the v2.0.x / v2.1 shape: signed per-side deltas.
type OrderCreatedV20 struct {
	LogMeta
	Fork ProtocolVersion

	Market        common.Address
	Account       common.Address
	OracleVersion int64
	Maker         int64
	Long          int64
	Short         int64
	Collateral    int64

	Receipt []*types.Log
}

// Normalize reduces the v2.0/v2.1 shape to the canonical call.
func (e *OrderCreatedV20) Normalize() *OrderCreated {
	return &OrderCreated{
		LogMeta:         e.LogMeta,
		Version:         e.Fork,
		Market:          e.Market,
		Account:         e.Account,
		OracleTimestamp: e.OracleVersion,
		Maker:           e.Maker,
		Long:            e.Long,
		Short:           e.Short,
		Collateral:      e.Collateral,
		Receipt:         e.Receipt,
	}
}

// OrderCreatedV22 is the v2.2 shape: per-side pos/neg splits, an order
// timestamp instead of a version number, and structured metadata.
type OrderCreatedV22 struct {
	LogMeta

	Market  common.Address
	Account common.Address

	Timestamp  int64
	MakerPos   int64
	MakerNeg   int64
	LongPos    int64
	LongNeg    int64
	ShortPos   int64
	ShortNeg   int64
	Collateral int64

	Protection bool
	Liquidator common.Address

	Referrer          common.Address
	GuaranteeReferrer common.Address
	GuaranteePrice    *int64

	Receipt []*types.Log
}

// Normalize reduces the v2.2 shape to the canonical call.
func (e *OrderCreatedV22) Normalize() *OrderCreated {
	return &OrderCreated{
		LogMeta:           e.LogMeta,
		Version:           V2_2,
		Market:            e.Market,
		Account:           e.Account,
		OracleTimestamp:   e.Timestamp,
		Maker:             e.MakerPos - e.MakerNeg,
		Long:              e.LongPos - e.LongNeg,
		Short:             e.ShortPos - e.ShortNeg,
		Collateral:        e.Collateral,
		Liquidation:       e.Protection,
		Liquidator:        e.Liquidator,
		Referrer:          e.Referrer,
		GuaranteeReferrer: e.GuaranteeReferrer,
		GuaranteePrice:    e.GuaranteePrice,
		Receipt:           e.Receipt,
	}
}
