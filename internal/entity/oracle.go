package entity

import "github.com/ethereum/go-ethereum/common"

// Oracle is a market's oracle aggregator contract.
type Oracle struct {
	ID        common.Address `json:"id"`
	SubOracle common.Address `json:"subOracle"`
}

func (o *Oracle) EntityKind() Kind { return KindOracle }
func (o *Oracle) EntityID() string { return addrID(o.ID) }

// SubOracle is the provider contract behind an Oracle.
type SubOracle struct {
	ID     common.Address `json:"id"`
	Oracle common.Address `json:"oracle"`
}

func (s *SubOracle) EntityKind() Kind { return KindSubOracle }
func (s *SubOracle) EntityID() string { return addrID(s.ID) }

// OracleVersion tracks the request/fulfillment lifecycle of one price
// point: one per (sub-oracle, timestamp). A version referenced by an
// order before any request event is seen is created unrequested; that is
// expected, not an error. A version is invalid when the oracle failed to
// produce a price; invalid versions must not mutate exposure.
type OracleVersion struct {
	ID        string         `json:"id"`
	SubOracle common.Address `json:"subOracle"`
	Timestamp int64          `json:"timestamp"`

	Requested              bool         `json:"requested"`
	RequestTransactionHash *common.Hash `json:"requestTransactionHash,omitempty"`
	RequestTimestamp       int64        `json:"requestTimestamp,omitempty"`

	Fulfilled              bool         `json:"fulfilled"`
	FulfillTransactionHash *common.Hash `json:"fulfillTransactionHash,omitempty"`
	FulfillTimestamp       int64        `json:"fulfillTimestamp,omitempty"`

	Valid bool  `json:"valid"`
	Price int64 `json:"price"`

	// Orders holds the linked order ids in insertion order; fulfillment
	// settles them in exactly this order.
	Orders []string `json:"orders"`
}

func (v *OracleVersion) EntityKind() Kind { return KindOracleVersion }
func (v *OracleVersion) EntityID() string { return v.ID }

// LinkOrder appends an order id if not already linked.
func (v *OracleVersion) LinkOrder(orderID string) {
	for _, id := range v.Orders {
		if id == orderID {
			return
		}
	}
	v.Orders = append(v.Orders, orderID)
}
