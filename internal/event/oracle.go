package event

import "github.com/ethereum/go-ethereum/common"

// OracleVersionRequested is emitted when a price point is requested from
// a sub-oracle.
type OracleVersionRequested struct {
	LogMeta

	SubOracle common.Address
	Version   int64
}

func (e *OracleVersionRequested) Type() Type { return TypeOracleVersionRequested }

// OracleVersionFulfilled is emitted when the sub-oracle commits a price.
// The v2.0 shape carries only the version number; the price must then be
// read back from the oracle contract and every fulfillment is valid. From
// v2.1 the event carries price and validity directly.
type OracleVersionFulfilled struct {
	LogMeta

	SubOracle common.Address
	Version   int64
	Price     int64
	Valid     bool

	// PriceOnEvent is false for the v2.0 shape: Price/Valid are not
	// populated and must be resolved through the oracle contract.
	PriceOnEvent bool
}

func (e *OracleVersionFulfilled) Type() Type { return TypeOracleVersionFulfilled }
