package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Caller is the read-only view of the protocol's contracts. The engine
// uses it for state the event stream alone cannot supply: live oracle
// validity when a fulfillment has not been indexed yet, the v2.1
// liquidation fee parameter, and legacy payoff transforms.
type Caller interface {
	// VersionAt reads the price point committed at a sub-oracle
	// timestamp. valid is false when the oracle produced no price.
	VersionAt(ctx context.Context, subOracle common.Address, timestamp int64) (price int64, valid bool, err error)

	// LiquidationFee reads the market's liquidation fee parameter.
	LiquidationFee(ctx context.Context, market common.Address) (int64, error)

	// TransformPayoff applies a legacy payoff transform to a price.
	TransformPayoff(ctx context.Context, payoff common.Address, price int64) (int64, error)
}

// ParamResult is the outcome of one versioned accessor strategy. A
// reverted call is a failed attempt, not an error: the next strategy in
// the chain is tried.
type ParamResult struct {
	Value int64
	OK    bool
}

// ParamStrategy attempts one versioned read of a contract parameter.
type ParamStrategy func(ctx context.Context, contract common.Address) (ParamResult, error)

// FirstOf tries strategies in order and returns the first successful
// result. An error aborts the chain; a not-OK result moves on.
func FirstOf(ctx context.Context, contract common.Address, strategies ...ParamStrategy) (ParamResult, error) {
	for _, s := range strategies {
		res, err := s(ctx, contract)
		if err != nil {
			return ParamResult{}, err
		}
		if res.OK {
			return res, nil
		}
	}
	return ParamResult{}, nil
}
