package fees

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/chain"
	"PerpIndexer/internal/event"
)

// LiquidationFee derives the fee charged for a liquidating order under
// the pre-v2.2 protocol versions, where it is not on the settlement
// event:
//
//   - v2.0.x: the entire negative collateral delta at the triggering
//     event is the liquidation fee.
//   - v2.1: the fee is a market risk parameter read through the caller's
//     versioned accessor chain.
//
// From v2.2 onward the fee arrives as a structured settlement field and
// this path is not consulted. Callers must skip re-derivation once an
// order's liquidation sub-accumulation is non-zero.
func LiquidationFee(ctx context.Context, version event.ProtocolVersion, market common.Address, collateral int64, caller chain.Caller) (int64, error) {
	switch {
	case version.Before(event.V2_1):
		if collateral < 0 {
			return -collateral, nil
		}
		return 0, nil
	case version == event.V2_1:
		if caller == nil {
			return 0, fmt.Errorf("liquidation fee for %s: no caller configured", market.Hex())
		}
		return caller.LiquidationFee(ctx, market)
	default:
		return 0, nil
	}
}
