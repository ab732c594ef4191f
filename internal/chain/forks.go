// Package chain holds the protocol fork schedule and the read-only
// contract caller used for fallback reads: live oracle validity checks
// and legacy-version parameter lookups.
package chain

import "PerpIndexer/internal/event"

// ActiveFork returns the protocol version live on a network at a block.
// Unknown networks are assumed fully migrated.
func ActiveFork(network string, block int64) event.ProtocolVersion {
	switch network {
	case "arbitrum-sepolia":
		if block >= 41987290 {
			return event.V2_2
		}
		return event.V2_1
	case "arbitrum-one":
		switch {
		case block >= 216721905:
			return event.V2_2
		case block >= 171762256:
			return event.V2_1
		case block >= 152322202:
			return event.V2_0_2
		default:
			return event.V2_0_1
		}
	default:
		return event.V2_2
	}
}
