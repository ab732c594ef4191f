package chain_test

import (
	"testing"

	"PerpIndexer/internal/chain"
	"PerpIndexer/internal/event"
)

func TestActiveFork(t *testing.T) {
	tests := []struct {
		network string
		block   int64
		want    event.ProtocolVersion
	}{
		{"arbitrum-one", 1, event.V2_0_1},
		{"arbitrum-one", 152322202, event.V2_0_2},
		{"arbitrum-one", 171762256, event.V2_1},
		{"arbitrum-one", 216721904, event.V2_1},
		{"arbitrum-one", 216721905, event.V2_2},
		{"arbitrum-sepolia", 1, event.V2_1},
		{"arbitrum-sepolia", 41987290, event.V2_2},
		{"mainnet", 1, event.V2_2},
	}
	for _, tt := range tests {
		if got := chain.ActiveFork(tt.network, tt.block); got != tt.want {
			t.Errorf("ActiveFork(%s, %d) = %s, want %s", tt.network, tt.block, got, tt.want)
		}
	}
}

func TestProtocolVersionOrdering(t *testing.T) {
	if !event.V2_0_1.Before(event.V2_2) {
		t.Error("v2_0_1 should precede v2_2")
	}
	if event.V2_2.Before(event.V2_1) {
		t.Error("v2_2 should not precede v2_1")
	}
	if event.V2_1.Before(event.V2_1) {
		t.Error("a version does not precede itself")
	}
}
