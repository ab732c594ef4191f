// Package event defines the typed protocol events the engine processes.
// Four incompatible protocol schema versions emit differently shaped
// events; each versioned shape normalizes into one canonical form before
// it reaches the ledger, keeping the ledger version-agnostic.
package event

import (
	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/entity"
)

// Type discriminates event payloads.
type Type string

const (
	TypeMarketCreated            Type = "MarketCreated"
	TypeOracleUpdated            Type = "OracleUpdated"
	TypeOrderCreated             Type = "OrderCreated"
	TypeAccountPositionProcessed Type = "AccountPositionProcessed"
	TypePositionProcessed        Type = "PositionProcessed"
	TypeOracleVersionRequested   Type = "OracleVersionRequested"
	TypeOracleVersionFulfilled   Type = "OracleVersionFulfilled"
	TypeOperatorUpdated          Type = "OperatorUpdated"
	TypeTriggerOrderPlaced       Type = "TriggerOrderPlaced"
	TypeTriggerOrderExecuted     Type = "TriggerOrderExecuted"
	TypeTriggerOrderCancelled    Type = "TriggerOrderCancelled"
	TypeVaultUpdated             Type = "VaultUpdated"
)

// ProtocolVersion tags which protocol schema emitted an event.
type ProtocolVersion string

const (
	V2_0_1 ProtocolVersion = "v2_0_1"
	V2_0_2 ProtocolVersion = "v2_0_2"
	V2_1   ProtocolVersion = "v2_1"
	V2_2   ProtocolVersion = "v2_2"
)

// Before reports whether v predates other in the fork schedule.
func (v ProtocolVersion) Before(other ProtocolVersion) bool {
	return forkIndex(v) < forkIndex(other)
}

func forkIndex(v ProtocolVersion) int {
	switch v {
	case V2_0_1:
		return 0
	case V2_0_2:
		return 1
	case V2_1:
		return 2
	case V2_2:
		return 3
	default:
		return -1
	}
}

// Event is implemented by every canonical event.
type Event interface {
	// Type returns the event discriminator.
	Type() Type

	// Key returns the stable idempotency key: txHash:logIndex.
	Key() string

	// Block returns the originating block number, the ordering partition
	// sequence.
	Block() int64

	// Index returns the log index within the block.
	Index() uint
}

// LogMeta carries the chain-log identity shared by every event.
type LogMeta struct {
	TxHash         common.Hash
	LogIndex       uint
	BlockNumber    int64
	BlockTimestamp int64
}

func (m LogMeta) Key() string  { return entity.LogID(m.TxHash, m.LogIndex) }
func (m LogMeta) Block() int64 { return m.BlockNumber }
func (m LogMeta) Index() uint  { return m.LogIndex }
