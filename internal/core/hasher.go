package core

import (
	"crypto/sha256"
	"encoding/binary"
)

const genesisHashSeed = "PerpIndexer:genesis:v1"

// StateHasher chains a hash over every applied event:
// hash[N] = SHA-256(hash[N-1] || sequence || event key). Two replicas
// that applied the same event stream carry the same chain tip, making
// divergence detectable from the processed_events table alone.
type StateHasher struct {
	prevHash [32]byte
}

func NewStateHasher() *StateHasher {
	return &StateHasher{
		prevHash: sha256.Sum256([]byte(genesisHashSeed)),
	}
}

// ComputeHash advances the chain with the applied event's identity.
func (h *StateHasher) ComputeHash(sequence int64, key string) [32]byte {
	hasher := sha256.New()
	hasher.Write(h.prevHash[:])

	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], uint64(sequence))
	hasher.Write(seqBuf[:])

	hasher.Write([]byte(key))

	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))
	h.prevHash = hash
	return hash
}

// PrevHash returns the current chain tip.
func (h *StateHasher) PrevHash() [32]byte {
	return h.prevHash
}

// SetPrevHash seeds the chain tip during recovery.
func (h *StateHasher) SetPrevHash(hash [32]byte) {
	h.prevHash = hash
}
