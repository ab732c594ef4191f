package core

import (
	"fmt"

	"PerpIndexer/internal/observability"
)

type logPosition struct {
	block int64
	index uint
}

func (p logPosition) before(other logPosition) bool {
	if p.block != other.block {
		return p.block < other.block
	}
	return p.index < other.index
}

// OrderingValidator enforces non-decreasing (block, logIndex) per
// partition. Finalized-order delivery means a new event below the
// watermark is a stream fault, not a reorg; duplicates below the
// watermark are expected redeliveries.
//
// Not thread-safe: only accessed from the single-threaded engine.
type OrderingValidator struct {
	watermark map[string]logPosition
	metrics   *observability.Metrics
}

func NewOrderingValidator(metrics *observability.Metrics) *OrderingValidator {
	return &OrderingValidator{
		watermark: make(map[string]logPosition),
		metrics:   metrics,
	}
}

// Validate checks the event's position against the partition watermark
// and advances it. Equal positions are accepted: the same log can be
// redelivered without being a fault.
func (ov *OrderingValidator) Validate(partition string, block int64, index uint, isDuplicate bool) error {
	pos := logPosition{block: block, index: index}
	mark, ok := ov.watermark[partition]

	if ok && pos.before(mark) {
		if isDuplicate {
			return nil
		}
		if ov.metrics != nil {
			ov.metrics.OrderingRegression.WithLabelValues(partition).Inc()
		}
		return fmt.Errorf("ordering regression: partition=%s watermark=%d:%d got=%d:%d",
			partition, mark.block, mark.index, block, index)
	}

	ov.watermark[partition] = pos
	return nil
}

// Watermark returns the partition's current position.
func (ov *OrderingValidator) Watermark(partition string) (block int64, index uint) {
	mark := ov.watermark[partition]
	return mark.block, mark.index
}

// SetWatermark seeds a partition position during recovery.
func (ov *OrderingValidator) SetWatermark(partition string, block int64, index uint) {
	ov.watermark[partition] = logPosition{block: block, index: index}
}
