package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"PerpIndexer/internal/core"
	"PerpIndexer/internal/observability"
)

// Worker drains the engine's persist channel and batch-writes to
// Postgres. The engine sends blocking, so a stalled worker stalls the
// event loop instead of losing writes.
type Worker struct {
	writer       *EntityWriter
	input        <-chan core.Batch
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
	log          zerolog.Logger
}

func NewWorker(
	db *sql.DB,
	input <-chan core.Batch,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		writer:       NewEntityWriter(db),
		input:        input,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
		log:          log,
	}
}

// Run batches incoming outputs and flushes when the batch fills or the
// flush timeout expires. Blocks until ctx is cancelled or the input
// channel closes.
func (w *Worker) Run(ctx context.Context) error {
	pending := make([]core.Batch, 0, w.batchSize)

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				// One final attempt with a fresh context so shutdown does not
				// drop the tail of the stream.
				if err := w.flush(context.Background(), pending); err != nil {
					w.log.Error().Err(err).Int("batches", len(pending)).Msg("final flush failed")
				}
			}
			return ctx.Err()

		case batch, ok := <-w.input:
			if !ok {
				if len(pending) > 0 {
					if err := w.flush(context.Background(), pending); err != nil {
						w.log.Error().Err(err).Int("batches", len(pending)).Msg("final flush failed")
					}
				}
				return nil
			}

			pending = append(pending, batch)
			if len(pending) >= w.batchSize {
				w.flushWithRetry(ctx, pending)
				pending = pending[:0]
				timer.Reset(w.flushTimeout)
			}

		case <-timer.C:
			if len(pending) > 0 {
				w.flushWithRetry(ctx, pending)
				pending = pending[:0]
			}
			timer.Reset(w.flushTimeout)
		}
	}
}

// flushWithRetry retries with exponential backoff until the write
// succeeds or the context is cancelled. The worker never drops batches.
func (w *Worker) flushWithRetry(ctx context.Context, batches []core.Batch) {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if w.metrics != nil {
				w.metrics.PersistRetry.Inc()
			}
			w.log.Warn().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Int("batches", len(batches)).
				Msg("persistence retry")
			select {
			case <-ctx.Done():
				if err := w.flush(context.Background(), batches); err != nil {
					w.log.Error().Err(err).Msg("flush on shutdown failed")
				}
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := w.flush(ctx, batches)
		if err == nil {
			if attempt > 0 {
				w.log.Info().Int("attempts", attempt).Msg("persistence flush recovered")
			}
			return
		}
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write").Inc()
		}
		w.log.Error().Err(err).Msg("persistence flush failed")
	}
}

func (w *Worker) flush(ctx context.Context, batches []core.Batch) error {
	start := time.Now()

	if err := w.writer.WriteBatches(ctx, batches); err != nil {
		return err
	}

	if w.metrics != nil {
		entities := 0
		for _, b := range batches {
			entities += len(b.Entities)
		}
		w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		w.metrics.PersistBatchSize.Observe(float64(entities))
		w.metrics.PersistEntitiesWritten.Add(float64(entities))
		w.metrics.PersistLastSequence.Set(float64(batches[len(batches)-1].Sequence))
	}
	return nil
}
