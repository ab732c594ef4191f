package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/event"
)

const outboundStream = "PERP_INDEXER"

// AppliedNotice is the downstream notification emitted after an event
// has been applied and handed to the persistence pipeline. Consumers
// (alerting, analytics refresh) key on sequence and state hash.
type AppliedNotice struct {
	Sequence  int64      `json:"sequence"`
	Key       string     `json:"key"`
	EventType event.Type `json:"event_type"`
	Block     int64      `json:"block"`
	Timestamp int64      `json:"timestamp"`
	StateHash string     `json:"state_hash"`
	Entities  int        `json:"entities"`
}

// Publisher drains applied-event notices onto JetStream. Publish
// failures are logged and dropped: the notices are advisory, the
// entity table is the source of truth.
type Publisher struct {
	js    jetstream.JetStream
	input <-chan AppliedNotice
	log   zerolog.Logger
}

func NewPublisher(js jetstream.JetStream, input <-chan AppliedNotice, log zerolog.Logger) *Publisher {
	return &Publisher{js: js, input: input, log: log}
}

// Run drains the input channel until it closes or ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("publisher stopped")
			return
		case notice, ok := <-p.input:
			if !ok {
				p.log.Info().Msg("publisher input closed")
				return
			}
			p.publish(ctx, notice)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, notice AppliedNotice) {
	data, err := json.Marshal(notice)
	if err != nil {
		p.log.Error().Err(err).Int64("sequence", notice.Sequence).Msg("marshal applied notice")
		return
	}

	subject := fmt.Sprintf("perp.indexer.applied.%s", subjectToken(notice.EventType))
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.log.Warn().
			Err(err).
			Str("subject", subject).
			Int64("sequence", notice.Sequence).
			Msg("publish applied notice failed")
	}
}

// subjectToken maps a canonical event type to its snake_case subject
// token, mirroring the inbound subject layout.
func subjectToken(t event.Type) string {
	switch t {
	case event.TypeMarketCreated:
		return "market_created"
	case event.TypeOracleUpdated:
		return "oracle_updated"
	case event.TypeOrderCreated:
		return "order_created"
	case event.TypePositionProcessed:
		return "position_processed"
	case event.TypeAccountPositionProcessed:
		return "account_processed"
	case event.TypeOracleVersionRequested:
		return "oracle_requested"
	case event.TypeOracleVersionFulfilled:
		return "oracle_fulfilled"
	case event.TypeOperatorUpdated:
		return "operator_updated"
	case event.TypeTriggerOrderPlaced:
		return "trigger_placed"
	case event.TypeTriggerOrderExecuted:
		return "trigger_executed"
	case event.TypeTriggerOrderCancelled:
		return "trigger_cancelled"
	case event.TypeVaultUpdated:
		return "vault_updated"
	default:
		return "unknown"
	}
}

// EnsureOutboundStream creates the applied-notice stream if missing.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      outboundStream,
		Subjects:  []string{"perp.indexer.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", outboundStream, err)
	}
	return nil
}
