// Package ingestion consumes finalized chain events from NATS JetStream
// and converts the JSON wire shapes into canonical typed events for the
// engine. Each protocol schema publishes its own event shape; the parser
// normalizes all of them before they cross into the core.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/event"
	"PerpIndexer/internal/observability"
)

const chainStream = "PERP_CHAIN"

// RawEvent is a delivered-but-unparsed chain event. DeliveryID is fresh
// per delivery so redeliveries of the same log are distinguishable in
// logs.
type RawEvent struct {
	DeliveryID uuid.UUID
	Subject    string
	EventType  event.Type
	Data       []byte
	Received   time.Time
	Ack        func()
	Nak        func()
}

// SubjectConfig maps one NATS subject to one canonical event type.
type SubjectConfig struct {
	Subject      string
	EventType    event.Type
	ConsumerName string
}

// DefaultSubjects returns the subject layout the chain extractor
// publishes to. Subjects carry the market or oracle address as the last
// token for subject-level filtering.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "perp.chain.market_created.>", EventType: event.TypeMarketCreated, ConsumerName: "indexer-market-created"},
		{Subject: "perp.chain.oracle_updated.>", EventType: event.TypeOracleUpdated, ConsumerName: "indexer-oracle-updated"},
		{Subject: "perp.chain.order_created.>", EventType: event.TypeOrderCreated, ConsumerName: "indexer-order-created"},
		{Subject: "perp.chain.position_processed.>", EventType: event.TypePositionProcessed, ConsumerName: "indexer-position-processed"},
		{Subject: "perp.chain.account_processed.>", EventType: event.TypeAccountPositionProcessed, ConsumerName: "indexer-account-processed"},
		{Subject: "perp.chain.oracle_requested.>", EventType: event.TypeOracleVersionRequested, ConsumerName: "indexer-oracle-requested"},
		{Subject: "perp.chain.oracle_fulfilled.>", EventType: event.TypeOracleVersionFulfilled, ConsumerName: "indexer-oracle-fulfilled"},
		{Subject: "perp.chain.operator_updated.>", EventType: event.TypeOperatorUpdated, ConsumerName: "indexer-operator-updated"},
		{Subject: "perp.chain.trigger_placed.>", EventType: event.TypeTriggerOrderPlaced, ConsumerName: "indexer-trigger-placed"},
		{Subject: "perp.chain.trigger_executed.>", EventType: event.TypeTriggerOrderExecuted, ConsumerName: "indexer-trigger-executed"},
		{Subject: "perp.chain.trigger_cancelled.>", EventType: event.TypeTriggerOrderCancelled, ConsumerName: "indexer-trigger-cancelled"},
		{Subject: "perp.chain.vault_updated.>", EventType: event.TypeVaultUpdated, ConsumerName: "indexer-vault-updated"},
	}
}

// Subscriber feeds raw chain events into the engine loop's channel.
type Subscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	consumers []jetstream.ConsumeContext
	metrics   *observability.Metrics
	log       zerolog.Logger
}

func NewSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent, metrics *observability.Metrics, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		js:        js,
		eventChan: eventChan,
		metrics:   metrics,
		log:       log,
	}
}

// Subscribe creates a durable consumer per subject. Explicit ACK with
// redelivery: the engine's idempotency layer absorbs the duplicates
// redelivery produces.
func (s *Subscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		cfg := cfg
		consumer, err := s.js.CreateOrUpdateConsumer(ctx, chainStream, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		cc, err := consumer.Consume(func(msg jetstream.Msg) {
			if s.metrics != nil {
				s.metrics.IngestReceived.WithLabelValues(cfg.Subject).Inc()
			}
			raw := RawEvent{
				DeliveryID: uuid.New(),
				Subject:    msg.Subject(),
				EventType:  cfg.EventType,
				Data:       msg.Data(),
				Received:   time.Now(),
				Ack:        func() { msg.Ack() },
				Nak:        func() { msg.Nak() },
			}

			select {
			case s.eventChan <- raw:
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		s.consumers = append(s.consumers, cc)
		s.log.Info().
			Str("subject", cfg.Subject).
			Str("consumer", cfg.ConsumerName).
			Msg("subscribed")
	}
	return nil
}

// Stop gracefully stops all consumers.
func (s *Subscriber) Stop() {
	for _, cc := range s.consumers {
		cc.Stop()
	}
	s.log.Info().Msg("NATS consumers stopped")
}

// EnsureStream creates the chain-events stream if it does not exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      chainStream,
		Subjects:  []string{"perp.chain.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", chainStream, err)
	}
	return nil
}

// ConnectNATS establishes a NATS connection and returns a JetStream
// context.
func ConnectNATS(url string, log zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}
