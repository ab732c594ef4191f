package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for PerpIndexer.
type Metrics struct {
	// --- Engine ---
	EventsApplied  *prometheus.CounterVec
	EventsRejected *prometheus.CounterVec
	EventDuration  *prometheus.HistogramVec
	EngineSequence prometheus.Gauge
	EngineBlock    prometheus.Gauge

	// --- Idempotency & ordering ---
	DedupDuplicates    *prometheus.CounterVec
	DedupLRUSize       prometheus.Gauge
	DedupLookupErrors  prometheus.Counter
	OrderingRegression *prometheus.CounterVec

	// --- Ingestion ---
	IngestReceived  *prometheus.CounterVec
	IngestParseErrs *prometheus.CounterVec
	IngestToApply   *prometheus.HistogramVec
	NATSPullLatency *prometheus.HistogramVec

	// --- Settlement ---
	OracleFulfillments *prometheus.CounterVec
	OrdersSettled      prometheus.Counter
	Settlements        *prometheus.CounterVec
	Socialization      *prometheus.CounterVec

	// --- Persistence ---
	PersistEntitiesWritten prometheus.Counter
	PersistBatchSize       prometheus.Histogram
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter
	PersistLastSequence    prometheus.Gauge
	PersistBackpressure    prometheus.Counter

	// --- Channels ---
	ChannelSize        *prometheus.GaugeVec
	ChannelCapacity    *prometheus.GaugeVec
	ChannelUtilization *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	ingestBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_events_applied_total",
			Help: "Events successfully applied by the engine",
		}, []string{"event_type"}),

		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_events_rejected_total",
			Help: "Events rejected (duplicate, ordering)",
		}, []string{"event_type", "reason"}),

		EventDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perp_event_apply_duration_seconds",
			Help:    "Time to apply a single event",
			Buckets: latencyBuckets,
		}, []string{"event_type"}),

		EngineSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "perp_engine_sequence",
			Help: "Events applied since start",
		}),

		EngineBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "perp_engine_block",
			Help: "Block number of the last applied event",
		}),

		DedupDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_dedup_duplicates_total",
			Help: "Duplicates caught (lru/postgres)",
		}, []string{"event_type", "tier"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "perp_dedup_lru_size",
			Help: "Current dedup LRU occupancy",
		}),

		DedupLookupErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perp_dedup_lookup_errors_total",
			Help: "Postgres dedup lookup failures",
		}),

		OrderingRegression: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_ordering_regression_total",
			Help: "Events arriving below the partition's block watermark",
		}, []string{"partition"}),

		IngestReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_ingest_received_total",
			Help: "Raw events received from NATS",
		}, []string{"subject"}),

		IngestParseErrs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_ingest_parse_errors_total",
			Help: "Raw events that failed to parse",
		}, []string{"subject"}),

		IngestToApply: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perp_ingest_to_apply_seconds",
			Help:    "NATS receive to engine apply complete",
			Buckets: ingestBuckets,
		}, []string{"event_type"}),

		NATSPullLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perp_nats_pull_latency_seconds",
			Help:    "NATS pull request latency",
			Buckets: ingestBuckets,
		}, []string{"subject"}),

		OracleFulfillments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_oracle_fulfillments_total",
			Help: "Oracle versions fulfilled",
		}, []string{"validity"}),

		OrdersSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perp_orders_settled_total",
			Help: "Orders priced at a fulfilled oracle version",
		}),

		Settlements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_settlements_total",
			Help: "Settlement events applied",
		}, []string{"level"}),

		Socialization: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_socialization_transitions_total",
			Help: "Socialization periods opened/closed",
		}, []string{"transition"}),

		PersistEntitiesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perp_persist_entities_written_total",
			Help: "Entity rows upserted to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "perp_persist_batch_size",
			Help:    "Entities per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "perp_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perp_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "perp_persist_last_sequence",
			Help: "Last persisted engine sequence",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perp_persist_backpressure_total",
			Help: "Times the engine blocked on the persist channel",
		}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perp_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perp_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perp_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
