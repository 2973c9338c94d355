// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_interview_relay"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsRefused *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Relay metrics
	FramesRelayed        *prometheus.CounterVec
	BytesRelayed         *prometheus.CounterVec
	OutboundAudioDropped prometheus.Counter
	MalformedFrames      prometheus.Counter

	// Realtime protocol metrics
	RealtimeEvents     *prometheus.CounterVec
	UnrecognizedEvents *prometheus.CounterVec
	UpstreamErrors     *prometheus.CounterVec
	UserTurns          prometheus.Counter

	// Extraction metrics
	ExtractionRequests *prometheus.CounterVec
	ExtractionOutcomes *prometheus.CounterVec

	// Telephony webhook metrics
	CallStatus *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCStreamsActive prometheus.Gauge
	GRPCStreamsTotal  *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of media-stream sessions accepted",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active media-stream sessions",
		}),
		SessionsRefused: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_refused_total",
			Help:      "Total number of sessions refused before relaying",
		}, []string{"reason"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of relayed calls in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 900, 1800},
		}),

		FramesRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_relayed_total",
			Help:      "Total audio frames forwarded, by direction",
		}, []string{"direction"}),
		BytesRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_relayed_total",
			Help:      "Total base64 payload bytes forwarded, by direction",
		}, []string{"direction"}),
		OutboundAudioDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_audio_dropped_total",
			Help:      "Model audio deltas dropped because the stream had not started",
		}),
		MalformedFrames: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telephony_malformed_frames_total",
			Help:      "Telephony frames skipped because they could not be decoded",
		}),

		RealtimeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_total",
			Help:      "Realtime model events received, by type",
		}, []string{"type"}),
		UnrecognizedEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_unrecognized_events_total",
			Help:      "Realtime model events with no dedicated handler, by type",
		}, []string{"type"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_upstream_errors_total",
			Help:      "Error events reported by the realtime model",
		}, []string{"code"}),
		UserTurns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_turns_total",
			Help:      "Finalized caller utterances",
		}),

		ExtractionRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_requests_total",
			Help:      "Extraction requests sent, by trigger",
		}, []string{"trigger"}),
		ExtractionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_outcomes_total",
			Help:      "Extraction results, by outcome",
		}, []string{"outcome"}),

		CallStatus: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_status_callbacks_total",
			Help:      "Call status callbacks received, by status",
		}, []string{"status"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCStreamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grpc_streams_active",
			Help:      "Number of currently open gRPC streams",
		}),
		GRPCStreamsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_streams_total",
			Help:      "Total gRPC streams, by result",
		}, []string{"result"}),
	}
}

// RecordSessionStart records a new session being accepted.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionRefused records a session refused before relaying started.
func (m *Metrics) RecordSessionRefused(reason string) {
	m.SessionsRefused.WithLabelValues(reason).Inc()
}

// RecordFrame records one forwarded audio frame.
func (m *Metrics) RecordFrame(direction string, payloadBytes int) {
	m.FramesRelayed.WithLabelValues(direction).Inc()
	m.BytesRelayed.WithLabelValues(direction).Add(float64(payloadBytes))
}

// RecordOutboundDropped records a model audio delta dropped before stream start.
func (m *Metrics) RecordOutboundDropped() {
	m.OutboundAudioDropped.Inc()
}

// RecordMalformedFrame records a skipped telephony frame.
func (m *Metrics) RecordMalformedFrame() {
	m.MalformedFrames.Inc()
}

// RecordRealtimeEvent records a received realtime event.
func (m *Metrics) RecordRealtimeEvent(eventType string) {
	m.RealtimeEvents.WithLabelValues(eventType).Inc()
}

// RecordUnrecognizedEvent records a realtime event with no handler.
func (m *Metrics) RecordUnrecognizedEvent(eventType string) {
	m.UnrecognizedEvents.WithLabelValues(eventType).Inc()
}

// RecordUpstreamError records a realtime error event.
func (m *Metrics) RecordUpstreamError(code string) {
	if code == "" {
		code = "unknown"
	}
	m.UpstreamErrors.WithLabelValues(code).Inc()
}

// RecordUserTurn records a finalized caller utterance.
func (m *Metrics) RecordUserTurn() {
	m.UserTurns.Inc()
}

// RecordExtractionRequest records an extraction request.
func (m *Metrics) RecordExtractionRequest(trigger string) {
	m.ExtractionRequests.WithLabelValues(trigger).Inc()
}

// RecordExtractionOutcome records how an extraction ended (parsed, parse_error, abandoned).
func (m *Metrics) RecordExtractionOutcome(outcome string) {
	m.ExtractionOutcomes.WithLabelValues(outcome).Inc()
}

// RecordCallStatus records a telephony status callback.
func (m *Metrics) RecordCallStatus(status string) {
	if status == "" {
		status = "unknown"
	}
	m.CallStatus.WithLabelValues(status).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCStreamStart records a gRPC stream opening.
func (m *Metrics) RecordGRPCStreamStart() {
	m.GRPCStreamsActive.Inc()
}

// RecordGRPCStreamEnd records a gRPC stream closing.
func (m *Metrics) RecordGRPCStreamEnd(success bool) {
	m.GRPCStreamsActive.Dec()
	if success {
		m.GRPCStreamsTotal.WithLabelValues("success").Inc()
	} else {
		m.GRPCStreamsTotal.WithLabelValues("failure").Inc()
	}
}
