// ABOUTME: Prometheus metrics for the voice pipeline
// ABOUTME: Counters for capture, playback, reconnection and recording
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the voice client
type Metrics struct {
	registry *prometheus.Registry

	// Capture metrics
	FramesCaptured prometheus.Counter
	FramesMuted    prometheus.Counter
	FramesDropped  prometheus.Counter
	FramesSent     prometheus.Counter
	SendErrors     prometheus.Counter

	// Playback metrics
	ChunksReceived   prometheus.Counter
	ChunksDropped    prometheus.Counter
	BuffersScheduled prometheus.Counter
	ScheduleLead     prometheus.Histogram
	Interruptions    prometheus.Counter
	ActiveSources    prometheus.Gauge

	// Session metrics
	SessionState   *prometheus.GaugeVec
	Reconnects     prometheus.Counter
	FatalErrors    prometheus.Counter
	TurnsCompleted prometheus.Counter
	Summaries      *prometheus.CounterVec

	// Recording metrics
	Recordings       prometheus.Counter
	RecordingSeconds prometheus.Histogram
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_frames_total",
			Help: "Total number of microphone frames delivered by the device",
		}),
		FramesMuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_frames_muted_total",
			Help: "Total number of microphone frames discarded while muted",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_frames_dropped_total",
			Help: "Total number of frames dropped because the send queue was full",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_frames_sent_total",
			Help: "Total number of encoded frames sent to the session",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_send_errors_total",
			Help: "Total number of frames the transport failed to send",
		}),

		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_chunks_received_total",
			Help: "Total number of inbound audio chunks",
		}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_chunks_dropped_total",
			Help: "Total number of inbound chunks dropped on decode failure",
		}),
		BuffersScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_buffers_scheduled_total",
			Help: "Total number of buffers placed on the playback timeline",
		}),
		ScheduleLead: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicelink_playback_schedule_lead_seconds",
			Help:    "How far ahead of the playback clock buffers are scheduled",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		Interruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_interruptions_total",
			Help: "Total number of barge-in interruptions",
		}),
		ActiveSources: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_playback_active_sources",
			Help: "Buffers currently scheduled or playing",
		}),

		SessionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voicelink_session_state",
			Help: "1 for the current session state, 0 otherwise",
		}, []string{"state"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_session_reconnects_total",
			Help: "Total number of automatic reconnection attempts",
		}),
		FatalErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_session_fatal_errors_total",
			Help: "Total number of errors that ended a session",
		}),
		TurnsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_session_turns_total",
			Help: "Total number of completed conversation turns",
		}),
		Summaries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_session_summaries_total",
			Help: "Session summarization attempts by result",
		}, []string{"result"}),

		Recordings: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_recordings_total",
			Help: "Total number of finished recordings",
		}),
		RecordingSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicelink_recording_duration_seconds",
			Help:    "Duration of finished recordings",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// NewDiscard returns metrics nobody scrapes
func NewDiscard() *Metrics {
	return New()
}

// SetState marks state as the current session state
func (m *Metrics) SetState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.SessionState.WithLabelValues(s).Set(v)
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
