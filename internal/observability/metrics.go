package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream metrics
	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatterbox_player_active_streams",
		Help: "Number of live streaming sessions (at most one)",
	})

	streamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatterbox_player_streams_total",
		Help: "Total streaming sessions by terminal status",
	}, []string{"status"}) // status: "completed", "errored", "cancelled"

	streamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatterbox_player_stream_duration_seconds",
		Help:    "Wall-clock duration of streaming sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	firstFragmentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatterbox_player_first_fragment_latency_seconds",
		Help:    "Time from stream start to the first appended fragment",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Fragment metrics
	fragmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_player_fragments_total",
		Help: "Total fragments appended to the store",
	})

	fragmentBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_player_fragment_bytes_total",
		Help: "Total decoded audio bytes received",
	})

	decodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_player_decode_errors_total",
		Help: "Fragments dropped because their payload could not be decoded",
	})

	duplicateFragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_player_duplicate_fragments_total",
		Help: "Fragments rejected because their sequence id was already present",
	})

	// Playback metrics
	fragmentsPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_player_fragments_played_total",
		Help: "Fragments that started playback",
	})

	// Export metrics
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatterbox_player_exports_total",
		Help: "Export attempts by status",
	}, []string{"status"}) // status: "success" or "error"

	exportBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_player_export_bytes_total",
		Help: "Total bytes of assembled export artifacts",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatterbox_player_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// StreamTracker tracks metrics for a single streaming session
type StreamTracker struct {
	streamID      string
	startTime     time.Time
	firstFragment bool
	mu            sync.Mutex
}

// NewStreamTracker creates a metrics tracker for one stream and marks it live
func NewStreamTracker(streamID string) *StreamTracker {
	activeStreams.Inc()
	return &StreamTracker{
		streamID:  streamID,
		startTime: time.Now(),
	}
}

// RecordFragment records one appended fragment and its decoded size
func (t *StreamTracker) RecordFragment(bytes int) {
	t.mu.Lock()
	first := !t.firstFragment
	t.firstFragment = true
	t.mu.Unlock()

	if first {
		firstFragmentLatency.Observe(time.Since(t.startTime).Seconds())
	}
	fragmentsTotal.Inc()
	fragmentBytes.Add(float64(bytes))
}

// RecordDecodeError records a dropped fragment
func (t *StreamTracker) RecordDecodeError() {
	decodeErrors.Inc()
}

// RecordDuplicate records a fragment rejected as a duplicate sequence id
func (t *StreamTracker) RecordDuplicate() {
	duplicateFragments.Inc()
}

// RecordEnd records the terminal status of the stream
// Safe to call once per tracker; callers guard against double-termination.
func (t *StreamTracker) RecordEnd(status string) {
	activeStreams.Dec()
	streamsTotal.WithLabelValues(status).Inc()
	streamDuration.Observe(time.Since(t.startTime).Seconds())
}

// RecordFragmentPlayed records a fragment starting playback
func RecordFragmentPlayed() {
	fragmentsPlayed.Inc()
}

// RecordExport records an export attempt
func RecordExport(success bool, bytes int) {
	status := "success"
	if !success {
		status = "error"
	}
	exportsTotal.WithLabelValues(status).Inc()
	if success {
		exportBytes.Add(float64(bytes))
	}
}

// RecordError records an error by type and component
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
