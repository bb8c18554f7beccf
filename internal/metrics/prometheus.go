package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the duplex audio pipeline
type Metrics struct {
	// Pipeline frame metrics
	FramesCaptured  prometheus.Counter
	FramesProcessed prometheus.Counter
	FramesDropped   prometheus.Counter
	ShortAccepts    prometheus.Counter
	PlaybackErrors  prometheus.Counter
	SinkErrors      prometheus.Counter

	// Latency stage metrics (most recent iteration, sampled)
	CaptureWaitMs    prometheus.Gauge
	ProcessingMs     prometheus.Gauge
	PlaybackWaitMs   prometheus.Gauge
	EstimatedTotalMs prometheus.Gauge

	IterationDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FramesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pdm_frames_captured_total",
			Help: "Total number of full capture frames received from the device",
		}),
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pdm_frames_processed_total",
			Help: "Total number of frames transformed and submitted for playback",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pdm_frames_dropped_total",
			Help: "Total number of iterations skipped on short or failed capture",
		}),
		ShortAccepts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pdm_playback_short_accepts_total",
			Help: "Total number of playback submissions accepted only partially",
		}),
		PlaybackErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pdm_playback_errors_total",
			Help: "Total number of playback submissions refused by the device",
		}),
		SinkErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pdm_sink_errors_total",
			Help: "Total number of failed tap sink writes",
		}),

		CaptureWaitMs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pdm_capture_wait_ms",
			Help: "Capture wait of the most recent iteration in milliseconds",
		}),
		ProcessingMs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pdm_processing_ms",
			Help: "Frame processing time of the most recent iteration in milliseconds",
		}),
		PlaybackWaitMs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pdm_playback_wait_ms",
			Help: "Playback wait of the most recent iteration in milliseconds",
		}),
		EstimatedTotalMs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pdm_estimated_total_latency_ms",
			Help: "Estimated end-to-end pipeline latency in milliseconds",
		}),

		IterationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdm_iteration_duration_seconds",
			Help:    "Duration of full pipeline iterations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pdm_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdm_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pdm_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrameCaptured increments the captured frames counter
func (m *Metrics) RecordFrameCaptured() {
	m.FramesCaptured.Inc()
}

// RecordFrameProcessed increments the processed frames counter and
// observes the full iteration duration
func (m *Metrics) RecordFrameProcessed(iterationSeconds float64) {
	m.FramesProcessed.Inc()
	m.IterationDuration.Observe(iterationSeconds)
}

// RecordFrameDropped increments the dropped frames counter
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordShortAccept increments the playback short-accept counter
func (m *Metrics) RecordShortAccept() {
	m.ShortAccepts.Inc()
}

// RecordPlaybackError increments the refused-playback counter
func (m *Metrics) RecordPlaybackError() {
	m.PlaybackErrors.Inc()
}

// RecordSinkError increments the sink error counter
func (m *Metrics) RecordSinkError() {
	m.SinkErrors.Inc()
}

// SetStageTimings updates the per-stage latency gauges for one iteration
func (m *Metrics) SetStageTimings(captureWaitMs, processingMs, playbackWaitMs, estimatedTotalMs float64) {
	m.CaptureWaitMs.Set(captureWaitMs)
	m.ProcessingMs.Set(processingMs)
	m.PlaybackWaitMs.Set(playbackWaitMs)
	m.EstimatedTotalMs.Set(estimatedTotalMs)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
