package latency

import (
	"fmt"
	"log/slog"
	"time"
)

// Sample holds the stage durations measured for one pipeline iteration.
type Sample struct {
	CaptureWait  time.Duration
	Processing   time.Duration
	PlaybackWait time.Duration
}

// Config parameterizes the estimator.
type Config struct {
	SampleRate           int
	FrameLength          int
	FixedDeviceLatencyMs float64 // downstream DAC/conversion constant, not measured
	ReportInterval       time.Duration
}

// Estimator turns per-iteration timings into a periodic summary. Its
// only state is the last report timestamp; no history is retained, so
// memory use is constant regardless of uptime.
type Estimator struct {
	frameDurationMs float64
	fixedLatencyMs  float64
	interval        time.Duration
	lastReport      time.Time
	logger          *slog.Logger

	now func() time.Time
}

// FrameDurationMs returns the wall-clock span of one frame in
// milliseconds: 1000 * N / sampleRate.
func FrameDurationMs(frameLength, sampleRate int) float64 {
	return 1000 * float64(frameLength) / float64(sampleRate)
}

// NewEstimator creates an estimator that reports through logger at most
// once per cfg.ReportInterval. The interval clock starts at construction.
func NewEstimator(cfg Config, logger *slog.Logger) *Estimator {
	e := &Estimator{
		frameDurationMs: FrameDurationMs(cfg.FrameLength, cfg.SampleRate),
		fixedLatencyMs:  cfg.FixedDeviceLatencyMs,
		interval:        cfg.ReportInterval,
		logger:          logger,
		now:             time.Now,
	}
	e.lastReport = e.now()
	return e
}

// FrameDuration returns the configured frame period in milliseconds.
func (e *Estimator) FrameDuration() float64 {
	return e.frameDurationMs
}

// EstimateTotalMs computes the end-to-end latency estimate for a given
// processing time. The frame duration is counted twice: one buffer's
// worth of delay accrues on the capture side and one on the playback
// side before any sample reaches its destination.
func (e *Estimator) EstimateTotalMs(processingMs float64) float64 {
	return 2*e.frameDurationMs + e.fixedLatencyMs + processingMs
}

// Observe considers one iteration's timings and emits a report when the
// configured interval has elapsed. It never blocks and never feeds back
// into pipeline behavior.
func (e *Estimator) Observe(s Sample) bool {
	now := e.now()
	if now.Sub(e.lastReport) < e.interval {
		return false
	}
	e.lastReport = now

	captureWaitMs := durationMs(s.CaptureWait)
	processingMs := durationMs(s.Processing)
	playbackWaitMs := durationMs(s.PlaybackWait)

	e.logger.Info("pipeline latency",
		slog.String("capture_wait_ms", formatMs(captureWaitMs)),
		slog.String("processing_ms", formatMs(processingMs)),
		slog.String("playback_wait_ms", formatMs(playbackWaitMs)),
		slog.String("frame_duration_ms", formatMs(e.frameDurationMs)),
		slog.String("estimated_total_ms", formatMs(e.EstimateTotalMs(processingMs))),
	)
	return true
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func formatMs(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
