package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/edgeaudio/pdm-audio-pipeline/internal/audio"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/device"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/latency"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/metrics"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/sink"
)

// Config holds the pipeline parameters, immutable for the process
// lifetime.
type Config struct {
	SampleRate           int
	FrameLength          int // N, mono samples per capture frame
	Gain                 float64
	FixedDeviceLatencyMs float64
	ReportInterval       time.Duration
}

// Validate checks the pipeline parameters. Gain is deliberately not
// range-checked: zero produces silence and negative values invert
// phase, both of which are valid.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameLength <= 0 {
		return fmt.Errorf("frame_length must be positive, got %d", c.FrameLength)
	}
	if c.FixedDeviceLatencyMs < 0 {
		return fmt.Errorf("device_latency_ms cannot be negative, got %f", c.FixedDeviceLatencyMs)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be positive, got %s", c.ReportInterval)
	}
	return nil
}

// Stats is a snapshot of driver counters for the monitoring API.
type Stats struct {
	FramesCaptured  uint64 `json:"frames_captured"`
	FramesProcessed uint64 `json:"frames_processed"`
	FramesDropped   uint64 `json:"frames_dropped"`
	ShortAccepts    uint64 `json:"playback_short_accepts"`
	PlaybackErrors  uint64 `json:"playback_errors"`
	SinkErrors      uint64 `json:"sink_errors"`
}

// Driver runs the capture → transform → playback loop on a single
// logical thread. Each iteration runs to completion before the next
// begins; the only suspension points are the two blocking device calls.
type Driver struct {
	config    Config
	dev       device.Device
	processor *audio.Processor
	estimator *latency.Estimator
	tap       sink.Sink
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// Buffers allocated once, reused every iteration.
	capture  []int16 // N mono samples
	playback []int16 // 2N interleaved stereo samples

	now func() time.Time

	framesCaptured  atomic.Uint64
	framesProcessed atomic.Uint64
	framesDropped   atomic.Uint64
	shortAccepts    atomic.Uint64
	playbackErrors  atomic.Uint64
	sinkErrors      atomic.Uint64
}

// New creates a pipeline driver over an already-initialized device. The
// tap sink and metrics are optional and may be nil.
func New(cfg Config, dev device.Device, tap sink.Sink, m *metrics.Metrics, logger *slog.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if dev == nil {
		return nil, fmt.Errorf("device cannot be nil")
	}

	return &Driver{
		config:    cfg,
		dev:       dev,
		processor: audio.NewProcessor(cfg.Gain),
		estimator: latency.NewEstimator(latency.Config{
			SampleRate:           cfg.SampleRate,
			FrameLength:          cfg.FrameLength,
			FixedDeviceLatencyMs: cfg.FixedDeviceLatencyMs,
			ReportInterval:       cfg.ReportInterval,
		}, logger),
		tap:      tap,
		metrics:  m,
		logger:   logger,
		capture:  make([]int16, cfg.FrameLength),
		playback: make([]int16, 2*cfg.FrameLength),
		now:      time.Now,
	}, nil
}

// Run drives the pipeline until ctx is cancelled. On the embedded-style
// deployment the context is the background context and Run never
// returns; termination there is external reset only.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("pipeline running",
		slog.Int("sample_rate", d.config.SampleRate),
		slog.Int("frame_length", d.config.FrameLength),
		slog.Float64("gain", d.config.Gain),
		slog.String("frame_duration_ms", fmt.Sprintf("%.2f", d.estimator.FrameDuration())),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		d.runIteration()
	}
}

// runIteration performs one full capture → transform → playback pass.
// Any capture shortfall drops the iteration's audio; the next natural
// capture call is the retry.
func (d *Driver) runIteration() {
	t0 := d.now()
	n, err := d.dev.Capture(d.capture)
	t1 := d.now()

	if err != nil || n != len(d.capture) {
		d.framesDropped.Add(1)
		if d.metrics != nil {
			d.metrics.RecordFrameDropped()
		}
		if err != nil {
			d.logger.Warn("capture failed, dropping iteration", slog.String("error", err.Error()))
		} else {
			d.logger.Debug("short capture, dropping iteration",
				slog.Int("got", n),
				slog.Int("want", len(d.capture)),
			)
		}
		return
	}

	d.framesCaptured.Add(1)
	if d.metrics != nil {
		d.metrics.RecordFrameCaptured()
	}

	// Transform cannot fail here: both buffers are sized at
	// construction and never reallocated.
	if err := d.processor.Transform(d.capture, d.playback); err != nil {
		d.framesDropped.Add(1)
		d.logger.Error("transform failed, dropping iteration", slog.String("error", err.Error()))
		return
	}
	t2 := d.now()

	accepted, err := d.dev.Play(d.playback)
	t3 := d.now()

	if err != nil {
		// The frame was transformed but the device refused it; count
		// it apart from frames the device accepted.
		d.playbackErrors.Add(1)
		if d.metrics != nil {
			d.metrics.RecordPlaybackError()
		}
		d.logger.Warn("playback submit failed", slog.String("error", err.Error()))
	} else if accepted < len(d.playback) {
		// Not a fault: observable as a possible underrun signal only.
		d.shortAccepts.Add(1)
		if d.metrics != nil {
			d.metrics.RecordShortAccept()
		}
	}

	d.framesProcessed.Add(1)
	if d.metrics != nil {
		d.metrics.RecordFrameProcessed(t3.Sub(t0).Seconds())
	}

	if d.tap != nil {
		if err := d.tap.Write(d.playback); err != nil {
			d.sinkErrors.Add(1)
			if d.metrics != nil {
				d.metrics.RecordSinkError()
			}
			d.logger.Warn("tap sink write failed", slog.String("error", err.Error()))
		}
	}

	sample := latency.Sample{
		CaptureWait:  t1.Sub(t0),
		Processing:   t2.Sub(t1),
		PlaybackWait: t3.Sub(t2),
	}
	if d.metrics != nil {
		processingMs := float64(sample.Processing) / float64(time.Millisecond)
		d.metrics.SetStageTimings(
			float64(sample.CaptureWait)/float64(time.Millisecond),
			processingMs,
			float64(sample.PlaybackWait)/float64(time.Millisecond),
			d.estimator.EstimateTotalMs(processingMs),
		)
	}
	d.estimator.Observe(sample)
}

// Stats returns a snapshot of the driver counters.
func (d *Driver) Stats() Stats {
	return Stats{
		FramesCaptured:  d.framesCaptured.Load(),
		FramesProcessed: d.framesProcessed.Load(),
		FramesDropped:   d.framesDropped.Load(),
		ShortAccepts:    d.shortAccepts.Load(),
		PlaybackErrors:  d.playbackErrors.Load(),
		SinkErrors:      d.sinkErrors.Load(),
	}
}

// Configuration returns the pipeline configuration.
func (d *Driver) Configuration() Config {
	return d.config
}
