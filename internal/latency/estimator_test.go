package latency

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"
)

func TestFrameDurationMs(t *testing.T) {
	tests := []struct {
		name        string
		frameLength int
		sampleRate  int
		expected    float64
	}{
		{
			name:        "128 samples at 44.1kHz",
			frameLength: 128,
			sampleRate:  44100,
			expected:    2.9025,
		},
		{
			name:        "256 samples at 48kHz",
			frameLength: 256,
			sampleRate:  48000,
			expected:    5.3333,
		},
		{
			name:        "1024 samples at 48kHz",
			frameLength: 1024,
			sampleRate:  48000,
			expected:    21.3333,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FrameDurationMs(tt.frameLength, tt.sampleRate)
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("Expected %.4f ms, got %.4f ms", tt.expected, got)
			}
		})
	}
}

func TestEstimateTotalMs(t *testing.T) {
	// N=128, 44100 Hz, 1.5 ms device constant, 0.2 ms processing
	// estimated = 2*2.9025 + 1.5 + 0.2 = 7.505
	e := NewEstimator(Config{
		SampleRate:           44100,
		FrameLength:          128,
		FixedDeviceLatencyMs: 1.5,
		ReportInterval:       time.Second,
	}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	got := e.EstimateTotalMs(0.2)
	if math.Abs(got-7.505) > 0.001 {
		t.Errorf("Expected 7.505 ms, got %.4f ms", got)
	}
}

func TestObserveIntervalGating(t *testing.T) {
	var out bytes.Buffer
	e := NewEstimator(Config{
		SampleRate:           48000,
		FrameLength:          256,
		FixedDeviceLatencyMs: 1.0,
		ReportInterval:       1000 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(&out, nil)))

	// Deterministic clock
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return clock }
	e.lastReport = clock

	sample := Sample{
		CaptureWait:  5 * time.Millisecond,
		Processing:   200 * time.Microsecond,
		PlaybackWait: 3 * time.Millisecond,
	}

	// Before the interval elapses: no report
	clock = clock.Add(500 * time.Millisecond)
	if e.Observe(sample) {
		t.Error("Expected no report before interval elapsed")
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output, got %q", out.String())
	}

	// Interval elapsed: report emitted
	clock = clock.Add(500 * time.Millisecond)
	if !e.Observe(sample) {
		t.Error("Expected report at interval boundary")
	}
	if out.Len() == 0 {
		t.Fatal("Expected report output")
	}

	// Immediately after a report: gated again
	out.Reset()
	if e.Observe(sample) {
		t.Error("Expected report interval to reset after emission")
	}
}

func TestObserveReportContents(t *testing.T) {
	var out bytes.Buffer
	e := NewEstimator(Config{
		SampleRate:           44100,
		FrameLength:          128,
		FixedDeviceLatencyMs: 1.5,
		ReportInterval:       time.Millisecond,
	}, slog.New(slog.NewTextHandler(&out, nil)))

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return clock }
	e.lastReport = clock

	clock = clock.Add(time.Second)
	reported := e.Observe(Sample{
		CaptureWait:  2900 * time.Microsecond,
		Processing:   200 * time.Microsecond,
		PlaybackWait: 1500 * time.Microsecond,
	})
	if !reported {
		t.Fatal("Expected a report")
	}

	line := out.String()
	for _, want := range []string{
		"capture_wait_ms=2.90",
		"processing_ms=0.20",
		"playback_wait_ms=1.50",
		"frame_duration_ms=2.90",
		"estimated_total_ms=7.51",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected report to contain %q, got %q", want, line)
		}
	}
}

func TestObserveUsesOnlyLatestSample(t *testing.T) {
	var out bytes.Buffer
	e := NewEstimator(Config{
		SampleRate:           48000,
		FrameLength:          256,
		FixedDeviceLatencyMs: 0,
		ReportInterval:       time.Second,
	}, slog.New(slog.NewTextHandler(&out, nil)))

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return clock }
	e.lastReport = clock

	// Many gated samples with large processing times must not leak
	// into the eventual report.
	for i := 0; i < 10; i++ {
		clock = clock.Add(50 * time.Millisecond)
		e.Observe(Sample{Processing: 100 * time.Millisecond})
	}

	clock = clock.Add(time.Second)
	e.Observe(Sample{Processing: 1 * time.Millisecond})

	line := out.String()
	if !strings.Contains(line, "processing_ms=1.00") {
		t.Errorf("Expected report to reflect only the latest sample, got %q", line)
	}
	if strings.Contains(line, "processing_ms=100.00") {
		t.Errorf("Expected no averaging or history, got %q", line)
	}
}
