package audio

import "math"

// VolumePercent returns the RMS level of frame as a percentage of full
// scale. An all-zero or empty frame is 0, a full-scale square wave 100.
func VolumePercent(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	return rms / SampleMax * 100
}

// PopGuard watches the per-frame RMS volume of a received stream and
// trips when loud frames dominate a rolling window. A PDM source that
// has lost bit alignment produces sustained near-full-scale noise, so a
// window where more than half the frames exceed the threshold means the
// stream needs a resync rather than more audio.
type PopGuard struct {
	threshold float64 // volume percent a frame counts as loud above
	ratio     float64 // loud fraction of the window that trips
	window    int     // frames per evaluation window

	loud  int
	total int
}

// Default pop-protection tuning: frames above 15% of full scale are
// loud, and a half-second window at 48 kHz / 256-sample frames that is
// more than half loud trips the guard.
const (
	DefaultVolumeThreshold = 15.0
	DefaultLoudRatio       = 0.5
)

// NewPopGuard creates a guard over a window of windowFrames frames.
// A non-positive window disables the guard; Observe then never trips.
func NewPopGuard(thresholdPercent, ratio float64, windowFrames int) *PopGuard {
	return &PopGuard{
		threshold: thresholdPercent,
		ratio:     ratio,
		window:    windowFrames,
	}
}

// Observe accounts one frame and reports whether the guard tripped at
// the end of its window. The window restarts after every evaluation.
func (g *PopGuard) Observe(frame []int16) bool {
	if g.window <= 0 {
		return false
	}

	if VolumePercent(frame) > g.threshold {
		g.loud++
	}
	g.total++

	if g.total < g.window {
		return false
	}

	tripped := float64(g.loud) > float64(g.total)*g.ratio
	g.loud = 0
	g.total = 0
	return tripped
}
