package audio

import (
	"fmt"
	"math"
)

// FilterType selects the frequency response of a Filter.
type FilterType string

const (
	FilterNone     FilterType = "none"
	FilterLowpass  FilterType = "lowpass"
	FilterHighpass FilterType = "highpass"
	FilterBandpass FilterType = "bandpass"
)

// FilterConfig parameterizes a Filter.
type FilterConfig struct {
	Type     FilterType
	FreqLow  float64 // low cut in Hz (highpass, bandpass)
	FreqHigh float64 // high cut in Hz (lowpass, bandpass)
	GainDB   float64
}

// Filter is a biquad IIR filter with dB-based gain for the host-side
// inspection path. Unlike the frame Processor it is deliberately
// stateful: the delay line carries across frames so a continuous signal
// filtered frame by frame matches the signal filtered in one pass.
// State is kept per channel for interleaved audio.
type Filter struct {
	typ  FilterType
	gain float64 // linear

	// Normalized biquad coefficients (a0 folded in).
	b0, b1, b2 float64
	a1, a2     float64

	// Transposed direct form II delay line, one pair per channel.
	s1, s2 []float64

	channels int
}

// NewFilter designs a filter for interleaved audio with the given
// channel count. Frequencies must sit below the Nyquist limit of
// sampleRate. FilterNone applies gain only.
func NewFilter(cfg FilterConfig, sampleRate, channels int) (*Filter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("channels must be at least 1, got %d", channels)
	}

	f := &Filter{
		typ:      cfg.Type,
		gain:     math.Pow(10, cfg.GainDB/20),
		s1:       make([]float64, channels),
		s2:       make([]float64, channels),
		channels: channels,
	}

	nyquist := float64(sampleRate) / 2

	switch cfg.Type {
	case FilterNone:
		return f, nil
	case FilterLowpass:
		if cfg.FreqHigh <= 0 || cfg.FreqHigh >= nyquist {
			return nil, fmt.Errorf("lowpass cutoff must be in (0, %g) Hz, got %g", nyquist, cfg.FreqHigh)
		}
		f.designLowpass(cfg.FreqHigh, float64(sampleRate))
	case FilterHighpass:
		if cfg.FreqLow <= 0 || cfg.FreqLow >= nyquist {
			return nil, fmt.Errorf("highpass cutoff must be in (0, %g) Hz, got %g", nyquist, cfg.FreqLow)
		}
		f.designHighpass(cfg.FreqLow, float64(sampleRate))
	case FilterBandpass:
		if cfg.FreqLow <= 0 || cfg.FreqHigh >= nyquist || cfg.FreqLow >= cfg.FreqHigh {
			return nil, fmt.Errorf("bandpass band must satisfy 0 < low < high < %g Hz, got %g-%g",
				nyquist, cfg.FreqLow, cfg.FreqHigh)
		}
		f.designBandpass(cfg.FreqLow, cfg.FreqHigh, float64(sampleRate))
	default:
		return nil, fmt.Errorf("unknown filter type '%s'", cfg.Type)
	}

	return f, nil
}

// butterworthQ gives a maximally flat passband for a single biquad.
const butterworthQ = math.Sqrt2 / 2

func (f *Filter) designLowpass(cutoff, sampleRate float64) {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * butterworthQ)

	b0 := (1 - cosw) / 2
	b1 := 1 - cosw
	b2 := b0
	f.normalize(b0, b1, b2, 1+alpha, -2*cosw, 1-alpha)
}

func (f *Filter) designHighpass(cutoff, sampleRate float64) {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * butterworthQ)

	b0 := (1 + cosw) / 2
	b1 := -(1 + cosw)
	b2 := b0
	f.normalize(b0, b1, b2, 1+alpha, -2*cosw, 1-alpha)
}

func (f *Filter) designBandpass(low, high, sampleRate float64) {
	// Geometric center with Q derived from the band edges.
	center := math.Sqrt(low * high)
	q := center / (high - low)

	w0 := 2 * math.Pi * center / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * q)

	// Constant 0 dB peak gain form.
	f.normalize(alpha, 0, -alpha, 1+alpha, -2*cosw, 1-alpha)
}

func (f *Filter) normalize(b0, b1, b2, a0, a1, a2 float64) {
	f.b0 = b0 / a0
	f.b1 = b1 / a0
	f.b2 = b2 / a0
	f.a1 = a1 / a0
	f.a2 = a2 / a0
}

// Process filters frame in place. The frame must be interleaved with
// the channel count the filter was built for.
func (f *Filter) Process(frame []int16) error {
	if len(frame)%f.channels != 0 {
		return fmt.Errorf("frame length %d is not a multiple of %d channels", len(frame), f.channels)
	}

	for i, s := range frame {
		x := float64(s)

		if f.typ != FilterNone {
			ch := i % f.channels
			y := f.b0*x + f.s1[ch]
			f.s1[ch] = f.b1*x - f.a1*y + f.s2[ch]
			f.s2[ch] = f.b2*x - f.a2*y
			x = y
		}

		x *= f.gain

		if x > SampleMax {
			x = SampleMax
		} else if x < SampleMin {
			x = SampleMin
		}
		frame[i] = int16(x)
	}

	return nil
}

// Reset clears the delay line, as after an interruption in the input
// signal. Coefficients and gain are unaffected.
func (f *Filter) Reset() {
	for ch := 0; ch < f.channels; ch++ {
		f.s1[ch] = 0
		f.s2[ch] = 0
	}
}

// Type returns the configured filter type.
func (f *Filter) Type() FilterType {
	return f.typ
}
