package audio

import "fmt"

const (
	// SampleMax and SampleMin are the hard saturation bounds for 16-bit PCM.
	SampleMax = 32767
	SampleMin = -32768
)

// Processor transforms one mono capture frame into one interleaved stereo
// playback frame. The transform is stateless: frame boundaries are processed
// independently and identical inputs always produce identical outputs.
type Processor struct {
	gain float64
}

// NewProcessor creates a frame processor with the given gain factor.
// Negative gain is valid and inverts phase.
func NewProcessor(gain float64) *Processor {
	return &Processor{gain: gain}
}

// Gain returns the configured gain factor.
func (p *Processor) Gain() float64 {
	return p.gain
}

// Transform scales every sample of in by the gain factor, saturates the
// result to the 16-bit signed range, and duplicates it into both channels
// of out. out must hold exactly 2*len(in) samples; it is written in place
// so the caller can reuse the same buffer every frame.
func (p *Processor) Transform(in, out []int16) error {
	if len(out) != 2*len(in) {
		return fmt.Errorf("playback frame must hold %d samples (2x capture), got %d", 2*len(in), len(out))
	}

	for i, s := range in {
		scaled := float64(s) * p.gain

		// Hard saturation: out-of-range values are truncated to the
		// boundary, never wrapped.
		if scaled > SampleMax {
			scaled = SampleMax
		} else if scaled < SampleMin {
			scaled = SampleMin
		}

		// Truncation toward zero after the clamp.
		v := int16(scaled)
		out[2*i] = v
		out[2*i+1] = v
	}

	return nil
}
