package audio

import (
	"testing"
)

func TestTransformSaturation(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		gain     float64
		expected int16
	}{
		{
			name:     "positive overflow clamps to max",
			input:    20000,
			gain:     3.0,
			expected: 32767,
		},
		{
			name:     "negative overflow clamps to min",
			input:    -20000,
			gain:     3.0,
			expected: -32768,
		},
		{
			name:     "in-range value passes through scaled",
			input:    1000,
			gain:     2.0,
			expected: 2000,
		},
		{
			name:     "max input at unity gain",
			input:    32767,
			gain:     1.0,
			expected: 32767,
		},
		{
			name:     "min input at unity gain",
			input:    -32768,
			gain:     1.0,
			expected: -32768,
		},
		{
			name:     "min input doubled clamps to min",
			input:    -32768,
			gain:     2.0,
			expected: -32768,
		},
		{
			name:     "zero gain yields silence",
			input:    12345,
			gain:     0,
			expected: 0,
		},
		{
			name:     "negative gain inverts phase",
			input:    1000,
			gain:     -1.0,
			expected: -1000,
		},
		{
			name:     "negative gain clamps at positive boundary",
			input:    -20000,
			gain:     -3.0,
			expected: 32767,
		},
		{
			name:     "fractional gain truncates toward zero",
			input:    3,
			gain:     0.5,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(tt.gain)
			in := []int16{tt.input}
			out := make([]int16, 2)

			if err := p.Transform(in, out); err != nil {
				t.Fatalf("Transform failed: %v", err)
			}

			if out[0] != tt.expected || out[1] != tt.expected {
				t.Errorf("Expected both channels %d, got left=%d right=%d", tt.expected, out[0], out[1])
			}

			if out[0] < SampleMin || out[0] > SampleMax {
				t.Errorf("Output %d outside 16-bit signed range", out[0])
			}
		})
	}
}

func TestTransformIdentityAtUnityGain(t *testing.T) {
	p := NewProcessor(1.0)
	in := []int16{-32768, -20000, -1, 0, 1, 12345, 32767}
	out := make([]int16, 2*len(in))

	if err := p.Transform(in, out); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	for i, v := range in {
		if out[2*i] != v {
			t.Errorf("Expected sample %d unchanged at unity gain, got %d", v, out[2*i])
		}
	}
}

func TestTransformChannelDuplication(t *testing.T) {
	p := NewProcessor(1.5)
	in := []int16{100, -200, 300, -400, 500, 0, -32768, 32767}
	out := make([]int16, 2*len(in))

	if err := p.Transform(in, out); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if len(out) != 2*len(in) {
		t.Fatalf("Expected output length %d, got %d", 2*len(in), len(out))
	}

	for i := 0; i < len(in); i++ {
		if out[2*i] != out[2*i+1] {
			t.Errorf("Channel asymmetry at index %d: left=%d right=%d", i, out[2*i], out[2*i+1])
		}
	}
}

func TestTransformEmptyFrame(t *testing.T) {
	p := NewProcessor(2.0)

	if err := p.Transform([]int16{}, []int16{}); err != nil {
		t.Errorf("Expected empty frame to succeed, got %v", err)
	}
}

func TestTransformLengthMismatch(t *testing.T) {
	p := NewProcessor(1.0)
	in := make([]int16, 4)

	if err := p.Transform(in, make([]int16, 7)); err == nil {
		t.Error("Expected error for playback buffer shorter than 2x capture")
	}

	if err := p.Transform(in, make([]int16, 10)); err == nil {
		t.Error("Expected error for playback buffer longer than 2x capture")
	}
}

func TestTransformZeroGainSilence(t *testing.T) {
	p := NewProcessor(0)
	in := []int16{-32768, -1, 1, 32767}
	out := make([]int16, 2*len(in))

	if err := p.Transform(in, out); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	for i, v := range out {
		if v != 0 {
			t.Errorf("Expected silence at index %d, got %d", i, v)
		}
	}
}

func TestTransformDeterministic(t *testing.T) {
	p := NewProcessor(2.7)
	in := []int16{-30000, -12345, -1, 0, 1, 12345, 30000}

	first := make([]int16, 2*len(in))
	second := make([]int16, 2*len(in))

	if err := p.Transform(in, first); err != nil {
		t.Fatalf("First transform failed: %v", err)
	}
	if err := p.Transform(in, second); err != nil {
		t.Fatalf("Second transform failed: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Non-deterministic output at index %d: %d vs %d", i, first[i], second[i])
		}
	}
}
