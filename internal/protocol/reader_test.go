package protocol

import (
	"bytes"
	"io"
	"math"
	"testing"
)

func sineFrame(samples int, phase float64) []int16 {
	frame := make([]int16, samples)
	for i := range frame {
		frame[i] = int16(12000 * math.Sin(2*math.Pi*440*(float64(i)+phase)/48000))
	}
	return frame
}

func TestFrameReaderAlignedStream(t *testing.T) {
	first := sineFrame(64, 0)
	second := sineFrame(64, 64)

	var stream []byte
	stream = AppendFrame(stream, first)
	stream = AppendFrame(stream, second)

	fr, err := NewFrameReader(bytes.NewReader(stream), 64)
	if err != nil {
		t.Fatalf("NewFrameReader failed: %v", err)
	}

	got := make([]int16, 64)
	if err := fr.ReadFrame(got); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	for i := range first {
		if got[i] != first[i] {
			t.Fatalf("Sample %d: expected %d, got %d", i, first[i], got[i])
		}
	}

	if err := fr.ReadFrame(got); err != nil {
		t.Fatalf("Second ReadFrame failed: %v", err)
	}
	for i := range second {
		if got[i] != second[i] {
			t.Fatalf("Sample %d of second frame: expected %d, got %d", i, second[i], got[i])
		}
	}

	if err := fr.ReadFrame(got); err != io.EOF {
		t.Errorf("Expected io.EOF at end of stream, got %v", err)
	}
}

func TestFrameReaderDropsStrayLeadingByte(t *testing.T) {
	frame := sineFrame(256, 0)

	stream := []byte{0x7f}
	stream = AppendFrame(stream, frame)

	fr, err := NewFrameReader(bytes.NewReader(stream), 256)
	if err != nil {
		t.Fatalf("NewFrameReader failed: %v", err)
	}

	got := make([]int16, 256)
	if err := fr.ReadFrame(got); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	for i := range frame {
		if got[i] != frame[i] {
			t.Errorf("Sample %d: expected %d after realignment, got %d", i, frame[i], got[i])
		}
	}
}

func TestFrameReaderTruncatedStream(t *testing.T) {
	frame := sineFrame(64, 0)
	stream := AppendFrame(nil, frame)
	stream = stream[:len(stream)-3] // frame cut mid-sample

	fr, err := NewFrameReader(bytes.NewReader(stream), 64)
	if err != nil {
		t.Fatalf("NewFrameReader failed: %v", err)
	}

	got := make([]int16, 64)
	if err := fr.ReadFrame(got); err != io.ErrUnexpectedEOF {
		t.Errorf("Expected io.ErrUnexpectedEOF for mid-frame end, got %v", err)
	}
}

func TestFrameReaderDestinationSize(t *testing.T) {
	fr, err := NewFrameReader(bytes.NewReader(nil), 64)
	if err != nil {
		t.Fatalf("NewFrameReader failed: %v", err)
	}

	if err := fr.ReadFrame(make([]int16, 32)); err == nil {
		t.Error("Expected error for undersized destination")
	}
}

func TestNewFrameReaderValidation(t *testing.T) {
	if _, err := NewFrameReader(bytes.NewReader(nil), 0); err == nil {
		t.Error("Expected error for zero frame length")
	}
	if _, err := NewFrameReader(bytes.NewReader(nil), -1); err == nil {
		t.Error("Expected error for negative frame length")
	}
}

// chunkReader serves one scripted chunk per Read call, imitating a
// serial port that delivers data in bursts.
type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := c.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		c.chunks[0] = chunk[n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func TestFrameReaderResyncRealignsLiveStream(t *testing.T) {
	first := sineFrame(2048, 0)
	second := sineFrame(2048, 2048)

	chunk1 := AppendFrame(nil, first)
	chunk2 := append([]byte{0x7f}, AppendFrame(nil, second)...)

	fr, err := NewFrameReader(&chunkReader{chunks: [][]byte{chunk1, chunk2}}, 2048)
	if err != nil {
		t.Fatalf("NewFrameReader failed: %v", err)
	}

	got := make([]int16, 2048)
	if err := fr.ReadFrame(got); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if got[100] != first[100] {
		t.Fatalf("Expected first frame decoded, got sample %d instead of %d", got[100], first[100])
	}

	// The source glitched: a byte was lost and the stream is now
	// misaligned. Resync drops the phase error byte.
	fr.Resync()

	if err := fr.ReadFrame(got); err != nil {
		t.Fatalf("ReadFrame after Resync failed: %v", err)
	}
	for i := range second {
		if got[i] != second[i] {
			t.Fatalf("Sample %d after Resync: expected %d, got %d", i, second[i], got[i])
		}
	}
}
