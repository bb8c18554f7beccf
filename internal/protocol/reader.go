package protocol

import (
	"fmt"
	"io"
)

// syncWindowBytes is how much of the stream the initial alignment
// inspects before the first frame is decoded.
const syncWindowBytes = maxSyncSamples * BytesPerSample

// FrameReader decodes fixed-length PCM frames from a headerless byte
// stream, typically a serial port fed by the pipeline's passthrough
// link. The stream carries no framing markers, so before the first
// frame the reader buffers a window of bytes and discards the leading
// byte when the smoothness score says the stream starts mid-sample.
type FrameReader struct {
	r        io.Reader
	frameLen int // samples per frame
	pending  []byte
	synced   bool
}

// NewFrameReader creates a reader that yields frames of frameLength
// samples.
func NewFrameReader(r io.Reader, frameLength int) (*FrameReader, error) {
	if frameLength <= 0 {
		return nil, fmt.Errorf("frame length must be positive, got %d", frameLength)
	}
	return &FrameReader{r: r, frameLen: frameLength}, nil
}

// ReadFrame fills dst with the next frame. dst must hold exactly the
// configured frame length. Returns io.EOF once the stream is exhausted
// on a frame boundary and io.ErrUnexpectedEOF when it ends mid-frame.
func (fr *FrameReader) ReadFrame(dst []int16) error {
	if len(dst) != fr.frameLen {
		return fmt.Errorf("destination must hold %d samples, got %d", fr.frameLen, len(dst))
	}

	if !fr.synced {
		if err := fr.sync(); err != nil {
			return err
		}
	}

	need := fr.frameLen * BytesPerSample
	if err := fr.fill(need); err != nil {
		return err
	}

	samples, err := DecodeFrame(fr.pending[:need])
	if err != nil {
		return err
	}
	copy(dst, samples)
	fr.pending = fr.pending[need:]
	return nil
}

// Resync forces a fresh alignment pass before the next frame, for use
// after the source demonstrably lost bit alignment mid-stream.
func (fr *FrameReader) Resync() {
	fr.synced = false
	fr.pending = nil
}

// sync buffers the alignment window and drops the leading byte when the
// stream starts on an odd boundary. A stream shorter than the window is
// aligned on whatever arrived.
func (fr *FrameReader) sync() error {
	if err := fr.fill(syncWindowBytes); err != nil && len(fr.pending) < 2*BytesPerSample {
		return err
	}

	offset := SyncOffset(fr.pending)
	fr.pending = fr.pending[offset:]
	fr.synced = true
	return nil
}

// fill reads from the stream until at least n bytes are pending.
func (fr *FrameReader) fill(n int) error {
	var chunk [4096]byte
	for len(fr.pending) < n {
		read, err := fr.r.Read(chunk[:])
		if read > 0 {
			fr.pending = append(fr.pending, chunk[:read]...)
		}
		if err != nil {
			if err == io.EOF && len(fr.pending) >= n {
				return nil
			}
			if err == io.EOF && len(fr.pending) > 0 {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}
