package protocol

import (
	"encoding/binary"
	"fmt"
)

// BytesPerSample is the wire size of one 16-bit PCM sample.
const BytesPerSample = 2

// AppendFrame appends the little-endian encoding of samples to dst and
// returns the extended slice. Passing a reused dst[:0] keeps the hot
// path allocation-free.
func AppendFrame(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}

// EncodeFrame returns the little-endian encoding of samples.
func EncodeFrame(samples []int16) []byte {
	return AppendFrame(make([]byte, 0, len(samples)*BytesPerSample), samples)
}

// DecodeFrame parses little-endian 16-bit samples from data.
func DecodeFrame(data []byte) ([]int16, error) {
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("frame length must be even, got %d bytes", len(data))
	}

	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
	}
	return samples, nil
}

// maxSyncSamples caps how much of the stream SyncOffset inspects.
const maxSyncSamples = 2048

// SyncOffset determines whether a headerless sample stream starts on an
// even or odd byte. Correctly aligned PCM audio is smooth: adjacent
// samples rarely jump by a large fraction of full scale, while a
// one-byte phase error turns the signal into noise. Each candidate
// offset is scored by its count of small adjacent-sample deltas and the
// higher score wins. Returns 0 or 1.
func SyncOffset(data []byte) int {
	best, bestScore := 0, -1
	for offset := 0; offset <= 1; offset++ {
		score := alignmentScore(data[offset:])
		if score > bestScore {
			best, bestScore = offset, score
		}
	}
	return best
}

func alignmentScore(data []byte) int {
	n := len(data) / BytesPerSample
	if n > maxSyncSamples {
		n = maxSyncSamples
	}
	if n < 2 {
		return 0
	}

	score := 0
	prev := int(int16(binary.LittleEndian.Uint16(data)))
	for i := 1; i < n; i++ {
		cur := int(int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:])))
		delta := cur - prev
		if delta < 0 {
			delta = -delta
		}
		if delta < 16384 {
			score++
		}
		prev = cur
	}
	return score
}
