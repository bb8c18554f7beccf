// Command listen is the host-side receiver for the serial passthrough
// link. It aligns the headerless PCM stream, optionally filters it, and
// records a bounded WAV file that is verified after writing. A raw
// capture file can stand in for the serial port during offline work.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.bug.st/serial"

	"github.com/edgeaudio/pdm-audio-pipeline/internal/audio"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/protocol"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/sink"
)

func main() {
	portName := flag.String("port", "", "Serial port to read from (e.g. /dev/ttyUSB0)")
	baud := flag.Int("baud", 1500000, "Serial baud rate")
	inPath := flag.String("in", "", "Raw PCM capture file to read instead of a serial port")
	infoPath := flag.String("info", "", "Print format and duration of a WAV file and exit")
	outPath := flag.String("out", "recording.wav", "Output WAV file")
	seconds := flag.Float64("seconds", 10, "Recording length in seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Sample rate of the incoming stream")
	frameLength := flag.Int("frame-length", 256, "Samples per frame")
	filterName := flag.String("filter", "none", "Filter applied before recording: none, lowpass, highpass, bandpass")
	freqLow := flag.Float64("freq-low", 100, "Filter low cut in Hz")
	freqHigh := flag.Float64("freq-high", 3000, "Filter high cut in Hz")
	gainDB := flag.Float64("gain-db", 0, "Gain in dB applied before recording")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *infoPath != "" {
		if err := printInfo(*infoPath); err != nil {
			logger.Error("Failed to inspect WAV file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	source, err := openSource(*portName, *baud, *inPath)
	if err != nil {
		logger.Error("Failed to open input", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer source.Close()

	filter, err := audio.NewFilter(audio.FilterConfig{
		Type:     audio.FilterType(*filterName),
		FreqLow:  *freqLow,
		FreqHigh: *freqHigh,
		GainDB:   *gainDB,
	}, *sampleRate, 1)
	if err != nil {
		logger.Error("Invalid filter parameters", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := record(source, filter, *outPath, *sampleRate, *frameLength, *seconds, logger); err != nil {
		logger.Error("Recording failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := verify(*outPath, logger); err != nil {
		logger.Error("Recording verification failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// openSource opens the serial port or, when -in is given, the raw
// capture file.
func openSource(portName string, baud int, inPath string) (io.ReadCloser, error) {
	if inPath != "" {
		return os.Open(inPath)
	}
	if portName == "" {
		return nil, fmt.Errorf("either -port or -in is required")
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return port, nil
}

// record reads frames until the recording budget is spent or the stream
// ends. Sustained near-full-scale noise means the source lost bit
// alignment, so the guard trips a resync and a filter state reset
// instead of recording more garbage.
func record(source io.Reader, filter *audio.Filter, outPath string,
	sampleRate, frameLength int, seconds float64, logger *slog.Logger) error {

	reader, err := protocol.NewFrameReader(source, frameLength)
	if err != nil {
		return err
	}

	recorder, err := sink.NewWAVRecorder(outPath, sampleRate, 1, seconds)
	if err != nil {
		return err
	}

	// Guard window covers half a second of frames.
	windowFrames := sampleRate / (2 * frameLength)
	guard := audio.NewPopGuard(audio.DefaultVolumeThreshold, audio.DefaultLoudRatio, windowFrames)

	logger.Info("Recording",
		slog.String("output", outPath),
		slog.Int("sample_rate", sampleRate),
		slog.Int("frame_length", frameLength),
		slog.Float64("seconds", seconds),
		slog.String("filter", string(filter.Type())),
	)

	frame := make([]int16, frameLength)
	for !recorder.Full() {
		if err := reader.ReadFrame(frame); err != nil {
			if err == io.EOF {
				break
			}
			recorder.Close()
			return err
		}

		if guard.Observe(frame) {
			logger.Warn("Sustained loud stream, realigning")
			reader.Resync()
			filter.Reset()
			continue
		}

		if err := filter.Process(frame); err != nil {
			recorder.Close()
			return err
		}
		if err := recorder.Write(frame); err != nil {
			recorder.Close()
			return err
		}
	}

	return recorder.Close()
}

// verify re-reads the written file and logs what actually landed on
// disk.
func verify(path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	samples, info, err := audio.DecodeWAV(data)
	if err != nil {
		return err
	}

	logger.Info("Recording verified",
		slog.String("path", path),
		slog.Int("samples", len(samples)),
		slog.Int("sample_rate", info.SampleRate),
		slog.Int("channels", info.Channels),
		slog.Float64("duration_seconds", info.Duration),
	)
	return nil
}

// printInfo reports the format of an existing WAV file without decoding
// its audio.
func printInfo(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	info, err := audio.GetWAVInfo(data)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d Hz, %d channel(s), %d-bit, %.2f s\n",
		path, info.SampleRate, info.Channels, info.BitsPerSample, info.Duration)
	return nil
}
