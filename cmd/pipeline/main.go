//go:build cgo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgeaudio/pdm-audio-pipeline/internal/audio"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/config"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/device"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/metrics"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/pipeline"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/server"
	"github.com/edgeaudio/pdm-audio-pipeline/internal/sink"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "pdm-audio-pipeline"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	recordPath := flag.String("record", "", "Optional WAV file to record playback audio into")
	recordSeconds := flag.Float64("record-seconds", 10, "Maximum recording length in seconds")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("frame_length", cfg.Audio.FrameLength),
		slog.Float64("gain", cfg.Audio.Gain),
		slog.Float64("device_latency_ms", cfg.Audio.DeviceLatencyMs),
		slog.Int("report_interval_ms", cfg.Report.IntervalMs),
		slog.Bool("serial_enabled", cfg.Serial.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Open the duplex audio device. Failure here is unrecoverable: the
	// pipeline must not run on partially configured hardware.
	dev, err := device.Open(device.Config{
		SampleRate:       cfg.Audio.SampleRate,
		FrameLength:      cfg.Audio.FrameLength,
		CaptureChannels:  1,
		PlaybackChannels: 2,
	})
	if err != nil {
		logger.Error("Failed to open duplex audio device, halting", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dev.Close()
	logger.Info("Duplex audio device opened")

	// Assemble tap sinks
	tap, closeSinks, err := buildSinks(cfg, *recordPath, *recordSeconds, logger)
	if err != nil {
		logger.Error("Failed to set up output sinks, halting", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeSinks()

	// Create the pipeline driver
	driver, err := pipeline.New(pipeline.Config{
		SampleRate:           cfg.Audio.SampleRate,
		FrameLength:          cfg.Audio.FrameLength,
		Gain:                 cfg.Audio.Gain,
		FixedDeviceLatencyMs: cfg.Audio.DeviceLatencyMs,
		ReportInterval:       cfg.Report.GetReportInterval(),
	}, dev, tap, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to create pipeline driver, halting", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start monitoring HTTP server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, driver, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Run the pipeline loop
	runErr := make(chan error, 1)
	go func() {
		runErr <- driver.Run(ctx)
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Pipeline started, waiting for signals...")

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Pipeline stopped unexpectedly", slog.String("error", err.Error()))
		}
	}

	logger.Info("Starting graceful shutdown...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	stats := driver.Stats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("frames_captured", stats.FramesCaptured),
		slog.Uint64("frames_processed", stats.FramesProcessed),
		slog.Uint64("frames_dropped", stats.FramesDropped),
		slog.Uint64("playback_short_accepts", stats.ShortAccepts),
		slog.Uint64("playback_errors", stats.PlaybackErrors),
		slog.Uint64("sink_errors", stats.SinkErrors),
	)

	logger.Info("Service stopped")
}

// buildSinks assembles the optional tap sinks for the playback stream:
// the serial passthrough link from configuration and a bounded WAV
// recording from flags. Returns a nil Sink when no tap is configured.
func buildSinks(cfg *config.Config, recordPath string, recordSeconds float64, logger *slog.Logger) (sink.Sink, func(), error) {
	var sinks []sink.Sink

	if cfg.Serial.Enabled {
		serialSink, err := sink.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, serialSink)
		logger.Info("Serial passthrough enabled",
			slog.String("port", cfg.Serial.Port),
			slog.Int("baud", cfg.Serial.Baud),
		)
	}

	if recordPath != "" {
		recorder, err := sink.NewWAVRecorder(recordPath, cfg.Audio.SampleRate, 2, recordSeconds)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, recorder)
		logger.Info("Recording playback audio",
			slog.String("path", recordPath),
			slog.Float64("max_seconds", recordSeconds),
		)
	}

	if len(sinks) == 0 {
		return nil, func() {}, nil
	}

	tap := sink.NewMulti(sinks...)

	// Optional filter stage on the tapped stream only; the playback
	// path stays untouched.
	if cfg.Filter.Enabled {
		filter, err := audio.NewFilter(audio.FilterConfig{
			Type:     filterType(cfg.Filter.Type),
			FreqLow:  cfg.Filter.FreqLow,
			FreqHigh: cfg.Filter.FreqHigh,
			GainDB:   cfg.Filter.GainDB,
		}, cfg.Audio.SampleRate, 2)
		if err != nil {
			return nil, nil, err
		}
		tap = sink.NewFiltered(tap, filter)
		logger.Info("Sink filter enabled",
			slog.String("type", string(filter.Type())),
			slog.Float64("freq_low", cfg.Filter.FreqLow),
			slog.Float64("freq_high", cfg.Filter.FreqHigh),
			slog.Float64("gain_db", cfg.Filter.GainDB),
		)
	}

	closeAll := func() {
		if err := tap.Close(); err != nil {
			logger.Error("Error closing sinks", slog.String("error", err.Error()))
		}
	}
	return tap, closeAll, nil
}

// filterType maps the configuration string onto the filter type, with
// an empty value meaning gain-only.
func filterType(s string) audio.FilterType {
	if s == "" {
		return audio.FilterNone
	}
	return audio.FilterType(s)
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
