package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pipeline configuration
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Filter  FilterConfig  `yaml:"filter"`
	Report  ReportConfig  `yaml:"report"`
	Serial  SerialConfig  `yaml:"serial"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// AudioConfig contains the duplex stream and processing parameters
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	FrameLength     int     `yaml:"frame_length"` // samples per capture frame
	Gain            float64 `yaml:"gain"`
	DeviceLatencyMs float64 `yaml:"device_latency_ms"` // fixed downstream DAC constant
}

// FilterConfig contains the optional filter stage applied to the
// tapped stream before it reaches the output sinks
type FilterConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Type     string  `yaml:"type"`      // none, lowpass, highpass, bandpass
	FreqLow  float64 `yaml:"freq_low"`  // Hz, highpass and bandpass
	FreqHigh float64 `yaml:"freq_high"` // Hz, lowpass and bandpass
	GainDB   float64 `yaml:"gain_db"`
}

// ReportConfig controls the periodic latency summary
type ReportConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// SerialConfig contains the serial passthrough link configuration
type SerialConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
	Baud    int    `yaml:"baud"`
}

// HTTPConfig contains the monitoring HTTP server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs validation of the complete configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter config: %w", err)
	}

	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("report config: %w", err)
	}

	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("serial config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration. Gain is intentionally
// unconstrained: zero yields silence and negative values invert phase,
// both of which are valid pipeline behaviors.
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", a.SampleRate)
	}

	if a.FrameLength < 16 || a.FrameLength > 8192 {
		return fmt.Errorf("frame_length must be between 16 and 8192 samples, got %d", a.FrameLength)
	}

	if a.DeviceLatencyMs < 0 {
		return fmt.Errorf("device_latency_ms cannot be negative, got %f", a.DeviceLatencyMs)
	}

	return nil
}

// Validate validates filter configuration. The cutoff frequencies are
// only checked for basic shape here; the Nyquist bound depends on the
// sample rate and is enforced when the filter is built.
func (f *FilterConfig) Validate() error {
	if !f.Enabled {
		return nil
	}

	switch f.Type {
	case "", "none":
	case "lowpass":
		if f.FreqHigh <= 0 {
			return fmt.Errorf("freq_high must be positive for a lowpass filter, got %f", f.FreqHigh)
		}
	case "highpass":
		if f.FreqLow <= 0 {
			return fmt.Errorf("freq_low must be positive for a highpass filter, got %f", f.FreqLow)
		}
	case "bandpass":
		if f.FreqLow <= 0 || f.FreqLow >= f.FreqHigh {
			return fmt.Errorf("bandpass band must satisfy 0 < freq_low < freq_high, got %f-%f",
				f.FreqLow, f.FreqHigh)
		}
	default:
		return fmt.Errorf("type must be one of none/lowpass/highpass/bandpass, got '%s'", f.Type)
	}

	return nil
}

// Validate validates report configuration
func (r *ReportConfig) Validate() error {
	if r.IntervalMs < 1 {
		return fmt.Errorf("interval_ms must be at least 1, got %d", r.IntervalMs)
	}

	return nil
}

// Validate validates serial configuration
func (s *SerialConfig) Validate() error {
	if s.Enabled {
		if s.Port == "" {
			return fmt.Errorf("port cannot be empty when serial output is enabled")
		}

		if s.Baud < 9600 {
			return fmt.Errorf("baud must be at least 9600, got %d", s.Baud)
		}
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of debug/info/warn/error, got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReportInterval returns the report interval as a time.Duration
func (r *ReportConfig) GetReportInterval() time.Duration {
	return time.Duration(r.IntervalMs) * time.Millisecond
}

// Default returns the configuration matching the PDM microphone source:
// 48 kHz, 256-sample frames, unity gain, one report per second.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      48000,
			FrameLength:     256,
			Gain:            1.0,
			DeviceLatencyMs: 1.5,
		},
		Filter: FilterConfig{
			Enabled:  false,
			Type:     "bandpass",
			FreqLow:  100,
			FreqHigh: 3000,
			GainDB:   0,
		},
		Report: ReportConfig{
			IntervalMs: 1000,
		},
		Serial: SerialConfig{
			Enabled: false,
			Baud:    1500000,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}
