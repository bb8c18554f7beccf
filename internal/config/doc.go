// Package config provides configuration loading and validation for the
// duplex audio pipeline. It handles YAML-based configuration with
// per-section struct validation covering the audio parameters, latency
// reporting, serial passthrough link, monitoring HTTP server, and
// logging.
package config
