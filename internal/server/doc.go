// Package server implements the optional monitoring HTTP server for the
// pipeline. It exposes health, statistics, configuration, and Prometheus
// metrics endpoints; it never carries audio and has no effect on the
// audio path.
package server
