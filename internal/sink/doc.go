// Package sink provides byte-oriented taps for the audio pipeline: a raw
// little-endian writer for arbitrary io.Writers, a serial port sink for
// the host passthrough link, and a bounded WAV recorder for offline
// inspection. Sinks are fire-and-forget from the driver's perspective;
// a failing sink is logged and skipped, never fatal.
package sink
