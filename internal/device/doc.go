// Package device defines the duplex audio device boundary: a blocking
// capture primitive and a blocking playback primitive over fixed-size
// sample buffers. The PortAudio backend drives real hardware; the
// synthetic device feeds deterministic sample sequences for tests and
// offline simulation.
package device
