// Package pipeline implements the per-iteration orchestration of the
// duplex audio loop: acquire one capture frame, transform it, submit it
// for playback, and feed the latency estimator. One frame is in flight
// at a time; capture and playback buffers are allocated once and reused
// for the driver's entire lifetime.
package pipeline
