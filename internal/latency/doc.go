// Package latency derives the pipeline's frame period and estimated
// end-to-end delay from buffer size, sample rate, and measured stage
// durations, and emits a periodic human-readable summary. Reports are
// sampled, not averaged: each one reflects only the most recently
// completed iteration.
package latency
