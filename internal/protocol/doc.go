// Package protocol implements the wire format of the serial passthrough
// link: frames of little-endian 16-bit PCM samples with no header or
// delimiter. Because the stream is headerless, a receiver that attaches
// mid-stream may be one byte out of phase; SyncOffset recovers the
// sample alignment by scoring the decoded signal at both byte offsets.
package protocol
