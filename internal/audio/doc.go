// Package audio implements per-frame PCM signal processing for the duplex
// pipeline: gain adjustment with hard saturation, mono to stereo channel
// expansion, and WAV encoding for offline inspection of captured audio.
package audio
