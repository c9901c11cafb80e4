// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines chunk, frame and buffer types plus PCM16 sample conversion
// Package audio provides the audio types shared by the voice pipeline.
//
//   - Chunk: inbound interleaved PCM16 with its arrival sequence number
//   - Frame: one encoded outbound microphone frame
//   - Buffer: decoded float samples per channel
//
// Conversion between float and PCM16 is asymmetric on purpose: -1.0 maps to
// -32768 and 1.0 maps to 32767.
//
// Example:
//
//	chunk, err := audio.NewChunk(seq, pcm, audio.PlaybackFormat)
//	sample := audio.FloatToInt16(-1.0) // -32768
package audio
