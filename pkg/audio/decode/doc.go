// ABOUTME: Audio decoder package for inbound synthesized voice
// ABOUTME: Provides Decoder interface and the PCM16 implementation
// Package decode provides the inbound audio decoder.
//
// Chunks are 16-bit little-endian PCM, usually 24 kHz mono, delivered either
// raw or base64 encoded. Samples are divided by 32768 into float buffers.
//
// Example:
//
//	decoder, err := decode.NewPCM(audio.PlaybackFormat)
//	buf, err := decoder.DecodeBase64(seq, payload)
package decode
