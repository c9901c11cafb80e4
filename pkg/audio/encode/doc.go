// ABOUTME: Audio encoder package for encoding float capture frames
// ABOUTME: Provides Encoder interface and the PCM16 implementation
// Package encode provides the outbound audio encoder.
//
// Only raw 16-bit little-endian mono PCM is supported. Frames are base64
// encoded and tagged with "audio/pcm;rate=<rate>".
//
// Example:
//
//	encoder, err := encode.NewPCM(audio.CaptureFormat)
//	frame, err := encoder.EncodeFrame(seq, samples)
package encode
