// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts float audio between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation and keeps state between calls, so a stream can
// be fed chunk by chunk.
//
// Example:
//
//	r := resample.New(16000, 24000, 1)
//	out := r.Resample(micFrame)
package resample
