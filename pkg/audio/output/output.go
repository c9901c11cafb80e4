// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for pull-based playback backends
package output

import "io"

// Output represents an audio output device that pulls little-endian PCM16
// from a source for as long as it is open
type Output interface {
	// Open starts playback of src at the given format
	Open(sampleRate, channels int, src io.Reader) error

	// Close stops playback and releases the device; safe to repeat
	Close() error
}
