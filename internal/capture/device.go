// ABOUTME: Microphone device abstraction
// ABOUTME: Interfaces for opening a capture stream that delivers fixed-size frames
package capture

// Stream is an acquired microphone
type Stream interface {
	// Start begins delivering frames
	Start() error
	// Close stops and releases the device; safe to repeat
	Close() error
}

// Device opens microphone streams. onFrame runs on the device callback
// goroutine with a slice that is only valid for the duration of the call.
type Device interface {
	Open(sampleRate, frameSize int, onFrame func([]float32)) (Stream, error)
}
