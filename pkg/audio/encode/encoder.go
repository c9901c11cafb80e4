// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for outbound audio encoders
package encode

import "github.com/Resonate-Protocol/voicelink-go/pkg/audio"

// Encoder encodes float samples to wire bytes
type Encoder interface {
	// Encode converts float samples to encoded audio data
	Encode(samples []float32) ([]byte, error)

	// EncodeFrame encodes samples into a sequenced, tagged frame
	EncodeFrame(seq uint64, samples []float32) (audio.Frame, error)

	// Close releases encoder resources
	Close() error
}
