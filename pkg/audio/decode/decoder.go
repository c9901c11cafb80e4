// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for inbound audio decoders
package decode

import "github.com/Resonate-Protocol/voicelink-go/pkg/audio"

// Decoder turns an inbound chunk into float buffers
type Decoder interface {
	// Decode converts a chunk to per-channel float samples
	Decode(chunk audio.Chunk) (*audio.Buffer, error)

	// DecodeBytes decodes a raw payload tagged with seq
	DecodeBytes(seq uint64, data []byte) (*audio.Buffer, error)

	// Close releases decoder resources
	Close() error
}
