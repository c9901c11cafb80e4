// ABOUTME: PCM audio decoder
// ABOUTME: Decodes interleaved 16-bit PCM chunks to per-channel float buffers
package decode

import (
	"encoding/base64"
	"fmt"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

var _ Decoder = (*PCMDecoder)(nil)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (*PCMDecoder, error) {
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", format.SampleRate)
	}
	if format.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", format.Channels)
	}

	return &PCMDecoder{format: format}, nil
}

// Decode splits interleaved samples into channels, dividing by 32768
func (d *PCMDecoder) Decode(chunk audio.Chunk) (*audio.Buffer, error) {
	format := chunk.Format
	if format.SampleRate == 0 {
		format = d.format
	}
	channels := format.Channels
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	if len(chunk.Samples) == 0 {
		return nil, fmt.Errorf("chunk %d has no samples", chunk.Seq)
	}
	if len(chunk.Samples)%channels != 0 {
		return nil, fmt.Errorf("chunk %d: %d samples not divisible by %d channels", chunk.Seq, len(chunk.Samples), channels)
	}

	frames := len(chunk.Samples) / channels
	buf := &audio.Buffer{
		Seq:        chunk.Seq,
		Channels:   make([][]float32, channels),
		SampleRate: format.SampleRate,
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}
	for i, s := range chunk.Samples {
		buf.Channels[i%channels][i/channels] = audio.Int16ToFloat(s)
	}
	return buf, nil
}

// DecodeBytes parses little-endian PCM16 and decodes it in one step
func (d *PCMDecoder) DecodeBytes(seq uint64, data []byte) (*audio.Buffer, error) {
	chunk, err := audio.NewChunk(seq, data, d.format)
	if err != nil {
		return nil, err
	}
	return d.Decode(chunk)
}

// DecodeBase64 decodes a base64 PCM16 payload
func (d *PCMDecoder) DecodeBase64(seq uint64, data string) (*audio.Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio: %w", err)
	}
	return d.DecodeBytes(seq, raw)
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
