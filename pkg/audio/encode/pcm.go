// ABOUTME: PCM audio encoder
// ABOUTME: Encodes float samples to 16-bit little-endian PCM and base64 frames
package encode

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

var _ Encoder = (*PCMEncoder)(nil)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	format   audio.Format
	mimeType string
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (*PCMEncoder, error) {
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", format.SampleRate)
	}
	if format.Channels != 1 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1)", format.Channels)
	}

	return &PCMEncoder{
		format:   format,
		mimeType: fmt.Sprintf("audio/pcm;rate=%d", format.SampleRate),
	}, nil
}

// Encode converts float samples to PCM16 bytes
func (e *PCMEncoder) Encode(samples []float32) ([]byte, error) {
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.FloatToInt16(sample)))
	}
	return output, nil
}

// EncodeFrame encodes samples into a base64 tagged frame
func (e *PCMEncoder) EncodeFrame(seq uint64, samples []float32) (audio.Frame, error) {
	pcm, err := e.Encode(samples)
	if err != nil {
		return audio.Frame{}, err
	}
	return audio.Frame{
		Seq:      seq,
		PCM:      pcm,
		Data:     base64.StdEncoding.EncodeToString(pcm),
		MIMEType: e.mimeType,
	}, nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
