// ABOUTME: Audio type definitions
// ABOUTME: Defines wire chunks, outbound frames and decoded float buffers
package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	// CaptureSampleRate is the microphone rate streamed to the live session.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate of synthesized voice coming back.
	PlaybackSampleRate = 24000
	// CaptureFrameSize is the number of samples per captured frame.
	CaptureFrameSize = 2048
	// CaptureMIMEType tags every outbound frame.
	CaptureMIMEType = "audio/pcm;rate=16000"
	// PlaybackMIMEType is what the live session sends back.
	PlaybackMIMEType = "audio/pcm;rate=24000"

	// MaxInt16 and MinInt16 bound the 16-bit PCM range
	MaxInt16 = 32767
	MinInt16 = -32768
)

// Format describes a PCM stream
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// CaptureFormat is the outbound microphone format
var CaptureFormat = Format{SampleRate: CaptureSampleRate, Channels: 1, BitDepth: 16}

// PlaybackFormat is the inbound voice format
var PlaybackFormat = Format{SampleRate: PlaybackSampleRate, Channels: 1, BitDepth: 16}

// Chunk is one inbound block of interleaved 16-bit PCM. Immutable once built.
type Chunk struct {
	Seq     uint64
	Samples []int16
	Format  Format
}

// NewChunk builds a chunk from little-endian PCM16 bytes
func NewChunk(seq uint64, data []byte, format Format) (Chunk, error) {
	if len(data) == 0 {
		return Chunk{}, fmt.Errorf("empty audio chunk")
	}
	if len(data)%2 != 0 {
		return Chunk{}, fmt.Errorf("odd PCM16 payload length: %d", len(data))
	}
	if format.Channels < 1 {
		return Chunk{}, fmt.Errorf("invalid channel count: %d", format.Channels)
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return Chunk{Seq: seq, Samples: samples, Format: format}, nil
}

// Frame is one encoded outbound microphone frame
type Frame struct {
	Seq      uint64
	PCM      []byte // little-endian int16
	Data     string // base64 of PCM
	MIMEType string
}

// Buffer holds decoded float samples, one slice per channel, in [-1, 1]
type Buffer struct {
	Seq        uint64
	Channels   [][]float32
	SampleRate int
}

// Frames returns the number of sample frames per channel
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds at its native rate
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Mono averages all channels into one slice
func (b *Buffer) Mono() []float32 {
	n := b.Frames()
	if n == 0 {
		return nil
	}
	if len(b.Channels) == 1 {
		return b.Channels[0]
	}
	out := make([]float32, n)
	scale := 1 / float32(len(b.Channels))
	for _, ch := range b.Channels {
		for i, s := range ch {
			out[i] += s * scale
		}
	}
	return out
}

// FloatToInt16 clamps to [-1, 1] and scales negatives by 32768 and
// non-negatives by 32767 so both ends are exactly representable.
func FloatToInt16(s float32) int16 {
	if s != s { // NaN
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// Int16ToFloat converts a PCM16 sample to [-1, 1)
func Int16ToFloat(s int16) float32 {
	return float32(s) / 32768
}
