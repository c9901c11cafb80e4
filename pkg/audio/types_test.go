// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion, chunk parsing and buffer durations
package audio

import (
	"math"
	"testing"
)

func TestFloatToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"full negative", -1.0, -32768},
		{"full positive", 1.0, 32767},
		{"half negative", -0.5, -16384},
		{"half positive", 0.5, 16383},
		{"clamp above", 1.7, 32767},
		{"clamp below", -3.2, -32768},
		{"positive infinity", float32(math.Inf(1)), 32767},
		{"negative infinity", float32(math.Inf(-1)), -32768},
		{"nan", float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FloatToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestInt16ToFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected float32
	}{
		{"zero", 0, 0},
		{"min", -32768, -1},
		{"half", 16384, 0.5},
		{"max", 32767, 32767.0 / 32768.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Int16ToFloat(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestNewChunk(t *testing.T) {
	chunk, err := NewChunk(7, []byte{0x00, 0x80, 0xff, 0x7f, 0x01, 0x00}, PlaybackFormat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk.Seq != 7 {
		t.Errorf("expected seq 7, got %d", chunk.Seq)
	}
	want := []int16{-32768, 32767, 1}
	if len(chunk.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(chunk.Samples))
	}
	for i := range want {
		if chunk.Samples[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], chunk.Samples[i])
		}
	}

	if _, err := NewChunk(1, []byte{0x01}, PlaybackFormat); err == nil {
		t.Error("expected error for odd length payload")
	}
	if _, err := NewChunk(1, nil, PlaybackFormat); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{
		Channels:   [][]float32{make([]float32, 12000)},
		SampleRate: PlaybackSampleRate,
	}
	if got := buf.Duration(); got != 0.5 {
		t.Errorf("expected 0.5s, got %v", got)
	}

	var empty *Buffer
	if empty.Duration() != 0 || empty.Frames() != 0 {
		t.Error("nil buffer should have zero length")
	}
}

func TestBufferMono(t *testing.T) {
	buf := &Buffer{
		Channels:   [][]float32{{1, 0.5}, {0, -0.5}},
		SampleRate: PlaybackSampleRate,
	}
	mono := buf.Mono()
	if len(mono) != 2 || mono[0] != 0.5 || mono[1] != 0 {
		t.Errorf("unexpected mono mix: %v", mono)
	}
}
