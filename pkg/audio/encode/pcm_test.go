// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests 16-bit encoding, clamping and base64 frames
package encode

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		wantErr     bool
		errContains string
	}{
		{
			name:    "capture format",
			format:  audio.CaptureFormat,
			wantErr: false,
		},
		{
			name:        "unsupported bit depth",
			format:      audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 24},
			wantErr:     true,
			errContains: "unsupported bit depth",
		},
		{
			name:        "stereo",
			format:      audio.Format{SampleRate: 16000, Channels: 2, BitDepth: 16},
			wantErr:     true,
			errContains: "unsupported channel count",
		},
		{
			name:        "zero rate",
			format:      audio.Format{SampleRate: 0, Channels: 1, BitDepth: 16},
			wantErr:     true,
			errContains: "invalid sample rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewPCM() expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want error containing %v", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("NewPCM() unexpected error = %v", err)
			}
			if encoder == nil {
				t.Errorf("NewPCM() returned nil encoder")
			}
		})
	}
}

func TestPCMEncodeRange(t *testing.T) {
	encoder, err := NewPCM(audio.CaptureFormat)
	if err != nil {
		t.Fatalf("NewPCM() error = %v", err)
	}

	input := []float32{-1.0, 1.0, 0, -2.5, 4.0, 0.25}
	want := []int16{-32768, 32767, 0, -32768, 32767, 8191}

	data, err := encoder.Encode(input)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(data) != len(input)*2 {
		t.Fatalf("expected %d bytes, got %d", len(input)*2, len(data))
	}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if got != w {
			t.Errorf("sample %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestEncodeFrame(t *testing.T) {
	encoder, err := NewPCM(audio.CaptureFormat)
	if err != nil {
		t.Fatalf("NewPCM() error = %v", err)
	}

	frame, err := encoder.EncodeFrame(3, []float32{0.5, -0.5})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	if frame.Seq != 3 {
		t.Errorf("expected seq 3, got %d", frame.Seq)
	}
	if frame.MIMEType != audio.CaptureMIMEType {
		t.Errorf("expected MIME %q, got %q", audio.CaptureMIMEType, frame.MIMEType)
	}
	decoded, err := base64.StdEncoding.DecodeString(frame.Data)
	if err != nil {
		t.Fatalf("frame data is not base64: %v", err)
	}
	if string(decoded) != string(frame.PCM) {
		t.Error("base64 payload does not match PCM bytes")
	}
}

func TestEncoderInterfaceFrames(t *testing.T) {
	encoder, err := NewPCM(audio.CaptureFormat)
	if err != nil {
		t.Fatalf("NewPCM() error = %v", err)
	}
	var e Encoder = encoder

	frame, err := e.EncodeFrame(1, []float32{1, -1})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(frame.PCM[0:])); got != 32767 {
		t.Errorf("expected 32767, got %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(frame.PCM[2:])); got != -32768 {
		t.Errorf("expected -32768, got %d", got)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
