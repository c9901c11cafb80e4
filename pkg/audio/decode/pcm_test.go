// ABOUTME: Tests for PCM decoder
// ABOUTME: Tests 16-bit decoding, channel splitting and malformed input
package decode

import (
	"encoding/base64"
	"testing"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	decoder, err := NewPCM(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	if decoder == nil {
		t.Fatal("expected decoder to be created")
	}

	if _, err := NewPCM(audio.Format{SampleRate: 24000, Channels: 1, BitDepth: 24}); err == nil {
		t.Error("expected error for 24-bit format")
	}
}

func TestPCMDecodeMono(t *testing.T) {
	decoder, err := NewPCM(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// -32768, 16384, 0 little-endian
	data := []byte{0x00, 0x80, 0x00, 0x40, 0x00, 0x00}
	buf, err := decoder.DecodeBytes(4, data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if buf.Seq != 4 {
		t.Errorf("expected seq 4, got %d", buf.Seq)
	}
	if buf.SampleRate != audio.PlaybackSampleRate {
		t.Errorf("expected rate %d, got %d", audio.PlaybackSampleRate, buf.SampleRate)
	}
	want := []float32{-1, 0.5, 0}
	if len(buf.Channels) != 1 || len(buf.Channels[0]) != 3 {
		t.Fatalf("unexpected shape: %d channels", len(buf.Channels))
	}
	for i, w := range want {
		if buf.Channels[0][i] != w {
			t.Errorf("sample %d: expected %v, got %v", i, w, buf.Channels[0][i])
		}
	}
}

func TestPCMDecodeStereo(t *testing.T) {
	decoder, err := NewPCM(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	chunk := audio.Chunk{
		Seq:     1,
		Samples: []int16{16384, -16384, 0, 8192},
		Format:  audio.Format{SampleRate: 24000, Channels: 2, BitDepth: 16},
	}
	buf, err := decoder.Decode(chunk)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(buf.Channels) != 2 || buf.Frames() != 2 {
		t.Fatalf("expected 2x2 buffer, got %d channels %d frames", len(buf.Channels), buf.Frames())
	}
	if buf.Channels[0][0] != 0.5 || buf.Channels[1][0] != -0.5 || buf.Channels[1][1] != 0.25 {
		t.Errorf("unexpected channel split: %v", buf.Channels)
	}
}

func TestPCMDecodeBase64(t *testing.T) {
	decoder, err := NewPCM(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	payload := base64.StdEncoding.EncodeToString(make([]byte, 24000*2))
	buf, err := decoder.DecodeBase64(2, payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if buf.Duration() != 1.0 {
		t.Errorf("expected 1s buffer, got %v", buf.Duration())
	}

	if _, err := decoder.DecodeBase64(3, "not base64!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := decoder.DecodeBase64(4, base64.StdEncoding.EncodeToString([]byte{1, 2, 3})); err == nil {
		t.Error("expected error for odd byte count")
	}
}

func TestDecoderInterfaceDecodesBytes(t *testing.T) {
	decoder, err := NewPCM(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("NewPCM() error = %v", err)
	}
	var d Decoder = decoder

	buf, err := d.DecodeBytes(7, []byte{0x00, 0x40, 0x00, 0xc0})
	if err != nil {
		t.Fatalf("DecodeBytes() error = %v", err)
	}
	if buf.Seq != 7 || len(buf.Channels) != 1 || len(buf.Channels[0]) != 2 {
		t.Fatalf("unexpected buffer: seq=%d channels=%d", buf.Seq, len(buf.Channels))
	}
	if buf.Channels[0][0] != 0.5 || buf.Channels[0][1] != -0.5 {
		t.Errorf("expected [0.5 -0.5], got %v", buf.Channels[0])
	}

	if _, err := d.DecodeBytes(8, []byte{0x01}); err == nil {
		t.Error("expected error for odd-length payload")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
