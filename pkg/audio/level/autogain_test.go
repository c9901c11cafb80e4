// ABOUTME: Tests for the peak normalizer
// ABOUTME: Covers silence passthrough, clamped boost and attenuation
package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

func bufferOf(channels ...[]float32) *audio.Buffer {
	return &audio.Buffer{Channels: channels, SampleRate: audio.PlaybackSampleRate}
}

func TestNormalizeLeavesSilenceUntouched(t *testing.T) {
	in := []float32{0.01, -0.005, 0, 0.0099}
	want := append([]float32(nil), in...)
	buf := bufferOf(in)

	gains := Normalize(buf)

	assert.Equal(t, want, buf.Channels[0])
	assert.Equal(t, []float32{1}, gains)
}

func TestNormalizePeakContract(t *testing.T) {
	peaks := []float32{0.02, 0.1, 0.25, 0.3, 0.5, 0.75, 0.9, 1.0}
	for _, p := range peaks {
		buf := bufferOf([]float32{p / 2, -p, p / 4})

		gains := Normalize(buf)
		require.Len(t, gains, 1)

		expected := TargetPeak / p
		if expected > MaxGain {
			expected = MaxGain
		}
		if expected < MinGain {
			expected = MinGain
		}
		assert.InDelta(t, expected, gains[0], 1e-6, "gain for peak %v", p)
		assert.LessOrEqual(t, gains[0], float32(MaxGain))
		assert.GreaterOrEqual(t, gains[0], float32(MinGain))
		assert.InDelta(t, expected*p, Peak(buf.Channels[0]), 1e-5, "output peak for %v", p)
	}
}

func TestNormalizeClampsBoost(t *testing.T) {
	buf := bufferOf([]float32{0.05, -0.02})
	Normalize(buf)
	assert.InDelta(t, 0.15, buf.Channels[0][0], 1e-6)
	assert.InDelta(t, -0.06, buf.Channels[0][1], 1e-6)
}

func TestNormalizeChannelsIndependently(t *testing.T) {
	buf := bufferOf([]float32{0.005, 0.001}, []float32{0.375, -0.1})

	gains := Normalize(buf)

	assert.Equal(t, float32(1), gains[0])
	assert.Equal(t, []float32{0.005, 0.001}, buf.Channels[0])
	assert.InDelta(t, 2.0, gains[1], 1e-6)
	assert.InDelta(t, 0.75, buf.Channels[1][0], 1e-6)
}

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}
