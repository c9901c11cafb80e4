// ABOUTME: Tests for the playback graph
// ABOUTME: Covers voice timing, stop, rate changes, ramps, compression and the analyser
package graph

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

const rate = audio.PlaybackSampleRate

func constBuffer(value float32, frames int) *audio.Buffer {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = value
	}
	return &audio.Buffer{Channels: [][]float32{samples}, SampleRate: rate}
}

func flatGraph() *Graph {
	return New(Config{SampleRate: rate, Volume: 1, Enhancer: false})
}

func TestGraphPlaysVoiceAndFiresEnded(t *testing.T) {
	g := flatGraph()
	ended := 0
	g.Start(constBuffer(0.25, rate/2), 0, 1, func() { ended++ })

	assert.Equal(t, 1, g.Playing())
	out := g.Render(rate)

	assert.InDelta(t, 0.25, out[0], 1e-6)
	assert.InDelta(t, 0.25, out[rate/2-1], 1e-6)
	assert.Equal(t, float32(0), out[rate/2])
	assert.Equal(t, 1, ended)
	assert.Equal(t, 0, g.Playing())
	assert.InDelta(t, 1.0, g.CurrentTime(), 1e-9)
}

func TestGraphBackToBackVoices(t *testing.T) {
	g := flatGraph()
	g.Start(constBuffer(0.1, rate/2), 0, 1, nil)
	g.Start(constBuffer(0.2, rate/2), 0.5, 1, nil)

	out := g.Render(rate)

	assert.InDelta(t, 0.1, out[rate/2-1], 1e-6)
	assert.InDelta(t, 0.2, out[rate/2], 1e-6)
	assert.InDelta(t, 0.2, out[rate-1], 1e-6)
}

func TestGraphStartInPastBeginsNow(t *testing.T) {
	g := flatGraph()
	g.Render(rate / 4)

	v := g.Start(constBuffer(0.3, 100), 0, 1, nil)
	assert.InDelta(t, 0.25, v.StartTime(), 1e-9)

	out := g.Render(10)
	assert.InDelta(t, 0.3, out[0], 1e-6)
}

func TestGraphStopSilencesWithoutEnded(t *testing.T) {
	g := flatGraph()
	ended := false
	v := g.Start(constBuffer(0.5, rate), 0, 1, func() { ended = true })

	g.Render(100)
	v.Stop()
	out := g.Render(rate)

	assert.True(t, v.Stopped())
	assert.Equal(t, float32(0), out[0])
	assert.False(t, ended)
	assert.Equal(t, 0, g.Playing())
}

func TestGraphPlaybackRate(t *testing.T) {
	g := flatGraph()
	ended := false
	v := g.Start(constBuffer(0.5, 12000), 0, 1, func() { ended = true })
	v.SetPlaybackRate(2)

	g.Render(6000)
	assert.True(t, ended, "buffer at double speed should finish in half the frames")
}

func TestGraphVolumeRamp(t *testing.T) {
	g := flatGraph()
	g.Start(constBuffer(0.1, rate), 0, 1, nil)
	g.SetVolume(2)
	assert.Equal(t, 2.0, g.Volume())

	out := g.Render(rate / 2)

	assert.Less(t, out[0], float32(0.15), "volume must not jump")
	assert.InDelta(t, 0.2, out[len(out)-1], 0.002)
}

func TestGraphEnhancerSettings(t *testing.T) {
	g := New(Config{SampleRate: rate, Volume: 1, Enhancer: true})
	threshold, knee, ratio := g.CompressorSettings()
	assert.Equal(t, EnhancerThreshold, threshold)
	assert.Equal(t, EnhancerKnee, knee)
	assert.Equal(t, EnhancerRatio, ratio)

	g.SetEnhancer(false)
	threshold, _, ratio = g.CompressorSettings()
	assert.Equal(t, BypassThreshold, threshold)
	assert.Equal(t, BypassRatio, ratio)
}

func TestGraphEnhancerLimitsLoudSignal(t *testing.T) {
	g := New(Config{SampleRate: rate, Volume: 1, Enhancer: true})
	g.Start(constBuffer(0.9, rate), 0, 1, nil)

	out := g.Render(rate / 2)
	assert.Less(t, out[len(out)-1], float32(0.06))

	bypass := flatGraph()
	bypass.Start(constBuffer(0.9, rate), 0, 1, nil)
	out = bypass.Render(rate / 2)
	assert.InDelta(t, 0.9, out[len(out)-1], 1e-6)
}

func TestGraphTapReceivesMix(t *testing.T) {
	g := New(Config{SampleRate: rate, Volume: 3, Enhancer: true})
	var tapped []float32
	g.SetTap(func(s []float32) { tapped = append(tapped, s...) })
	g.Start(constBuffer(0.2, 50), 0, 1, nil)

	g.Render(100)

	require.Len(t, tapped, 100)
	assert.InDelta(t, 0.2, tapped[0], 1e-6, "tap sees the signal before dynamics")
	assert.Equal(t, float32(0), tapped[99])
}

func TestAnalyserFindsTone(t *testing.T) {
	g := flatGraph()
	const bin = 16
	freq := float64(bin) * rate / DefaultFFTSize
	samples := make([]float32, 1024)
	for i := range samples {
		samples[i] = float32(0.05 * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	g.Start(&audio.Buffer{Channels: [][]float32{samples}, SampleRate: rate}, 0, 1, nil)
	out := g.Render(512)

	data := g.Analyser().ByteFrequencyData()
	require.Len(t, data, g.Analyser().FrequencyBinCount())

	peak := 0
	for i, v := range data {
		if v > data[peak] {
			peak = i
		}
	}
	assert.Equal(t, bin, peak)

	// observing did not change the rendered signal
	assert.InDelta(t, samples[100], out[100], 1e-6)
}

func TestGraphReadAndClose(t *testing.T) {
	g := flatGraph()
	buf := make([]byte, 64)
	n, err := g.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, make([]byte, 64), buf)

	v := g.Start(constBuffer(0.5, rate), 0, 1, nil)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.True(t, v.Stopped())

	_, err = g.Read(buf)
	assert.Equal(t, io.EOF, err)
}
