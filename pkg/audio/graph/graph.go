// ABOUTME: Playback signal graph pulled by the output device
// ABOUTME: Mixes voices, compresses, applies smoothed gain and feeds the analyser
package graph

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

// VolumeRamp is the time constant for volume changes
const VolumeRamp = 0.05

// Config holds the initial graph settings
type Config struct {
	SampleRate int
	Volume     float64
	Enhancer   bool
}

// Graph renders mono PCM16 for the output device: voices are mixed, passed
// through the compressor and gain stage, then observed by the analyser.
// The playback clock is the number of frames rendered so far.
type Graph struct {
	mu         sync.Mutex
	sampleRate int
	frame      int64
	voices     []*Voice
	compressor *Compressor
	gain       *Param
	analyser   *Analyser
	tap        func([]float32)
	closed     bool

	mix []float32
}

// New creates a graph
func New(cfg Config) *Graph {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.PlaybackSampleRate
	}
	return &Graph{
		sampleRate: cfg.SampleRate,
		compressor: NewCompressor(cfg.SampleRate, cfg.Enhancer),
		gain:       NewParam(math.Max(cfg.Volume, 0), cfg.SampleRate),
		analyser:   NewAnalyser(DefaultFFTSize, DefaultSmoothing),
	}
}

// CurrentTime returns the playback clock in seconds
func (g *Graph) CurrentTime() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return float64(g.frame) / float64(g.sampleRate)
}

// Start schedules buf at time at (seconds). A time in the past starts now.
// onEnded runs on the rendering goroutine once the buffer has fully played;
// it must not block.
func (g *Graph) Start(buf *audio.Buffer, at, rate float64, onEnded func()) *Voice {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := int64(math.Round(at * float64(g.sampleRate)))
	if start < g.frame {
		start = g.frame
	}
	v := newVoice(g, buf, start, rate, onEnded)
	if g.closed || len(v.samples) == 0 {
		v.stopped = true
		return v
	}
	g.voices = append(g.voices, v)
	return v
}

// SetVolume ramps the gain stage to volume
func (g *Graph) SetVolume(volume float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gain.SetTarget(math.Max(volume, 0), VolumeRamp)
}

// Volume returns the gain the ramp is heading to
func (g *Graph) Volume() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gain.Target()
}

// SetEnhancer ramps the compressor between limiting and pass-through
func (g *Graph) SetEnhancer(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compressor.SetEnhancer(on, CompressorRamp)
}

// CompressorSettings returns the compressor's target threshold, knee and ratio
func (g *Graph) CompressorSettings() (threshold, knee, ratio float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.compressor.Settings()
}

// Analyser returns the read-only spectrum tap
func (g *Graph) Analyser() *Analyser {
	return g.analyser
}

// SetTap installs a callback receiving the mixed voice signal before
// dynamics processing. nil removes it.
func (g *Graph) SetTap(tap func([]float32)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tap = tap
}

// Playing counts voices that are scheduled or sounding
func (g *Graph) Playing() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, v := range g.voices {
		if !v.stopped && !v.ended {
			n++
		}
	}
	return n
}

// Render produces n output frames
func (g *Graph) Render(n int) []float32 {
	g.mu.Lock()
	if cap(g.mix) < n {
		g.mix = make([]float32, n)
	}
	mix := g.mix[:n]
	out := make([]float32, n)

	for i := 0; i < n; i++ {
		frame := g.frame + int64(i)
		var sum float32
		for _, v := range g.voices {
			if s, ok := v.next(frame); ok {
				sum += s
			}
		}
		mix[i] = sum
		out[i] = g.compressor.Process(sum) * float32(g.gain.Next())
	}
	g.frame += int64(n)

	var ended []func()
	live := g.voices[:0]
	for _, v := range g.voices {
		switch {
		case v.ended:
			if v.onEnded != nil && !v.stopped {
				ended = append(ended, v.onEnded)
			}
		case v.stopped:
		default:
			live = append(live, v)
		}
	}
	for i := len(live); i < len(g.voices); i++ {
		g.voices[i] = nil
	}
	g.voices = live

	tap := g.tap
	var tapped []float32
	if tap != nil {
		tapped = append([]float32(nil), mix...)
	}
	g.mu.Unlock()

	g.analyser.observe(out)
	if tap != nil {
		tap(tapped)
	}
	for _, fn := range ended {
		fn()
	}
	return out
}

// Read renders len(p)/2 frames of mono little-endian PCM16. It never blocks
// and renders silence when nothing is scheduled.
func (g *Graph) Read(p []byte) (int, error) {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return 0, io.EOF
	}

	n := len(p) / 2
	if n == 0 {
		return 0, nil
	}
	for i, s := range g.Render(n) {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(audio.FloatToInt16(s)))
	}
	return n * 2, nil
}

// Close stops every voice and ends the stream. Safe to call repeatedly.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	for _, v := range g.voices {
		v.stopped = true
	}
	g.voices = nil
	return nil
}
