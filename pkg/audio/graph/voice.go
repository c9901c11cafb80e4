// ABOUTME: A single scheduled buffer playing through the graph
// ABOUTME: Tracks start frame, read position and live playback rate
package graph

import "github.com/Resonate-Protocol/voicelink-go/pkg/audio"

// Voice is one buffer source started on the graph timeline
type Voice struct {
	g          *Graph
	samples    []float32
	startFrame int64
	step       float64 // source samples per output frame at rate 1
	rate       float64
	pos        float64
	stopped    bool
	ended      bool
	onEnded    func()
}

func newVoice(g *Graph, buf *audio.Buffer, startFrame int64, rate float64, onEnded func()) *Voice {
	step := 1.0
	if buf.SampleRate > 0 && g.sampleRate > 0 {
		step = float64(buf.SampleRate) / float64(g.sampleRate)
	}
	if rate <= 0 {
		rate = 1
	}
	return &Voice{
		g:          g,
		samples:    buf.Mono(),
		startFrame: startFrame,
		step:       step,
		rate:       rate,
		onEnded:    onEnded,
	}
}

// Stop silences the voice immediately. The ended callback does not fire.
func (v *Voice) Stop() {
	v.g.mu.Lock()
	defer v.g.mu.Unlock()
	v.stopped = true
}

// SetPlaybackRate changes speed for the remainder of the buffer
func (v *Voice) SetPlaybackRate(rate float64) {
	if rate <= 0 {
		return
	}
	v.g.mu.Lock()
	defer v.g.mu.Unlock()
	v.rate = rate
}

// StartTime returns the scheduled start in seconds
func (v *Voice) StartTime() float64 {
	return float64(v.startFrame) / float64(v.g.sampleRate)
}

// Stopped reports whether Stop was called
func (v *Voice) Stopped() bool {
	v.g.mu.Lock()
	defer v.g.mu.Unlock()
	return v.stopped
}

// next renders the voice's sample for output frame and reports whether it
// contributed. Caller holds g.mu.
func (v *Voice) next(frame int64) (float32, bool) {
	if v.stopped || v.ended || frame < v.startFrame {
		return 0, false
	}
	idx := int(v.pos)
	if idx >= len(v.samples) {
		v.ended = true
		return 0, false
	}
	s := v.samples[idx]
	if idx+1 < len(v.samples) {
		frac := float32(v.pos - float64(idx))
		s += (v.samples[idx+1] - s) * frac
	}
	v.pos += v.step * v.rate
	if int(v.pos) >= len(v.samples) {
		v.ended = true
	}
	return s, true
}
