// ABOUTME: Capture-side encoder feeding the live session
// ABOUTME: Turns microphone frames into sequenced PCM16 frames without blocking the callback
package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/voicelink-go/internal/metrics"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/encode"
)

const (
	// queueDepth is about 4 seconds of 2048-sample frames at 16 kHz
	queueDepth   = 32
	drainTimeout = 2 * time.Second
)

// Sender transmits encoded frames
type Sender interface {
	SendAudio(frame audio.Frame) error
}

// Encoder encodes captured frames and hands them to a sender goroutine.
// HandleFrame is meant to be called from one capture callback goroutine.
// Sending is fire-and-forget: when the sender falls queueDepth frames
// behind, new frames are dropped and counted rather than blocking capture.
type Encoder struct {
	pcm     encode.Encoder
	sender  Sender
	metrics *metrics.Metrics

	muted atomic.Bool
	seq   uint64

	mu     sync.RWMutex
	closed bool
	queue  chan audio.Frame
	done   chan struct{}
}

// NewEncoder creates an encoder for 16 kHz mono capture and starts its
// sender goroutine
func NewEncoder(sender Sender, m *metrics.Metrics) (*Encoder, error) {
	pcm, err := encode.NewPCM(audio.CaptureFormat)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewDiscard()
	}
	e := &Encoder{
		pcm:     pcm,
		sender:  sender,
		metrics: m,
		queue:   make(chan audio.Frame, queueDepth),
		done:    make(chan struct{}),
	}
	go e.sendLoop()
	return e, nil
}

// HandleFrame encodes one captured frame unless muted. It never blocks.
func (e *Encoder) HandleFrame(samples []float32) {
	e.metrics.FramesCaptured.Inc()
	if e.muted.Load() {
		e.metrics.FramesMuted.Inc()
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	frame, err := e.pcm.EncodeFrame(e.seq+1, samples)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode capture frame")
		return
	}

	select {
	case e.queue <- frame:
		e.seq++
	default:
		e.metrics.FramesDropped.Inc()
		log.Warn().Uint64("seq", frame.Seq).Msg("send queue full, dropping capture frame")
	}
}

func (e *Encoder) sendLoop() {
	defer close(e.done)
	for frame := range e.queue {
		if err := e.sender.SendAudio(frame); err != nil {
			e.metrics.SendErrors.Inc()
			log.Warn().Err(err).Uint64("seq", frame.Seq).Msg("failed to send audio frame")
			continue
		}
		e.metrics.FramesSent.Inc()
	}
}

// SetMuted toggles the mute flag; the next frame observes it
func (e *Encoder) SetMuted(muted bool) {
	e.muted.Store(muted)
}

// Muted reports the mute flag
func (e *Encoder) Muted() bool {
	return e.muted.Load()
}

// Close stops accepting frames and waits briefly for queued ones to go out.
// Safe to call repeatedly.
func (e *Encoder) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	select {
	case <-e.done:
	case <-time.After(drainTimeout):
		log.Warn().Msg("timed out draining audio send queue")
	}
}
