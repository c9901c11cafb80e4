// ABOUTME: Per-connection audio pipeline
// ABOUTME: Owns the playback graph, output device, microphone, encoder and transport session
package session

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/voicelink-go/internal/capture"
	"github.com/Resonate-Protocol/voicelink-go/internal/player"
	"github.com/Resonate-Protocol/voicelink-go/internal/recording"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/graph"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/output"
	"github.com/Resonate-Protocol/voicelink-go/pkg/transport"
)

var errNotConnected = errors.New("transport not connected")

// pipeline is built on every (re)initialization and torn down on close,
// error or retry. Everything except the capture path runs on the
// supervisor's event loop.
type pipeline struct {
	graph     *graph.Graph
	output    output.Output
	scheduler *player.Scheduler
	decoder   decode.Decoder
	encoder   *capture.Encoder
	stream    capture.Stream
	recorder  *recording.Mixer

	mu        sync.Mutex
	session   transport.Session
	streaming bool
	released  bool
}

// SendAudio forwards encoded frames to the current transport session
func (p *pipeline) SendAudio(frame audio.Frame) error {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()
	if sess == nil {
		return errNotConnected
	}
	return sess.SendAudio(frame)
}

// onFrame is the capture callback. It must not block.
func (p *pipeline) onFrame(samples []float32) {
	p.encoder.HandleFrame(samples)
	if p.recorder != nil {
		p.recorder.WriteMic(samples)
	}
}

func (p *pipeline) setSession(sess transport.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = sess
}

func (p *pipeline) hasSession() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// startStreaming starts the microphone once the session is usable
func (p *pipeline) startStreaming() error {
	if p.streaming || p.stream == nil {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return capture.Classify(err)
	}
	p.streaming = true
	return nil
}

// release frees every resource in dependency order. Each step checks what
// is still held, so calling it again is a no-op.
func (p *pipeline) release() {
	if p.released {
		return
	}
	p.released = true

	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close capture stream")
		}
		p.stream = nil
		p.streaming = false
	}
	if p.encoder != nil {
		p.encoder.Close()
	}

	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.mu.Unlock()
	if sess != nil {
		if err := sess.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close transport session")
		}
	}

	if p.scheduler != nil {
		p.scheduler.Interrupt()
	}
	if p.graph != nil {
		p.graph.SetTap(nil)
	}
	if p.output != nil {
		if err := p.output.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close playback device")
		}
	}
	if p.graph != nil {
		p.graph.Close()
	}
	if p.decoder != nil {
		p.decoder.Close()
	}
	log.Debug().Msg("audio pipeline released")
}
