// ABOUTME: Oto-based audio output implementation
// ABOUTME: Pulls rendered PCM16 from a reader through a shared oto context
package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// defaultBufferSize keeps device latency low enough for barge-in
const defaultBufferSize = 80 * time.Millisecond

// oto allows only one context per process, so every session shares it
var shared struct {
	mu         sync.Mutex
	ctx        *oto.Context
	sampleRate int
	channels   int
}

func sharedContext(sampleRate, channels int) (*oto.Context, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.ctx != nil {
		if shared.sampleRate != sampleRate || shared.channels != channels {
			return nil, fmt.Errorf("output already running at %dHz %dch, cannot switch to %dHz %dch",
				shared.sampleRate, shared.channels, sampleRate, channels)
		}
		if err := shared.ctx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return shared.ctx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   defaultBufferSize,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	shared.ctx = ctx
	shared.sampleRate = sampleRate
	shared.channels = channels
	return ctx, nil
}

// Oto output implementation using oto library
type Oto struct {
	mu     sync.Mutex
	player *oto.Player
	closed bool
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

// Open creates a player on the shared context and starts pulling src
func (o *Oto) Open(sampleRate, channels int, src io.Reader) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("output already open")
	}

	ctx, err := sharedContext(sampleRate, channels)
	if err != nil {
		return err
	}

	o.player = ctx.NewPlayer(src)
	o.player.Play()
	o.closed = false

	log.Info().Int("sample_rate", sampleRate).Int("channels", channels).Msg("audio output initialized")
	return nil
}

// Close stops the player. The shared context stays alive for the next session.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.player == nil {
		o.closed = true
		return nil
	}
	o.closed = true

	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	return nil
}
