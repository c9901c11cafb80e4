// ABOUTME: Live session transport contract
// ABOUTME: Abstract duplex channel the voice pipeline streams through
package transport

import (
	"context"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

// Config is passed to the remote side when a session opens
type Config struct {
	Model             string
	Voice             string
	SystemInstruction string
}

// Audio is one inbound block of synthesized voice, already base64-decoded
type Audio struct {
	Data     []byte // little-endian PCM16
	MIMEType string
}

// Message is one inbound server event. Any combination of fields may be set.
type Message struct {
	Audio            *Audio
	InputTranscript  string
	OutputTranscript string
	TurnComplete     bool
	Interrupted      bool
}

// Handler receives session callbacks. Callbacks arrive on the transport's
// own goroutine and must not block for long.
type Handler struct {
	OnOpen    func()
	OnMessage func(Message)
	OnError   func(error)
	OnClose   func()
}

// Opened calls OnOpen if set
func (h Handler) Opened() {
	if h.OnOpen != nil {
		h.OnOpen()
	}
}

// Received calls OnMessage if set
func (h Handler) Received(m Message) {
	if h.OnMessage != nil {
		h.OnMessage(m)
	}
}

// Failed calls OnError if set
func (h Handler) Failed(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Closed calls OnClose if set
func (h Handler) Closed() {
	if h.OnClose != nil {
		h.OnClose()
	}
}

// Session is an open duplex channel
type Session interface {
	// SendAudio streams one encoded microphone frame
	SendAudio(frame audio.Frame) error
	// Close ends the session; safe to repeat
	Close() error
}

// Dialer opens sessions. Open returns once the connection is being
// established; OnOpen fires when it is usable.
type Dialer interface {
	Open(ctx context.Context, cfg Config, h Handler) (Session, error)
}
