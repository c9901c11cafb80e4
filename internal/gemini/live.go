// ABOUTME: Gemini Live API transport
// ABOUTME: Streams microphone PCM to a live model and routes its replies
package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
	"github.com/Resonate-Protocol/voicelink-go/pkg/transport"
)

const (
	// DefaultLiveModel is the native-audio live model
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	// DefaultVoice is the prebuilt voice used when none is configured
	DefaultVoice = "Kore"
)

// ErrMissingAPIKey is returned when no API key is configured
var ErrMissingAPIKey = errors.New("missing API key")

// Dialer opens Gemini Live sessions; it implements transport.Dialer
type Dialer struct {
	client *genai.Client
}

// NewDialer creates a Live API dialer for the Gemini Developer API
func NewDialer(ctx context.Context, apiKey string) (*Dialer, error) {
	client, err := newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &Dialer{client: client}, nil
}

func newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// connectConfig builds the live session setup for audio in, audio out
// with both transcriptions enabled
func connectConfig(cfg transport.Config) *genai.LiveConnectConfig {
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	lc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if cfg.SystemInstruction != "" {
		lc.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	return lc
}

// Open connects a live session. The receive loop starts immediately and
// OnOpen is delivered before any message.
func (d *Dialer) Open(ctx context.Context, cfg transport.Config, h transport.Handler) (transport.Session, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultLiveModel
	}
	log.Info().Str("model", model).Str("voice", cfg.Voice).Msg("connecting to live session")

	live, err := d.client.Live.Connect(ctx, model, connectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("live connect failed: %w", err)
	}

	s := &Session{live: live, handler: h}
	go s.receive()
	return s, nil
}

// Session is one open live session
type Session struct {
	live    *genai.Session
	handler transport.Handler

	sendMu sync.Mutex
	mu     sync.Mutex
	closed bool
}

// SendAudio streams one microphone frame as realtime input
func (s *Session) SendAudio(frame audio.Frame) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("session closed")
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.live.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: frame.PCM, MIMEType: frame.MIMEType},
	})
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) receive() {
	s.handler.Opened()

	for {
		msg, err := s.live.Receive()
		if err != nil {
			if s.isClosed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Msg("live session closed by server")
				s.handler.Closed()
				return
			}
			log.Warn().Err(err).Msg("live session receive failed")
			s.handler.Failed(err)
			return
		}

		if msg.GoAway != nil {
			log.Info().Msg("live session go-away received")
		}
		if m, ok := translate(msg); ok {
			s.handler.Received(m)
		}
	}
}

// translate maps a server message onto the transport model; false means
// it carried nothing the pipeline consumes
func translate(msg *genai.LiveServerMessage) (transport.Message, bool) {
	if msg == nil || msg.ServerContent == nil {
		return transport.Message{}, false
	}
	content := msg.ServerContent

	var m transport.Message
	if content.ModelTurn != nil {
		var pcm []byte
		mime := ""
		for _, part := range content.ModelTurn.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			pcm = append(pcm, part.InlineData.Data...)
			if mime == "" {
				mime = part.InlineData.MIMEType
			}
		}
		if len(pcm) > 0 {
			if mime == "" {
				mime = audio.PlaybackMIMEType
			}
			m.Audio = &transport.Audio{Data: pcm, MIMEType: mime}
		}
	}
	if content.InputTranscription != nil {
		m.InputTranscript = content.InputTranscription.Text
	}
	if content.OutputTranscription != nil {
		m.OutputTranscript = content.OutputTranscription.Text
	}
	m.TurnComplete = content.TurnComplete
	m.Interrupted = content.Interrupted

	empty := m.Audio == nil && m.InputTranscript == "" && m.OutputTranscript == "" && !m.TurnComplete && !m.Interrupted
	return m, !empty
}

// Close ends the session without delivering OnClose or OnError
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	log.Info().Msg("closing live session")
	return s.live.Close()
}
