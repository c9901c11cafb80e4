// ABOUTME: WebSocket client for the voicelink relay protocol
// ABOUTME: Handles connection, handshake, audio upload and message routing
package protocol

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
	"github.com/Resonate-Protocol/voicelink-go/pkg/transport"
)

const (
	// BinaryMessageHeaderSize is the size of binary message header (type byte + sequence)
	BinaryMessageHeaderSize = 1 + 8

	// AudioChunkMessageType is the binary message type ID for raw PCM16 output audio
	AudioChunkMessageType = 4

	// DefaultPath is where relays accept sessions
	DefaultPath = "/voicelink"

	defaultHandshakeTimeout = 5 * time.Second
	writeTimeout            = 5 * time.Second
)

// Config holds client configuration
type Config struct {
	ServerAddr       string
	Path             string
	Secure           bool
	ClientID         string
	Name             string
	Version          int
	DeviceInfo       DeviceInfo
	HandshakeTimeout time.Duration
}

// Client dials relay sessions; it implements transport.Dialer
type Client struct {
	config Config
	dialer *websocket.Dialer
}

// NewClient creates a new relay client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}
	if config.Version == 0 {
		config.Version = 1
	}
	return &Client{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout},
	}
}

// URL returns the relay endpoint
func (c *Client) URL() string {
	scheme := "ws"
	if c.config.Secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: c.config.ServerAddr, Path: c.config.Path}
	return u.String()
}

// Open establishes the WebSocket connection and performs the handshake.
// OnOpen fires from the reader goroutine before any message callback.
func (c *Client) Open(ctx context.Context, cfg transport.Config, h transport.Handler) (transport.Session, error) {
	endpoint := c.URL()
	log.Info().Str("url", endpoint).Msg("connecting to relay")

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed: %w", &transport.StatusError{Code: resp.StatusCode, Message: resp.Status})
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	s := &Session{conn: conn, handler: h}
	hello, err := s.handshake(c.config, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}
	s.sessionID = hello.SessionID
	log.Info().Str("server", hello.Name).Str("session", hello.SessionID).Msg("relay handshake complete")

	go s.readMessages()
	return s, nil
}

// Session is an open relay connection
type Session struct {
	conn      *websocket.Conn
	handler   transport.Handler
	sessionID string

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
	done    bool // a terminal callback has been delivered
}

// ID returns the relay-assigned session id
func (s *Session) ID() string {
	return s.sessionID
}

func (s *Session) handshake(cc Config, cfg transport.Config) (*ServerHello, error) {
	hello := ClientHello{
		ClientID:          cc.ClientID,
		Name:              cc.Name,
		Version:           cc.Version,
		Model:             cfg.Model,
		Voice:             cfg.Voice,
		SystemInstruction: cfg.SystemInstruction,
		InputFormat:       AudioFormat{Codec: "pcm", Channels: 1, SampleRate: audio.CaptureSampleRate, BitDepth: 16},
		OutputFormat:      AudioFormat{Codec: "pcm", Channels: 1, SampleRate: audio.PlaybackSampleRate, BitDepth: 16},
		DeviceInfo:        &cc.DeviceInfo,
	}
	if err := s.sendJSON(Message{Type: TypeClientHello, Payload: hello}); err != nil {
		return nil, fmt.Errorf("failed to send client/hello: %w", err)
	}

	s.conn.SetReadDeadline(time.Now().Add(cc.HandshakeTimeout))
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read server/hello: %w", err)
	}
	s.conn.SetReadDeadline(time.Time{})

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse server/hello: %w", err)
	}
	switch env.Type {
	case TypeServerHello:
	case TypeServerError:
		var serr ServerError
		if err := json.Unmarshal(env.Payload, &serr); err != nil {
			return nil, fmt.Errorf("failed to parse server/error: %w", err)
		}
		return nil, &transport.StatusError{Code: serr.Code, Message: serr.Message}
	default:
		return nil, fmt.Errorf("expected server/hello, got %s", env.Type)
	}

	var sh ServerHello
	if err := json.Unmarshal(env.Payload, &sh); err != nil {
		return nil, fmt.Errorf("failed to parse server/hello: %w", err)
	}
	return &sh, nil
}

// sendJSON writes one message; writes are serialized
func (s *Session) sendJSON(msg Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

// SendAudio uploads one encoded microphone frame
func (s *Session) SendAudio(frame audio.Frame) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("session closed")
	}
	return s.sendJSON(Message{
		Type:    TypeInputAudio,
		Payload: InputAudio{Seq: frame.Seq, MIMEType: frame.MIMEType, Data: frame.Data},
	})
}

// finish marks the session terminal and reports whether the caller should
// deliver the terminal callback
func (s *Session) finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.closed {
		s.done = true
		return false
	}
	s.done = true
	return true
}

// readMessages reads and routes incoming messages
func (s *Session) readMessages() {
	defer s.conn.Close()

	s.handler.Opened()

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.finish() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Msg("relay closed the session")
				s.handler.Closed()
				return
			}
			log.Warn().Err(err).Msg("relay read error")
			s.handler.Failed(err)
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleBinaryMessage(data)
		case websocket.TextMessage:
			if stop := s.handleJSONMessage(data); stop {
				return
			}
		default:
			log.Debug().Int("type", messageType).Msg("unknown WebSocket message type")
		}
	}
}

// handleBinaryMessage handles raw audio chunks
func (s *Session) handleBinaryMessage(data []byte) {
	if len(data) < BinaryMessageHeaderSize {
		log.Warn().Int("len", len(data)).Msg("invalid binary message: too short")
		return
	}
	if data[0] != AudioChunkMessageType {
		log.Warn().Uint8("type", data[0]).Msg("unknown binary message type")
		return
	}
	seq := binary.BigEndian.Uint64(data[1:BinaryMessageHeaderSize])
	log.Trace().Uint64("seq", seq).Int("bytes", len(data)-BinaryMessageHeaderSize).Msg("binary audio chunk")

	pcm := make([]byte, len(data)-BinaryMessageHeaderSize)
	copy(pcm, data[BinaryMessageHeaderSize:])
	s.handler.Received(transport.Message{
		Audio: &transport.Audio{Data: pcm, MIMEType: audio.PlaybackMIMEType},
	})
}

// handleJSONMessage routes JSON messages; true means the session ended
func (s *Session) handleJSONMessage(data []byte) bool {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Msg("failed to parse JSON message")
		return false
	}

	switch env.Type {
	case TypeServerContent:
		var content ServerContent
		if err := json.Unmarshal(env.Payload, &content); err != nil {
			log.Warn().Err(err).Msg("failed to parse server/content")
			return false
		}
		msg := transport.Message{
			InputTranscript:  content.InputTranscript,
			OutputTranscript: content.OutputTranscript,
			TurnComplete:     content.TurnComplete,
			Interrupted:      content.Interrupted,
		}
		if content.Audio != nil && len(content.Audio.Data) > 0 {
			msg.Audio = &transport.Audio{Data: content.Audio.Data, MIMEType: content.Audio.MIMEType}
		}
		s.handler.Received(msg)

	case TypeServerError:
		var serr ServerError
		if err := json.Unmarshal(env.Payload, &serr); err != nil {
			log.Warn().Err(err).Msg("failed to parse server/error")
			return false
		}
		if s.finish() {
			s.handler.Failed(&transport.StatusError{Code: serr.Code, Message: serr.Message})
		}
		return true

	default:
		log.Debug().Str("type", env.Type).Msg("unknown message type")
	}
	return false
}

// Close sends a goodbye and closes the connection. OnClose and OnError are
// not delivered for a locally closed session.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.sendJSON(Message{Type: TypeClientGoodbye, Payload: ClientGoodbye{Reason: "user_request"}}); err != nil {
		log.Debug().Err(err).Msg("failed to send goodbye")
	}
	s.writeMu.Lock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()

	log.Info().Msg("relay connection closed")
	return s.conn.Close()
}
