// ABOUTME: Relay protocol message type definitions
// ABOUTME: JSON envelopes exchanged with a voicelink relay over WebSocket
package protocol

import "encoding/json"

// Message types
const (
	TypeClientHello   = "client/hello"
	TypeClientGoodbye = "client/goodbye"
	TypeInputAudio    = "input/audio"
	TypeServerHello   = "server/hello"
	TypeServerContent = "server/content"
	TypeServerError   = "server/error"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// envelope is Message with the payload left undecoded
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ClientHello opens a relay session
type ClientHello struct {
	ClientID          string      `json:"client_id"`
	Name              string      `json:"name"`
	Version           int         `json:"version"`
	Model             string      `json:"model,omitempty"`
	Voice             string      `json:"voice,omitempty"`
	SystemInstruction string      `json:"system_instruction,omitempty"`
	InputFormat       AudioFormat `json:"input_format"`
	OutputFormat      AudioFormat `json:"output_format"`
	DeviceInfo        *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// AudioFormat describes a PCM stream
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// ServerHello confirms the session
type ServerHello struct {
	ServerID  string `json:"server_id"`
	Name      string `json:"name"`
	SessionID string `json:"session_id"`
}

// InputAudio carries one microphone frame; Data is base64 PCM16
type InputAudio struct {
	Seq      uint64 `json:"seq"`
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// OutputAudio carries synthesized voice; encoding/json base64-decodes Data
type OutputAudio struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// ServerContent is one model event
type ServerContent struct {
	Audio            *OutputAudio `json:"audio,omitempty"`
	InputTranscript  string       `json:"input_transcript,omitempty"`
	OutputTranscript string       `json:"output_transcript,omitempty"`
	TurnComplete     bool         `json:"turn_complete,omitempty"`
	Interrupted      bool         `json:"interrupted,omitempty"`
}

// ServerError reports a failure before the relay closes the session
type ServerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ClientGoodbye is sent before disconnecting
type ClientGoodbye struct {
	Reason string `json:"reason"`
}
