// ABOUTME: Session initialization errors
// ABOUTME: Maps failures to the messages shown to the user
package session

import (
	"errors"

	"github.com/Resonate-Protocol/voicelink-go/internal/capture"
)

var (
	// ErrMissingAPIKey means no live transport could be configured
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrNoInternet means the connectivity check failed before dialing
	ErrNoInternet = errors.New("no internet connection")
	// ErrProcessingUnsupported means the playback device could not be opened
	ErrProcessingUnsupported = errors.New("audio processing unsupported")
)

// maxErrorLength bounds transport error messages shown to the user
const maxErrorLength = 60

// userMessage returns the text shown for err
func userMessage(err error) string {
	var acq *capture.AcquireError
	switch {
	case errors.As(err, &acq):
		return acq.UserMessage()
	case errors.Is(err, ErrMissingAPIKey):
		return "Missing API Key. Please check your configuration."
	case errors.Is(err, ErrNoInternet):
		return "No internet connection. Please check your network."
	case errors.Is(err, ErrProcessingUnsupported):
		return "Audio playback is not supported on this system."
	}
	return err.Error()
}

// truncate shortens msg to maxErrorLength runes plus an ellipsis
func truncate(msg string) string {
	r := []rune(msg)
	if len(r) <= maxErrorLength {
		return msg
	}
	return string(r[:maxErrorLength]) + "..."
}
