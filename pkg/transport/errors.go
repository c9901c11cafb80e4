// ABOUTME: Transport error classification
// ABOUTME: Decides which session failures are worth an automatic retry
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/gorilla/websocket"
)

var serverErrorPattern = regexp.MustCompile(`\b5\d\d\b`)

// transientPhrases mark network or server-side unavailability
var transientPhrases = []string{
	"unavailable",
	"aborted",
	"connection reset",
	"connection refused",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"unexpected eof",
}

// StatusError is a failure reported by the remote side with a status code
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// IsTransient reports whether err looks like network unavailability, a 5xx
// server failure or an aborted stream
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var status *StatusError
	if errors.As(err, &status) {
		if status.Code >= 500 && status.Code < 600 {
			return true
		}
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseInternalServerErr, websocket.CloseServiceRestart,
			websocket.CloseTryAgainLater, websocket.CloseAbnormalClosure:
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range transientPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return serverErrorPattern.MatchString(msg)
}
