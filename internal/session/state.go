// ABOUTME: Session lifecycle states and status snapshots
// ABOUTME: Shared by the supervisor, the TUI and metrics
package session

import "github.com/Resonate-Protocol/voicelink-go/internal/settings"

// State is the lifecycle state of a call
type State int

const (
	StateConnecting State = iota
	StateActive
	StateError
	StateClosed
	StateSummarizing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	case StateSummarizing:
		return "summarizing"
	default:
		return "unknown"
	}
}

// stateNames lists every state label for the state gauge
var stateNames = []string{
	StateConnecting.String(),
	StateActive.String(),
	StateError.String(),
	StateClosed.String(),
	StateSummarizing.String(),
}

// Status is a point-in-time view of the session
type Status struct {
	State     State
	Error     string // user-facing message while in StateError
	Retries   int
	Muted     bool
	Recording bool
	Active    int // buffers scheduled or playing
	Settings  settings.Settings
}
