// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the voice call UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/voicelink-go/internal/session"
)

// NewModel creates a new TUI model
func NewModel(ctrl Controller) Model {
	return Model{
		ctrl:   ctrl,
		status: session.Status{State: session.StateConnecting},
	}
}

// Run creates the TUI program; the caller starts it with Run
func Run(ctrl Controller) *tea.Program {
	return tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
}
