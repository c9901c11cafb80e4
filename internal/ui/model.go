// ABOUTME: Bubbletea model for the voice call TUI
// ABOUTME: Shows call state, audio settings, spectrum and transcript; maps keys to controls
package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/voicelink-go/internal/recording"
	"github.com/Resonate-Protocol/voicelink-go/internal/session"
)

const (
	innerWidth     = 52
	transcriptRows = 6
	spectrumTick   = 100 * time.Millisecond

	volumeStep = 0.5
	speedStep  = 0.1
	maxVolume  = 10
	minSpeed   = 0.5
	maxSpeed   = 2.0
)

// Controller is the call surface the TUI drives
type Controller interface {
	SetVolume(volume float64) error
	SetSpeed(speed float64) error
	SetEnhancer(on bool) error
	SetAutoLevel(on bool) error
	SetMuted(muted bool)
	StartRecording() error
	StopRecording() (*recording.Artifact, error)
	Spectrum() []byte
	Retry()
	End()
}

// StatusMsg carries a new session status
type StatusMsg struct {
	Status session.Status
}

// TranscriptMsg carries one finished utterance
type TranscriptMsg struct {
	Item session.Item
}

// NoticeMsg shows a one-line message under the status
type NoticeMsg struct {
	Text string
}

type spectrumMsg struct {
	bins []byte
}

// Model represents the TUI state
type Model struct {
	ctrl Controller

	status     session.Status
	transcript []session.Item
	spectrum   []byte
	notice     string

	quitting  bool
	showDebug bool

	width  int
	height int
}

// Init starts the spectrum refresh
func (m Model) Init() tea.Cmd {
	return m.tickSpectrum()
}

func (m Model) tickSpectrum() tea.Cmd {
	ctrl := m.ctrl
	return tea.Tick(spectrumTick, func(time.Time) tea.Msg {
		if ctrl == nil {
			return spectrumMsg{}
		}
		return spectrumMsg{bins: ctrl.Spectrum()}
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = msg.Status
		if m.quitting && m.status.State == session.StateClosed {
			return m, tea.Quit
		}
	case TranscriptMsg:
		m.transcript = append(m.transcript, msg.Item)
		if len(m.transcript) > transcriptRows {
			m.transcript = m.transcript[len(m.transcript)-transcriptRows:]
		}
	case NoticeMsg:
		m.notice = msg.Text
	case spectrumMsg:
		m.spectrum = msg.bins
		return m, m.tickSpectrum()
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderControls())
	b.WriteString(m.renderSpectrum())
	b.WriteString(m.renderTranscript())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func line(text string) string {
	return fmt.Sprintf("│ %-*s │\n", innerWidth, truncate(text, innerWidth))
}

func divider() string {
	return "├" + strings.Repeat("─", innerWidth+2) + "┤\n"
}

// renderHeader renders call state and any error or notice
func (m Model) renderHeader() string {
	title := "─ Voicelink "
	s := "┌" + title + strings.Repeat("─", innerWidth+2-len([]rune(title))) + "┐\n"

	state := stateLabel(m.status.State)
	if m.status.State == session.StateConnecting && m.status.Retries > 0 {
		state += fmt.Sprintf(" (retry %d)", m.status.Retries)
	}
	s += line("Status: " + state)
	if m.status.State == session.StateError && m.status.Error != "" {
		s += line("Error:  " + m.status.Error)
	}
	if m.notice != "" {
		s += line(m.notice)
	}
	return s + divider()
}

func stateLabel(st session.State) string {
	switch st {
	case session.StateConnecting:
		return "Establishing link..."
	case session.StateActive:
		return "Live"
	case session.StateError:
		return "Error"
	case session.StateSummarizing:
		return "Synchronizing memory..."
	case session.StateClosed:
		return "Call ended"
	}
	return st.String()
}

// renderControls renders audio settings and capture state
func (m Model) renderControls() string {
	st := m.status.Settings
	mic := "live"
	if m.status.Muted {
		mic = "muted"
	}
	rec := ""
	if m.status.Recording {
		rec = "  ● REC"
	}

	s := line(fmt.Sprintf("Volume: [%s] %.1f", renderBar(st.Volume, maxVolume, 10), st.Volume))
	s += line(fmt.Sprintf("Speed:  %.1fx   Enhancer: %s   Auto-level: %s", st.Speed, onOff(st.Enhancer), onOff(st.AutoLevel)))
	s += line(fmt.Sprintf("Mic:    %s%s", mic, rec))
	return s
}

// renderSpectrum draws the analyser output as one row of block glyphs
func (m Model) renderSpectrum() string {
	return line(sparkline(m.spectrum, innerWidth)) + divider()
}

// renderTranscript renders the latest utterances
func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return line("(say something)")
	}
	var s string
	for _, item := range m.transcript {
		who := "You"
		if item.Role == session.RoleModel {
			who = "AI "
		}
		s += line(who + ": " + item.Text)
	}
	return s
}

// renderDebug renders internal counters
func (m Model) renderDebug() string {
	return divider() +
		line(fmt.Sprintf("DEBUG: state=%s retries=%d active=%d", m.status.State, m.status.Retries, m.status.Active)) +
		line(fmt.Sprintf("       spectrum bins=%d", len(m.spectrum)))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return divider() +
		line("↑/↓:Volume ←/→:Speed e:Enhance a:Level m:Mute") +
		line("c:Record r:Reconnect d:Debug q:End call") +
		"└" + strings.Repeat("─", innerWidth+2) + "┘\n"
}

// handleKey maps keys to controller calls. Calls that wait on the session
// run as commands so the UI never blocks.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.status.Settings

	switch msg.String() {
	case "ctrl+c":
		if m.ctrl != nil {
			m.ctrl.End()
		}
		return m, tea.Quit
	case "q":
		if m.ctrl == nil || m.status.State != session.StateActive {
			if m.ctrl != nil {
				m.ctrl.End()
			}
			return m, tea.Quit
		}
		m.quitting = true
		m.ctrl.End()
		return m, nil
	case "up":
		return m, m.apply(func(c Controller) error { return c.SetVolume(clamp(st.Volume+volumeStep, 0, maxVolume)) })
	case "down":
		return m, m.apply(func(c Controller) error { return c.SetVolume(clamp(st.Volume-volumeStep, 0, maxVolume)) })
	case "right":
		return m, m.apply(func(c Controller) error { return c.SetSpeed(clamp(roundTenth(st.Speed+speedStep), minSpeed, maxSpeed)) })
	case "left":
		return m, m.apply(func(c Controller) error { return c.SetSpeed(clamp(roundTenth(st.Speed-speedStep), minSpeed, maxSpeed)) })
	case "e":
		return m, m.apply(func(c Controller) error { return c.SetEnhancer(!st.Enhancer) })
	case "a":
		return m, m.apply(func(c Controller) error { return c.SetAutoLevel(!st.AutoLevel) })
	case "m":
		muted := !m.status.Muted
		m.status.Muted = muted
		return m, m.apply(func(c Controller) error { c.SetMuted(muted); return nil })
	case "c":
		if m.status.Recording {
			return m, m.apply(func(c Controller) error {
				_, err := c.StopRecording()
				return err
			})
		}
		return m, m.apply(func(c Controller) error { return c.StartRecording() })
	case "r":
		if m.status.State == session.StateError {
			m.notice = ""
			return m, m.apply(func(c Controller) error { c.Retry(); return nil })
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// apply runs fn against the controller off the UI goroutine and reports
// a failure as a notice
func (m Model) apply(fn func(Controller) error) tea.Cmd {
	ctrl := m.ctrl
	if ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		if err := fn(ctrl); err != nil {
			return NoticeMsg{Text: err.Error()}
		}
		return nil
	}
}

// Utility functions
func renderBar(value, max float64, width int) string {
	filled := int(math.Round(value / max * float64(width)))
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			b.WriteString("█")
		} else {
			b.WriteString("░")
		}
	}
	return b.String()
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// sparkline folds bins into width columns using each column's peak
func sparkline(bins []byte, width int) string {
	if len(bins) == 0 {
		return strings.Repeat(" ", width)
	}
	out := make([]rune, width)
	for col := 0; col < width; col++ {
		lo := col * len(bins) / width
		hi := (col + 1) * len(bins) / width
		if hi <= lo {
			hi = lo + 1
		}
		var peak byte
		for _, v := range bins[lo:min(hi, len(bins))] {
			peak = max(peak, v)
		}
		out[col] = sparks[int(peak)*(len(sparks)-1)/255]
	}
	return string(out)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
