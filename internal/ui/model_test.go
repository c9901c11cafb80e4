// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling, and rendering
package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/voicelink-go/internal/recording"
	"github.com/Resonate-Protocol/voicelink-go/internal/session"
	"github.com/Resonate-Protocol/voicelink-go/internal/settings"
)

type fakeController struct {
	volume    float64
	speed     float64
	enhancer  *bool
	autoLevel *bool
	muted     *bool
	started   int
	stopped   int
	retried   int
	ended     int
	err       error
}

func (f *fakeController) SetVolume(v float64) error { f.volume = v; return f.err }
func (f *fakeController) SetSpeed(v float64) error  { f.speed = v; return f.err }
func (f *fakeController) SetEnhancer(on bool) error { f.enhancer = &on; return f.err }
func (f *fakeController) SetAutoLevel(on bool) error {
	f.autoLevel = &on
	return f.err
}
func (f *fakeController) SetMuted(m bool)       { f.muted = &m }
func (f *fakeController) StartRecording() error { f.started++; return f.err }
func (f *fakeController) StopRecording() (*recording.Artifact, error) {
	f.stopped++
	return nil, f.err
}
func (f *fakeController) Spectrum() []byte { return []byte{0, 255} }
func (f *fakeController) Retry()           { f.retried++ }
func (f *fakeController) End()             { f.ended++ }

func activeModel(ctrl Controller) Model {
	m := NewModel(ctrl)
	m.width = 80
	m.status = session.Status{State: session.StateActive, Settings: settings.Default()}
	return m
}

func press(t *testing.T, m Model, key string) (Model, tea.Msg) {
	t.Helper()
	var km tea.KeyMsg
	switch key {
	case "up":
		km = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		km = tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		km = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		km = tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		km = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		km = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(km)
	var msg tea.Msg
	if cmd != nil {
		msg = cmd()
	}
	return next.(Model), msg
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)

	if model.status.State != session.StateConnecting {
		t.Errorf("expected initial state connecting, got %s", model.status.State)
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
	if model.View() != "Loading..." {
		t.Error("expected loading view before the first window size")
	}
}

func TestStatusMsg(t *testing.T) {
	model := activeModel(nil)

	next, _ := model.Update(StatusMsg{Status: session.Status{
		State: session.StateError,
		Error: "Microphone is being used by another app.",
	}})
	model = next.(Model)

	if model.status.State != session.StateError {
		t.Errorf("expected error state, got %s", model.status.State)
	}
	view := model.View()
	if !strings.Contains(view, "Microphone is being used") {
		t.Errorf("expected error in view, got:\n%s", view)
	}
}

func TestTranscriptKeepsLatestRows(t *testing.T) {
	model := activeModel(nil)

	for i := 0; i < transcriptRows+3; i++ {
		next, _ := model.Update(TranscriptMsg{Item: session.Item{Role: session.RoleUser, Text: "hello"}})
		model = next.(Model)
	}
	next, _ := model.Update(TranscriptMsg{Item: session.Item{Role: session.RoleModel, Text: "hi there"}})
	model = next.(Model)

	if len(model.transcript) != transcriptRows {
		t.Errorf("expected %d rows, got %d", transcriptRows, len(model.transcript))
	}
	if !strings.Contains(model.View(), "AI : hi there") {
		t.Error("expected latest model reply in view")
	}
}

func TestVolumeKeys(t *testing.T) {
	ctrl := &fakeController{}
	model := activeModel(ctrl)
	model.status.Settings.Volume = 9.8

	press(t, model, "up")
	if ctrl.volume != maxVolume {
		t.Errorf("expected volume clamped to %v, got %v", float64(maxVolume), ctrl.volume)
	}

	model.status.Settings.Volume = 3.5
	press(t, model, "down")
	if ctrl.volume != 3.0 {
		t.Errorf("expected volume 3.0, got %v", ctrl.volume)
	}
}

func TestSpeedKeys(t *testing.T) {
	ctrl := &fakeController{}
	model := activeModel(ctrl)

	press(t, model, "right")
	if ctrl.speed != 1.1 {
		t.Errorf("expected speed 1.1, got %v", ctrl.speed)
	}

	model.status.Settings.Speed = minSpeed
	press(t, model, "left")
	if ctrl.speed != minSpeed {
		t.Errorf("expected speed clamped to %v, got %v", minSpeed, ctrl.speed)
	}
}

func TestToggleKeys(t *testing.T) {
	ctrl := &fakeController{}
	model := activeModel(ctrl)

	press(t, model, "e")
	if ctrl.enhancer == nil || *ctrl.enhancer {
		t.Error("expected enhancer to be switched off")
	}
	press(t, model, "a")
	if ctrl.autoLevel == nil || *ctrl.autoLevel {
		t.Error("expected auto-level to be switched off")
	}

	model, _ = press(t, model, "m")
	if ctrl.muted == nil || !*ctrl.muted {
		t.Error("expected mute")
	}
	if !model.status.Muted {
		t.Error("expected model to show muted")
	}
}

func TestRecordKey(t *testing.T) {
	ctrl := &fakeController{}
	model := activeModel(ctrl)

	press(t, model, "c")
	if ctrl.started != 1 {
		t.Errorf("expected recording start, got %d", ctrl.started)
	}

	model.status.Recording = true
	press(t, model, "c")
	if ctrl.stopped != 1 {
		t.Errorf("expected recording stop, got %d", ctrl.stopped)
	}
}

func TestControlErrorBecomesNotice(t *testing.T) {
	ctrl := &fakeController{err: errors.New("no microphone stream")}
	model := activeModel(ctrl)

	_, msg := press(t, model, "c")
	notice, ok := msg.(NoticeMsg)
	if !ok {
		t.Fatalf("expected NoticeMsg, got %T", msg)
	}

	next, _ := model.Update(notice)
	if !strings.Contains(next.(Model).View(), "no microphone stream") {
		t.Error("expected notice in view")
	}
}

func TestRetryOnlyInErrorState(t *testing.T) {
	ctrl := &fakeController{}
	model := activeModel(ctrl)

	press(t, model, "r")
	if ctrl.retried != 0 {
		t.Error("expected no retry while active")
	}

	model.status.State = session.StateError
	press(t, model, "r")
	if ctrl.retried != 1 {
		t.Errorf("expected one retry, got %d", ctrl.retried)
	}
}

func TestQuitWaitsForClose(t *testing.T) {
	ctrl := &fakeController{}
	model := activeModel(ctrl)

	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	model = next.(Model)
	if ctrl.ended != 1 {
		t.Errorf("expected End, got %d", ctrl.ended)
	}
	if cmd != nil {
		t.Error("expected to wait for the session to close")
	}

	_, cmd = model.Update(StatusMsg{Status: session.Status{State: session.StateSummarizing}})
	if cmd != nil {
		t.Error("expected no quit while summarizing")
	}

	_, cmd = model.Update(StatusMsg{Status: session.Status{State: session.StateClosed}})
	if cmd == nil {
		t.Fatal("expected quit command once closed")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestQuitImmediatelyWhenNotActive(t *testing.T) {
	ctrl := &fakeController{}
	model := activeModel(ctrl)
	model.status.State = session.StateError

	_, msg := press(t, model, "q")
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", msg)
	}
}

func TestDebugToggle(t *testing.T) {
	model := activeModel(nil)

	model, _ = press(t, model, "d")
	if !model.showDebug {
		t.Error("expected debug on")
	}
	if !strings.Contains(model.View(), "DEBUG") {
		t.Error("expected debug row in view")
	}
}

func TestSpectrumTick(t *testing.T) {
	model := activeModel(&fakeController{})

	next, cmd := model.Update(spectrumMsg{bins: []byte{10, 20}})
	if cmd == nil {
		t.Error("expected next tick to be scheduled")
	}
	if got := next.(Model).spectrum; len(got) != 2 {
		t.Errorf("expected 2 bins, got %d", len(got))
	}
}

func TestSparkline(t *testing.T) {
	if got := sparkline(nil, 4); got != "    " {
		t.Errorf("expected blank line, got %q", got)
	}
	if got := sparkline([]byte{0, 255}, 2); got != "▁█" {
		t.Errorf("expected ▁█, got %q", got)
	}
	if got := []rune(sparkline(make([]byte, 128), innerWidth)); len(got) != innerWidth {
		t.Errorf("expected %d columns, got %d", innerWidth, len(got))
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(5, 10, 10); got != "█████░░░░░" {
		t.Errorf("unexpected bar %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("a much longer line", 10); got != "a much ..." {
		t.Errorf("expected truncation, got %q", got)
	}
}
