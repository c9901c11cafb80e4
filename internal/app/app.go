// ABOUTME: Voice call application orchestration
// ABOUTME: Wires config, devices, transport, supervisor, metrics and UI together
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/voicelink-go/internal/capture"
	"github.com/Resonate-Protocol/voicelink-go/internal/config"
	"github.com/Resonate-Protocol/voicelink-go/internal/discovery"
	"github.com/Resonate-Protocol/voicelink-go/internal/gemini"
	"github.com/Resonate-Protocol/voicelink-go/internal/metrics"
	"github.com/Resonate-Protocol/voicelink-go/internal/recording"
	"github.com/Resonate-Protocol/voicelink-go/internal/session"
	"github.com/Resonate-Protocol/voicelink-go/internal/settings"
	"github.com/Resonate-Protocol/voicelink-go/internal/ui"
	"github.com/Resonate-Protocol/voicelink-go/internal/version"
	"github.com/Resonate-Protocol/voicelink-go/pkg/protocol"
	"github.com/Resonate-Protocol/voicelink-go/pkg/transport"
)

const (
	discoveryTimeout = 10 * time.Second
	hangUpTimeout    = 35 * time.Second
	shutdownTimeout  = 2 * time.Second
)

// App runs one voice call until the user hangs up or the process is signalled
type App struct {
	cfg    *config.Config
	useTUI bool

	metrics    *metrics.Metrics
	settings   *settings.Store
	watcher    *session.Watcher
	supervisor *session.Supervisor
	tuiProg    *tea.Program

	send      func(tea.Msg)
	closed    chan struct{}
	closeOnce sync.Once
}

// New builds the application. A missing API key is not an error here; the
// session surfaces it once it starts.
func New(ctx context.Context, cfg *config.Config, useTUI bool) (*App, error) {
	store, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load audio settings: %w", err)
	}

	a := &App{
		cfg:      cfg,
		useTUI:   useTUI,
		metrics:  metrics.New(),
		settings: store,
		watcher:  session.NewWatcher(cfg.ProbeAddr, session.DefaultProbeInterval),
		closed:   make(chan struct{}),
		send:     func(tea.Msg) {},
	}

	dialer, err := newDialer(ctx, cfg, findRelay)
	if err != nil {
		return nil, err
	}

	deps := session.Deps{
		Dialer:       dialer,
		Microphone:   capture.NewPortAudio(),
		Settings:     store,
		Metrics:      a.metrics,
		Recorder:     recording.NewMixer(nil),
		Connectivity: a.watcher,
	}
	if cfg.MemoryPath != "" {
		deps.Memory = session.NewFileMemory(cfg.MemoryPath)
	}
	if cfg.APIKey != "" {
		s, err := gemini.NewSummarizer(ctx, cfg.APIKey, cfg.SummaryModel)
		if err != nil {
			return nil, err
		}
		deps.Summarizer = summarizer{s}
	}

	sup, err := session.New(session.Config{
		Transport: transport.Config{
			Model:             cfg.Model,
			Voice:             cfg.Voice,
			SystemInstruction: cfg.SystemInstruction,
		},
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}, deps, a.hooks())
	if err != nil {
		return nil, err
	}
	a.supervisor = sup

	if useTUI {
		a.tuiProg = ui.Run(sup)
		a.send = a.tuiProg.Send
	}
	return a, nil
}

// newDialer picks the session transport: an explicit relay, a relay found
// over mDNS, or Gemini directly. It returns nil without an API key.
func newDialer(ctx context.Context, cfg *config.Config, find func(context.Context) (*discovery.RelayInfo, error)) (transport.Dialer, error) {
	relayAddr, secure := cfg.Relay, cfg.RelaySecure
	path := ""

	if relayAddr == "" && cfg.Discover {
		ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
		defer cancel()
		relay, err := find(ctx)
		if err != nil {
			return nil, fmt.Errorf("relay discovery failed: %w", err)
		}
		log.Info().Str("relay", relay.Name).Str("addr", relay.Addr()).Msg("discovered relay")
		relayAddr, secure, path = relay.Addr(), relay.Secure, relay.Path
	}

	if relayAddr != "" {
		return protocol.NewClient(protocol.Config{
			ServerAddr: relayAddr,
			Path:       path,
			Secure:     secure,
			ClientID:   uuid.New().String(),
			Name:       version.Product,
			DeviceInfo: protocol.DeviceInfo{
				ProductName:     version.Product,
				Manufacturer:    version.Manufacturer,
				SoftwareVersion: version.Version,
			},
		}), nil
	}

	d, err := gemini.NewDialer(ctx, cfg.APIKey)
	if errors.Is(err, gemini.ErrMissingAPIKey) {
		log.Warn().Msg("no API key configured")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func findRelay(ctx context.Context) (*discovery.RelayInfo, error) {
	return discovery.NewManager(discovery.Config{}).Find(ctx)
}

// hooks forwards session events to the UI, or to the log without one
func (a *App) hooks() session.Hooks {
	return session.Hooks{
		OnStatus: func(st session.Status) {
			if st.State == session.StateClosed {
				a.closeOnce.Do(func() { close(a.closed) })
			}
			if !a.useTUI {
				ev := log.Info().Str("state", st.State.String()).Int("retries", st.Retries)
				if st.Error != "" {
					ev = ev.Str("error", st.Error)
				}
				ev.Msg("session status")
			}
			a.send(ui.StatusMsg{Status: st})
		},
		OnTranscript: func(item session.Item) {
			log.Debug().Str("role", item.Role).Str("text", item.Text).Msg("transcript")
			a.send(ui.TranscriptMsg{Item: item})
		},
		OnRecording: func(artifact *recording.Artifact) {
			path, err := artifact.Save(a.cfg.RecordingsDir)
			if err != nil {
				log.Error().Err(err).Msg("failed to save recording")
				a.send(ui.NoticeMsg{Text: "Recording could not be saved"})
				return
			}
			log.Info().Str("path", path).Dur("duration", artifact.Duration).Msg("recording saved")
			a.send(ui.NoticeMsg{Text: "Saved " + path})
		},
		OnMemory: func(string) {
			a.send(ui.NoticeMsg{Text: "Memory updated"})
		},
	}
}

// Run drives the call. When ctx ends (a signal) the call is hung up
// gracefully so the conversation is summarized before exit.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error { return a.watcher.Run(gctx) })
	g.Go(func() error { return a.supervisor.Run(gctx) })
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error { return a.serveMetrics(gctx) })
	}

	uiDone := make(chan struct{})
	if a.tuiProg != nil {
		g.Go(func() error {
			defer close(uiDone)
			if _, err := a.tuiProg.Run(); err != nil {
				return fmt.Errorf("TUI failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received")
			a.hangUp(gctx)
		case <-uiDone:
			log.Info().Msg("TUI closed")
		case <-gctx.Done():
		}
		cancel()
		if a.tuiProg != nil {
			a.tuiProg.Quit()
		}
		return nil
	})

	err := g.Wait()
	log.Info().Msg("voicelink stopped")
	return err
}

// hangUp ends the call and waits for it to close
func (a *App) hangUp(ctx context.Context) {
	a.supervisor.End()
	select {
	case <-a.closed:
	case <-time.After(hangUpTimeout):
		log.Warn().Msg("timed out waiting for the call to close")
	case <-ctx.Done():
	}
}

func (a *App) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", a.cfg.MetricsAddr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

// summaryModel is the part of gemini.Summarizer the session needs
type summaryModel interface {
	Summarize(ctx context.Context, items []gemini.Item, memory string) (string, error)
}

// summarizer adapts a Gemini summarizer to session transcript items
type summarizer struct {
	model summaryModel
}

func (s summarizer) Summarize(ctx context.Context, items []session.Item, memory string) (string, error) {
	converted := make([]gemini.Item, len(items))
	for i, item := range items {
		converted[i] = gemini.Item(item)
	}
	return s.model.Summarize(ctx, converted, memory)
}
