// ABOUTME: Session supervisor with bounded-retry reconnection
// ABOUTME: Owns the call lifecycle and every audio component on a single event loop
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/voicelink-go/internal/capture"
	"github.com/Resonate-Protocol/voicelink-go/internal/metrics"
	"github.com/Resonate-Protocol/voicelink-go/internal/player"
	"github.com/Resonate-Protocol/voicelink-go/internal/recording"
	"github.com/Resonate-Protocol/voicelink-go/internal/settings"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/graph"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/level"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/output"
	"github.com/Resonate-Protocol/voicelink-go/pkg/transport"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second

	defaultSummaryTimeout = 30 * time.Second
	eventQueueDepth       = 64
)

// ErrStopped is returned by calls made after Run has returned
var ErrStopped = errors.New("session supervisor stopped")

// Summarizer condenses a finished conversation into updated memory
type Summarizer interface {
	Summarize(ctx context.Context, items []Item, memory string) (string, error)
}

// Config holds supervisor settings
type Config struct {
	Transport      transport.Config
	MaxRetries     int
	RetryDelay     time.Duration
	SummaryTimeout time.Duration
}

// Deps are the collaborators the supervisor drives. Dialer may be nil when
// no API key is configured; every session then fails with ErrMissingAPIKey.
type Deps struct {
	Dialer       transport.Dialer
	Microphone   capture.Device
	NewOutput    func() output.Output
	Settings     *settings.Store
	Metrics      *metrics.Metrics
	Recorder     *recording.Mixer
	Summarizer   Summarizer
	Memory       Memory
	Connectivity Connectivity
	After        func(time.Duration) <-chan time.Time
}

// Hooks receive notifications on the event loop goroutine. They must not
// call back into the supervisor synchronously.
type Hooks struct {
	OnStatus     func(Status)
	OnTranscript func(Item)
	OnScheduled  func(player.Scheduled)
	OnRecording  func(*recording.Artifact)
	OnMemory     func(string)
}

// Supervisor runs one logical call. All lifecycle state lives on the
// goroutine executing Run; the exported methods post work to it.
type Supervisor struct {
	cfg   Config
	deps  Deps
	hooks Hooks

	ctx    context.Context
	events chan func()
	done   chan struct{}
	status atomic.Pointer[Status]
	muted  atomic.Bool

	// event loop only
	state       State
	errMsg      string
	retries     int
	gen         uint64
	pipe        *pipeline
	openPending bool
	chunkSeq    uint64
	transcript  transcript
}

// New creates a supervisor. Call Run to start the first session.
func New(cfg Config, deps Deps, hooks Hooks) (*Supervisor, error) {
	if deps.Microphone == nil {
		return nil, errors.New("microphone device is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = defaultSummaryTimeout
	}
	if deps.NewOutput == nil {
		deps.NewOutput = func() output.Output { return output.NewOto() }
	}
	if deps.Settings == nil {
		store, err := settings.Load("")
		if err != nil {
			return nil, err
		}
		deps.Settings = store
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewDiscard()
	}
	if deps.Recorder == nil {
		deps.Recorder = recording.NewMixer(nil)
	}
	if deps.After == nil {
		deps.After = time.After
	}

	s := &Supervisor{
		cfg:    cfg,
		deps:   deps,
		hooks:  hooks,
		ctx:    context.Background(),
		events: make(chan func(), eventQueueDepth),
		done:   make(chan struct{}),
	}
	s.status.Store(&Status{State: StateConnecting, Settings: deps.Settings.Snapshot()})
	return s, nil
}

// Run initializes the first session and processes events until ctx is
// cancelled, then releases everything
func (s *Supervisor) Run(ctx context.Context) error {
	s.ctx = ctx
	defer close(s.done)

	unsubscribe := s.deps.Settings.Subscribe(func(settings.Settings) {
		s.post(s.applySettings)
	})
	defer unsubscribe()

	if s.deps.Connectivity != nil {
		unwatch := s.deps.Connectivity.Subscribe(func() { s.post(s.restored) })
		defer unwatch()
	}

	s.initialize()
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-ctx.Done():
			s.teardown()
			if s.state != StateClosed {
				s.setState(StateClosed)
			}
			log.Info().Msg("session supervisor stopped")
			return nil
		}
	}
}

// Status returns the latest published status
func (s *Supervisor) Status() Status {
	return *s.status.Load()
}

// post queues fn on the event loop
func (s *Supervisor) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

// dispatch is post for the render goroutine, which must never wait on the
// event loop
func (s *Supervisor) dispatch(fn func()) {
	wrapped := func() {
		fn()
		s.publish()
	}
	select {
	case s.events <- wrapped:
	default:
		go s.post(wrapped)
	}
}

// call runs fn on the event loop and waits for its result
func (s *Supervisor) call(fn func() error) error {
	reply := make(chan error, 1)
	s.post(func() { reply <- fn() })
	select {
	case err := <-reply:
		return err
	case <-s.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrStopped
		}
	}
}

func (s *Supervisor) setState(st State) {
	if s.state != st {
		log.Info().Str("from", s.state.String()).Str("to", st.String()).Msg("session state changed")
	}
	s.state = st
	s.deps.Metrics.SetState(st.String(), stateNames)
	s.publish()
}

func (s *Supervisor) publish() {
	st := Status{
		State:     s.state,
		Error:     s.errMsg,
		Retries:   s.retries,
		Muted:     s.muted.Load(),
		Recording: s.deps.Recorder.Recording(),
		Settings:  s.deps.Settings.Snapshot(),
	}
	if s.pipe != nil && s.pipe.scheduler != nil {
		st.Active = s.pipe.scheduler.Active()
	}
	s.deps.Metrics.ActiveSources.Set(float64(st.Active))
	s.status.Store(&st)
	if s.hooks.OnStatus != nil {
		s.hooks.OnStatus(st)
	}
}

// initialize tears down whatever exists and starts a fresh connection
// attempt
func (s *Supervisor) initialize() {
	s.teardown()
	gen := s.gen
	s.errMsg = ""
	s.setState(StateConnecting)

	if s.deps.Dialer == nil {
		s.fail(ErrMissingAPIKey, false)
		return
	}
	if s.deps.Connectivity != nil {
		conn, ctx := s.deps.Connectivity, s.ctx
		go func() {
			online := conn.Online(ctx)
			s.post(func() { s.probed(gen, online) })
		}()
		return
	}
	s.connect(gen)
}

// probed continues an attempt once the connectivity probe answers
func (s *Supervisor) probed(gen uint64, online bool) {
	if gen != s.gen || s.state != StateConnecting {
		return
	}
	if !online {
		s.fail(ErrNoInternet, false)
		return
	}
	s.connect(gen)
}

// connect acquires the devices and dials the transport
func (s *Supervisor) connect(gen uint64) {
	p, err := s.buildPipeline()
	if err != nil {
		s.fail(err, false)
		return
	}
	s.pipe = p

	cfg := s.cfg.Transport
	cfg.SystemInstruction = withMemory(cfg.SystemInstruction, s.loadMemory())
	handler := s.handler(gen)
	ctx := s.ctx
	go func() {
		sess, err := s.deps.Dialer.Open(ctx, cfg, handler)
		s.post(func() { s.dialed(gen, sess, err) })
	}()
}

// buildPipeline acquires the playback device first, then the microphone
func (s *Supervisor) buildPipeline() (*pipeline, error) {
	st := s.deps.Settings.Snapshot()
	g := graph.New(graph.Config{
		SampleRate: audio.PlaybackSampleRate,
		Volume:     st.Volume,
		Enhancer:   st.Enhancer,
	})
	p := &pipeline{graph: g, recorder: s.deps.Recorder}

	out := s.deps.NewOutput()
	if err := out.Open(audio.PlaybackSampleRate, 1, g); err != nil {
		p.release()
		return nil, fmt.Errorf("%w: %v", ErrProcessingUnsupported, err)
	}
	p.output = out

	p.scheduler = player.NewScheduler(player.GraphOutput(g), s.dispatch)
	p.scheduler.SetPlaybackRate(st.Speed)

	dec, err := decode.NewPCM(audio.PlaybackFormat)
	if err != nil {
		p.release()
		return nil, err
	}
	p.decoder = dec

	enc, err := capture.NewEncoder(p, s.deps.Metrics)
	if err != nil {
		p.release()
		return nil, err
	}
	enc.SetMuted(s.muted.Load())
	p.encoder = enc

	stream, err := s.deps.Microphone.Open(audio.CaptureSampleRate, audio.CaptureFrameSize, p.onFrame)
	if err != nil {
		p.release()
		return nil, capture.Classify(err)
	}
	p.stream = stream
	return p, nil
}

// handler tags transport callbacks with the attempt they belong to so that
// events from a replaced session are ignored
func (s *Supervisor) handler(gen uint64) transport.Handler {
	return transport.Handler{
		OnOpen:    func() { s.post(func() { s.opened(gen) }) },
		OnMessage: func(m transport.Message) { s.post(func() { s.received(gen, m) }) },
		OnError:   func(err error) { s.post(func() { s.transportFailed(gen, err) }) },
		OnClose:   func() { s.post(func() { s.transportClosed(gen) }) },
	}
}

func (s *Supervisor) dialed(gen uint64, sess transport.Session, err error) {
	if gen != s.gen || s.pipe == nil {
		if sess != nil {
			sess.Close()
		}
		return
	}
	if err != nil {
		s.transportFailed(gen, err)
		return
	}
	s.pipe.setSession(sess)
	if s.openPending {
		s.openPending = false
		s.opened(gen)
	}
}

func (s *Supervisor) opened(gen uint64) {
	if gen != s.gen || s.state != StateConnecting || s.pipe == nil {
		return
	}
	if !s.pipe.hasSession() {
		s.openPending = true
		return
	}

	s.retries = 0
	if err := s.pipe.startStreaming(); err != nil {
		s.fail(err, false)
		return
	}
	s.setState(StateActive)
}

func (s *Supervisor) received(gen uint64, m transport.Message) {
	if gen != s.gen || s.pipe == nil {
		return
	}

	if m.Interrupted {
		s.pipe.scheduler.Interrupt()
		s.deps.Metrics.Interruptions.Inc()
	}
	if m.Audio != nil {
		s.play(m.Audio)
	}
	if m.InputTranscript != "" {
		s.transcript.addInput(m.InputTranscript)
	}
	if m.OutputTranscript != "" {
		s.transcript.addOutput(m.OutputTranscript)
	}
	if m.TurnComplete {
		s.deps.Metrics.TurnsCompleted.Inc()
		for _, item := range s.transcript.flush() {
			if s.hooks.OnTranscript != nil {
				s.hooks.OnTranscript(item)
			}
		}
	}
	s.publish()
}

// play decodes, levels and schedules one inbound chunk. A bad chunk is
// dropped on its own.
func (s *Supervisor) play(a *transport.Audio) {
	s.deps.Metrics.ChunksReceived.Inc()
	s.chunkSeq++

	buf, err := s.pipe.decoder.DecodeBytes(s.chunkSeq, a.Data)
	if err != nil {
		s.deps.Metrics.ChunksDropped.Inc()
		log.Warn().Err(err).Uint64("seq", s.chunkSeq).Msg("dropping undecodable audio chunk")
		return
	}
	if s.deps.Settings.Snapshot().AutoLevel {
		level.Normalize(buf)
	}

	now := s.pipe.graph.CurrentTime()
	scheduled := s.pipe.scheduler.Schedule(buf)
	s.deps.Metrics.BuffersScheduled.Inc()
	s.deps.Metrics.ScheduleLead.Observe(scheduled.Start - now)
	if s.hooks.OnScheduled != nil {
		s.hooks.OnScheduled(scheduled)
	}
}

// transportFailed retries transient failures within the budget and turns
// everything else into the error state
func (s *Supervisor) transportFailed(gen uint64, err error) {
	if gen != s.gen {
		return
	}

	if transport.IsTransient(err) && s.retries < s.cfg.MaxRetries {
		s.retries++
		s.deps.Metrics.Reconnects.Inc()
		log.Warn().Err(err).Int("attempt", s.retries).Dur("delay", s.cfg.RetryDelay).Msg("transient transport error, reconnecting")

		s.teardown()
		s.setState(StateConnecting)
		retryGen := s.gen
		timer := s.deps.After(s.cfg.RetryDelay)
		go func() {
			select {
			case <-timer:
				s.post(func() {
					if retryGen == s.gen && s.state == StateConnecting {
						s.initialize()
					}
				})
			case <-s.done:
			}
		}()
		return
	}

	s.fail(err, true)
}

// transportClosed ends an active call. Closes seen while connecting,
// failed or summarizing are ignored.
func (s *Supervisor) transportClosed(gen uint64) {
	if gen != s.gen {
		return
	}
	if s.state != StateActive {
		log.Debug().Str("state", s.state.String()).Msg("ignoring transport close")
		return
	}
	s.teardown()
	s.setState(StateClosed)
}

// fail releases every device and enters the error state
func (s *Supervisor) fail(err error, fromTransport bool) {
	msg := userMessage(err)
	if fromTransport {
		msg = truncate(msg)
	}
	log.Error().Err(err).Msg("session failed")
	s.deps.Metrics.FatalErrors.Inc()

	s.teardown()
	s.errMsg = msg
	s.setState(StateError)
}

func (s *Supervisor) restored() {
	if s.state != StateError {
		return
	}
	log.Info().Msg("connectivity restored, reconnecting")
	s.initialize()
}

// teardown invalidates the current attempt, finishes any recording and
// releases the pipeline. Safe to call in any state.
func (s *Supervisor) teardown() {
	s.gen++
	s.openPending = false
	if s.deps.Recorder.Recording() {
		if _, err := s.stopRecording(); err != nil {
			log.Warn().Err(err).Msg("failed to finish recording")
		}
	}
	if s.pipe != nil {
		s.pipe.release()
		s.pipe = nil
	}
}

// applySettings pushes the store's latest values into the graph. Change
// events may arrive out of order, so the event payload is not used.
func (s *Supervisor) applySettings() {
	st := s.deps.Settings.Snapshot()
	if s.pipe != nil {
		s.pipe.graph.SetVolume(st.Volume)
		s.pipe.graph.SetEnhancer(st.Enhancer)
		s.pipe.scheduler.SetPlaybackRate(st.Speed)
	}
	s.publish()
}

func (s *Supervisor) loadMemory() string {
	if s.deps.Memory == nil {
		return ""
	}
	text, err := s.deps.Memory.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load memory")
		return ""
	}
	return text
}

// End finishes the call. An active call is summarized into memory first;
// the call reaches closed whatever the summary outcome.
func (s *Supervisor) End() {
	s.post(s.end)
}

func (s *Supervisor) end() {
	switch s.state {
	case StateClosed, StateSummarizing:
		return
	case StateActive:
	default:
		s.teardown()
		s.setState(StateClosed)
		return
	}

	s.teardown()
	items := s.transcript.history()
	if len(items) < 2 || s.deps.Memory == nil || s.deps.Summarizer == nil {
		s.setState(StateClosed)
		return
	}

	s.setState(StateSummarizing)
	go func() {
		updated, ok := s.summarize(items)
		s.post(func() {
			if ok && s.hooks.OnMemory != nil {
				s.hooks.OnMemory(updated)
			}
			if s.state == StateSummarizing {
				s.setState(StateClosed)
			}
		})
	}()
}

// summarize runs off the event loop and reports whether memory was saved
func (s *Supervisor) summarize(items []Item) (string, bool) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SummaryTimeout)
	defer cancel()

	prior := s.loadMemory()
	updated, err := s.deps.Summarizer.Summarize(ctx, items, prior)
	if err != nil {
		s.deps.Metrics.Summaries.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("summarization failed")
		return "", false
	}
	if updated == "" {
		updated = prior
	}
	if err := s.deps.Memory.Save(updated); err != nil {
		s.deps.Metrics.Summaries.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("failed to save memory")
		return "", false
	}
	s.deps.Metrics.Summaries.WithLabelValues("ok").Inc()
	return updated, true
}

// Retry starts over from the error state with a fresh retry budget
func (s *Supervisor) Retry() {
	s.post(func() {
		if s.state != StateError {
			return
		}
		s.retries = 0
		s.initialize()
	})
}

// SetMuted stops or resumes sending microphone audio
func (s *Supervisor) SetMuted(muted bool) {
	s.muted.Store(muted)
	s.post(func() {
		if s.pipe != nil && s.pipe.encoder != nil {
			s.pipe.encoder.SetMuted(muted)
		}
		s.publish()
	})
}

// SetVolume changes and persists the output gain
func (s *Supervisor) SetVolume(volume float64) error {
	_, err := s.deps.Settings.SetVolume(volume)
	return err
}

// SetSpeed changes and persists the playback rate
func (s *Supervisor) SetSpeed(speed float64) error {
	_, err := s.deps.Settings.SetSpeed(speed)
	return err
}

// SetEnhancer toggles voice enhancement
func (s *Supervisor) SetEnhancer(on bool) error {
	_, err := s.deps.Settings.SetEnhancer(on)
	return err
}

// SetAutoLevel toggles per-chunk loudness normalization
func (s *Supervisor) SetAutoLevel(on bool) error {
	_, err := s.deps.Settings.SetAutoLevel(on)
	return err
}

// Spectrum returns the current analyser bins, or nil without playback
func (s *Supervisor) Spectrum() []byte {
	var bins []byte
	s.call(func() error {
		if s.pipe != nil && s.pipe.graph != nil {
			bins = s.pipe.graph.Analyser().ByteFrequencyData()
		}
		return nil
	})
	return bins
}

// StartRecording taps the microphone and the synthesized voice
func (s *Supervisor) StartRecording() error {
	return s.call(func() error {
		hasInput := s.pipe != nil && s.pipe.stream != nil
		if err := s.deps.Recorder.Start(hasInput); err != nil {
			return err
		}
		s.pipe.graph.SetTap(s.deps.Recorder.WriteVoice)
		s.publish()
		return nil
	})
}

// StopRecording finishes the recording and returns its artifact
func (s *Supervisor) StopRecording() (*recording.Artifact, error) {
	var artifact *recording.Artifact
	err := s.call(func() error {
		var err error
		artifact, err = s.stopRecording()
		return err
	})
	return artifact, err
}

func (s *Supervisor) stopRecording() (*recording.Artifact, error) {
	if s.pipe != nil && s.pipe.graph != nil {
		s.pipe.graph.SetTap(nil)
	}
	artifact, err := s.deps.Recorder.Stop()
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.Recordings.Inc()
	s.deps.Metrics.RecordingSeconds.Observe(artifact.Duration.Seconds())
	if s.hooks.OnRecording != nil {
		s.hooks.OnRecording(artifact)
	}
	s.publish()
	return artifact, nil
}
