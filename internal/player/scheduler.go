// ABOUTME: Gapless playback scheduler
// ABOUTME: Places decoded buffers back to back on the output timeline and cancels them on barge-in
package player

import (
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/graph"
)

// Voice is a started buffer
type Voice interface {
	Stop()
	SetPlaybackRate(rate float64)
}

// Output is the timeline buffers are started on
type Output interface {
	// CurrentTime returns the playback clock in seconds
	CurrentTime() float64
	// Start plays buf at time at; onEnded fires after natural completion
	Start(buf *audio.Buffer, at, rate float64, onEnded func()) Voice
}

// Scheduled describes where a buffer landed on the timeline
type Scheduled struct {
	ID       uint64
	Seq      uint64
	Start    float64
	Duration float64
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Scheduled   int64
	Completed   int64
	Interrupted int64
}

// Scheduler owns the playback cursor and the active source set. It is not
// safe for concurrent use: every method, including completions delivered
// through dispatch, must run on the same goroutine.
type Scheduler struct {
	out      Output
	dispatch func(func())
	cursor   float64
	rate     float64
	nextID   uint64
	active   map[uint64]Voice

	stats SchedulerStats
}

// NewScheduler creates a scheduler. dispatch hands completion callbacks back
// to the goroutine that owns the scheduler; nil runs them in place.
func NewScheduler(out Output, dispatch func(func())) *Scheduler {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Scheduler{
		out:      out,
		dispatch: dispatch,
		rate:     1,
		active:   make(map[uint64]Voice),
	}
}

// Schedule starts buf at max(cursor, now) and advances the cursor by the
// buffer's duration
func (s *Scheduler) Schedule(buf *audio.Buffer) Scheduled {
	now := s.out.CurrentTime()
	start := s.cursor
	if now > start {
		start = now
	}
	duration := buf.Duration()
	s.cursor = start + duration

	s.nextID++
	id := s.nextID
	voice := s.out.Start(buf, start, s.rate, func() {
		s.dispatch(func() { s.complete(id) })
	})
	s.active[id] = voice
	s.stats.Scheduled++

	if s.stats.Scheduled <= 3 {
		log.Debug().Uint64("id", id).Float64("start", start).Float64("now", now).
			Float64("duration", duration).Msg("scheduled buffer")
	}

	return Scheduled{ID: id, Seq: buf.Seq, Start: start, Duration: duration}
}

func (s *Scheduler) complete(id uint64) {
	if _, ok := s.active[id]; !ok {
		return
	}
	delete(s.active, id)
	s.stats.Completed++
}

// Interrupt stops every active buffer, clears the set and moves the cursor
// to the current playback time
func (s *Scheduler) Interrupt() int {
	n := len(s.active)
	for id, voice := range s.active {
		voice.Stop()
		delete(s.active, id)
	}
	s.cursor = s.out.CurrentTime()
	s.stats.Interrupted += int64(n)
	if n > 0 {
		log.Debug().Int("stopped", n).Float64("cursor", s.cursor).Msg("playback interrupted")
	}
	return n
}

// SetPlaybackRate applies rate to every active buffer and to later ones
func (s *Scheduler) SetPlaybackRate(rate float64) {
	if rate <= 0 {
		return
	}
	s.rate = rate
	for _, voice := range s.active {
		voice.SetPlaybackRate(rate)
	}
}

// Active returns the number of buffers scheduled or playing
func (s *Scheduler) Active() int {
	return len(s.active)
}

// Cursor returns the next free start time
func (s *Scheduler) Cursor() float64 {
	return s.cursor
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	return s.stats
}

// GraphOutput adapts a playback graph to the scheduler's Output
func GraphOutput(g *graph.Graph) Output {
	return graphOutput{g}
}

type graphOutput struct {
	g *graph.Graph
}

func (o graphOutput) CurrentTime() float64 {
	return o.g.CurrentTime()
}

func (o graphOutput) Start(buf *audio.Buffer, at, rate float64, onEnded func()) Voice {
	return o.g.Start(buf, at, rate, onEnded)
}
