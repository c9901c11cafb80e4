// ABOUTME: Two-sided conversation recorder
// ABOUTME: Places mic and synthesized voice on a shared timeline and mixes them to WAV
package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
	"github.com/Resonate-Protocol/voicelink-go/pkg/audio/resample"
)

// MIMEType of finished recordings
const MIMEType = "audio/wav"

var (
	// ErrNoInputStream is returned when recording starts without a microphone
	ErrNoInputStream = errors.New("no input stream available for recording")
	// ErrAlreadyRecording is returned by a second Start
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned by Stop when idle
	ErrNotRecording = errors.New("not recording")
)

const (
	trackMic   = 0
	trackVoice = 1
)

// Artifact is one finished recording
type Artifact struct {
	Name      string
	MIMEType  string
	Data      []byte
	Duration  time.Duration
	CreatedAt time.Time
}

// Save writes the artifact into dir and returns its path
func (a *Artifact) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recordings directory: %w", err)
	}
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write recording: %w", err)
	}
	return path, nil
}

type chunk struct {
	offset  int // samples from recording start
	samples []float32
	track   int
}

// Mixer records both sides of a conversation at the playback rate. Its
// lifecycle is independent of the playback graph; writes are ignored while
// it is idle. Safe for concurrent use.
type Mixer struct {
	mu         sync.Mutex
	clock      func() time.Time
	sampleRate int
	upsampler  *resample.Resampler

	recording bool
	id        string
	start     time.Time
	chunks    []chunk
	cursor    [2]int
}

// NewMixer creates an idle mixer. clock may be nil.
func NewMixer(clock func() time.Time) *Mixer {
	if clock == nil {
		clock = time.Now
	}
	return &Mixer{
		clock:      clock,
		sampleRate: audio.PlaybackSampleRate,
		upsampler:  resample.New(audio.CaptureSampleRate, audio.PlaybackSampleRate, 1),
	}
}

// Start begins a new recording. inputAvailable reports whether a
// microphone stream exists to tap.
func (m *Mixer) Start(inputAvailable bool) error {
	if !inputAvailable {
		return ErrNoInputStream
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recording {
		return ErrAlreadyRecording
	}

	m.recording = true
	m.id = uuid.NewString()
	m.start = m.clock()
	m.chunks = nil
	m.cursor = [2]int{}
	m.upsampler.Reset()

	log.Info().Str("recording", m.id).Msg("recording started")
	return nil
}

// Recording reports whether a recording is in progress
func (m *Mixer) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// WriteMic records a microphone frame at the capture rate
func (m *Mixer) WriteMic(samples []float32) {
	if len(samples) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording {
		return
	}
	m.place(m.upsampler.Resample(samples), trackMic)
}

// WriteVoice records synthesized output at the playback rate
func (m *Mixer) WriteVoice(samples []float32) {
	if len(samples) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording {
		return
	}
	m.place(append([]float32(nil), samples...), trackVoice)
}

// place positions samples on a track. The mic arrives in real time so it
// sits at its wall-clock offset. Voice arrives in bursts, so a burst keeps
// pacing from the track cursor and only a new burst re-anchors to the wall
// clock. Caller holds mu.
func (m *Mixer) place(samples []float32, track int) {
	if len(samples) == 0 {
		return
	}
	wall := int(m.clock().Sub(m.start).Seconds() * float64(m.sampleRate))

	offset := wall
	switch track {
	case trackMic:
		if m.cursor[track] > offset {
			offset = m.cursor[track]
		}
	case trackVoice:
		if m.cursor[track] > wall {
			offset = m.cursor[track]
		}
	}

	m.chunks = append(m.chunks, chunk{offset: offset, samples: samples, track: track})
	m.cursor[track] = offset + len(samples)
}

// Stop finalizes the recording into a single mixed WAV artifact
func (m *Mixer) Stop() (*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording {
		return nil, ErrNotRecording
	}
	m.recording = false

	now := m.clock()
	total := int(now.Sub(m.start).Seconds() * float64(m.sampleRate))
	for _, c := range m.chunks {
		if end := c.offset + len(c.samples); end > total {
			total = end
		}
	}

	mix := make([]float32, total)
	for _, c := range m.chunks {
		for i, s := range c.samples {
			mix[c.offset+i] += s
		}
	}
	pcm := make([]int16, total)
	for i, s := range mix {
		pcm[i] = audio.FloatToInt16(s)
	}

	data, err := EncodeWAV(pcm, m.sampleRate)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Name:      fmt.Sprintf("session-%s-%s.wav", m.id[:8], m.start.Format("20060102-150405")),
		MIMEType:  MIMEType,
		Data:      data,
		Duration:  time.Duration(float64(total) / float64(m.sampleRate) * float64(time.Second)),
		CreatedAt: now,
	}
	m.chunks = nil

	log.Info().Str("recording", m.id).Dur("duration", artifact.Duration).Int("bytes", len(data)).Msg("recording finished")
	return artifact, nil
}
