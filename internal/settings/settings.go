// ABOUTME: Persistent audio settings shared by UI and playback
// ABOUTME: Tear-free snapshots via atomic pointer, written to disk on every change
package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Speed bounds keep playback intelligible
const (
	MinSpeed  = 0.5
	MaxSpeed  = 2.0
	MaxVolume = 10.0
)

// Settings is the flat record persisted between sessions
type Settings struct {
	Volume    float64 `json:"volume"`
	Speed     float64 `json:"speed"`
	Enhancer  bool    `json:"enhancer"`
	AutoLevel bool    `json:"autoLevel"`
}

// Default returns the out-of-the-box settings
func Default() Settings {
	return Settings{
		Volume:    3.5,
		Speed:     1.0,
		Enhancer:  true,
		AutoLevel: true,
	}
}

// Validate checks ranges
func (s Settings) Validate() error {
	if math.IsNaN(s.Volume) || s.Volume < 0 || s.Volume > MaxVolume {
		return fmt.Errorf("volume must be between 0 and %.1f, got %v", MaxVolume, s.Volume)
	}
	if math.IsNaN(s.Speed) || s.Speed < MinSpeed || s.Speed > MaxSpeed {
		return fmt.Errorf("speed must be between %.1f and %.1f, got %v", MinSpeed, MaxSpeed, s.Speed)
	}
	return nil
}

// Store holds the current settings. Readers get complete snapshots; writers
// are serialized and each write is persisted.
type Store struct {
	path    string
	current atomic.Pointer[Settings]

	mu   sync.Mutex
	subs map[int]func(Settings)
	next int
}

// Load reads settings from path, filling absent fields from the defaults.
// A missing file yields the defaults. An empty path keeps settings in memory.
func Load(path string) (*Store, error) {
	s := &Store{path: path, subs: make(map[int]func(Settings))}
	loaded := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		default:
			if err := json.Unmarshal(data, &loaded); err != nil {
				return nil, fmt.Errorf("failed to parse settings file: %w", err)
			}
			if err := loaded.Validate(); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("stored settings out of range, using defaults")
				loaded = Default()
			}
		}
	}

	s.current.Store(&loaded)
	return s, nil
}

// Snapshot returns the current settings
func (s *Store) Snapshot() Settings {
	return *s.current.Load()
}

// Update applies fn to a copy of the current settings, validates, publishes
// and persists the result. A failed write still leaves the new values live.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	next := *s.current.Load()
	fn(&next)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return s.Snapshot(), err
	}
	s.current.Store(&next)
	subs := make([]func(Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	err := s.save(next)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next, err
}

// Subscribe registers fn to receive every published change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Settings)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SetVolume sets the output gain
func (s *Store) SetVolume(v float64) (Settings, error) {
	return s.Update(func(st *Settings) { st.Volume = v })
}

// SetSpeed sets the playback rate
func (s *Store) SetSpeed(v float64) (Settings, error) {
	return s.Update(func(st *Settings) { st.Speed = v })
}

// SetEnhancer toggles the compressor
func (s *Store) SetEnhancer(on bool) (Settings, error) {
	return s.Update(func(st *Settings) { st.Enhancer = on })
}

// SetAutoLevel toggles per-chunk loudness normalization
func (s *Store) SetAutoLevel(on bool) (Settings, error) {
	return s.Update(func(st *Settings) { st.AutoLevel = on })
}

func (s *Store) save(st Settings) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
