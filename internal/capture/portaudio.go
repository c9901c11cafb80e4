// ABOUTME: PortAudio microphone capture
// ABOUTME: Opens the default input device as a mono float32 callback stream
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"
)

// PortAudio captures from the default input device
type PortAudio struct{}

// NewPortAudio creates a PortAudio capture device
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Open acquires the default microphone. Failures come back as *AcquireError.
func (p *PortAudio) Open(sampleRate, frameSize int, onFrame func([]float32)) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, Classify(fmt.Errorf("failed to initialize PortAudio: %w", err))
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil || device == nil {
		portaudio.Terminate()
		if err == nil {
			err = errors.New("no default input device")
		}
		return nil, &AcquireError{Cause: ErrDeviceNotFound, Err: err}
	}
	if device.MaxInputChannels <= 0 {
		portaudio.Terminate()
		return nil, &AcquireError{Cause: ErrDeviceNotFound, Err: fmt.Errorf("device %q has no input channels", device.Name)}
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: frameSize,
	}

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		onFrame(in)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, &AcquireError{Cause: paCause(err), Err: fmt.Errorf("failed to open input stream: %w", err)}
	}

	log.Info().Str("device", device.Name).Int("sample_rate", sampleRate).Int("frame_size", frameSize).Msg("microphone acquired")
	return &paStream{stream: stream}, nil
}

func paCause(err error) error {
	var paErr portaudio.Error
	if errors.As(err, &paErr) {
		switch paErr {
		case portaudio.InvalidDevice:
			return ErrDeviceNotFound
		case portaudio.DeviceUnavailable:
			return ErrDeviceBusy
		case portaudio.InvalidSampleRate, portaudio.InvalidChannelCount,
			portaudio.SampleFormatNotSupported, portaudio.BadIODeviceCombination:
			return ErrConstraintsUnsatisfiable
		}
	}
	return causeOf(err)
}

type paStream struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	started bool
	closed  bool
}

func (s *paStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("microphone stream closed")
	}
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return Classify(fmt.Errorf("failed to start input stream: %w", err))
	}
	s.started = true
	return nil
}

func (s *paStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.started {
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop input stream: %w", err))
		}
	}
	if err := s.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close input stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("failed to terminate PortAudio: %w", err))
	}
	return errors.Join(errs...)
}
