// ABOUTME: Read-only frequency analyser tap
// ABOUTME: Windowed FFT with temporal smoothing for spectrum visualisation
package graph

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	DefaultFFTSize    = 256
	DefaultSmoothing  = 0.5
	DefaultMinDecibel = -100.0
	DefaultMaxDecibel = -30.0
)

// Analyser keeps the most recent fftSize output samples and turns them into
// magnitude spectra on demand. It copies what it observes and never writes
// back into the signal path.
type Analyser struct {
	mu        sync.Mutex
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	ring    []float64
	pos     int
	window  []float64
	fft     *fourier.FFT
	scratch []float64
	smooth  []float64
}

// NewAnalyser creates an analyser; fftSize must be a power of two
func NewAnalyser(fftSize int, smoothing float64) *Analyser {
	if fftSize < 32 {
		fftSize = DefaultFFTSize
	}
	if smoothing < 0 || smoothing >= 1 {
		smoothing = DefaultSmoothing
	}
	a := &Analyser{
		fftSize:   fftSize,
		smoothing: smoothing,
		minDB:     DefaultMinDecibel,
		maxDB:     DefaultMaxDecibel,
		ring:      make([]float64, fftSize),
		window:    make([]float64, fftSize),
		fft:       fourier.NewFFT(fftSize),
		scratch:   make([]float64, fftSize),
		smooth:    make([]float64, fftSize/2),
	}
	// Blackman window
	n := float64(fftSize)
	for i := range a.window {
		x := float64(i) / n
		a.window[i] = 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	}
	return a
}

// FrequencyBinCount is half the FFT size
func (a *Analyser) FrequencyBinCount() int {
	return a.fftSize / 2
}

// observe appends output samples to the ring
func (a *Analyser) observe(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = float64(s)
		a.pos = (a.pos + 1) % a.fftSize
	}
}

// ByteFrequencyData maps smoothed dB magnitudes onto 0-255 between the
// min and max decibel bounds
func (a *Analyser) ByteFrequencyData() []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.update()
	out := make([]uint8, len(a.smooth))
	span := a.maxDB - a.minDB
	for i, m := range a.smooth {
		v := 255 / span * (toDB(m) - a.minDB)
		switch {
		case v < 0:
			out[i] = 0
		case v > 255:
			out[i] = 255
		default:
			out[i] = uint8(v)
		}
	}
	return out
}

// update runs one FFT over the ring in time order and folds the result
// into the smoothed spectrum. Caller holds mu.
func (a *Analyser) update() {
	for i := 0; i < a.fftSize; i++ {
		a.scratch[i] = a.ring[(a.pos+i)%a.fftSize] * a.window[i]
	}
	coeffs := a.fft.Coefficients(nil, a.scratch)
	scale := 1 / float64(a.fftSize)
	for k := range a.smooth {
		mag := cmplxAbs(coeffs[k]) * scale
		a.smooth[k] = a.smoothing*a.smooth[k] + (1-a.smoothing)*mag
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func toDB(m float64) float64 {
	if m <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(m)
}
