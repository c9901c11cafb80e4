// ABOUTME: Peak-based per-chunk loudness normalizer
// ABOUTME: Levels each channel of a decoded buffer towards a target peak
package level

import (
	"math"

	"github.com/Resonate-Protocol/voicelink-go/pkg/audio"
)

const (
	// TargetPeak is the level every voiced chunk is pulled towards
	TargetPeak = 0.75
	// SilenceThreshold is the peak at or below which a channel is left alone
	SilenceThreshold = 0.01
	// MinGain bounds attenuation (about -6 dB)
	MinGain = 0.5
	// MaxGain bounds boost (about +9.5 dB)
	MaxGain = 3.0
)

// Peak returns the largest absolute sample value
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// GainFor returns the multiplier for a channel with the given peak, and false
// when the channel is near-silent and must stay untouched.
func GainFor(peak float32) (float32, bool) {
	if peak <= SilenceThreshold || math.IsNaN(float64(peak)) {
		return 1, false
	}
	gain := TargetPeak / peak
	if gain > MaxGain {
		gain = MaxGain
	} else if gain < MinGain {
		gain = MinGain
	}
	return gain, true
}

// Normalize levels every channel of buf in place and returns the gain
// applied per channel (1 for channels left untouched).
func Normalize(buf *audio.Buffer) []float32 {
	if buf == nil {
		return nil
	}
	gains := make([]float32, len(buf.Channels))
	for ch, samples := range buf.Channels {
		gain, ok := GainFor(Peak(samples))
		gains[ch] = gain
		if !ok {
			continue
		}
		for i := range samples {
			samples[i] *= gain
		}
	}
	return gains
}
