// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Converts float sample streams across chunk boundaries by linear interpolation
package resample

// Resampler performs linear interpolation to convert between sample rates.
// State carries across calls so consecutive chunks join without clicks.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64   // read position relative to the first sample of the next input
	lastSample []float32 // one sample per channel, the frame before position 0
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastSample: make([]float32, channels),
	}
}

// Resample converts interleaved input at inputRate into interleaved output
// at outputRate, returning the converted samples.
func (r *Resampler) Resample(input []float32) []float32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return nil
	}
	if r.inputRate == r.outputRate {
		out := make([]float32, inputFrames*r.channels)
		copy(out, input)
		return out
	}

	if !r.primed {
		// first call: start exactly on input frame 0
		copy(r.lastSample, input[:r.channels])
		r.position = 1
		r.primed = true
	}

	out := make([]float32, 0, r.OutputSamplesNeeded(len(input))+r.channels)
	// position is measured on a timeline where index 0 is lastSample and
	// index k (k >= 1) is input frame k-1
	for {
		idx := int(r.position)
		if idx >= inputFrames {
			break
		}
		frac := float32(r.position - float64(idx))
		for ch := 0; ch < r.channels; ch++ {
			var s1 float32
			if idx == 0 {
				s1 = r.lastSample[ch]
			} else {
				s1 = input[(idx-1)*r.channels+ch]
			}
			s2 := input[idx*r.channels+ch]
			out = append(out, s1*(1-frac)+s2*frac)
		}
		r.position += r.ratio
	}

	copy(r.lastSample, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.position -= float64(inputFrames)
	return out
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples come from inputSamples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}
