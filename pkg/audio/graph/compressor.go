// ABOUTME: Feed-forward dynamics compressor with soft knee
// ABOUTME: Gain computer plus attack/release envelope in the dB domain
package graph

import "math"

const (
	// EnhancerThreshold etc. are the aggressive limiting settings
	EnhancerThreshold = -30.0
	EnhancerKnee      = 10.0
	EnhancerRatio     = 20.0

	// BypassThreshold and BypassRatio make the compressor transparent
	BypassThreshold = 0.0
	BypassRatio     = 1.0

	CompressorAttack  = 0.002
	CompressorRelease = 0.2

	// CompressorRamp is the time constant for enhancer toggles
	CompressorRamp = 0.1

	silenceDB = -180.0
)

// Compressor reduces gain above a threshold
type Compressor struct {
	threshold *Param
	knee      *Param
	ratio     *Param

	attackCoeff  float64
	releaseCoeff float64
	reduction    float64 // current gain reduction in dB, <= 0
}

// NewCompressor returns a compressor in the enhancer or bypass setting
func NewCompressor(sampleRate int, enhancer bool) *Compressor {
	c := &Compressor{
		threshold:    NewParam(BypassThreshold, sampleRate),
		knee:         NewParam(EnhancerKnee, sampleRate),
		ratio:        NewParam(BypassRatio, sampleRate),
		attackCoeff:  timeCoeff(CompressorAttack, sampleRate),
		releaseCoeff: timeCoeff(CompressorRelease, sampleRate),
	}
	c.SetEnhancer(enhancer, 0)
	return c
}

func timeCoeff(seconds float64, sampleRate int) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * float64(sampleRate)))
}

// SetEnhancer ramps to limiting or pass-through values over tau seconds
func (c *Compressor) SetEnhancer(on bool, tau float64) {
	if on {
		c.threshold.SetTarget(EnhancerThreshold, tau)
		c.knee.SetTarget(EnhancerKnee, tau)
		c.ratio.SetTarget(EnhancerRatio, tau)
		return
	}
	c.threshold.SetTarget(BypassThreshold, tau)
	c.ratio.SetTarget(BypassRatio, tau)
}

// Settings returns the target threshold, knee and ratio
func (c *Compressor) Settings() (threshold, knee, ratio float64) {
	return c.threshold.Target(), c.knee.Target(), c.ratio.Target()
}

// Process compresses one sample
func (c *Compressor) Process(x float32) float32 {
	t := c.threshold.Next()
	k := c.knee.Next()
	r := c.ratio.Next()

	level := math.Abs(float64(x))
	in := silenceDB
	if level > 1e-9 {
		in = 20 * math.Log10(level)
	}
	target := staticCurve(in, t, k, r) - in

	coeff := c.releaseCoeff
	if target < c.reduction {
		coeff = c.attackCoeff
	}
	c.reduction = target + (c.reduction-target)*coeff
	if c.reduction > -1e-6 {
		c.reduction = 0
	}

	if c.reduction == 0 {
		return x
	}
	return x * float32(math.Pow(10, c.reduction/20))
}

// staticCurve maps an input level in dB to the compressed output level
func staticCurve(in, threshold, knee, ratio float64) float64 {
	if ratio <= 1 {
		return in
	}
	over := in - threshold
	switch {
	case 2*over < -knee:
		return in
	case knee > 0 && 2*math.Abs(over) <= knee:
		d := over + knee/2
		return in + (1/ratio-1)*d*d/(2*knee)
	default:
		return threshold + over/ratio
	}
}
