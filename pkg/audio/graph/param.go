// ABOUTME: Smoothed audio parameter
// ABOUTME: Exponential approach to a target value, evaluated per sample
package graph

import "math"

const settleEpsilon = 1e-7

// Param approaches its target exponentially with a time constant, the same
// curve as v(t) = target + (v0 - target) * exp(-t/tau). Not safe for
// concurrent use; the graph guards it.
type Param struct {
	value      float64
	target     float64
	coeff      float64
	sampleRate float64
}

// NewParam returns a parameter resting at value
func NewParam(value float64, sampleRate int) *Param {
	return &Param{value: value, target: value, sampleRate: float64(sampleRate)}
}

// SetTarget starts a ramp towards target. tau <= 0 jumps immediately.
func (p *Param) SetTarget(target, tau float64) {
	p.target = target
	if tau <= 0 || p.sampleRate <= 0 {
		p.value = target
		p.coeff = 0
		return
	}
	p.coeff = math.Exp(-1 / (tau * p.sampleRate))
}

// Next advances one sample and returns the new value
func (p *Param) Next() float64 {
	if p.value == p.target {
		return p.value
	}
	p.value = p.target + (p.value-p.target)*p.coeff
	if math.Abs(p.value-p.target) < settleEpsilon {
		p.value = p.target
	}
	return p.value
}

// Value returns the current value without advancing
func (p *Param) Value() float64 {
	return p.value
}

// Target returns the value being approached
func (p *Param) Target() float64 {
	return p.target
}
