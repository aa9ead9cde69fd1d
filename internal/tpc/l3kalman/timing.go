package l3kalman

import "math"

// Species are the mass hypotheses carried by the time integrator.
var Species = [5]struct {
	Name string
	Mass float64
}{
	{"electron", 0.000511},
	{"muon", 0.10566},
	{"pion", 0.13957},
	{"kaon", 0.49368},
	{"proton", 0.93827},
}

// lightSpeed in cm/ps.
const lightSpeed = 2.99792458e-2

// TimeIntegrator accumulates path length and the time of flight for each
// species hypothesis.
type TimeIntegrator struct {
	Length float64
	Times  [5]float64 // ps
}

// Add integrates a step of the given length at momentum p.
func (t *TimeIntegrator) Add(length, p float64) {
	if length <= 0 || p <= 0 {
		return
	}
	t.Length += length
	p2 := p * p
	for i, s := range Species {
		e := math.Sqrt(p2 + s.Mass*s.Mass)
		t.Times[i] += length * e / p / lightSpeed
	}
}
