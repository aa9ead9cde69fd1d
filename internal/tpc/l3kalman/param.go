package l3kalman

import (
	"fmt"
	"math"
)

// Parameter indices into Param.P.
const (
	IY   = 0 // local transverse offset (cm)
	IZ   = 1 // longitudinal offset (cm)
	ISnp = 2 // sine of the local track azimuth
	ITgl = 3 // tangent of the dip angle
	ICrv = 4 // signed curvature (1/cm), d(snp)/dx
)

// Param is a track state: the five helix parameters at radius X in the
// frame rotated by Alpha, with their covariance.
type Param struct {
	X     float64
	Alpha float64
	P     [5]float64
	C     Sym5
}

// Y returns the local transverse offset.
func (p Param) Y() float64 { return p.P[IY] }

// Z returns the longitudinal offset.
func (p Param) Z() float64 { return p.P[IZ] }

// Snp returns the sine of the local azimuth.
func (p Param) Snp() float64 { return p.P[ISnp] }

// Tgl returns the tangent of the dip angle.
func (p Param) Tgl() float64 { return p.P[ITgl] }

// Curvature returns the signed curvature.
func (p Param) Curvature() float64 { return p.P[ICrv] }

// LocalSine returns the sine of the track direction relative to the local
// X axis at the reference radius. In the circle-centre parameterisation
// (eta = curvature·x0) it equals curvature·X − eta.
func (p Param) LocalSine() float64 { return p.P[ISnp] }

// Valid reports whether the state is finite and its local sine lies
// strictly inside (−maxSnp, maxSnp). It has no side effects.
func (p Param) Valid(maxSnp float64) bool {
	for _, v := range p.P {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) {
		return false
	}
	return math.Abs(p.P[ISnp]) < maxSnp && maxSnp <= 1 && p.C.IsFinite()
}

// GlobalXY returns the reference point in the global frame.
func (p Param) GlobalXY() (float64, float64) {
	ca, sa := math.Cos(p.Alpha), math.Sin(p.Alpha)
	return p.X*ca - p.P[IY]*sa, p.X*sa + p.P[IY]*ca
}

// Radius returns the transverse distance of the reference point from the
// beam axis.
func (p Param) Radius() float64 { return math.Hypot(p.X, p.P[IY]) }

// Phi returns the global azimuth of the reference point.
func (p Param) Phi() float64 {
	gx, gy := p.GlobalXY()
	return math.Atan2(gy, gx)
}

// Direction returns the global azimuth of the track direction.
func (p Param) Direction() float64 {
	return p.Alpha + math.Asin(p.P[ISnp])
}

// ResetCovariance returns a copy whose covariance keeps only the diagonal,
// scaled by scale. Used to decorrelate a state before a refit pass.
func (p Param) ResetCovariance(scale float64) Param {
	d := p.C.Diag()
	for i := range d {
		d[i] *= scale
	}
	p.C = DiagSym5(d)
	return p
}

func (p Param) String() string {
	return fmt.Sprintf("x=%.3f alpha=%.4f y=%.4f z=%.4f snp=%.5f tgl=%.5f crv=%.3e",
		p.X, p.Alpha, p.P[IY], p.P[IZ], p.P[ISnp], p.P[ITgl], p.P[ICrv])
}
