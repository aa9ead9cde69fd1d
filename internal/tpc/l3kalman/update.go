package l3kalman

import "math"

// Measurement is a two-dimensional (y, z) cluster position with its
// variances, in the frame of the state being updated.
type Measurement struct {
	Y, Z    float64
	SigmaY2 float64
	SigmaZ2 float64
}

// innovation returns the residual and the inverse of its covariance.
func innovation(p *Param, m Measurement) (dy, dz, i00, i01, i11 float64, err error) {
	r00 := p.C.At(IY, IY) + m.SigmaY2
	r01 := p.C.At(IZ, IY)
	r11 := p.C.At(IZ, IZ) + m.SigmaZ2
	det := r00*r11 - r01*r01
	if !(det > MinDeterminant) {
		return 0, 0, 0, 0, 0, ErrUpdateRejected
	}
	i00 = r11 / det
	i01 = -r01 / det
	i11 = r00 / det
	dy = m.Y - p.P[IY]
	dz = m.Z - p.P[IZ]
	return dy, dz, i00, i01, i11, nil
}

// PredictedChi2 returns the χ² of m against p without modifying p.
func PredictedChi2(p Param, m Measurement) (float64, error) {
	dy, dz, i00, i01, i11, err := innovation(&p, m)
	if err != nil {
		return 0, err
	}
	return dy*dy*i00 + 2*dy*dz*i01 + dz*dz*i11, nil
}

// Update folds m into p with the Joseph-form covariance update and returns
// the new state and the χ² contribution. On error p is returned unchanged.
func Update(p Param, m Measurement, maxSnp float64) (Param, float64, error) {
	dy, dz, i00, i01, i11, err := innovation(&p, m)
	if err != nil {
		return p, 0, err
	}
	chi2 := dy*dy*i00 + 2*dy*dz*i01 + dz*dz*i11

	var k [5][2]float64
	for i := 0; i < 5; i++ {
		c0 := p.C.At(i, IY)
		c1 := p.C.At(i, IZ)
		k[i][0] = c0*i00 + c1*i01
		k[i][1] = c0*i01 + c1*i11
	}

	out := p
	for i := 0; i < 5; i++ {
		out.P[i] += k[i][0]*dy + k[i][1]*dz
	}
	if math.Abs(out.P[ISnp]) >= maxSnp {
		return p, 0, ErrUpdateRejected
	}

	// A = I − K·H with H selecting (y, z).
	a := Identity5()
	for i := 0; i < 5; i++ {
		a[i][IY] -= k[i][0]
		a[i][IZ] -= k[i][1]
	}
	c := p.C.Similarity(&a)
	for i := 0; i < 5; i++ {
		for j := 0; j <= i; j++ {
			c[symIndex(i, j)] += k[i][0]*k[j][0]*m.SigmaY2 + k[i][1]*k[j][1]*m.SigmaZ2
		}
	}
	out.C = c
	if !out.Valid(maxSnp) || !out.C.DiagNonNegative() {
		return p, 0, ErrUpdateRejected
	}
	return out, chi2, nil
}
