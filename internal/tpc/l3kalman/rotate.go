package l3kalman

import "math"

// Rotate expresses p in the frame with azimuth alpha, keeping the same
// physical point and direction. The state is left at the new local X of
// that point; callers propagate afterwards. On error p is returned
// unchanged.
func Rotate(p Param, alpha, maxSnp float64) (Param, error) {
	da := alpha - p.Alpha
	if da == 0 {
		return p, nil
	}
	ca, sa := math.Cos(da), math.Sin(da)
	sf := p.P[ISnp]
	cf := math.Sqrt((1 - sf) * (1 + sf))
	if cf < minCosine {
		return p, ErrGeometryDegenerate
	}
	// Direction must still point outward in the new frame.
	if cf*ca+sf*sa <= 0 {
		return p, ErrGeometryDegenerate
	}
	snp := sf*ca - cf*sa
	if math.Abs(snp) >= maxSnp {
		return p, ErrGeometryDegenerate
	}

	out := p
	out.Alpha = alpha
	out.X = p.X*ca + p.P[IY]*sa
	out.P[IY] = -p.X*sa + p.P[IY]*ca
	out.P[ISnp] = snp

	j := Identity5()
	j[IY][IY] = ca
	j[ISnp][ISnp] = ca + sf/cf*sa
	out.C = p.C.Similarity(&j)
	if !out.Valid(maxSnp) {
		return p, ErrGeometryDegenerate
	}
	return out, nil
}

// WrapAngle maps a into (−π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
