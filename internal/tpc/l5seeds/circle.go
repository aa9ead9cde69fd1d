package l5seeds

import (
	"errors"
	"math"

	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
)

var errDegenerate = errors.New("degenerate seed geometry")

// Input indices of a seed fit.
const (
	inYA = iota
	inZA
	inYB
	inZB
	inYV
	inZV
	nInputs
)

// triplet fixes the parts of a seed candidate that carry no measurement
// noise: the radii and frames of the anchor A, the partner B and the
// vertex V. Everything is expressed in A's frame.
type triplet struct {
	xA     float64
	xB     float64 // in B's frame
	alphaA float64
	alphaB float64
	xV     float64 // in A's frame
}

// fitResult is the seed state at A and the z of the helix extrapolated to
// the vertex.
type fitResult struct {
	P    [5]float64
	ZInt float64
	VZ   float64
}

// arcLength returns the arc subtended by a chord of length l on a circle of
// curvature k.
func arcLength(l, k float64) float64 {
	h := k * l / 2
	if math.Abs(h) < 1e-9 {
		return l
	}
	return 2 * math.Asin(h) / k
}

// fit computes the seed parameters from the six noisy inputs.
func (tr triplet) fit(in [nInputs]float64) (fitResult, error) {
	gx, gy := l2geometry.ToGlobal(tr.alphaB, tr.xB, in[inYB])
	bx, by := l2geometry.ToLocal(tr.alphaA, gx, gy)
	ax, ay := tr.xA, in[inYA]
	vx, vy := tr.xV, in[inYV]

	bvx, bvy := bx-vx, by-vy
	avx, avy := ax-vx, ay-vy
	abx, aby := ax-bx, ay-by
	lBV := math.Hypot(bvx, bvy)
	lAV := math.Hypot(avx, avy)
	lAB := math.Hypot(abx, aby)
	if lBV < 1e-6 || lAV < 1e-6 || lAB < 1e-6 {
		return fitResult{}, errDegenerate
	}

	k := 2 * (bvx*avy - bvy*avx) / (lBV * lAV * lAB)
	half := k * lAB / 2
	if math.Abs(half) >= 1 || math.Abs(k*lBV/2) >= 1 {
		return fitResult{}, errDegenerate
	}
	snp := math.Sin(math.Atan2(aby, abx) + math.Asin(half))

	arcAB := arcLength(lAB, k)
	tgl := (in[inZA] - in[inZB]) / arcAB
	zInt := in[inZB] - tgl*arcLength(lBV, k)

	return fitResult{
		P:    [5]float64{ay, in[inZA], snp, tgl, k},
		ZInt: zInt,
		VZ:   in[inZV],
	}, nil
}

// derivativeStep is the central-difference step for every input (cm).
const derivativeStep = 1e-4

// covariance propagates the diagonal input variances through the fit:
// C = D·Σ·Dᵗ with D the 5×6 matrix of numerical derivatives.
func (tr triplet) covariance(in, variance [nInputs]float64) (l3kalman.Sym5, error) {
	var d [5][nInputs]float64
	for j := 0; j < nInputs; j++ {
		up, dn := in, in
		up[j] += derivativeStep
		dn[j] -= derivativeStep
		fu, err := tr.fit(up)
		if err != nil {
			return l3kalman.Sym5{}, err
		}
		fd, err := tr.fit(dn)
		if err != nil {
			return l3kalman.Sym5{}, err
		}
		for i := 0; i < 5; i++ {
			d[i][j] = (fu.P[i] - fd.P[i]) / (2 * derivativeStep)
		}
	}
	return propagateVariance(d, variance), nil
}
