package l3kalman

import (
	"math"

	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
)

// Step describes one successful transport.
type Step struct {
	Length   float64 // 3D path length (cm)
	Momentum float64 // total momentum at the end of the step (GeV/c)
}

// Propagator transports track states between radii, correcting for the
// material described by Material. A nil Material means vacuum.
type Propagator struct {
	Physics  Physics
	Material l2geometry.MaterialService
}

// NewPropagator returns a propagator for the given physics and material.
func NewPropagator(ph Physics, m l2geometry.MaterialService) *Propagator {
	if m == nil {
		m = l2geometry.Vacuum{}
	}
	return &Propagator{Physics: ph, Material: m}
}

// Propagate moves p to radius x in its current frame and applies the
// material crossed on the way. On error p is returned unchanged.
func (pr *Propagator) Propagate(p Param, x float64) (Param, Step, error) {
	return pr.PropagateThrough(p, x, pr.Material.ThicknessBetween(p.X, x))
}

// PropagateThrough is Propagate with an explicit material step.
func (pr *Propagator) PropagateThrough(p Param, x float64, mat l2geometry.Material) (Param, Step, error) {
	out, length, err := Transport(p, x, pr.Physics.MaxSnp)
	if err != nil {
		return p, Step{}, err
	}
	p2, err := pr.correctForMaterial(&out, mat, x > p.X)
	if err != nil {
		return p, Step{}, err
	}
	if !out.Valid(pr.Physics.MaxSnp) {
		return p, Step{}, ErrGeometryDegenerate
	}
	return out, Step{Length: length, Momentum: math.Sqrt(p2)}, nil
}

// Transport moves p to radius x along the helix without material effects
// and returns the new state and the 3D path length. The closed form uses
// the local sine and cosine at both ends and no transcendental functions.
func Transport(p Param, x float64, maxSnp float64) (Param, float64, error) {
	dx := x - p.X
	f1 := p.P[ISnp]
	if math.Abs(f1) >= maxSnp {
		return p, 0, ErrGeometryDegenerate
	}
	if dx == 0 {
		return p, 0, nil
	}
	crv := p.P[ICrv]
	tgl := p.P[ITgl]
	f2 := f1 + crv*dx
	if math.Abs(f2) >= maxSnp {
		return p, 0, ErrGeometryDegenerate
	}
	r1 := math.Sqrt((1 - f1) * (1 + f1))
	r2 := math.Sqrt((1 - f2) * (1 + f2))
	rsum := r1 + r2
	fsum := f1 + f2
	g := fsum / rsum // mean dy/dx over the step
	h := r2 + f2*g   // transverse path per unit dx, to (Δφ)²/6

	out := p
	out.X = x
	out.P[IY] += dx * g
	out.P[IZ] += dx * h * tgl
	out.P[ISnp] = f2

	// f = F − I, exact derivatives of the closed form above.
	k := f1/r1 + f2/r2
	rr := rsum * rsum
	dgdf := (2*rsum + fsum*k) / rr
	dgdc := dx * (rsum + fsum*f2/r2) / rr
	dhdf := -f2/r2 + g + f2*dgdf
	dhdc := dx*(g-f2/r2) + f2*dgdc

	f02 := dx * dgdf
	f04 := dx * dgdc
	f12 := dx * tgl * dhdf
	f13 := dx * h
	f14 := dx * tgl * dhdc
	f24 := dx
	out.C = propagateCov(&p.C, f02, f04, f12, f13, f14, f24)

	length := math.Abs(dx*h) * math.Sqrt(1+tgl*tgl)
	if !out.Valid(maxSnp) {
		return p, 0, ErrGeometryDegenerate
	}
	return out, length, nil
}

// TransportJacobian returns the dense Jacobian used by Transport, for
// diagnostics and tests.
func TransportJacobian(p Param, x float64) Matrix5 {
	dx := x - p.X
	f1 := p.P[ISnp]
	f2 := f1 + p.P[ICrv]*dx
	tgl := p.P[ITgl]
	r1 := math.Sqrt((1 - f1) * (1 + f1))
	r2 := math.Sqrt((1 - f2) * (1 + f2))
	rsum, fsum := r1+r2, f1+f2
	g := fsum / rsum
	h := r2 + f2*g
	k := f1/r1 + f2/r2
	rr := rsum * rsum
	dgdf := (2*rsum + fsum*k) / rr
	dgdc := dx * (rsum + fsum*f2/r2) / rr

	j := Identity5()
	j[IY][ISnp] = dx * dgdf
	j[IY][ICrv] = dx * dgdc
	j[IZ][ISnp] = dx * tgl * (-f2/r2 + g + f2*dgdf)
	j[IZ][ITgl] = dx * h
	j[IZ][ICrv] = dx * tgl * (dx*(g-f2/r2) + f2*dgdc)
	j[ISnp][ICrv] = dx
	return j
}

// correctForMaterial applies multiple scattering and mean energy loss for
// the material step. outward selects the sign of the energy loss: moving
// outward the particle loses energy, moving inward the loss is undone. It
// returns p² after the correction.
func (pr *Propagator) correctForMaterial(p *Param, mat l2geometry.Material, outward bool) (float64, error) {
	ph := pr.Physics
	p2, fromCrv := ph.momentum2(p)
	xx0 := mat.XOverX0()
	xrho := mat.XTimesRho()
	if xx0 == 0 && xrho == 0 {
		return p2, nil
	}

	snp, tgl, crv := p.P[ISnp], p.P[ITgl], p.P[ICrv]
	csp2 := (1 - snp) * (1 + snp)
	if csp2 < minCosine {
		return p2, ErrGeometryDegenerate
	}
	t2 := 1 + tgl*tgl
	path := math.Sqrt(t2 / csp2) // radial thickness → path through the layer
	xx0 *= path
	xrho *= path

	m2 := ph.Mass * ph.Mass
	beta2 := p2 / (p2 + m2)

	if xx0 > 0 {
		k := ph.MSConstMeV * 1e-3
		theta2 := k * k / (beta2 * p2) * xx0
		if theta2 > math.Pi*math.Pi {
			return p2, ErrGeometryDegenerate
		}
		p.C.Add(ISnp, ISnp, theta2*csp2*t2)
		p.C.Add(ITgl, ITgl, theta2*t2*t2)
		p.C.Add(ICrv, ITgl, theta2*tgl*crv*t2)
		p.C.Add(ICrv, ICrv, theta2*tgl*crv*tgl*crv)
	}

	if xrho > 0 && fromCrv {
		bg := math.Sqrt(p2 / m2)
		dE := ph.BetheBloch.MeanLoss(bg) * xrho
		e := math.Sqrt(p2 + m2)
		if dE > 0.3*e {
			return p2, ErrGeometryDegenerate
		}
		rel := e / p2 * dE // relative change of 1/p
		if !outward {
			rel = -rel
		}
		scale := 1 + rel
		if scale <= 0 {
			return p2, ErrGeometryDegenerate
		}
		p.P[ICrv] *= scale
		sigma := ph.BetheBloch.Straggling * e / p2 * dE * crv
		p.C.Add(ICrv, ICrv, sigma*sigma)
		p2 /= scale * scale
	}
	return p2, nil
}
