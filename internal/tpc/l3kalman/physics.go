package l3kalman

import (
	"math"
)

// B2C converts field × curvature into transverse momentum:
// pt [GeV/c] = B [kG] · B2C / |curvature [1/cm]|.
const B2C = 0.299792458e-3

// BetheBloch holds the coefficients of the mean energy-loss curve used for
// the drift gas. Below PlateauBG the loss is K/β²·(ln(IFactor·(βγ)²) − β²);
// above it the logarithmic rise is halved.
type BetheBloch struct {
	K         float64 // GeV·cm²/g
	IFactor   float64
	PlateauBG float64
	// Straggling is the relative spread of the energy loss; it inflates the
	// curvature variance.
	Straggling float64
}

// DefaultBetheBloch returns coefficients for a neon-based gas.
func DefaultBetheBloch() BetheBloch {
	return BetheBloch{K: 0.153e-3, IFactor: 5940, PlateauBG: 3.5, Straggling: 0.07}
}

// MeanLoss returns the mean energy loss in GeV/(g/cm²) at βγ = bg.
func (b BetheBloch) MeanLoss(bg float64) float64 {
	if bg <= 0 {
		return 0
	}
	bg2 := bg * bg
	beta2 := bg2 / (1 + bg2)
	var v float64
	if bg > b.PlateauBG {
		v = b.K / beta2 * (math.Log(b.PlateauBG*b.IFactor*bg) - beta2)
	} else {
		v = b.K / beta2 * (math.Log(b.IFactor*bg2) - beta2)
	}
	if v < 0 {
		return 0
	}
	return v
}

// Physics collects the calibration constants used by propagation. None of
// them is hard-coded in the transport code.
type Physics struct {
	FieldKG        float64 // solenoid field (kG); zero switches to straight-line momentum priors
	Mass           float64 // mass hypothesis (GeV/c²)
	MostProbablePt float64 // momentum prior (GeV/c) when curvature carries no momentum
	MSConstMeV     float64 // multiple-scattering constant (MeV)
	MaxSnp         float64 // ceiling on |local sine|, strictly below 1
	BetheBloch     BetheBloch
}

// DefaultPhysics returns constants for a 5 kG field and a pion hypothesis.
func DefaultPhysics() Physics {
	return Physics{
		FieldKG:        5,
		Mass:           0.13957,
		MostProbablePt: 0.35,
		MSConstMeV:     14.1,
		MaxSnp:         0.95,
		BetheBloch:     DefaultBetheBloch(),
	}
}

// zeroFieldKG is the field below which curvature is not a momentum measure.
const zeroFieldKG = 1e-6

// minCurvature is the curvature below which a track is treated as straight
// for momentum purposes.
const minCurvature = 1e-12

// Pt returns the transverse momentum implied by curvature and whether it
// came from the curvature (true) or from the most-probable prior (false).
func (ph Physics) Pt(curvature float64) (float64, bool) {
	if math.Abs(ph.FieldKG) < zeroFieldKG || math.Abs(curvature) < minCurvature {
		return ph.MostProbablePt, false
	}
	return math.Abs(ph.FieldKG*B2C/curvature), true
}

// CurvatureForPt returns the signed curvature for a transverse momentum and
// charge sign in this field.
func (ph Physics) CurvatureForPt(pt float64, charge int) float64 {
	if pt <= 0 {
		return 0
	}
	return float64(charge) * ph.FieldKG * B2C / pt
}

// momentum2 returns p² for the state.
func (ph Physics) momentum2(p *Param) (float64, bool) {
	pt, fromCrv := ph.Pt(p.P[ICrv])
	return pt * pt * (1 + p.P[ITgl]*p.P[ITgl]), fromCrv
}
