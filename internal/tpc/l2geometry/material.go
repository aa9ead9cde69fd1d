package l2geometry

import "math"

// Material is the matter crossed by a radial step.
type Material struct {
	Thickness float64 // radial thickness (cm)
	RadLength float64 // radiation length X0 (cm); zero means no scattering
	Density   float64 // g/cm³; zero means no energy loss
}

// XOverX0 returns the thickness in radiation lengths.
func (m Material) XOverX0() float64 {
	if m.RadLength <= 0 {
		return 0
	}
	return m.Thickness / m.RadLength
}

// XTimesRho returns the areal density in g/cm².
func (m Material) XTimesRho() float64 {
	return m.Thickness * m.Density
}

// MaterialService describes the material between two radii. It is a pure
// function of the detector description.
type MaterialService interface {
	ThicknessBetween(r1, r2 float64) Material
}

// UniformGas fills the whole volume with a single gas mixture.
type UniformGas struct {
	RadLength float64 `json:"rad_length" yaml:"rad_length"` // cm
	Density   float64 `json:"density" yaml:"density"`       // g/cm³
}

// DefaultGas is a neon-based drift gas.
func DefaultGas() UniformGas {
	return UniformGas{RadLength: 28.94, Density: 0.9e-3}
}

// ThicknessBetween returns the gas crossed between r1 and r2.
func (g UniformGas) ThicknessBetween(r1, r2 float64) Material {
	return Material{Thickness: math.Abs(r2 - r1), RadLength: g.RadLength, Density: g.Density}
}

// Vacuum is a material service with no matter at all.
type Vacuum struct{}

// ThicknessBetween always returns an empty step.
func (Vacuum) ThicknessBetween(r1, r2 float64) Material {
	return Material{Thickness: math.Abs(r2 - r1)}
}

// Layered adds thin walls at fixed radii on top of a base service, e.g.
// the field cage between the two sector groups.
type Layered struct {
	Base  MaterialService
	Walls []Wall
}

// Wall is a thin cylindrical layer at radius R.
type Wall struct {
	R         float64 `json:"r" yaml:"r"`
	Thickness float64 `json:"thickness" yaml:"thickness"`
	RadLength float64 `json:"rad_length" yaml:"rad_length"`
	Density   float64 `json:"density" yaml:"density"`
}

// ThicknessBetween combines the base material with every wall crossed. The
// result is expressed as an effective homogeneous layer of the traversed
// thickness whose radiation length and density reproduce the summed
// x/X0 and x·rho.
func (l Layered) ThicknessBetween(r1, r2 float64) Material {
	base := l.Base.ThicknessBetween(r1, r2)
	lo, hi := math.Min(r1, r2), math.Max(r1, r2)
	xx0 := base.XOverX0()
	xrho := base.XTimesRho()
	for _, w := range l.Walls {
		if w.R > lo && w.R <= hi {
			if w.RadLength > 0 {
				xx0 += w.Thickness / w.RadLength
			}
			xrho += w.Thickness * w.Density
		}
	}
	out := Material{Thickness: base.Thickness}
	if out.Thickness <= 0 {
		return out
	}
	if xx0 > 0 {
		out.RadLength = out.Thickness / xx0
	}
	out.Density = xrho / out.Thickness
	return out
}
