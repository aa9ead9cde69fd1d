package config

import "github.com/banshee-data/tpctrack/internal/tpc/l2geometry"

func getFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func getInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// GetFieldKG returns the solenoid field in kG.
func (c *TuningConfig) GetFieldKG() float64 { return getFloat(c.FieldKG, 5) }

// GetMass returns the mass hypothesis (pion by default).
func (c *TuningConfig) GetMass() float64 { return getFloat(c.Mass, 0.13957) }

// GetMostProbablePt returns the momentum prior for straight tracks.
func (c *TuningConfig) GetMostProbablePt() float64 { return getFloat(c.MostProbablePt, 0.35) }

// GetMSConstMeV returns the multiple-scattering constant.
func (c *TuningConfig) GetMSConstMeV() float64 { return getFloat(c.MSConstMeV, 14.1) }

// GetMaxSnp returns the ceiling on the local sine.
func (c *TuningConfig) GetMaxSnp() float64 { return getFloat(c.MaxSnp, 0.95) }

func (c *TuningConfig) GetBetheBlochK() float64 { return getFloat(c.BetheBlochK, 0.153e-3) }

func (c *TuningConfig) GetBetheBlochIFactor() float64 {
	return getFloat(c.BetheBlochIFactor, 5940)
}

func (c *TuningConfig) GetBetheBlochPlateauBG() float64 {
	return getFloat(c.BetheBlochPlateauBG, 3.5)
}

func (c *TuningConfig) GetEnergyLossStraggling() float64 {
	return getFloat(c.EnergyLossStraggling, 0.07)
}

// GetGas returns the drift gas description.
func (c *TuningConfig) GetGas() l2geometry.UniformGas {
	def := l2geometry.DefaultGas()
	return l2geometry.UniformGas{
		RadLength: getFloat(c.GasRadLength, def.RadLength),
		Density:   getFloat(c.GasDensity, def.Density),
	}
}

func (c *TuningConfig) GetRoadSigmas() float64      { return getFloat(c.RoadSigmas, 4) }
func (c *TuningConfig) GetExpectedSigmaY2() float64 { return getFloat(c.ExpectedSigmaY2, 0.01) }
func (c *TuningConfig) GetMaxChi2() float64         { return getFloat(c.MaxChi2, 12.25) }
func (c *TuningConfig) GetSkipBudget() int          { return getInt(c.SkipBudget, 5) }

func (c *TuningConfig) GetMinClusterFraction() float64 {
	return getFloat(c.MinClusterFraction, 0.4)
}

func (c *TuningConfig) GetMinClusters() int        { return getInt(c.MinClusters, 10) }
func (c *TuningConfig) GetInnermostRow() int       { return getInt(c.InnermostRow, 0) }
func (c *TuningConfig) GetRefitCovScale() float64  { return getFloat(c.RefitCovScale, 100) }
func (c *TuningConfig) GetSeedOuterRowOffset() int { return getInt(c.SeedOuterRowOffset, 0) }
func (c *TuningConfig) GetSeedInnerRowOffset() int { return getInt(c.SeedInnerRowOffset, 20) }

func (c *TuningConfig) GetSeedMaxCurvature() float64 { return getFloat(c.SeedMaxCurvature, 0.01) }
func (c *TuningConfig) GetSeedMaxTgl() float64       { return getFloat(c.SeedMaxTgl, 1.5) }
func (c *TuningConfig) GetSeedMinFraction() float64  { return getFloat(c.SeedMinFraction, 0.5) }
func (c *TuningConfig) GetVertexZTolerance() float64 { return getFloat(c.VertexZTolerance, 15) }

// GetVertex returns the vertex hint position and variances.
func (c *TuningConfig) GetVertex() (x, y, z, sigmaY2, sigmaZ2 float64) {
	return getFloat(c.VertexX, 0), getFloat(c.VertexY, 0), getFloat(c.VertexZ, 0),
		getFloat(c.VertexSigmaY2, 0.01), getFloat(c.VertexSigmaZ2, 100)
}

// GetTiming returns whether time-of-flight integration is enabled.
func (c *TuningConfig) GetTiming() bool {
	if c.Timing == nil {
		return false // default: disabled
	}
	return *c.Timing
}

// GetPriority returns the seed priority policy.
func (c *TuningConfig) GetPriority() string {
	if c.Priority == nil || *c.Priority == "" {
		return "curvature"
	}
	return *c.Priority
}

func (c *TuningConfig) GetWorkers() int { return getInt(c.Workers, 1) }

func (c *TuningConfig) GetMaxWrongLabelFraction() float64 {
	return getFloat(c.MaxWrongLabelFraction, 0.1)
}

func (c *TuningConfig) GetDEdxTrimLow() float64  { return getFloat(c.DEdxTrimLow, 0) }
func (c *TuningConfig) GetDEdxTrimHigh() float64 { return getFloat(c.DEdxTrimHigh, 0.3) }

// GetGeometry returns the pad-plane layout.
func (c *TuningConfig) GetGeometry() l2geometry.DetectorGeometry {
	if c.Geometry == nil {
		return l2geometry.DefaultGeometry()
	}
	return *c.Geometry
}
