package l6session

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/banshee-data/tpctrack/internal/config"
	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
	"github.com/banshee-data/tpctrack/internal/tpc/l4follow"
	"github.com/banshee-data/tpctrack/internal/tpc/l5seeds"
)

// Config holds every knob of a tracking session.
type Config struct {
	// Physics
	FieldKG              float64
	Mass                 float64 `validate:"gt=0"`
	MostProbablePt       float64 `validate:"gt=0"`
	MSConstMeV           float64 `validate:"gte=0"`
	MaxSnp               float64 `validate:"gt=0,lt=1"`
	BetheBlochK          float64 `validate:"gte=0"`
	BetheBlochIFactor    float64 `validate:"gt=0"`
	BetheBlochPlateauBG  float64 `validate:"gt=0"`
	EnergyLossStraggling float64 `validate:"gte=0"`

	// Association and following
	RoadSigmas         float64 `validate:"gt=0"`
	ExpectedSigmaY2    float64 `validate:"gte=0"`
	MaxChi2            float64 `validate:"gt=0"`
	SkipBudget         int     `validate:"gte=0"`
	MinClusterFraction float64 `validate:"gte=0,lte=1"`
	MinClusters        int     `validate:"gte=1"`
	InnermostRow       int     `validate:"gte=0"`
	RefitCovScale      float64 `validate:"gt=0"`
	Timing             bool

	// Seeding
	SeedOuterRowOffset int     `validate:"gte=0"`
	SeedInnerRowOffset int     `validate:"gtfield=SeedOuterRowOffset"`
	SeedMaxCurvature   float64 `validate:"gt=0"`
	SeedMaxTgl         float64 `validate:"gt=0"`
	SeedMinFraction    float64 `validate:"gte=0,lte=1"`
	VertexZTolerance   float64 `validate:"gt=0"`

	// Driver
	Priority              Priority `validate:"oneof=curvature clusters chi2"`
	Workers               int      `validate:"gte=1,lte=1024"`
	MaxWrongLabelFraction float64  `validate:"gte=0,lte=1"`
	DEdxTrimLow           float64  `validate:"gte=0,lt=1"`
	DEdxTrimHigh          float64  `validate:"gte=0,lt=1"`
}

// DefaultConfig returns the built-in defaults, identical to an empty
// tuning file.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		FieldKG:               cfg.GetFieldKG(),
		Mass:                  cfg.GetMass(),
		MostProbablePt:        cfg.GetMostProbablePt(),
		MSConstMeV:            cfg.GetMSConstMeV(),
		MaxSnp:                cfg.GetMaxSnp(),
		BetheBlochK:           cfg.GetBetheBlochK(),
		BetheBlochIFactor:     cfg.GetBetheBlochIFactor(),
		BetheBlochPlateauBG:   cfg.GetBetheBlochPlateauBG(),
		EnergyLossStraggling:  cfg.GetEnergyLossStraggling(),
		RoadSigmas:            cfg.GetRoadSigmas(),
		ExpectedSigmaY2:       cfg.GetExpectedSigmaY2(),
		MaxChi2:               cfg.GetMaxChi2(),
		SkipBudget:            cfg.GetSkipBudget(),
		MinClusterFraction:    cfg.GetMinClusterFraction(),
		MinClusters:           cfg.GetMinClusters(),
		InnermostRow:          cfg.GetInnermostRow(),
		RefitCovScale:         cfg.GetRefitCovScale(),
		Timing:                cfg.GetTiming(),
		SeedOuterRowOffset:    cfg.GetSeedOuterRowOffset(),
		SeedInnerRowOffset:    cfg.GetSeedInnerRowOffset(),
		SeedMaxCurvature:      cfg.GetSeedMaxCurvature(),
		SeedMaxTgl:            cfg.GetSeedMaxTgl(),
		SeedMinFraction:       cfg.GetSeedMinFraction(),
		VertexZTolerance:      cfg.GetVertexZTolerance(),
		Priority:              Priority(cfg.GetPriority()),
		Workers:               cfg.GetWorkers(),
		MaxWrongLabelFraction: cfg.GetMaxWrongLabelFraction(),
		DEdxTrimLow:           cfg.GetDEdxTrimLow(),
		DEdxTrimHigh:          cfg.GetDEdxTrimHigh(),
	}
}

var validate = validator.New()

// Validate checks field ranges and the cross-field constraints the struct
// tags cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}
	if c.DEdxTrimLow+c.DEdxTrimHigh >= 1 {
		return fmt.Errorf("invalid session config: dE/dx trim fractions sum to %g, must be below 1", c.DEdxTrimLow+c.DEdxTrimHigh)
	}
	return nil
}

// ValidateDetector checks the row settings against the built detector.
func (c Config) ValidateDetector(det *l2geometry.Detector) error {
	if n := det.Inner.NRows(); c.InnermostRow >= n {
		return fmt.Errorf("invalid session config: innermost row %d outside the %d inner rows", c.InnermostRow, n)
	}
	return nil
}

// Physics returns the propagation constants.
func (c Config) Physics() l3kalman.Physics {
	return l3kalman.Physics{
		FieldKG:        c.FieldKG,
		Mass:           c.Mass,
		MostProbablePt: c.MostProbablePt,
		MSConstMeV:     c.MSConstMeV,
		MaxSnp:         c.MaxSnp,
		BetheBloch: l3kalman.BetheBloch{
			K:          c.BetheBlochK,
			IFactor:    c.BetheBlochIFactor,
			PlateauBG:  c.BetheBlochPlateauBG,
			Straggling: c.EnergyLossStraggling,
		},
	}
}

// Follow returns the association and following parameters.
func (c Config) Follow() l4follow.Config {
	return l4follow.Config{
		RoadSigmas:         c.RoadSigmas,
		ExpectedSigmaY2:    c.ExpectedSigmaY2,
		MaxChi2:            c.MaxChi2,
		SkipBudget:         c.SkipBudget,
		MinClusterFraction: c.MinClusterFraction,
		MinClusters:        c.MinClusters,
		InnermostRow:       c.InnermostRow,
		RefitCovScale:      c.RefitCovScale,
		Timing:             c.Timing,
	}
}

// Seeding returns the seed builder parameters.
func (c Config) Seeding() l5seeds.Config {
	return l5seeds.Config{
		OuterRowOffset:   c.SeedOuterRowOffset,
		InnerRowOffset:   c.SeedInnerRowOffset,
		MaxCurvature:     c.SeedMaxCurvature,
		MaxTgl:           c.SeedMaxTgl,
		VertexZTolerance: c.VertexZTolerance,
		MinFraction:      c.SeedMinFraction,
		Timing:           c.Timing,
	}
}

// VertexFromTuning returns the vertex hint of cfg.
func VertexFromTuning(cfg *config.TuningConfig) l5seeds.Vertex {
	x, y, z, sy2, sz2 := cfg.GetVertex()
	return l5seeds.Vertex{X: x, Y: y, Z: z, SigmaY2: sy2, SigmaZ2: sz2}
}

// NewFromTuning returns a session configured entirely from cfg: knobs,
// geometry, gas and vertex.
func NewFromTuning(cfg *config.TuningConfig, eventID string) *Session {
	return &Session{
		Config:   ConfigFromTuning(cfg),
		Geometry: cfg.GetGeometry(),
		Material: cfg.GetGas(),
		Vertex:   VertexFromTuning(cfg),
		EventID:  eventID,
	}
}
