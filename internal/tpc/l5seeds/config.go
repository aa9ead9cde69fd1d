package l5seeds

import (
	"errors"
	"fmt"
)

// Vertex is the interaction point hint in the global frame.
type Vertex struct {
	X, Y, Z float64
	SigmaY2 float64 // transverse variance (cm²)
	SigmaZ2 float64 // longitudinal variance (cm²)
}

// Config holds the seeding knobs. Row offsets count inward from the last
// row of the outer group.
type Config struct {
	OuterRowOffset   int
	InnerRowOffset   int
	MaxCurvature     float64 // 1/cm
	MaxTgl           float64
	VertexZTolerance float64 // cm
	MinFraction      float64 // rows between the seed rows that must get a cluster
	Timing           bool
}

// DefaultConfig returns the standard seeding parameters.
func DefaultConfig() Config {
	return Config{
		OuterRowOffset:   0,
		InnerRowOffset:   20,
		MaxCurvature:     0.01,
		MaxTgl:           1.5,
		VertexZTolerance: 15,
		MinFraction:      0.5,
	}
}

// DefaultVertex is the nominal interaction point.
func DefaultVertex() Vertex {
	return Vertex{SigmaY2: 0.01, SigmaZ2: 100}
}

var errSeedRows = errors.New("seed rows must satisfy 0 <= outer offset < inner offset")

// Validate checks the row offsets against an outer group of nRows rows.
func (c Config) Validate(nRows int) error {
	if c.OuterRowOffset < 0 || c.InnerRowOffset <= c.OuterRowOffset {
		return errSeedRows
	}
	if c.InnerRowOffset >= nRows {
		return fmt.Errorf("inner seed row offset %d outside %d outer rows", c.InnerRowOffset, nRows)
	}
	if c.MaxCurvature <= 0 || c.MaxTgl <= 0 || c.VertexZTolerance <= 0 {
		return errors.New("seed limits must be positive")
	}
	if c.MinFraction < 0 || c.MinFraction > 1 {
		return fmt.Errorf("seed min fraction %f outside [0, 1]", c.MinFraction)
	}
	return nil
}
