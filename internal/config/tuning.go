package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tracking parameters.
// Every field is optional; the Get* methods supply defaults for fields the
// file leaves out, so partial configs are safe.
type TuningConfig struct {
	// Physics
	FieldKG              *float64 `json:"field_kg,omitempty" yaml:"field_kg,omitempty"`
	Mass                 *float64 `json:"mass,omitempty" yaml:"mass,omitempty"`
	MostProbablePt       *float64 `json:"most_probable_pt,omitempty" yaml:"most_probable_pt,omitempty"`
	MSConstMeV           *float64 `json:"ms_const_mev,omitempty" yaml:"ms_const_mev,omitempty"`
	MaxSnp               *float64 `json:"max_snp,omitempty" yaml:"max_snp,omitempty"`
	BetheBlochK          *float64 `json:"bethe_bloch_k,omitempty" yaml:"bethe_bloch_k,omitempty"`
	BetheBlochIFactor    *float64 `json:"bethe_bloch_i_factor,omitempty" yaml:"bethe_bloch_i_factor,omitempty"`
	BetheBlochPlateauBG  *float64 `json:"bethe_bloch_plateau_bg,omitempty" yaml:"bethe_bloch_plateau_bg,omitempty"`
	EnergyLossStraggling *float64 `json:"energy_loss_straggling,omitempty" yaml:"energy_loss_straggling,omitempty"`

	// Gas
	GasRadLength *float64 `json:"gas_rad_length,omitempty" yaml:"gas_rad_length,omitempty"`
	GasDensity   *float64 `json:"gas_density,omitempty" yaml:"gas_density,omitempty"`

	// Association and following
	RoadSigmas         *float64 `json:"road_sigmas,omitempty" yaml:"road_sigmas,omitempty"`
	ExpectedSigmaY2    *float64 `json:"expected_sigma_y2,omitempty" yaml:"expected_sigma_y2,omitempty"`
	MaxChi2            *float64 `json:"max_chi2,omitempty" yaml:"max_chi2,omitempty"`
	SkipBudget         *int     `json:"skip_budget,omitempty" yaml:"skip_budget,omitempty"`
	MinClusterFraction *float64 `json:"min_cluster_fraction,omitempty" yaml:"min_cluster_fraction,omitempty"`
	MinClusters        *int     `json:"min_clusters,omitempty" yaml:"min_clusters,omitempty"`
	InnermostRow       *int     `json:"innermost_row,omitempty" yaml:"innermost_row,omitempty"`
	RefitCovScale      *float64 `json:"refit_cov_scale,omitempty" yaml:"refit_cov_scale,omitempty"`
	Timing             *bool    `json:"timing,omitempty" yaml:"timing,omitempty"`

	// Seeding
	SeedOuterRowOffset *int     `json:"seed_outer_row_offset,omitempty" yaml:"seed_outer_row_offset,omitempty"`
	SeedInnerRowOffset *int     `json:"seed_inner_row_offset,omitempty" yaml:"seed_inner_row_offset,omitempty"`
	SeedMaxCurvature   *float64 `json:"seed_max_curvature,omitempty" yaml:"seed_max_curvature,omitempty"`
	SeedMaxTgl         *float64 `json:"seed_max_tgl,omitempty" yaml:"seed_max_tgl,omitempty"`
	SeedMinFraction    *float64 `json:"seed_min_fraction,omitempty" yaml:"seed_min_fraction,omitempty"`
	VertexZTolerance   *float64 `json:"vertex_z_tolerance,omitempty" yaml:"vertex_z_tolerance,omitempty"`
	VertexX            *float64 `json:"vertex_x,omitempty" yaml:"vertex_x,omitempty"`
	VertexY            *float64 `json:"vertex_y,omitempty" yaml:"vertex_y,omitempty"`
	VertexZ            *float64 `json:"vertex_z,omitempty" yaml:"vertex_z,omitempty"`
	VertexSigmaY2      *float64 `json:"vertex_sigma_y2,omitempty" yaml:"vertex_sigma_y2,omitempty"`
	VertexSigmaZ2      *float64 `json:"vertex_sigma_z2,omitempty" yaml:"vertex_sigma_z2,omitempty"`

	// Driver
	Priority              *string  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Workers               *int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	MaxWrongLabelFraction *float64 `json:"max_wrong_label_fraction,omitempty" yaml:"max_wrong_label_fraction,omitempty"`
	DEdxTrimLow           *float64 `json:"dedx_trim_low,omitempty" yaml:"dedx_trim_low,omitempty"`
	DEdxTrimHigh          *float64 `json:"dedx_trim_high,omitempty" yaml:"dedx_trim_high,omitempty"`

	// Pad-plane layout
	Geometry *l2geometry.DetectorGeometry `json:"geometry,omitempty" yaml:"geometry,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file, chosen by
// extension. The file must be under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/tpc/l6session/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the pad-plane layout when the file sets one. Value
// ranges are checked once, on the session configuration built from this
// file.
func (c *TuningConfig) Validate() error {
	if c.Geometry != nil {
		if err := c.Geometry.Validate(); err != nil {
			return fmt.Errorf("geometry: %w", err)
		}
	}
	return nil
}
