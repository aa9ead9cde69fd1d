package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetMaxSnp() != 0.95 {
		t.Errorf("GetMaxSnp() = %f, want 0.95", cfg.GetMaxSnp())
	}
	if cfg.GetSkipBudget() != 5 {
		t.Errorf("GetSkipBudget() = %d, want 5", cfg.GetSkipBudget())
	}
	if cfg.GetPriority() != "curvature" {
		t.Errorf("GetPriority() = %q, want curvature", cfg.GetPriority())
	}
	if cfg.GetWorkers() != 1 {
		t.Errorf("GetWorkers() = %d, want 1", cfg.GetWorkers())
	}
	if cfg.GetTiming() {
		t.Error("GetTiming() = true, want false")
	}
	if g := cfg.GetGas(); g != l2geometry.DefaultGas() {
		t.Errorf("GetGas() = %+v, want %+v", g, l2geometry.DefaultGas())
	}
	if n := cfg.GetGeometry().Outer.Segments[0].Rows; n != 64 {
		t.Errorf("default outer segment rows = %d, want 64", n)
	}
	x, y, z, sy2, sz2 := cfg.GetVertex()
	if x != 0 || y != 0 || z != 0 || sy2 != 0.01 || sz2 != 100 {
		t.Errorf("GetVertex() = %v %v %v %v %v", x, y, z, sy2, sz2)
	}
}

func TestDefaultsFileMatchesGetters(t *testing.T) {
	file := MustLoadDefaultConfig()
	empty := EmptyTuningConfig()

	floats := map[string][2]float64{
		"field_kg":           {file.GetFieldKG(), empty.GetFieldKG()},
		"mass":               {file.GetMass(), empty.GetMass()},
		"ms_const_mev":       {file.GetMSConstMeV(), empty.GetMSConstMeV()},
		"bethe_bloch_k":      {file.GetBetheBlochK(), empty.GetBetheBlochK()},
		"road_sigmas":        {file.GetRoadSigmas(), empty.GetRoadSigmas()},
		"max_chi2":           {file.GetMaxChi2(), empty.GetMaxChi2()},
		"seed_max_curvature": {file.GetSeedMaxCurvature(), empty.GetSeedMaxCurvature()},
		"dedx_trim_high":     {file.GetDEdxTrimHigh(), empty.GetDEdxTrimHigh()},
		"refit_cov_scale":    {file.GetRefitCovScale(), empty.GetRefitCovScale()},
	}
	for name, v := range floats {
		if v[0] != v[1] {
			t.Errorf("%s: file %g, getter default %g", name, v[0], v[1])
		}
	}
	if file.GetGas() != empty.GetGas() {
		t.Errorf("gas: file %+v, default %+v", file.GetGas(), empty.GetGas())
	}
	fg, dg := file.GetGeometry(), empty.GetGeometry()
	if fg.Inner.FirstRadius != dg.Inner.FirstRadius || len(fg.Outer.Segments) != len(dg.Outer.Segments) {
		t.Errorf("geometry: file %+v, default %+v", fg, dg)
	}
}

func TestLoadTuningConfigJSON(t *testing.T) {
	path := writeFile(t, "tuning.json", `{
  "max_snp": 0.9,
  "skip_budget": 2,
  "priority": "chi2",
  "workers": 4
}`)
	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetMaxSnp() != 0.9 {
		t.Errorf("GetMaxSnp() = %f, want 0.9", cfg.GetMaxSnp())
	}
	if cfg.GetSkipBudget() != 2 {
		t.Errorf("GetSkipBudget() = %d, want 2", cfg.GetSkipBudget())
	}
	if cfg.GetPriority() != "chi2" || cfg.GetWorkers() != 4 {
		t.Errorf("priority/workers = %q/%d", cfg.GetPriority(), cfg.GetWorkers())
	}
	// Unset fields fall back to defaults.
	if cfg.GetRoadSigmas() != 4 {
		t.Errorf("GetRoadSigmas() = %f, want 4", cfg.GetRoadSigmas())
	}
}

func TestLoadTuningConfigYAML(t *testing.T) {
	path := writeFile(t, "tuning.yaml", `
field_kg: 2
min_clusters: 20
geometry:
  inner:
    n_sectors: 12
    first_radius: 50
    segments:
      - {rows: 10, pitch: 1, pad_width: 0.4, pad_length: 0.75}
  outer:
    n_sectors: 12
    first_radius: 70
    segments:
      - {rows: 20, pitch: 1, pad_width: 0.6, pad_length: 1}
`)
	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetFieldKG() != 2 || cfg.GetMinClusters() != 20 {
		t.Errorf("field/min clusters = %f/%d", cfg.GetFieldKG(), cfg.GetMinClusters())
	}
	g := cfg.GetGeometry()
	if g.Inner.NSectors != 12 || g.Outer.Segments[0].Rows != 20 {
		t.Errorf("geometry not parsed: %+v", g)
	}
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"extension", "tuning.txt", "{}", "extension"},
		{"bad json", "tuning.json", "{", "parse"},
		{"geometry", "tuning.yaml", "geometry: {inner: {n_sectors: 0}}", "geometry"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadTuningConfig(writeFile(t, tc.file, tc.body))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}

	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := &TuningConfig{
		MaxSnp:     ptrFloat64(0.5),
		SkipBudget: ptrInt(0),
		Priority:   ptrString("clusters"),
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	geom := l2geometry.DefaultGeometry()
	geom.Outer.NSectors = 0
	cfg.Geometry = &geom
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for a group without sectors")
	}
}
