package l6session

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tpctrack/internal/config"
	"github.com/banshee-data/tpctrack/internal/testutil"
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
	"github.com/banshee-data/tpctrack/internal/tpc/l4follow"
	"github.com/banshee-data/tpctrack/internal/tpc/l5seeds"
)

func newSession(cfg Config) *Session {
	s := New(cfg, testutil.SmallGeometry(), "evt-1")
	s.Material = l2geometry.Vacuum{}
	return s
}

func run(t *testing.T, cfg Config, helices []testutil.Helix, opts testutil.Options) *Result {
	t.Helper()
	gen := testutil.NewGenerator(testutil.SmallGeometry())
	res, err := newSession(cfg).Run(context.Background(), l1clusters.SliceSupply(gen.Clusters(helices, opts)))
	require.NoError(t, err)
	return res
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, PriorityCurvature, cfg.Priority)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, cfg, ConfigFromTuning(config.MustLoadDefaultConfig()))
	assert.Equal(t, l3kalman.DefaultPhysics(), cfg.Physics())
	assert.Equal(t, l4follow.DefaultConfig(), cfg.Follow())
	assert.Equal(t, l5seeds.DefaultConfig(), cfg.Seeding())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"max snp at one", func(c *Config) { c.MaxSnp = 1 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"unknown priority", func(c *Config) { c.Priority = "random" }},
		{"seed rows inverted", func(c *Config) { c.SeedInnerRowOffset = c.SeedOuterRowOffset }},
		{"trim overlaps", func(c *Config) { c.DEdxTrimLow, c.DEdxTrimHigh = 0.5, 0.5 }},
		{"fraction above one", func(c *Config) { c.MinClusterFraction = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mod(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigFromTuningValidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"max snp", `{"max_snp": 1.0}`, "MaxSnp"},
		{"priority", `{"priority": "random"}`, "Priority"},
		{"workers", `{"workers": 0}`, "Workers"},
		{"fraction", `{"min_cluster_fraction": 1.5}`, "MinClusterFraction"},
		{"skip budget", `{"skip_budget": -1}`, "SkipBudget"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "tuning.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			tuning, err := config.LoadTuningConfig(path)
			require.NoError(t, err)
			assert.ErrorContains(t, ConfigFromTuning(tuning).Validate(), tt.field)
		})
	}
}

func TestRunStraightTrack(t *testing.T) {
	t.Parallel()

	h := testutil.Helix{Phi0: 0.4, Tgl: 0.25, Label: 7}
	res := run(t, DefaultConfig(), []testutil.Helix{h}, testutil.Options{})
	total := res.Detector.TotalRows()

	require.Len(t, res.Tracks, 1)
	tr := res.Tracks[0]
	assert.Equal(t, total, tr.NClusters)
	assert.Equal(t, total, tr.RowsTraversed)
	assert.Len(t, tr.Clusters, total)
	assert.Less(t, tr.Chi2, 1e-6)
	assert.False(t, tr.EarlyStop)
	assert.Equal(t, 7, tr.Label)
	assert.False(t, tr.Fake)
	assert.Zero(t, tr.NWrongAssoc)
	assert.Greater(t, tr.DEdx, 0.0)
	assert.Equal(t, TrackID("evt-1", tr.Seed), tr.ID)
	assert.Regexp(t, `^trk_[0-9a-f-]{36}$`, tr.ID)

	// Refit ends at the outermost cluster.
	gen := testutil.NewGenerator(testutil.SmallGeometry())
	outer := res.Detector.Outer.NRows() - 1
	truth, ok := gen.Truth(h, l1clusters.OuterGroup, outer)
	require.True(t, ok)
	assert.InDelta(t, truth.X, tr.Outer.X, 1e-9)
	assert.InDelta(t, truth.Y, tr.Outer.Y(), 1e-4)
	assert.InDelta(t, truth.Z, tr.Outer.Z(), 1e-4)
	assert.InDelta(t, 0, tr.Outer.Curvature(), 1e-6)

	m := res.Metrics
	assert.Equal(t, 1, m.Seeds)
	assert.Equal(t, 1, m.Accepted)
	assert.Equal(t, total, m.ClaimedClusters)
	assert.Equal(t, total, m.Clusters)
	assert.InDelta(t, 1, m.Efficiency(), 1e-12)
}

func TestParamAt(t *testing.T) {
	t.Parallel()

	h := testutil.Helix{Phi0: 0.4, Label: 1}
	res := run(t, DefaultConfig(), []testutil.Helix{h}, testutil.Options{})
	require.Len(t, res.Tracks, 1)
	tr := res.Tracks[0]

	prop := l3kalman.NewPropagator(DefaultConfig().Physics(), l2geometry.Vacuum{})
	p, err := tr.ParamAt(tr.Inner.X+1, prop)
	require.NoError(t, err)
	assert.Equal(t, tr.Inner.Alpha, p.Alpha)
	assert.InDelta(t, tr.Inner.X+1, p.X, 1e-12)

	p, err = tr.ParamAt(tr.Outer.X-1, prop)
	require.NoError(t, err)
	assert.Equal(t, tr.Outer.Alpha, p.Alpha)
}

func TestCompetingTracks(t *testing.T) {
	t.Parallel()

	// Two particles on the same trajectory; the second lacks a cluster on
	// global row 30, where only the first particle's cluster remains.
	helices := []testutil.Helix{
		{Phi0: 0.4, Tgl: 0.1, Label: 1},
		{Phi0: 0.4, Tgl: 0.1, Label: 2},
	}
	opts := testutil.Options{Skip: map[int]map[int]bool{2: {30: true}}}

	for _, workers := range []int{1, 4} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		res := run(t, cfg, helices, opts)
		total := res.Detector.TotalRows()

		require.Len(t, res.Tracks, 2, "workers=%d", workers)
		first, second := res.Tracks[0], res.Tracks[1]
		assert.Equal(t, 1, first.Label)
		assert.Equal(t, total, first.NClusters)
		assert.Equal(t, 2, second.Label)
		assert.Equal(t, total-1, second.NClusters)
		assert.Equal(t, l1clusters.NoCluster, second.Refs[30])
		assert.Zero(t, second.NWrongAssoc)

		seen := map[l1clusters.ID]bool{}
		for _, tr := range res.Tracks {
			for _, id := range tr.Clusters {
				assert.False(t, seen[id], "cluster %d claimed twice", id)
				seen[id] = true
			}
		}
		assert.Equal(t, 4, res.Metrics.Seeds)
		assert.Equal(t, 2, res.Metrics.SeedsDropped)
		if workers > 1 {
			assert.Equal(t, 1, res.Metrics.Refollowed)
		} else {
			assert.Zero(t, res.Metrics.Refollowed)
		}
	}
}

func busyEvent() ([]testutil.Helix, testutil.Options) {
	var helices []testutil.Helix
	for i := 0; i < 24; i++ {
		phi := -math.Pi + 0.26*float64(i)
		crv := float64(i%5-2) / 1500
		helices = append(helices, testutil.Helix{
			Phi0:      phi,
			Curvature: crv,
			Tgl:       0.1 * float64(i%7-3),
			Label:     i + 1,
		})
	}
	// Near-duplicates that fight over clusters.
	helices = append(helices,
		testutil.Helix{Phi0: -math.Pi + 0.26*3, Curvature: 1.0 / 1500, Tgl: 0.005, Label: 101},
		testutil.Helix{Phi0: -math.Pi + 0.26*9 + 0.001, Curvature: 2.0 / 1500, Tgl: -0.1, Label: 102},
	)
	return helices, testutil.Options{Smear: rand.New(rand.NewSource(7))}
}

func TestRunDeterministic(t *testing.T) {
	t.Parallel()

	helices, _ := busyEvent()
	runOnce := func(workers int) *Result {
		_, opts := busyEvent() // fresh smearing source per run
		cfg := DefaultConfig()
		cfg.Workers = workers
		return run(t, cfg, helices, opts)
	}

	ref := runOnce(1)
	require.NotEmpty(t, ref.Tracks)
	again := runOnce(1)
	assert.Empty(t, cmp.Diff(ref.Tracks, again.Tracks))
	assert.Equal(t, Fingerprint(ref.Tracks), Fingerprint(again.Tracks))

	for _, workers := range []int{2, 3, 8} {
		par := runOnce(workers)
		assert.Empty(t, cmp.Diff(ref.Tracks, par.Tracks), "workers=%d", workers)
		assert.Equal(t, Fingerprint(ref.Tracks), Fingerprint(par.Tracks), "workers=%d", workers)
		assert.Equal(t, ref.Metrics.Accepted, par.Metrics.Accepted)
		assert.Equal(t, ref.Metrics.SeedsDropped, par.Metrics.SeedsDropped)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	helices, opts := busyEvent()
	gen := testutil.NewGenerator(testutil.SmallGeometry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newSession(DefaultConfig()).Run(ctx, l1clusters.SliceSupply(gen.Clusters(helices, opts)))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"innermost row past the inner group", func(c *Config) { c.InnermostRow = 1000 }},
		{"innermost row at the inner row count", func(c *Config) { c.InnermostRow = 20 }},
	}
	gen := testutil.NewGenerator(testutil.SmallGeometry())
	supply := l1clusters.SliceSupply(gen.Clusters([]testutil.Helix{{Phi0: 0.4, Tgl: 0.25, Label: 7}}, testutil.Options{}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			res, err := newSession(cfg).Run(context.Background(), supply)
			assert.Error(t, err)
			assert.Nil(t, res)
		})
	}

	t.Run("last inner row", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.InnermostRow = 19
		_, err := newSession(cfg).Run(context.Background(), supply)
		assert.NoError(t, err)
	})
}

func TestFingerprintSensitive(t *testing.T) {
	t.Parallel()

	res := run(t, DefaultConfig(), []testutil.Helix{{Phi0: 0.4, Label: 1}}, testutil.Options{})
	require.Len(t, res.Tracks, 1)
	tracks := append([]AcceptedTrack(nil), res.Tracks...)
	base := Fingerprint(tracks)
	tracks[0].Outer.P[l3kalman.IY] = math.Nextafter(tracks[0].Outer.P[l3kalman.IY], math.Inf(1))
	assert.NotEqual(t, base, Fingerprint(tracks))
	assert.NotEqual(t, Fingerprint(nil), base)
}

func TestClaims(t *testing.T) {
	t.Parallel()

	c := NewClaims(4)
	assert.False(t, c.IsClaimed(0))
	assert.True(t, c.IsClaimed(9), "out of range is never available")

	require.True(t, c.ClaimAll([]l1clusters.ID{0, 2}, 5))
	owner, ok := c.Owner(2)
	assert.True(t, ok)
	assert.Equal(t, 5, owner)
	_, ok = c.Owner(1)
	assert.False(t, ok)

	// All or nothing.
	assert.False(t, c.ClaimAll([]l1clusters.ID{1, 2}, 6))
	assert.False(t, c.IsClaimed(1))
	assert.Equal(t, 2, c.Len())

	r := &recorder{claims: c}
	assert.False(t, r.IsClaimed(1))
	assert.False(t, r.stale())
	require.True(t, c.ClaimAll([]l1clusters.ID{1}, 7))
	assert.True(t, r.stale())
}

func TestOrder(t *testing.T) {
	t.Parallel()

	mk := func(order int, crv, c44 float64, clusters int, chi2 float64) l5seeds.Seed {
		p := l3kalman.Param{}
		p.P[l3kalman.ICrv] = crv
		p.C.Set(l3kalman.ICrv, l3kalman.ICrv, c44)
		return l5seeds.Seed{
			Order:           order,
			Track:           l4follow.NewTrack(order, p, l1clusters.OuterGroup, 0, 0, 1, false),
			ConfirmClusters: clusters,
			ConfirmChi2:     chi2,
		}
	}
	seeds := []l5seeds.Seed{
		mk(0, 0.001, 0, 10, 5),
		mk(1, -0.004, 1e-6, 20, 1),
		mk(2, 0.002, 0, 20, 4),
		mk(3, 0.001, 0, 15, 0.5),
	}
	orders := func(s []l5seeds.Seed) []int {
		out := make([]int, len(s))
		for i := range s {
			out[i] = s[i].Order
		}
		return out
	}

	assert.Equal(t, []int{1, 2, 0, 3}, orders(Order(seeds, PriorityCurvature)))
	assert.Equal(t, []int{1, 2, 3, 0}, orders(Order(seeds, PriorityClusters)))
	assert.Equal(t, []int{3, 1, 2, 0}, orders(Order(seeds, PriorityChi2)))
	assert.Equal(t, []int{0, 1, 2, 3}, orders(seeds), "input untouched")
}

func TestTrimmedMean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		samples   []float64
		low, high float64
		want      float64
	}{
		{"empty", nil, 0, 0.3, 0},
		{"no trim", []float64{3, 1, 2}, 0, 0, 2},
		{"drop top", []float64{10, 1, 2, 3, 4, 5, 6, 7, 8, 100}, 0, 0.3, 4},
		{"drop both", []float64{100, 1, 2, 3, 4, 5, 6, 7, 8, -50}, 0.1, 0.1, 4.5},
		{"single sample", []float64{9}, 0, 0.3, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, TrimmedMean(tt.samples, tt.low, tt.high), 1e-12)
		})
	}
}

func TestVoteLabel(t *testing.T) {
	t.Parallel()

	arena := l1clusters.NewArena(0)
	add := func(labels ...int) l1clusters.ID {
		l := l1clusters.Unlabelled()
		copy(l[:], labels)
		return arena.Add(l1clusters.Cluster{Labels: l})
	}
	a1, a2, a3 := add(4), add(4), add(4)
	b1 := add(9, 4)
	c1, c2 := add(2), add(2)
	u := add()
	arena.Freeze()

	t.Run("majority", func(t *testing.T) {
		t.Parallel()
		v := voteLabel(arena, []l1clusters.ID{a1, a2, a3, b1, c1}, 0.3)
		assert.Equal(t, 4, v.Label)
		assert.Equal(t, 1, v.Wrong, "secondary label slot counts as a match")
		assert.False(t, v.Fake)
	})
	t.Run("fake", func(t *testing.T) {
		t.Parallel()
		v := voteLabel(arena, []l1clusters.ID{a1, a2, c1, c2, u}, 0.1)
		assert.Equal(t, -2, v.Label, "tie goes to the smaller label")
		assert.Equal(t, 3, v.Wrong)
		assert.True(t, v.Fake)
	})
	t.Run("unlabelled", func(t *testing.T) {
		t.Parallel()
		v := voteLabel(arena, []l1clusters.ID{u}, 0.1)
		assert.Equal(t, l1clusters.NoLabel, v.Label)
	})
}
