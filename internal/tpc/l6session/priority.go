package l6session

import (
	"math"
	"sort"

	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
	"github.com/banshee-data/tpctrack/internal/tpc/l5seeds"
)

// Priority names the seed ordering policy of the driver.
type Priority string

const (
	// PriorityCurvature processes the seeds with the largest conservative
	// curvature |C| - σ(C) first.
	PriorityCurvature Priority = "curvature"
	// PriorityClusters processes the best confirmed seeds first.
	PriorityClusters Priority = "clusters"
	// PriorityChi2 processes the seeds with the lowest confirmation χ² per
	// cluster first.
	PriorityChi2 Priority = "chi2"
)

func curvatureKey(s l5seeds.Seed) float64 {
	p := s.Track.Param
	return math.Abs(p.Curvature()) - math.Sqrt(math.Max(0, p.C.At(l3kalman.ICrv, l3kalman.ICrv)))
}

func chi2Key(s l5seeds.Seed) float64 {
	if s.ConfirmClusters == 0 {
		return math.Inf(1)
	}
	return s.ConfirmChi2 / float64(s.ConfirmClusters)
}

// Order returns seeds sorted by policy. The sort is stable, so equal keys
// keep build order. seeds is not modified.
func Order(seeds []l5seeds.Seed, policy Priority) []l5seeds.Seed {
	out := append([]l5seeds.Seed(nil), seeds...)
	var less func(a, b l5seeds.Seed) bool
	switch policy {
	case PriorityClusters:
		less = func(a, b l5seeds.Seed) bool { return a.ConfirmClusters > b.ConfirmClusters }
	case PriorityChi2:
		less = func(a, b l5seeds.Seed) bool { return chi2Key(a) < chi2Key(b) }
	default:
		less = func(a, b l5seeds.Seed) bool { return curvatureKey(a) > curvatureKey(b) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
