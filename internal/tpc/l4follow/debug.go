package l4follow

import "github.com/banshee-data/tpctrack/internal/tpc/l1clusters"

// DebugCollector receives association internals for offline inspection.
// Implementations must tolerate concurrent calls from parallel followers.
type DebugCollector interface {
	IsEnabled() bool
	RecordRoad(seed, row int, y, z, halfWidth float64)
	RecordAssociation(seed, row int, id l1clusters.ID, chi2 float64, accepted bool)
	RecordInnovation(seed, row int, predY, predZ, measY, measZ, chi2 float64)
	RecordPrediction(seed, row int, x, y, z, snp float64)
}

func debugOn(d DebugCollector) bool { return d != nil && d.IsEnabled() }
