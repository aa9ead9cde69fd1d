package l4follow

import (
	"math"

	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
)

// TrackState is the lifecycle state of a track. Transitions only move
// forward: seeded, following-outer, following-inner, scored, then accepted
// or rejected.
type TrackState string

const (
	TrackSeeded         TrackState = "seeded"
	TrackFollowingOuter TrackState = "following_outer"
	TrackFollowingInner TrackState = "following_inner"
	TrackScored         TrackState = "scored"
	TrackAccepted       TrackState = "accepted"
	TrackRejected       TrackState = "rejected"
)

// Track is a track candidate being followed. Param is the current state;
// Group, Sector and Row say where it was last evaluated.
type Track struct {
	Seed  int // build order of the seed this track grew from
	State TrackState

	Param  l3kalman.Param
	Group  l1clusters.Group
	Sector int
	Row    int // local row of Param within Group

	// Refs has one slot per global row; rows without a cluster hold
	// l1clusters.NoCluster.
	Refs          []l1clusters.ID
	NClusters     int
	Chi2          float64
	NWrongAssoc   int
	DEdxSamples   []float64
	Gaps          int // current run of consecutive rows without a cluster
	RowsTraversed int

	Time *l3kalman.TimeIntegrator
}

// NewTrack returns a seeded track at (group, sector, row) with room for
// totalRows global rows.
func NewTrack(seed int, p l3kalman.Param, g l1clusters.Group, sector, row, totalRows int, timing bool) *Track {
	t := &Track{
		Seed:   seed,
		State:  TrackSeeded,
		Param:  p,
		Group:  g,
		Sector: sector,
		Row:    row,
		Refs:   make([]l1clusters.ID, totalRows),
	}
	for i := range t.Refs {
		t.Refs[i] = l1clusters.NoCluster
	}
	if timing {
		t.Time = &l3kalman.TimeIntegrator{}
	}
	return t
}

// Clone returns a deep copy.
func (t *Track) Clone() *Track {
	c := *t
	c.Refs = append([]l1clusters.ID(nil), t.Refs...)
	c.DEdxSamples = append([]float64(nil), t.DEdxSamples...)
	if t.Time != nil {
		ti := *t.Time
		c.Time = &ti
	}
	return &c
}

// Assign records cluster c at global row with its χ² and charge sample.
func (t *Track) Assign(global int, c *l1clusters.Cluster, chi2, padLength float64) {
	t.Refs[global] = c.ID
	t.NClusters++
	t.Chi2 += chi2
	t.Gaps = 0
	if c.Q > 0 && padLength > 0 {
		t.DEdxSamples = append(t.DEdxSamples, NormalizedCharge(c.Q, t.Param, padLength))
	}
}

// Clusters returns the assigned cluster IDs in global row order.
func (t *Track) Clusters() []l1clusters.ID {
	out := make([]l1clusters.ID, 0, t.NClusters)
	for _, id := range t.Refs {
		if id != l1clusters.NoCluster {
			out = append(out, id)
		}
	}
	return out
}

// NormalizedCharge converts a cluster charge into charge per unit track
// length for the track direction in p.
func NormalizedCharge(q float64, p l3kalman.Param, padLength float64) float64 {
	snp, tgl := p.Snp(), p.Tgl()
	return q * math.Sqrt((1-snp)*(1+snp)) / math.Sqrt(1+tgl*tgl) / padLength
}
