package l6session

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
)

// AcceptedTrack is the hand-off record of a track that passed scoring.
type AcceptedTrack struct {
	ID   string
	Seed int // build order of the originating seed

	// Inner is the state at the innermost followed row, Outer the refitted
	// state at the outermost assigned cluster.
	Inner l3kalman.Param
	Outer l3kalman.Param

	// Refs has one slot per global row, NoCluster where the row was a gap.
	Refs      []l1clusters.ID
	Clusters  []l1clusters.ID
	NClusters int
	Chi2      float64
	RefitChi2 float64

	RowsTraversed int
	EarlyStop     bool // following ended on the skip budget

	DEdx        float64
	Label       int
	Fake        bool
	NWrongAssoc int

	Time *l3kalman.TimeIntegrator
}

// ParamAt returns the track state propagated to local radius x, starting
// from whichever of Inner and Outer is closer.
func (t *AcceptedTrack) ParamAt(x float64, pr *l3kalman.Propagator) (l3kalman.Param, error) {
	from := t.Outer
	if math.Abs(t.Inner.X-x) < math.Abs(t.Outer.X-x) {
		from = t.Inner
	}
	p, _, err := pr.Propagate(from, x)
	if err != nil {
		return from, fmt.Errorf("track %s at x=%g: %w", t.ID, x, err)
	}
	return p, nil
}

// Pt returns the transverse momentum of the refitted state.
func (t *AcceptedTrack) Pt(ph l3kalman.Physics) float64 {
	pt, _ := ph.Pt(t.Outer.Curvature())
	return pt
}

// TrackID returns the deterministic identity of the track grown from the
// seed with the given build order in event.
func TrackID(event string, seed int) string {
	return "trk_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("tpctrack:%s/%d", event, seed))).String()
}
