package l4follow

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/tpctrack/internal/tpc"
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
)

// maxCrossings bounds the sector rotations attempted for a single row.
const maxCrossings = 2

// Follower walks tracks through the detector. It holds only read-only
// shared state and is safe for concurrent use on distinct tracks.
type Follower struct {
	Detector   *l2geometry.Detector
	Arena      *l1clusters.Arena
	Propagator *l3kalman.Propagator
	Associator *Associator
	Config     Config
	Debug      DebugCollector
}

// NewFollower wires a follower for one event.
func NewFollower(d *l2geometry.Detector, arena *l1clusters.Arena, prop *l3kalman.Propagator, cfg Config) *Follower {
	return &Follower{
		Detector:   d,
		Arena:      arena,
		Propagator: prop,
		Associator: NewAssociator(cfg),
		Config:     cfg,
	}
}

// SetDebugCollector attaches a collector to the follower and its
// associator.
func (f *Follower) SetDebugCollector(d DebugCollector) {
	f.Debug = d
	f.Associator.Debug = d
}

func (f *Follower) maxSnp() float64 { return f.Propagator.Physics.MaxSnp }

// propagateToRow moves t to radius x of its group, rotating into the
// neighbouring sector while the track leaves the current one.
func (f *Follower) propagateToRow(t *Track, x float64) error {
	sg := f.Detector.Group(t.Group)
	p := t.Param
	sector := t.Sector
	var timing l3kalman.TimeIntegrator
	if t.Time != nil {
		timing = *t.Time
	}
	for i := 0; ; i++ {
		next, step, err := f.Propagator.Propagate(p, x)
		if err != nil {
			return err
		}
		timing.Add(step.Length, step.Momentum)
		p = next
		if math.Abs(p.Y()) <= sg.MaxY(x) || i >= maxCrossings {
			break
		}
		if p.Y() > 0 {
			sector = sg.Wrap(sector + 1)
		} else {
			sector = sg.Wrap(sector - 1)
		}
		p, err = l3kalman.Rotate(p, sg.SectorAlpha(sector), f.maxSnp())
		if err != nil {
			return err
		}
	}
	t.Param = p
	t.Sector = sector
	if t.Time != nil {
		*t.Time = timing
	}
	return nil
}

// FollowRows follows t through the local rows from..to (inclusive) of its
// group, one row at a time in the direction of to. A row without an
// acceptable cluster is a gap. It returns ErrSkipBudgetExhausted once the
// consecutive gaps exceed the skip budget, and ErrGeometryDegenerate when
// the track cannot be propagated or rotated; in that case t is left at the
// last good row.
func (f *Follower) FollowRows(t *Track, claims ClaimTable, from, to int) error {
	sg := f.Detector.Group(t.Group)
	step := -1
	if to > from {
		step = 1
	}
	for r := from; r != to+step; r += step {
		if r < 0 || r >= sg.NRows() {
			break
		}
		global := f.Detector.GlobalRow(t.Group, r)
		if err := f.propagateToRow(t, sg.Radius(r)); err != nil {
			return fmt.Errorf("row %d: %w", global, err)
		}
		t.Row = r
		t.RowsTraversed++
		if debugOn(f.Debug) {
			f.Debug.RecordPrediction(t.Seed, global, t.Param.X, t.Param.Y(), t.Param.Z(), t.Param.Snp())
		}

		row := sg.Row(t.Sector, r)
		if !f.tryAssign(t, row, claims, global) {
			t.Gaps++
			if t.Gaps > f.Config.SkipBudget {
				tpc.Tracef("seed %d: skip budget exhausted at row %d after %d gaps", t.Seed, global, t.Gaps)
				return ErrSkipBudgetExhausted
			}
		}
	}
	return nil
}

// tryAssign finds and folds in the best cluster of row. It reports false
// for a gap: no match or a rejected update.
func (f *Follower) tryAssign(t *Track, row *l2geometry.RowIndex, claims ClaimTable, global int) bool {
	cand, err := f.Associator.FindBest(t.Param, row, claims, t.Seed, global)
	if err != nil {
		return false
	}
	c := cand.Cluster
	m := l3kalman.Measurement{Y: c.Y, Z: c.Z, SigmaY2: c.SigmaY2, SigmaZ2: c.SigmaZ2}
	next, chi2, err := l3kalman.Update(t.Param, m, f.maxSnp())
	if err != nil {
		tpc.Tracef("seed %d: update rejected at row %d: %v", t.Seed, global, err)
		return false
	}
	if debugOn(f.Debug) {
		f.Debug.RecordInnovation(t.Seed, global, t.Param.Y(), t.Param.Z(), c.Y, c.Z, chi2)
	}
	t.Param = next
	t.Assign(global, c, chi2, row.PadLength)
	return true
}

// Forward follows a seeded track inward: the rest of the outer group, then
// the inner group down to InnermostRow. The inner sector is chosen by the
// global azimuth at the crossing. On return t is Scored, or Rejected when
// the error is ErrGeometryDegenerate. ErrSkipBudgetExhausted is returned
// for a track finalized early; it is still Scored.
func (f *Follower) Forward(t *Track, claims ClaimTable) error {
	if t.Group == l1clusters.OuterGroup {
		t.State = TrackFollowingOuter
		if err := f.FollowRows(t, claims, t.Row-1, 0); err != nil {
			return f.finish(t, err)
		}
		if err := f.crossToInner(t); err != nil {
			return f.finish(t, err)
		}
	}
	t.State = TrackFollowingInner
	from := t.Row - 1
	if err := f.FollowRows(t, claims, from, f.Config.InnermostRow); err != nil {
		return f.finish(t, err)
	}
	return f.finish(t, nil)
}

func (f *Follower) finish(t *Track, err error) error {
	if err != nil && !errors.Is(err, ErrSkipBudgetExhausted) {
		t.State = TrackRejected
		return err
	}
	t.State = TrackScored
	return err
}

// crossToInner rotates t into the inner-group sector under its current
// azimuth. Row is set one past the last inner row so following continues
// from there.
func (f *Follower) crossToInner(t *Track) error {
	inner := f.Detector.Inner
	sector := inner.SectorForPhi(t.Param.Phi())
	p, err := l3kalman.Rotate(t.Param, inner.SectorAlpha(sector), f.maxSnp())
	if err != nil {
		return fmt.Errorf("crossing into inner group: %w", err)
	}
	t.Param = p
	t.Group = l1clusters.InnerGroup
	t.Sector = sector
	t.Row = inner.NRows()
	return nil
}

// Score moves a Scored track to Accepted or Rejected. Rejection returns
// ErrInsufficientClusters.
func (f *Follower) Score(t *Track) error {
	need := f.Config.MinClusterFraction * float64(t.RowsTraversed)
	if t.NClusters < f.Config.MinClusters || float64(t.NClusters) < need {
		t.State = TrackRejected
		return ErrInsufficientClusters
	}
	t.State = TrackAccepted
	return nil
}

// Refit runs a backward pass from the innermost to the outermost assigned
// cluster, starting from t.Param with its correlations dropped and its
// variances inflated by RefitCovScale. Only the clusters in t.Refs are
// used; clusters whose update is rejected are skipped. t is not modified.
// It returns the outermost state and the refit χ².
func (f *Follower) Refit(t *Track) (l3kalman.Param, float64, error) {
	p := t.Param.ResetCovariance(f.Config.RefitCovScale)
	var chi2 float64
	for global, id := range t.Refs {
		if id == l1clusters.NoCluster {
			continue
		}
		c := f.Arena.Get(id)
		if c == nil {
			return t.Param, 0, fmt.Errorf("refit: unknown cluster %d at row %d", id, global)
		}
		sg := f.Detector.Group(c.Group)
		alpha := sg.SectorAlpha(c.Sector)
		var err error
		if l3kalman.WrapAngle(alpha-p.Alpha) != 0 {
			p, err = l3kalman.Rotate(p, alpha, f.maxSnp())
			if err != nil {
				return t.Param, 0, fmt.Errorf("refit row %d: %w", global, err)
			}
		}
		p, _, err = f.Propagator.Propagate(p, sg.Radius(c.Row))
		if err != nil {
			return t.Param, 0, fmt.Errorf("refit row %d: %w", global, err)
		}
		next, dchi2, err := l3kalman.Update(p, l3kalman.Measurement{Y: c.Y, Z: c.Z, SigmaY2: c.SigmaY2, SigmaZ2: c.SigmaZ2}, f.maxSnp())
		if err != nil {
			continue
		}
		p = next
		chi2 += dchi2
	}
	return p, chi2, nil
}
