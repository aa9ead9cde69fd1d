package l6session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/tpctrack/internal/tpc"
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
	"github.com/banshee-data/tpctrack/internal/tpc/l4follow"
	"github.com/banshee-data/tpctrack/internal/tpc/l5seeds"
)

// Session reconstructs the tracks of one event.
type Session struct {
	Config   Config
	Geometry l2geometry.DetectorGeometry
	Material l2geometry.MaterialService // nil means vacuum
	Vertex   l5seeds.Vertex
	EventID  string

	// Debug receives association internals when enabled. It must be safe
	// for concurrent use when Workers > 1, and in that mode it also sees
	// speculative passes that are later discarded.
	Debug l4follow.DebugCollector
}

// New returns a session with cfg, geom and the default vertex.
func New(cfg Config, geom l2geometry.DetectorGeometry, eventID string) *Session {
	return &Session{
		Config:   cfg,
		Geometry: geom,
		Material: l2geometry.DefaultGas(),
		Vertex:   l5seeds.DefaultVertex(),
		EventID:  eventID,
	}
}

// Result is the output of a session run. Tracks are in commit order, which
// is the seed priority order.
type Result struct {
	Tracks   []AcceptedTrack
	Metrics  Metrics
	Ingest   l2geometry.IngestStats
	Seeding  l5seeds.Stats
	Detector *l2geometry.Detector
	Arena    *l1clusters.Arena
	Elapsed  time.Duration
}

// Run ingests supply and reconstructs its tracks. It fails only on an
// invalid configuration or geometry, or when ctx is cancelled; per-track
// failures are counted in the metrics.
func (s *Session) Run(ctx context.Context, supply l1clusters.Supply) (*Result, error) {
	start := time.Now()
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	arena := l1clusters.NewArena(0)
	det, ingest, err := l2geometry.Build(s.Geometry, arena, supply)
	if err != nil {
		return nil, err
	}
	if err := s.Config.ValidateDetector(det); err != nil {
		return nil, err
	}
	prop := l3kalman.NewPropagator(s.Config.Physics(), s.Material)
	f := l4follow.NewFollower(det, arena, prop, s.Config.Follow())
	if s.Debug != nil {
		f.SetDebugCollector(s.Debug)
	}
	seeds, seeding, err := l5seeds.NewBuilder(f, s.Config.Seeding(), s.Vertex).Build()
	if err != nil {
		return nil, fmt.Errorf("seeding: %w", err)
	}
	tpc.Opsf("event %s: %d clusters, %d seeds, %d workers", s.EventID, arena.Len(), len(seeds), s.Config.Workers)

	d := &driver{
		session: s,
		follow:  f,
		claims:  NewClaims(arena.Len()),
		res: &Result{
			Ingest:   ingest,
			Seeding:  seeding,
			Detector: det,
			Arena:    arena,
		},
	}
	d.res.Metrics.Clusters = arena.Len()
	d.res.Metrics.Seeds = len(seeds)
	d.res.Metrics.Workers = s.Config.Workers

	ordered := Order(seeds, s.Config.Priority)
	if s.Config.Workers > 1 {
		err = d.runParallel(ctx, ordered)
	} else {
		err = d.runSequential(ctx, ordered)
	}
	if err != nil {
		return nil, err
	}
	d.res.Metrics.ClaimedClusters = d.claims.Len()
	d.res.Elapsed = time.Since(start)
	m := d.res.Metrics
	tpc.Diagf("event %s: %d accepted, %d dropped, %d rejected (geometry %d, clusters %d), %d early stops, %d refollowed",
		s.EventID, m.Accepted, m.SeedsDropped, m.RejectedGeometry+m.RejectedInsufficient,
		m.RejectedGeometry, m.RejectedInsufficient, m.EarlyStops, m.Refollowed)
	tpc.Opsf("event %s: finished in %v", s.EventID, d.res.Elapsed)
	return d.res, nil
}

// driver holds the mutable state of one run.
type driver struct {
	session *Session
	follow  *l4follow.Follower
	claims  *Claims
	res     *Result
}

// outcome is a followed and scored track.
type outcome struct {
	track *l4follow.Track
	err   error // from Forward
	score error // from Score, when the track reached it
	view  *recorder
}

// run follows a copy of the seed track against claims.
func (d *driver) run(seed l5seeds.Seed, claims l4follow.ClaimTable) outcome {
	t := seed.Track.Clone()
	o := outcome{track: t}
	o.err = d.follow.Forward(t, claims)
	if t.State == l4follow.TrackScored {
		o.score = d.follow.Score(t)
	}
	return o
}

func (d *driver) anchorTaken(seed l5seeds.Seed) bool {
	if d.claims.IsClaimed(seed.Anchor) {
		d.res.Metrics.SeedsDropped++
		tpc.Tracef("seed %d: anchor %d already claimed, dropped", seed.Order, seed.Anchor)
		return true
	}
	return false
}

func (d *driver) runSequential(ctx context.Context, seeds []l5seeds.Seed) error {
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.anchorTaken(seed) {
			continue
		}
		d.commit(seed, d.run(seed, d.claims))
	}
	return nil
}

// runParallel follows batches of Workers seeds concurrently against the
// claims as they stood at batch start, then commits in priority order. A
// speculative result is kept only if none of the clusters it looked at was
// claimed by an earlier commit of the batch; otherwise the seed is followed
// again against the live table. Either way each seed sees exactly the
// claims it would see in a sequential run.
func (d *driver) runParallel(ctx context.Context, seeds []l5seeds.Seed) error {
	workers := d.session.Config.Workers
	for start := 0; start < len(seeds); start += workers {
		batch := seeds[start:min(start+workers, len(seeds))]
		results := make([]outcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, seed := range batch {
			if d.claims.IsClaimed(seed.Anchor) {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				view := &recorder{claims: d.claims}
				results[i] = d.run(seed, view)
				results[i].view = view
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, seed := range batch {
			if d.anchorTaken(seed) {
				continue
			}
			o := results[i]
			if o.view == nil || o.view.stale() {
				d.res.Metrics.Refollowed++
				tpc.Tracef("seed %d: speculative result stale, following again", seed.Order)
				o = d.run(seed, d.claims)
			}
			d.commit(seed, o)
		}
	}
	return nil
}

// commit records the outcome of seed and, for an accepted track, claims
// its clusters and appends the finalized track.
func (d *driver) commit(seed l5seeds.Seed, o outcome) {
	m := &d.res.Metrics
	m.Followed++
	t := o.track
	earlyStop := errors.Is(o.err, l4follow.ErrSkipBudgetExhausted)
	if earlyStop {
		m.EarlyStops++
	}
	switch {
	case t.State == l4follow.TrackRejected && o.score == nil:
		m.RejectedGeometry++
		tpc.Tracef("seed %d: rejected: %v", seed.Order, o.err)
		return
	case t.State == l4follow.TrackRejected:
		m.RejectedInsufficient++
		tpc.Tracef("seed %d: rejected with %d clusters over %d rows", seed.Order, t.NClusters, t.RowsTraversed)
		return
	case t.State != l4follow.TrackAccepted:
		return
	}

	ids := t.Clusters()
	if !d.claims.ClaimAll(ids, seed.Order) {
		// Following never assigns a claimed cluster, so this only happens
		// if the claim table and the follow disagree.
		tpc.Opsf("seed %d: claim conflict on accepted track, dropped", seed.Order)
		m.RejectedInsufficient++
		return
	}
	m.Accepted++
	at := d.finalize(seed, t, ids, earlyStop)
	if at.Fake {
		m.Fakes++
	}
	d.res.Tracks = append(d.res.Tracks, at)
}

func (d *driver) finalize(seed l5seeds.Seed, t *l4follow.Track, ids []l1clusters.ID, earlyStop bool) AcceptedTrack {
	cfg := d.session.Config
	outer, refitChi2, err := d.follow.Refit(t)
	if err != nil {
		d.res.Metrics.RefitFailures++
		tpc.Tracef("seed %d: refit failed, keeping the forward state: %v", seed.Order, err)
		outer, refitChi2 = t.Param, t.Chi2
	}
	vote := voteLabel(d.follow.Arena, ids, cfg.MaxWrongLabelFraction)
	return AcceptedTrack{
		ID:            TrackID(d.session.EventID, seed.Order),
		Seed:          seed.Order,
		Inner:         t.Param,
		Outer:         outer,
		Refs:          t.Refs,
		Clusters:      ids,
		NClusters:     t.NClusters,
		Chi2:          t.Chi2,
		RefitChi2:     refitChi2,
		RowsTraversed: t.RowsTraversed,
		EarlyStop:     earlyStop,
		DEdx:          TrimmedMean(t.DEdxSamples, cfg.DEdxTrimLow, cfg.DEdxTrimHigh),
		Label:         vote.Label,
		Fake:          vote.Fake,
		NWrongAssoc:   vote.Wrong,
		Time:          t.Time,
	}
}
