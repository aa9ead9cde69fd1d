package l5seeds

import (
	"errors"
	"math"

	"github.com/banshee-data/tpctrack/internal/tpc"
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
	"github.com/banshee-data/tpctrack/internal/tpc/l4follow"
)

// Seed is a confirmed track hypothesis. Track sits at the anchor row with
// only the anchor cluster assigned; the confirmation pass ran on a copy.
type Seed struct {
	Order   int
	Track   *l4follow.Track
	Anchor  l1clusters.ID
	Partner l1clusters.ID

	ConfirmClusters int // clusters found between the seed rows, anchor included
	ConfirmRows     int
	ConfirmChi2     float64
}

// Stats counts seed candidates by outcome.
type Stats struct {
	Pairs                int `json:"pairs"`
	RejectedGeometry     int `json:"rejected_geometry"`
	RejectedCurvature    int `json:"rejected_curvature"`
	RejectedDip          int `json:"rejected_dip"`
	RejectedVertex       int `json:"rejected_vertex"`
	RejectedConfirmation int `json:"rejected_confirmation"`
	Built                int `json:"built"`
}

// Builder forms seeds from the two seed rows of the outer group.
type Builder struct {
	Detector *l2geometry.Detector
	Follower *l4follow.Follower
	Config   Config
	Vertex   Vertex
}

// NewBuilder returns a builder that confirms seeds with f.
func NewBuilder(f *l4follow.Follower, cfg Config, v Vertex) *Builder {
	return &Builder{Detector: f.Detector, Follower: f, Config: cfg, Vertex: v}
}

// Rows returns the local outer-group rows of the anchor and the partner.
func (b *Builder) Rows() (rowA, rowB int) {
	last := b.Detector.Outer.NRows() - 1
	return last - b.Config.OuterRowOffset, last - b.Config.InnerRowOffset
}

// Build enumerates all anchor/partner pairs and returns the confirmed
// seeds in build order.
func (b *Builder) Build() ([]Seed, Stats, error) {
	var stats Stats
	outer := b.Detector.Outer
	if err := b.Config.Validate(outer.NRows()); err != nil {
		return nil, stats, err
	}
	rowA, rowB := b.Rows()
	maxSnp := b.Follower.Propagator.Physics.MaxSnp

	var seeds []Seed
	for s := range outer.Sectors {
		ra := outer.Row(s, rowA)
		alphaA := outer.SectorAlpha(s)
		vx, vy := l2geometry.ToLocal(alphaA, b.Vertex.X, b.Vertex.Y)
		for ia := 0; ia < ra.Len(); ia++ {
			ca := ra.At(ia)
			for _, sb := range b.partnerSectors(s) {
				rb := outer.Row(sb, rowB)
				tr := triplet{
					xA:     ra.X,
					xB:     rb.X,
					alphaA: alphaA,
					alphaB: outer.SectorAlpha(sb),
					xV:     vx,
				}
				for ib := 0; ib < rb.Len(); ib++ {
					cb := rb.At(ib)
					stats.Pairs++
					seed, err := b.makeSeed(len(seeds), tr, ca, cb, vy, s, rowA, rowB, maxSnp, &stats)
					if err != nil {
						continue
					}
					seeds = append(seeds, seed)
				}
			}
		}
	}
	stats.Built = len(seeds)
	tpc.Diagf("seeding: %d pairs, %d seeds (rejected: geometry %d, curvature %d, dip %d, vertex %d, confirmation %d)",
		stats.Pairs, stats.Built, stats.RejectedGeometry, stats.RejectedCurvature,
		stats.RejectedDip, stats.RejectedVertex, stats.RejectedConfirmation)
	return seeds, stats, nil
}

// partnerSectors returns s-1, s, s+1 without duplicates.
func (b *Builder) partnerSectors(s int) []int {
	outer := b.Detector.Outer
	out := make([]int, 0, 3)
	for _, d := range []int{-1, 0, 1} {
		sb := outer.Wrap(s + d)
		dup := false
		for _, x := range out {
			dup = dup || x == sb
		}
		if !dup {
			out = append(out, sb)
		}
	}
	return out
}

var (
	errCurvature    = errors.New("seed curvature above limit")
	errDip          = errors.New("seed dip above limit")
	errVertex       = errors.New("seed misses the vertex")
	errConfirmation = errors.New("seed not confirmed")
)

func (b *Builder) makeSeed(order int, tr triplet, ca, cb *l1clusters.Cluster, vy float64, sector, rowA, rowB int, maxSnp float64, stats *Stats) (Seed, error) {
	in := [nInputs]float64{ca.Y, ca.Z, cb.Y, cb.Z, vy, b.Vertex.Z}
	res, err := tr.fit(in)
	if err != nil || math.Abs(res.P[l3kalman.ISnp]) >= maxSnp {
		stats.RejectedGeometry++
		return Seed{}, errDegenerate
	}
	if math.Abs(res.P[l3kalman.ICrv]) > b.Config.MaxCurvature {
		stats.RejectedCurvature++
		return Seed{}, errCurvature
	}
	if math.Abs(res.P[l3kalman.ITgl]) > b.Config.MaxTgl {
		stats.RejectedDip++
		return Seed{}, errDip
	}
	if math.Abs(res.ZInt-res.VZ) > b.Config.VertexZTolerance {
		stats.RejectedVertex++
		return Seed{}, errVertex
	}

	variance := [nInputs]float64{ca.SigmaY2, ca.SigmaZ2, cb.SigmaY2, cb.SigmaZ2, b.Vertex.SigmaY2, b.Vertex.SigmaZ2}
	cov, err := tr.covariance(in, variance)
	if err != nil {
		stats.RejectedGeometry++
		return Seed{}, err
	}
	p := l3kalman.Param{X: tr.xA, Alpha: tr.alphaA, P: res.P, C: cov}
	if !p.Valid(maxSnp) {
		stats.RejectedGeometry++
		return Seed{}, errDegenerate
	}

	d := b.Detector
	t := l4follow.NewTrack(order, p, l1clusters.OuterGroup, sector, rowA, d.TotalRows(), b.Config.Timing)
	t.RowsTraversed = 1
	t.Assign(d.GlobalRow(l1clusters.OuterGroup, rowA), ca, 0, d.Outer.Row(sector, rowA).PadLength)

	probe := t.Clone()
	err = b.Follower.FollowRows(probe, l4follow.NoClaims{}, rowA-1, rowB)
	if err != nil && !errors.Is(err, l4follow.ErrSkipBudgetExhausted) {
		stats.RejectedGeometry++
		return Seed{}, err
	}
	if float64(probe.NClusters) < b.Config.MinFraction*float64(probe.RowsTraversed) {
		stats.RejectedConfirmation++
		return Seed{}, errConfirmation
	}
	return Seed{
		Order:           order,
		Track:           t,
		Anchor:          ca.ID,
		Partner:         cb.ID,
		ConfirmClusters: probe.NClusters,
		ConfirmRows:     probe.RowsTraversed,
		ConfirmChi2:     probe.Chi2,
	}, nil
}
