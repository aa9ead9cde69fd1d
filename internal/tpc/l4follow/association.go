package l4follow

import (
	"math"

	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
)

// tieTolerance is the relative χ² difference below which two candidates
// count as tied.
const tieTolerance = 1e-12

// Candidate is the best cluster found in a row.
type Candidate struct {
	Cluster *l1clusters.Cluster
	Index   int // row-local index in sort order
	Chi2    float64
}

// Associator picks the best cluster for a predicted state.
type Associator struct {
	RoadSigmas      float64
	ExpectedSigmaY2 float64
	MaxChi2         float64
	Debug           DebugCollector
}

// NewAssociator builds an associator from cfg.
func NewAssociator(cfg Config) *Associator {
	return &Associator{
		RoadSigmas:      cfg.RoadSigmas,
		ExpectedSigmaY2: cfg.ExpectedSigmaY2,
		MaxChi2:         cfg.MaxChi2,
	}
}

// Road returns the half-width of the y window searched around p. It never
// shrinks when the y variance of p grows.
func (a *Associator) Road(p l3kalman.Param) float64 {
	v := p.C.At(l3kalman.IY, l3kalman.IY) + a.ExpectedSigmaY2
	if v < 0 {
		v = 0
	}
	return a.RoadSigmas * math.Sqrt(v)
}

// FindBest returns the unclaimed cluster in row with the smallest predicted
// χ² against p. Clusters outside the road or the z gate are not
// considered. Ties go to the smaller row-local index. ErrNoMatch is
// returned when nothing scores below MaxChi2. seed and global only label
// debug records.
func (a *Associator) FindBest(p l3kalman.Param, row *l2geometry.RowIndex, claims ClaimTable, seed, global int) (Candidate, error) {
	if row == nil || row.Len() == 0 {
		return Candidate{}, ErrNoMatch
	}
	if claims == nil {
		claims = NoClaims{}
	}
	road := a.Road(p)
	y, z := p.Y(), p.Z()
	czz := p.C.At(l3kalman.IZ, l3kalman.IZ)
	dbg := debugOn(a.Debug)
	if dbg {
		a.Debug.RecordRoad(seed, global, y, z, road)
	}

	best := Candidate{Index: -1, Chi2: math.Inf(1)}
	row.InRange(y-road, y+road, func(i int, c *l1clusters.Cluster) bool {
		if claims.IsClaimed(c.ID) {
			return true
		}
		gate := a.RoadSigmas * math.Sqrt(czz+c.SigmaZ2)
		if math.Abs(c.Z-z) >= gate {
			return true
		}
		chi2, err := l3kalman.PredictedChi2(p, l3kalman.Measurement{Y: c.Y, Z: c.Z, SigmaY2: c.SigmaY2, SigmaZ2: c.SigmaZ2})
		if err != nil {
			return true
		}
		if dbg {
			a.Debug.RecordAssociation(seed, global, c.ID, chi2, false)
		}
		if chi2 < best.Chi2-tieTolerance*math.Max(1, best.Chi2) || best.Index < 0 {
			best = Candidate{Cluster: c, Index: i, Chi2: chi2}
		}
		return true
	})
	if best.Index < 0 || !(best.Chi2 < a.MaxChi2) {
		return Candidate{}, ErrNoMatch
	}
	if dbg {
		a.Debug.RecordAssociation(seed, global, best.Cluster.ID, best.Chi2, true)
	}
	return best, nil
}
