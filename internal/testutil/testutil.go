// Package testutil provides shared test fixtures: a generator of perfect
// helix cluster supplies for scenario tests of the tracking layers.
package testutil

import (
	"math"
	"math/rand"

	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
)

// Helix describes a generated particle leaving the origin.
type Helix struct {
	Phi0      float64 // global azimuth of the direction at the origin
	Curvature float64 // signed (1/cm); positive turns counter-clockwise
	Tgl       float64
	Z0        float64
	Label     int
	Q         float64 // charge per cluster; zero means DefaultCharge
}

// DefaultCharge is the cluster charge used when Helix.Q is zero.
const DefaultCharge = 50

// Options control cluster generation.
type Options struct {
	SigmaY2 float64 // assigned variance; zero means DefaultSigma2
	SigmaZ2 float64
	// Smear draws Gaussian offsets with the assigned variances when set.
	Smear *rand.Rand
	// Skip lists global rows that get no cluster, per helix label.
	Skip map[int]map[int]bool
}

// DefaultSigma2 is the cluster variance used when none is set (cm²).
const DefaultSigma2 = 0.01

// Generator produces clusters for a detector layout.
type Generator struct {
	geom  l2geometry.DetectorGeometry
	inner *l2geometry.SectorGroup
	outer *l2geometry.SectorGroup
}

// NewGenerator returns a generator for geom. It panics on an invalid
// layout; fixtures are expected to be valid.
func NewGenerator(geom l2geometry.DetectorGeometry) *Generator {
	d, err := l2geometry.NewDetector(geom)
	if err != nil {
		panic(err)
	}
	return &Generator{geom: geom, inner: d.Inner, outer: d.Outer}
}

// point returns the global position of h after transverse path s.
func (h Helix) point(s float64) (x, y float64) {
	k := h.Curvature
	if math.Abs(k) < 1e-12 {
		return s * math.Cos(h.Phi0), s * math.Sin(h.Phi0)
	}
	phi := h.Phi0 + k*s
	return (math.Sin(phi) - math.Sin(h.Phi0)) / k, (math.Cos(h.Phi0) - math.Cos(phi)) / k
}

// crossing returns the transverse path at which h reaches local x = X in
// the frame alpha, or false when the helix turns back first.
func (h Helix) crossing(alpha, X float64) (float64, bool) {
	local := func(s float64) float64 {
		gx, gy := h.point(s)
		x, _ := l2geometry.ToLocal(alpha, gx, gy)
		return x
	}
	const ds = 1.0
	lo := 0.0
	for local(lo+ds) < X {
		lo += ds
		if math.Cos(h.Phi0+h.Curvature*lo-alpha) <= 0 || lo > 4*X {
			return 0, false
		}
	}
	hi := lo + ds
	for i := 0; i < 100; i++ {
		mid := 0.5 * (lo + hi)
		if local(mid) < X {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi), true
}

// Clusters generates one cluster per row crossed by each helix.
func (g *Generator) Clusters(helices []Helix, opts Options) []l1clusters.Cluster {
	sy2, sz2 := opts.SigmaY2, opts.SigmaZ2
	if sy2 == 0 {
		sy2 = DefaultSigma2
	}
	if sz2 == 0 {
		sz2 = DefaultSigma2
	}
	var out []l1clusters.Cluster
	for _, h := range helices {
		q := h.Q
		if q == 0 {
			q = DefaultCharge
		}
		global := 0
		for _, grp := range []struct {
			g  l1clusters.Group
			sg *l2geometry.SectorGroup
		}{{l1clusters.InnerGroup, g.inner}, {l1clusters.OuterGroup, g.outer}} {
			for r := 0; r < grp.sg.NRows(); r, global = r+1, global+1 {
				if opts.Skip[h.Label][global] {
					continue
				}
				c, ok := g.cluster(h, grp.sg, r)
				if !ok {
					continue
				}
				c.Group = grp.g
				c.SigmaY2, c.SigmaZ2 = sy2, sz2
				if opts.Smear != nil {
					c.Y += opts.Smear.NormFloat64() * math.Sqrt(sy2)
					c.Z += opts.Smear.NormFloat64() * math.Sqrt(sz2)
				}
				c.Q = q
				c.Labels = [3]int{h.Label, l1clusters.NoLabel, l1clusters.NoLabel}
				out = append(out, c)
			}
		}
	}
	return out
}

func (g *Generator) cluster(h Helix, sg *l2geometry.SectorGroup, r int) (l1clusters.Cluster, bool) {
	tp, ok := truthAt(h, sg, r)
	if !ok {
		return l1clusters.Cluster{}, false
	}
	return l1clusters.Cluster{Sector: tp.Sector, Row: r, Y: tp.Y, Z: tp.Z}, true
}

// Truth is the exact local state of a helix where it crosses a row.
type Truth struct {
	Sector int
	Alpha  float64
	X      float64
	Y, Z   float64
	Snp    float64
	Tgl    float64
	Crv    float64
}

// Truth returns where h crosses row r of group grp.
func (g *Generator) Truth(h Helix, grp l1clusters.Group, r int) (Truth, bool) {
	sg := g.outer
	if grp == l1clusters.InnerGroup {
		sg = g.inner
	}
	return truthAt(h, sg, r)
}

func truthAt(h Helix, sg *l2geometry.SectorGroup, r int) (Truth, bool) {
	X := sg.Radius(r)
	// Start from the launch azimuth and step into the neighbour while the
	// crossing falls outside the sector half-width.
	sector := sg.SectorForPhi(h.Phi0)
	for try := 0; try < 3; try++ {
		alpha := sg.SectorAlpha(sector)
		s, ok := h.crossing(alpha, X)
		if !ok {
			return Truth{}, false
		}
		gx, gy := h.point(s)
		_, y := l2geometry.ToLocal(alpha, gx, gy)
		if math.Abs(y) <= sg.MaxY(X) {
			return Truth{
				Sector: sector,
				Alpha:  alpha,
				X:      X,
				Y:      y,
				Z:      h.Z0 + h.Tgl*s,
				Snp:    math.Sin(h.Phi0 + h.Curvature*s - alpha),
				Tgl:    h.Tgl,
				Crv:    h.Curvature,
			}, true
		}
		if y > 0 {
			sector = sg.Wrap(sector + 1)
		} else {
			sector = sg.Wrap(sector - 1)
		}
	}
	return Truth{}, false
}

// TotalRows returns the number of rows in both groups.
func (g *Generator) TotalRows() int { return g.inner.NRows() + g.outer.NRows() }

// SmallGeometry is a reduced layout with few rows, for fast scenario
// tests.
func SmallGeometry() l2geometry.DetectorGeometry {
	return l2geometry.DetectorGeometry{
		Inner: l2geometry.GroupGeometry{
			NSectors:    18,
			FirstRadius: 85,
			Segments:    []l2geometry.RowSegment{{Rows: 20, Pitch: 2, PadWidth: 0.4, PadLength: 0.75}},
		},
		Outer: l2geometry.GroupGeometry{
			NSectors:    18,
			FirstRadius: 135,
			Segments:    []l2geometry.RowSegment{{Rows: 30, Pitch: 2, PadWidth: 0.6, PadLength: 1.0}},
		},
	}
}
