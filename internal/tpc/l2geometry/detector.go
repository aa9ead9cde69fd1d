package l2geometry

import (
	"fmt"
	"math"

	"github.com/banshee-data/tpctrack/internal/tpc"
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
)

// Detector holds both sector groups for one event. Global row numbers run
// over the inner group first and continue into the outer group.
type Detector struct {
	Inner *SectorGroup
	Outer *SectorGroup
}

// IngestStats summarises an ingestion pass.
type IngestStats struct {
	Accepted int
	Skipped  int // clusters addressing a group/sector/row that does not exist
}

// NewDetector creates empty row indices for geom.
func NewDetector(geom DetectorGeometry) (*Detector, error) {
	if err := geom.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector geometry: %w", err)
	}
	inner, err := NewSectorGroup(geom.Inner)
	if err != nil {
		return nil, fmt.Errorf("inner: %w", err)
	}
	outer, err := NewSectorGroup(geom.Outer)
	if err != nil {
		return nil, fmt.Errorf("outer: %w", err)
	}
	return &Detector{Inner: inner, Outer: outer}, nil
}

// Build creates a detector for geom, copies every addressable cluster from
// supply into arena and indexes it. The arena is frozen on return.
func Build(geom DetectorGeometry, arena *l1clusters.Arena, supply l1clusters.Supply) (*Detector, IngestStats, error) {
	d, err := NewDetector(geom)
	if err != nil {
		return nil, IngestStats{}, err
	}
	var stats IngestStats
	supply.Clusters(func(c l1clusters.Cluster) bool {
		sg := d.Group(c.Group)
		if sg == nil || sg.Row(c.Sector, c.Row) == nil {
			stats.Skipped++
			return true
		}
		arena.Add(c)
		stats.Accepted++
		return true
	})
	arena.Freeze()
	for id := 0; id < arena.Len(); id++ {
		c := arena.Get(l1clusters.ID(id))
		d.Group(c.Group).Row(c.Sector, c.Row).Insert(c)
	}
	if stats.Skipped > 0 {
		tpc.Diagf("ingest: skipped %d clusters outside the detector layout (%d accepted)", stats.Skipped, stats.Accepted)
	}
	return d, stats, nil
}

// Group returns the sector group g, or nil for an unknown group.
func (d *Detector) Group(g l1clusters.Group) *SectorGroup {
	switch g {
	case l1clusters.InnerGroup:
		return d.Inner
	case l1clusters.OuterGroup:
		return d.Outer
	}
	return nil
}

// TotalRows returns the number of rows in both groups.
func (d *Detector) TotalRows() int { return d.Inner.NRows() + d.Outer.NRows() }

// GlobalRow converts a (group, row) pair into the global row number.
func (d *Detector) GlobalRow(g l1clusters.Group, row int) int {
	if g == l1clusters.InnerGroup {
		return row
	}
	return d.Inner.NRows() + row
}

// LocalRow converts a global row number back into (group, row).
func (d *Detector) LocalRow(global int) (l1clusters.Group, int) {
	if global < d.Inner.NRows() {
		return l1clusters.InnerGroup, global
	}
	return l1clusters.OuterGroup, global - d.Inner.NRows()
}

// ToGlobal converts local sector coordinates into the global frame.
func ToGlobal(alpha, x, y float64) (gx, gy float64) {
	ca, sa := math.Cos(alpha), math.Sin(alpha)
	return x*ca - y*sa, x*sa + y*ca
}

// ToLocal converts global coordinates into the frame rotated by alpha.
func ToLocal(alpha, gx, gy float64) (x, y float64) {
	ca, sa := math.Cos(alpha), math.Sin(alpha)
	return gx*ca + gy*sa, -gx*sa + gy*ca
}
