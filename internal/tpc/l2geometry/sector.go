package l2geometry

import (
	"errors"
	"fmt"
	"math"
)

// RowSegment is a contiguous run of rows sharing pitch and pad geometry.
type RowSegment struct {
	Rows      int     `json:"rows" yaml:"rows"`
	Pitch     float64 `json:"pitch" yaml:"pitch"`           // radial distance between row centres (cm)
	PadWidth  float64 `json:"pad_width" yaml:"pad_width"`   // cm
	PadLength float64 `json:"pad_length" yaml:"pad_length"` // cm
}

// GroupGeometry describes one sector group: how many azimuthal sectors it
// has and where its rows sit radially.
type GroupGeometry struct {
	NSectors    int          `json:"n_sectors" yaml:"n_sectors"`
	FirstRadius float64      `json:"first_radius" yaml:"first_radius"` // radius of row 0 (cm)
	Segments    []RowSegment `json:"segments" yaml:"segments"`
}

// DetectorGeometry is the pad-plane layout of both sector groups.
type DetectorGeometry struct {
	Inner GroupGeometry `json:"inner" yaml:"inner"`
	Outer GroupGeometry `json:"outer" yaml:"outer"`
}

// DefaultGeometry returns an 18-sector layout with 63 inner rows and 96
// outer rows split into two pad-length segments.
func DefaultGeometry() DetectorGeometry {
	return DetectorGeometry{
		Inner: GroupGeometry{
			NSectors:    18,
			FirstRadius: 85.225,
			Segments:    []RowSegment{{Rows: 63, Pitch: 0.75, PadWidth: 0.4, PadLength: 0.75}},
		},
		Outer: GroupGeometry{
			NSectors:    18,
			FirstRadius: 135.1,
			Segments: []RowSegment{
				{Rows: 64, Pitch: 1.0, PadWidth: 0.6, PadLength: 1.0},
				{Rows: 32, Pitch: 1.5, PadWidth: 0.6, PadLength: 1.5},
			},
		},
	}
}

var errEmptyGroup = errors.New("sector group has no rows")

// Validate checks that the group describes at least one row with strictly
// increasing radii.
func (g GroupGeometry) Validate() error {
	if g.NSectors < 1 {
		return fmt.Errorf("n_sectors must be positive, got %d", g.NSectors)
	}
	if g.FirstRadius <= 0 {
		return fmt.Errorf("first_radius must be positive, got %f", g.FirstRadius)
	}
	total := 0
	for i, s := range g.Segments {
		if s.Rows < 1 {
			return fmt.Errorf("segment %d: rows must be positive, got %d", i, s.Rows)
		}
		if s.Pitch <= 0 {
			return fmt.Errorf("segment %d: pitch must be positive, got %f", i, s.Pitch)
		}
		if s.PadWidth <= 0 || s.PadLength <= 0 {
			return fmt.Errorf("segment %d: pad dimensions must be positive", i)
		}
		total += s.Rows
	}
	if total == 0 {
		return errEmptyGroup
	}
	return nil
}

// Validate checks both groups and that the inner group ends below the
// outer group.
func (d DetectorGeometry) Validate() error {
	if err := d.Inner.Validate(); err != nil {
		return fmt.Errorf("inner: %w", err)
	}
	if err := d.Outer.Validate(); err != nil {
		return fmt.Errorf("outer: %w", err)
	}
	inner := d.Inner.rows()
	if last := inner[len(inner)-1]; last.x >= d.Outer.FirstRadius {
		return fmt.Errorf("inner group ends at %.3f cm, beyond outer first radius %.3f cm", last.x, d.Outer.FirstRadius)
	}
	return nil
}

type rowSpec struct {
	x, padWidth, padLength float64
}

// rows expands the segments into per-row radii. Across a segment boundary
// the step is the mean of the two pitches.
func (g GroupGeometry) rows() []rowSpec {
	var out []rowSpec
	x := g.FirstRadius
	prevPitch := 0.0
	for _, s := range g.Segments {
		for i := 0; i < s.Rows; i++ {
			if len(out) > 0 {
				if i == 0 {
					x += 0.5 * (prevPitch + s.Pitch)
				} else {
					x += s.Pitch
				}
			}
			out = append(out, rowSpec{x: x, padWidth: s.PadWidth, padLength: s.PadLength})
		}
		prevPitch = s.Pitch
	}
	return out
}

// Sector is one azimuthal wedge of a sector group. Alpha is the rotation
// of the sector's local frame: local X points along the sector centre line.
type Sector struct {
	Index int
	Alpha float64
	Rows  []*RowIndex
}

// SectorGroup is the set of sectors in one radius band. All sectors share
// the same row radii.
type SectorGroup struct {
	Geometry  GroupGeometry
	Sectors   []*Sector
	HalfAngle float64 // half opening angle of a sector (rad)

	radii []float64
}

// NewSectorGroup builds empty rows for every sector of g.
func NewSectorGroup(g GroupGeometry) (*SectorGroup, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	specs := g.rows()
	sg := &SectorGroup{
		Geometry:  g,
		Sectors:   make([]*Sector, g.NSectors),
		HalfAngle: math.Pi / float64(g.NSectors),
		radii:     make([]float64, len(specs)),
	}
	for i, s := range specs {
		sg.radii[i] = s.x
	}
	for i := range sg.Sectors {
		sec := &Sector{Index: i, Alpha: sg.SectorAlpha(i), Rows: make([]*RowIndex, len(specs))}
		for r, s := range specs {
			sec.Rows[r] = NewRowIndex(s.x, s.padWidth, s.padLength)
		}
		sg.Sectors[i] = sec
	}
	return sg, nil
}

// NRows returns the number of rows per sector.
func (sg *SectorGroup) NRows() int { return len(sg.radii) }

// Radius returns the reference radius of row r.
func (sg *SectorGroup) Radius(r int) float64 { return sg.radii[r] }

// SectorAlpha returns the frame rotation of sector i.
func (sg *SectorGroup) SectorAlpha(i int) float64 {
	return (float64(sg.Wrap(i)) + 0.5) * 2 * sg.HalfAngle
}

// Wrap maps any integer onto a valid sector index.
func (sg *SectorGroup) Wrap(i int) int {
	n := len(sg.Sectors)
	if n == 0 {
		n = sg.Geometry.NSectors
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// SectorForPhi returns the sector containing global azimuth phi.
func (sg *SectorGroup) SectorForPhi(phi float64) int {
	phi = math.Mod(phi, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return sg.Wrap(int(phi / (2 * sg.HalfAngle)))
}

// MaxY returns the half-width of a sector at radius x.
func (sg *SectorGroup) MaxY(x float64) float64 {
	return x * math.Tan(sg.HalfAngle)
}

// Row returns the row index for (sector, row), or nil when out of range.
func (sg *SectorGroup) Row(sector, row int) *RowIndex {
	if sector < 0 || sector >= len(sg.Sectors) || row < 0 || row >= len(sg.radii) {
		return nil
	}
	return sg.Sectors[sector].Rows[row]
}
