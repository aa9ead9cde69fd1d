package l1clusters

import (
	"fmt"
	"strings"
)

// ID identifies a cluster within one event. IDs are dense indices into the
// event Arena, assigned in acquisition order.
type ID int32

// NoCluster marks a row slot without an assigned cluster.
const NoCluster ID = -1

// NoLabel marks an empty provenance label slot.
const NoLabel = -1

// Group selects one of the two radial sector groups.
type Group uint8

const (
	InnerGroup Group = iota // inner radius band
	OuterGroup              // outer radius band
)

func (g Group) String() string {
	switch g {
	case InnerGroup:
		return "inner"
	case OuterGroup:
		return "outer"
	default:
		return fmt.Sprintf("group(%d)", uint8(g))
	}
}

// ParseGroup converts "inner"/"outer" (case-insensitive) into a Group.
func ParseGroup(s string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner", "i":
		return InnerGroup, nil
	case "outer", "o":
		return OuterGroup, nil
	}
	return 0, fmt.Errorf("unknown sector group %q", s)
}

// Cluster is a reconstructed position measurement on one pad row, expressed
// in the local frame of its sector: Y is the transverse (pad direction)
// coordinate and Z the longitudinal (drift direction) coordinate. The row
// radius is not stored; it is a property of the row.
type Cluster struct {
	ID      ID
	Group   Group
	Sector  int
	Row     int // row number within the group
	Y       float64
	Z       float64
	SigmaY2 float64
	SigmaZ2 float64
	Q       float64 // total charge, arbitrary units
	Labels  [3]int  // provenance labels, NoLabel when empty
}

// HasLabel reports whether label is one of the cluster's provenance labels.
func (c *Cluster) HasLabel(label int) bool {
	if label == NoLabel {
		return false
	}
	for _, l := range c.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Unlabelled returns a label triple with every slot empty.
func Unlabelled() [3]int {
	return [3]int{NoLabel, NoLabel, NoLabel}
}
