package l2geometry

import (
	"sort"

	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
)

// RowIndex holds the clusters of one pad row sorted ascending on Y.
type RowIndex struct {
	X         float64 // reference radius of the row (cm)
	PadWidth  float64
	PadLength float64

	clusters []*l1clusters.Cluster
}

// NewRowIndex returns an empty row at radius x.
func NewRowIndex(x, padWidth, padLength float64) *RowIndex {
	return &RowIndex{X: x, PadWidth: padWidth, PadLength: padLength}
}

// Insert adds c at its sorted position. Equal Y values keep insertion order.
func (r *RowIndex) Insert(c *l1clusters.Cluster) {
	i := sort.Search(len(r.clusters), func(i int) bool { return r.clusters[i].Y > c.Y })
	r.clusters = append(r.clusters, nil)
	copy(r.clusters[i+1:], r.clusters[i:])
	r.clusters[i] = c
}

// FindBoundary returns the index of the first cluster with Y >= y, or Len()
// when there is none.
func (r *RowIndex) FindBoundary(y float64) int {
	return sort.Search(len(r.clusters), func(i int) bool { return r.clusters[i].Y >= y })
}

// InRange calls fn for every cluster with lo <= Y <= hi in ascending order,
// passing the row-local index. Iteration stops when fn returns false.
func (r *RowIndex) InRange(lo, hi float64, fn func(i int, c *l1clusters.Cluster) bool) {
	for i := r.FindBoundary(lo); i < len(r.clusters); i++ {
		c := r.clusters[i]
		if c.Y > hi {
			return
		}
		if !fn(i, c) {
			return
		}
	}
}

// At returns the i-th cluster in sort order.
func (r *RowIndex) At(i int) *l1clusters.Cluster { return r.clusters[i] }

// Len returns the number of clusters in the row.
func (r *RowIndex) Len() int { return len(r.clusters) }

// Sorted reports whether the row is in ascending Y order.
func (r *RowIndex) Sorted() bool {
	return sort.SliceIsSorted(r.clusters, func(i, j int) bool { return r.clusters[i].Y < r.clusters[j].Y })
}
