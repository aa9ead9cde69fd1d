package l1clusters

// Supply is an iterable source of clusters for one event. Each cluster
// carries its own (group, sector, row) key. Implementations call yield for
// every cluster and stop early when yield returns false.
type Supply interface {
	Clusters(yield func(Cluster) bool)
}

// SliceSupply adapts a slice of clusters to the Supply interface.
type SliceSupply []Cluster

// Clusters yields the slice elements in order.
func (s SliceSupply) Clusters(yield func(Cluster) bool) {
	for _, c := range s {
		if !yield(c) {
			return
		}
	}
}
