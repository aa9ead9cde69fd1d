package l1clusters

// Arena stores every cluster of one event. Cluster pointers handed out by
// Get stay valid for the lifetime of the arena once Freeze has been called;
// clusters added before Freeze may be moved by slice growth.
type Arena struct {
	clusters []Cluster
	frozen   bool
}

// NewArena returns an arena with room for capacity clusters.
func NewArena(capacity int) *Arena {
	return &Arena{clusters: make([]Cluster, 0, capacity)}
}

// Add stores c, assigns its ID and returns it. Add panics after Freeze.
func (a *Arena) Add(c Cluster) ID {
	if a.frozen {
		panic("l1clusters: Add on frozen arena")
	}
	id := ID(len(a.clusters))
	c.ID = id
	a.clusters = append(a.clusters, c)
	return id
}

// Freeze forbids further additions so that pointers into the arena are
// stable.
func (a *Arena) Freeze() { a.frozen = true }

// Frozen reports whether Freeze has been called.
func (a *Arena) Frozen() bool { return a.frozen }

// Get returns the cluster with the given ID, or nil when id is out of range.
func (a *Arena) Get(id ID) *Cluster {
	if id < 0 || int(id) >= len(a.clusters) {
		return nil
	}
	return &a.clusters[id]
}

// Len returns the number of stored clusters.
func (a *Arena) Len() int { return len(a.clusters) }
