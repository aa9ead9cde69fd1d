package l6session

import (
	"sync"

	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
)

const unclaimed = -1

// Claims maps each cluster of an event to the seed that claimed it. It is
// written only by the driver's commit step, once per accepted track.
type Claims struct {
	mu    sync.RWMutex
	owner []int32
	n     int
}

// NewClaims returns an empty claim table for n clusters.
func NewClaims(n int) *Claims {
	c := &Claims{owner: make([]int32, n)}
	for i := range c.owner {
		c.owner[i] = unclaimed
	}
	return c
}

// IsClaimed reports whether id has been claimed. Unknown IDs are reported
// as claimed so they are never associated.
func (c *Claims) IsClaimed(id l1clusters.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || int(id) >= len(c.owner) {
		return true
	}
	return c.owner[id] != unclaimed
}

// Owner returns the seed order that claimed id.
func (c *Claims) Owner(id l1clusters.ID) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || int(id) >= len(c.owner) || c.owner[id] == unclaimed {
		return 0, false
	}
	return int(c.owner[id]), true
}

// ClaimAll claims every id for owner, or none of them if any is already
// claimed or out of range.
func (c *Claims) ClaimAll(ids []l1clusters.ID, owner int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if id < 0 || int(id) >= len(c.owner) || c.owner[id] != unclaimed {
			return false
		}
	}
	for _, id := range ids {
		c.owner[id] = int32(owner)
	}
	c.n += len(ids)
	return true
}

// Len returns the number of claimed clusters.
func (c *Claims) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.n
}

// recorder is the claim view of a speculative follow. It answers from the
// shared table and remembers every cluster it was asked about, so the
// commit step can tell whether a later claim could have changed the walk.
type recorder struct {
	claims *Claims
	asked  []l1clusters.ID
}

func (r *recorder) IsClaimed(id l1clusters.ID) bool {
	r.asked = append(r.asked, id)
	return r.claims.IsClaimed(id)
}

// stale reports whether any cluster the follow looked at has been claimed
// since.
func (r *recorder) stale() bool {
	for _, id := range r.asked {
		if r.claims.IsClaimed(id) {
			return true
		}
	}
	return false
}
