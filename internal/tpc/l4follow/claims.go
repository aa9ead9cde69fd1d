package l4follow

import "github.com/banshee-data/tpctrack/internal/tpc/l1clusters"

// ClaimTable answers whether a cluster already belongs to an accepted
// track. Implementations must be safe for concurrent readers.
type ClaimTable interface {
	IsClaimed(id l1clusters.ID) bool
}

// NoClaims is an empty claim table.
type NoClaims struct{}

// IsClaimed always reports false.
func (NoClaims) IsClaimed(l1clusters.ID) bool { return false }
