// Package l4follow owns Layer 4 (Following) of the reconstruction data
// model.
//
// Responsibilities: gated nearest-cluster association against a row index,
// the measurement update bookkeeping of a track, and the row-by-row
// follower that walks a track through the outer and then the inner sector
// group. A backward refit pass over the already assigned clusters produces
// the outward covariance.
// Key types: Track, Associator, Follower, ClaimTable.
//
// The follower never writes the claim table. It only asks whether a
// cluster is taken; claiming is the session's job.
//
// Dependency rule: L4 may depend on L1-L3.
package l4follow
