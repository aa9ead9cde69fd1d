package l4follow

import "errors"

var (
	// ErrNoMatch is returned by the associator when no cluster passes the
	// road, the z gate and the χ² ceiling. It is a normal outcome; the
	// follower records a gap.
	ErrNoMatch = errors.New("no matching cluster")

	// ErrSkipBudgetExhausted is returned when a track has gone more rows
	// without a cluster than the skip budget allows. The track is finalized
	// with what it has and still scored.
	ErrSkipBudgetExhausted = errors.New("skip budget exhausted")

	// ErrInsufficientClusters is returned by Score when a track is rejected
	// for having too few clusters.
	ErrInsufficientClusters = errors.New("insufficient clusters")
)
