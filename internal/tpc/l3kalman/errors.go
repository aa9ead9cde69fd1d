package l3kalman

import "errors"

var (
	// ErrGeometryDegenerate is returned when a propagation or rotation would
	// leave the track in a direction the local helix cannot represent.
	ErrGeometryDegenerate = errors.New("geometry degenerate")

	// ErrUpdateRejected is returned when a measurement update would violate
	// the state invariant or the innovation covariance is singular.
	ErrUpdateRejected = errors.New("update rejected")
)

// Internal numerical stability constants, not user-tunable.
const (
	// MinDeterminant is the smallest innovation covariance determinant
	// accepted for inversion.
	MinDeterminant = 1e-24
	// minCosine guards divisions by the local cosine.
	minCosine = 1e-9
)
