// Package l3kalman owns Layer 3 (Track State) of the reconstruction data
// model.
//
// Responsibilities: the five-parameter local helix and its covariance, the
// fixed-size symmetric matrix algebra behind it, transport between radii
// with material corrections, rigid frame rotation between sectors, and the
// Kalman measurement update.
// Key types: Param, Sym5, Propagator, Physics.
//
// Every operation takes a Param by value and returns a new one. On failure
// the returned error is ErrGeometryDegenerate or ErrUpdateRejected and the
// caller keeps its original value, so rollback needs no bookkeeping.
//
// Dependency rule: L3 may depend on L1-L2. No allocation in the hot path;
// the generic gonum matrices are reserved for seeding and tests.
package l3kalman
