// Package l5seeds owns Layer 5 (Seeding) of the reconstruction data model.
//
// Responsibilities: pairing clusters from two outer seed rows with the
// vertex hint, fitting a circle and a dip through the three points,
// deriving the initial covariance from the input uncertainties, and
// confirming each seed with a short follow between the two seed rows.
// Key types: Builder, Seed, Vertex.
//
// Seeds are produced in a fixed order (anchor sector, anchor index, partner
// sector, partner index) so that everything downstream is reproducible.
//
// Dependency rule: L5 may depend on L1-L4. The generic gonum matrices used
// for the covariance are acceptable here; seeding is not the hot path.
package l5seeds
