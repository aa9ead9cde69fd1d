// Package l6session owns Layer 6 (Session) of the reconstruction data
// model.
//
// Responsibilities: building the per-event detector from a cluster supply,
// seeding, ordering seeds by the configured priority policy, following
// every seed through both sector groups, greedy global cluster claiming,
// and finalizing accepted tracks (refit, label vote, dE/dx, identity).
// Key types: Session, Config, Claims, AcceptedTrack, Metrics.
//
// Claiming is greedy in priority order, not a global optimisation. A seed
// processed earlier keeps its clusters and later seeds see those rows as
// gaps. Parallel following is speculative and committed in priority order,
// so the output never depends on the worker count.
//
// Dependency rule: L6 may depend on L1-L5.
package l6session
