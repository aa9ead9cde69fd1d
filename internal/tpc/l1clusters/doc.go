// Package l1clusters owns Layer 1 (Clusters) of the reconstruction data model.
//
// Responsibilities: the immutable position measurement recorded on one pad
// row, the per-event arena that assigns cluster identities, and the cluster
// supply interface through which measurements enter the engine.
// Key types: Cluster, ID, Arena, Supply.
//
// Dependency rule: L1 depends on nothing else in the engine. Clusters never
// carry a "used" flag; claiming is owned by the session layer.
package l1clusters
