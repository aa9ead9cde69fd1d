// Package l2geometry owns Layer 2 (Geometry) of the reconstruction data model.
//
// Responsibilities: the per-row cluster index sorted on the transverse
// coordinate, sector and sector-group layout (row radii, pad geometry,
// azimuthal frames), event ingestion from a cluster supply, and the
// material description consulted by the propagator.
// Key types: RowIndex, Sector, SectorGroup, Detector, Material.
//
// Dependency rule: L2 may depend on L1 only. Row indices are built once per
// event and are read-only while tracking.
package l2geometry
