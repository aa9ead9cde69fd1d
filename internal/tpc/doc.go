// Package tpc is the root of the drift-chamber track reconstruction engine.
//
// The engine is organised as a layered data model, each layer in its own
// sub-package. A layer may depend on the layers below it, never above:
//
//	l1clusters  position measurements and the per-event cluster arena
//	l2geometry  pad-row index, sectors, detector layout, material service
//	l3kalman    helix state, covariance algebra, propagation, update
//	l4follow    cluster association, row-by-row following, refit
//	l5seeds     triplet seeding in the outer sector group
//	l6session   seed ordering, greedy cluster claiming, accepted tracks
//
// Outside the layer stack, debug collects association internals and
// storage/sqlite records finished events. This package itself only owns
// the shared logging streams.
package tpc
