// Package debug provides instrumentation for the track follower.
// The DebugCollector captures association internals (search roads,
// candidate χ², Kalman innovations, predictions) for inspection and tuning.
package debug

import (
	"sort"
	"sync"

	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
)

// Pre-allocation capacities for debug event slices. A seed followed through
// all rows produces on the order of a hundred records of each kind.
const (
	defaultAssociationCapacity = 256
	defaultRoadCapacity        = 128
	defaultInnovationCapacity  = 128
	defaultPredictionCapacity  = 128
)

// DebugCollector accumulates debug artifacts during one event.
//
// The collector is stateful: call BeginEvent, let the follower call the
// Record methods, then Emit at event completion. It is safe for concurrent
// use by parallel followers.
type DebugCollector struct {
	mu      sync.Mutex
	enabled bool
	current *DebugEvent
}

// DebugEvent contains all debug artifacts for a single event.
type DebugEvent struct {
	EventID string `json:"event_id"`

	// Association stage: every in-road candidate scored, plus the winner
	AssociationCandidates []AssociationRecord `json:"association_candidates"`

	// Search roads opened per row
	Roads []Road `json:"roads"`

	// Kalman update: residuals of accepted clusters
	Innovations []KalmanInnovation `json:"innovations"`

	// Predictions at each row before association
	StatePredictions []StatePrediction `json:"state_predictions"`
}

// AssociationRecord captures one cluster scored against a track.
type AssociationRecord struct {
	Seed      int     `json:"seed"`
	Row       int     `json:"row"`
	ClusterID int32   `json:"cluster_id"`
	Chi2      float64 `json:"chi2"`
	Accepted  bool    `json:"accepted"`
}

// Road is the y window searched around a prediction.
type Road struct {
	Seed      int     `json:"seed"`
	Row       int     `json:"row"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	HalfWidth float64 `json:"half_width"`
}

// KalmanInnovation is a measurement residual in the update step.
type KalmanInnovation struct {
	Seed       int     `json:"seed"`
	Row        int     `json:"row"`
	PredictedY float64 `json:"predicted_y"`
	PredictedZ float64 `json:"predicted_z"`
	MeasuredY  float64 `json:"measured_y"`
	MeasuredZ  float64 `json:"measured_z"`
	Chi2       float64 `json:"chi2"`
}

// StatePrediction is a track state after propagation to a row.
type StatePrediction struct {
	Seed int     `json:"seed"`
	Row  int     `json:"row"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Snp  float64 `json:"snp"`
}

// NewDebugCollector creates a collector that's initially disabled.
func NewDebugCollector() *DebugCollector {
	return &DebugCollector{}
}

// SetEnabled controls whether the collector records artifacts.
// When disabled, all Record*() calls are no-ops.
func (c *DebugCollector) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// IsEnabled returns true if the collector is actively recording.
func (c *DebugCollector) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// BeginEvent initialises collection for a new event.
// Must be called before any Record*() calls.
func (c *DebugCollector) BeginEvent(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.current = &DebugEvent{
		EventID:               eventID,
		AssociationCandidates: make([]AssociationRecord, 0, defaultAssociationCapacity),
		Roads:                 make([]Road, 0, defaultRoadCapacity),
		Innovations:           make([]KalmanInnovation, 0, defaultInnovationCapacity),
		StatePredictions:      make([]StatePrediction, 0, defaultPredictionCapacity),
	}
}

// record runs fn on the current event when collection is active.
func (c *DebugCollector) record(fn func(ev *DebugEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.current == nil {
		return
	}
	fn(c.current)
}

// RecordRoad captures the search window opened at a row.
func (c *DebugCollector) RecordRoad(seed, row int, y, z, halfWidth float64) {
	c.record(func(ev *DebugEvent) {
		ev.Roads = append(ev.Roads, Road{Seed: seed, Row: row, Y: y, Z: z, HalfWidth: halfWidth})
	})
}

// RecordAssociation captures a scored candidate; the winner of a row is
// recorded a second time with accepted set.
func (c *DebugCollector) RecordAssociation(seed, row int, id l1clusters.ID, chi2 float64, accepted bool) {
	c.record(func(ev *DebugEvent) {
		ev.AssociationCandidates = append(ev.AssociationCandidates, AssociationRecord{
			Seed:      seed,
			Row:       row,
			ClusterID: int32(id),
			Chi2:      chi2,
			Accepted:  accepted,
		})
	})
}

// RecordInnovation captures the residual of an accepted cluster.
func (c *DebugCollector) RecordInnovation(seed, row int, predY, predZ, measY, measZ, chi2 float64) {
	c.record(func(ev *DebugEvent) {
		ev.Innovations = append(ev.Innovations, KalmanInnovation{
			Seed:       seed,
			Row:        row,
			PredictedY: predY,
			PredictedZ: predZ,
			MeasuredY:  measY,
			MeasuredZ:  measZ,
			Chi2:       chi2,
		})
	})
}

// RecordPrediction captures a track state after propagation to a row.
func (c *DebugCollector) RecordPrediction(seed, row int, x, y, z, snp float64) {
	c.record(func(ev *DebugEvent) {
		ev.StatePredictions = append(ev.StatePredictions, StatePrediction{Seed: seed, Row: row, X: x, Y: y, Z: z, Snp: snp})
	})
}

// Emit returns the accumulated debug event and prepares for the next one.
// Returns nil if collection is disabled or no event was begun. Records are
// sorted by seed so that parallel runs emit in a stable order; within a
// seed the recording order is kept.
func (c *DebugCollector) Emit() *DebugEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.current == nil {
		return nil
	}
	ev := c.current
	c.current = nil
	sort.SliceStable(ev.AssociationCandidates, func(i, j int) bool {
		return ev.AssociationCandidates[i].Seed < ev.AssociationCandidates[j].Seed
	})
	sort.SliceStable(ev.Roads, func(i, j int) bool { return ev.Roads[i].Seed < ev.Roads[j].Seed })
	sort.SliceStable(ev.Innovations, func(i, j int) bool { return ev.Innovations[i].Seed < ev.Innovations[j].Seed })
	sort.SliceStable(ev.StatePredictions, func(i, j int) bool {
		return ev.StatePredictions[i].Seed < ev.StatePredictions[j].Seed
	})
	return ev
}

// Reset clears any pending artifacts without emitting them.
func (c *DebugCollector) Reset() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
