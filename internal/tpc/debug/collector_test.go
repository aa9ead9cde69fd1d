package debug

import (
	"sync"
	"testing"

	"github.com/banshee-data/tpctrack/internal/tpc/l4follow"
)

var _ l4follow.DebugCollector = (*DebugCollector)(nil)

func TestNewDebugCollector_InitiallyDisabled(t *testing.T) {
	collector := NewDebugCollector()

	if collector.IsEnabled() {
		t.Error("Expected collector to be initially disabled")
	}
}

func TestDebugCollector_EnableDisable(t *testing.T) {
	collector := NewDebugCollector()

	collector.SetEnabled(true)
	if !collector.IsEnabled() {
		t.Error("Expected collector to be enabled after SetEnabled(true)")
	}

	collector.SetEnabled(false)
	if collector.IsEnabled() {
		t.Error("Expected collector to be disabled after SetEnabled(false)")
	}
}

func TestDebugCollector_DisabledRecordsNothing(t *testing.T) {
	collector := NewDebugCollector()
	collector.BeginEvent("evt")

	// Should not panic when disabled
	collector.RecordRoad(1, 2, 0, 0, 1)
	collector.RecordAssociation(1, 2, 3, 0.5, true)

	if frame := collector.Emit(); frame != nil {
		t.Error("Expected nil event when collector is disabled")
	}
}

func TestDebugCollector_RecordWithoutBegin(t *testing.T) {
	collector := NewDebugCollector()
	collector.SetEnabled(true)

	collector.RecordInnovation(0, 1, 0, 0, 0.1, 0.1, 2)
	if ev := collector.Emit(); ev != nil {
		t.Error("Expected nil event before BeginEvent")
	}
}

func TestDebugCollector_RecordAll(t *testing.T) {
	collector := NewDebugCollector()
	collector.SetEnabled(true)
	collector.BeginEvent("evt-7")

	collector.RecordRoad(3, 40, 1.5, -2, 0.4)
	collector.RecordAssociation(3, 40, 11, 3.5, false)
	collector.RecordAssociation(3, 40, 11, 3.5, true)
	collector.RecordInnovation(3, 40, 1.5, -2, 1.6, -2.1, 3.5)
	collector.RecordPrediction(3, 40, 215, 1.5, -2, 0.1)

	ev := collector.Emit()
	if ev == nil {
		t.Fatal("Expected non-nil event when collector is enabled")
	}
	if ev.EventID != "evt-7" {
		t.Errorf("Expected EventID=evt-7, got %q", ev.EventID)
	}
	if len(ev.Roads) != 1 || ev.Roads[0].HalfWidth != 0.4 {
		t.Errorf("Unexpected roads: %+v", ev.Roads)
	}
	if len(ev.AssociationCandidates) != 2 || !ev.AssociationCandidates[1].Accepted {
		t.Errorf("Unexpected associations: %+v", ev.AssociationCandidates)
	}
	if ev.AssociationCandidates[0].ClusterID != 11 {
		t.Errorf("Expected ClusterID=11, got %d", ev.AssociationCandidates[0].ClusterID)
	}
	if len(ev.Innovations) != 1 || ev.Innovations[0].MeasuredZ != -2.1 {
		t.Errorf("Unexpected innovations: %+v", ev.Innovations)
	}
	if len(ev.StatePredictions) != 1 || ev.StatePredictions[0].X != 215 {
		t.Errorf("Unexpected predictions: %+v", ev.StatePredictions)
	}

	if again := collector.Emit(); again != nil {
		t.Error("Expected Emit to clear the event")
	}
}

func TestDebugCollector_Reset(t *testing.T) {
	collector := NewDebugCollector()
	collector.SetEnabled(true)
	collector.BeginEvent("evt")
	collector.RecordRoad(0, 0, 0, 0, 1)
	collector.Reset()

	if ev := collector.Emit(); ev != nil {
		t.Error("Expected nil event after Reset")
	}
}

func TestDebugCollector_ConcurrentSortedBySeed(t *testing.T) {
	collector := NewDebugCollector()
	collector.SetEnabled(true)
	collector.BeginEvent("evt")

	var wg sync.WaitGroup
	for seed := 7; seed >= 0; seed-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := 0; row < 10; row++ {
				collector.RecordPrediction(seed, row, float64(row), 0, 0, 0)
			}
		}()
	}
	wg.Wait()

	ev := collector.Emit()
	if len(ev.StatePredictions) != 80 {
		t.Fatalf("Expected 80 predictions, got %d", len(ev.StatePredictions))
	}
	for i := 1; i < len(ev.StatePredictions); i++ {
		a, b := ev.StatePredictions[i-1], ev.StatePredictions[i]
		if a.Seed > b.Seed || (a.Seed == b.Seed && a.Row > b.Row) {
			t.Fatalf("Records out of order at %d: %+v then %+v", i, a, b)
		}
	}
}
