package alloc

import (
	"time"
)

// Shared fixtures for engine, solver, and simulation tests.

const testDate = "2026-02-22"

func slot(s Slot) SlotKey {
	return SlotKey{Date: testDate, Slot: s}
}

func at(minute int) time.Time {
	return time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC).Add(time.Duration(minute) * time.Minute)
}

// testSnapshot builds a snapshot over the given rooms and slots with a
// uniform idle probability and full confidence everywhere.
func testSnapshot(rooms []Room, slots []SlotKey, prob float64) *Snapshot {
	snap := &Snapshot{
		Rooms:       rooms,
		Slots:       slots,
		Predictions: make(map[PredictionKey]IdlePrediction),
		Forecast:    make(map[SlotKey]float64),
	}
	for _, r := range rooms {
		for _, s := range slots {
			snap.Predictions[PredictionKey{Room: r.ID, Slot: s}] = IdlePrediction{Probability: prob, Confidence: 1.0}
		}
	}
	return snap
}

func setPrediction(snap *Snapshot, room RoomID, key SlotKey, prob, conf float64) {
	snap.Predictions[PredictionKey{Room: room, Slot: key}] = IdlePrediction{Probability: prob, Confidence: conf}
}

// uncappedPolicy returns a permissive policy so tests can opt in to the
// constraints they exercise.
func uncappedPolicy() *Policy {
	pol := DefaultPolicy()
	pol.MinIdleThreshold = 0.0
	pol.MinConfidence = 0.0
	pol.UsageCaps = map[string]int{}
	return pol
}

// recordingEmitter captures emitted decisions for assertions.
type recordingEmitter struct {
	decisions []AllocationDecision
}

func (r *recordingEmitter) EmitDecision(d AllocationDecision) {
	r.decisions = append(r.decisions, d)
}
