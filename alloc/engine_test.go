package alloc

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2026, 2, 22, 8, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, snap *Snapshot, pol *Policy, em DecisionEmitter) *Engine {
	t.Helper()
	engine, err := NewEngine(snap, pol, nil, em)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	engine.Clock = fixedClock
	return engine
}

func TestAllocate_UsageCap_SecondRequestRejected(t *testing.T) {
	// GIVEN a cap of 1 per stakeholder and two qualifying requests from the
	// same stakeholder in different slots
	rooms := []Room{{ID: "room-a", Capacity: 30, Type: RoomClassroom}}
	s1, s2 := slot("09-11"), slot("11-13")
	snap := testSnapshot(rooms, []SlotKey{s1, s2}, 0.9)
	pol := uncappedPolicy()
	pol.UsageCaps = map[string]int{TierCommercial.String(): 1}
	engine := newTestEngine(t, snap, pol, NopEmitter{})

	reqs := []BookingRequest{
		{ID: "r1", RequesterID: "org-1", Tier: TierCommercial, Slots: []SlotKey{s1}, Size: 10, SubmittedAt: at(0)},
		{ID: "r2", RequesterID: "org-1", Tier: TierCommercial, Slots: []SlotKey{s2}, Size: 10, SubmittedAt: at(5)},
	}

	// WHEN the engine allocates
	res, err := engine.Allocate(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// THEN exactly one decision lands and the other is an explicit cap
	// rejection, regardless of objective value
	if len(res.Decisions) != 1 {
		t.Fatalf("decisions: got %d, want 1", len(res.Decisions))
	}
	if len(res.Rejections) != 1 || res.Rejections[0].Reason != ReasonNoFeasibleAllocation {
		t.Fatalf("rejections: got %+v, want one NO_FEASIBLE_ALLOCATION", res.Rejections)
	}
	if got := engine.Ledger().Count("org-1"); got != 1 {
		t.Errorf("ledger count after commit: got %d, want 1", got)
	}
}

func TestAllocate_LedgerPersistsAcrossRuns(t *testing.T) {
	// GIVEN a cap of 1 and a first confirmed run that used it up
	rooms := []Room{{ID: "room-a", Capacity: 30, Type: RoomClassroom}}
	s1, s2 := slot("09-11"), slot("11-13")
	snap := testSnapshot(rooms, []SlotKey{s1, s2}, 0.9)
	pol := uncappedPolicy()
	pol.UsageCaps = map[string]int{TierCommercial.String(): 1}
	engine := newTestEngine(t, snap, pol, NopEmitter{})

	first := []BookingRequest{
		{ID: "r1", RequesterID: "org-1", Tier: TierCommercial, Slots: []SlotKey{s1}, Size: 10, SubmittedAt: at(0)},
	}
	if _, err := engine.Allocate(context.Background(), first); err != nil {
		t.Fatalf("first Allocate: %v", err)
	}

	// WHEN the same stakeholder requests again in a later run
	second := []BookingRequest{
		{ID: "r2", RequesterID: "org-1", Tier: TierCommercial, Slots: []SlotKey{s2}, Size: 10, SubmittedAt: at(60)},
	}
	res, err := engine.Allocate(context.Background(), second)
	if err != nil {
		t.Fatalf("second Allocate: %v", err)
	}

	// THEN prior ledger usage blocks the new request
	if len(res.Decisions) != 0 {
		t.Fatalf("decisions in capped second run: got %d, want 0", len(res.Decisions))
	}
	if len(res.Rejections) != 1 || res.Rejections[0].Reason != ReasonNoFeasibleAllocation {
		t.Fatalf("rejections: got %+v, want one NO_FEASIBLE_ALLOCATION", res.Rejections)
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	// GIVEN two engines over identical synthetic inputs and seed
	sc, err := Synthesize(DefaultSynthesisConfig())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	pol := DefaultPolicy()

	run := func() *RunResult {
		engine := newTestEngine(t, sc.Snapshot.Clone(), pol.Clone(), NopEmitter{})
		res, err := engine.Allocate(context.Background(), sc.Requests)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		return res
	}

	// WHEN both engines allocate
	a, b := run(), run()

	// THEN decisions, rejections, and run ID are identical
	if !reflect.DeepEqual(a.Decisions, b.Decisions) {
		t.Errorf("decisions differ:\n%+v\n%+v", a.Decisions, b.Decisions)
	}
	if !reflect.DeepEqual(a.Rejections, b.Rejections) {
		t.Errorf("rejections differ:\n%+v\n%+v", a.Rejections, b.Rejections)
	}
	if a.RunID != b.RunID {
		t.Errorf("run IDs differ: %s vs %s", a.RunID, b.RunID)
	}
}

func TestAllocate_InvariantsHold(t *testing.T) {
	// GIVEN a full synthetic scenario
	sc, err := Synthesize(DefaultSynthesisConfig())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	pol := DefaultPolicy()
	engine := newTestEngine(t, sc.Snapshot, pol, NopEmitter{})

	// WHEN the engine allocates
	res, err := engine.Allocate(context.Background(), sc.Requests)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// THEN no (room, slot) or request appears twice, every room fits its
	// request, and threshold/caps hold
	cells := map[occKey]bool{}
	requests := map[string]bool{}
	for _, d := range res.Decisions {
		cell := occKey{Room: d.Room, Slot: d.Slot}
		if cells[cell] {
			t.Fatalf("cell %v double-booked", cell)
		}
		cells[cell] = true
		if requests[d.RequestID] {
			t.Fatalf("request %s decided twice", d.RequestID)
		}
		requests[d.RequestID] = true

		pred := sc.Snapshot.Predictions[PredictionKey{Room: d.Room, Slot: d.Slot}]
		if pred.Probability < pol.MinIdleThreshold && d.OverrideReason == "" {
			t.Errorf("decision %s below idle threshold without override", d.RequestID)
		}
	}
	// Every request is accounted for exactly once.
	if got, want := len(res.Decisions)+len(res.Rejections), len(sc.Requests); got != want {
		t.Errorf("accounted requests: got %d, want %d", got, want)
	}
}

func TestAllocate_TighterThreshold_NeverAllocatesMore(t *testing.T) {
	// GIVEN the same scenario under a loose and a tight idle threshold
	sc, err := Synthesize(DefaultSynthesisConfig())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	count := func(threshold float64) int {
		pol := DefaultPolicy()
		pol.MinIdleThreshold = threshold
		engine := newTestEngine(t, sc.Snapshot.Clone(), pol, NopEmitter{})
		res, err := engine.Allocate(context.Background(), sc.Requests)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		return len(res.Decisions)
	}

	// WHEN thresholds tighten monotonically
	loose, mid, tight := count(0.1), count(0.5), count(0.9)

	// THEN allocated counts never increase
	if mid > loose || tight > mid {
		t.Errorf("allocated counts not monotone: %d (0.1) %d (0.5) %d (0.9)", loose, mid, tight)
	}
}

func TestAllocate_ExpiredBudget_FallsBackCompletely(t *testing.T) {
	// GIVEN an already-expired context deadline forcing a solver timeout
	rooms := []Room{
		{ID: "room-a", Capacity: 30, Type: RoomClassroom},
		{ID: "room-b", Capacity: 50, Type: RoomAuditorium},
	}
	s1 := slot("09-11")
	snap := testSnapshot(rooms, []SlotKey{s1}, 0.9)
	engine := newTestEngine(t, snap, uncappedPolicy(), NopEmitter{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	reqs := []BookingRequest{
		{ID: "r1", RequesterID: "u1", Tier: TierInstitutional, Slots: []SlotKey{s1}, Size: 10, SubmittedAt: at(0)},
		{ID: "r2", RequesterID: "u2", Tier: TierCommercial, Slots: []SlotKey{s1}, Size: 10, SubmittedAt: at(1)},
	}

	// WHEN the engine allocates
	res, err := engine.Allocate(ctx, reqs)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// THEN the run completes via the fallback with a full decision set
	if res.SolveStatus != StatusTimeout {
		t.Fatalf("solve status: got %v, want timeout", res.SolveStatus)
	}
	if res.Method != MethodFallback {
		t.Fatalf("method: got %v, want fallback", res.Method)
	}
	for _, d := range res.Decisions {
		if d.Method != MethodFallback {
			t.Errorf("decision %s method: got %v, want fallback", d.RequestID, d.Method)
		}
	}
	if got, want := len(res.Decisions)+len(res.Rejections), len(reqs); got != want {
		t.Errorf("accounted requests: got %d, want %d", got, want)
	}
}

func TestAllocate_EmitsEveryConfirmedDecision(t *testing.T) {
	// GIVEN a recording audit sink
	rooms := []Room{{ID: "room-a", Capacity: 30, Type: RoomClassroom}}
	s1, s2 := slot("09-11"), slot("11-13")
	snap := testSnapshot(rooms, []SlotKey{s1, s2}, 0.9)
	rec := &recordingEmitter{}
	engine := newTestEngine(t, snap, uncappedPolicy(), rec)

	reqs := []BookingRequest{
		{ID: "r1", RequesterID: "u1", Tier: TierInstitutional, Slots: []SlotKey{s1}, Size: 10, SubmittedAt: at(0)},
		{ID: "r2", RequesterID: "u2", Tier: TierCommercial, Slots: []SlotKey{s2}, Size: 10, SubmittedAt: at(1)},
	}

	// WHEN the engine allocates
	res, err := engine.Allocate(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// THEN the sink saw exactly the run's decisions, in output order
	if !reflect.DeepEqual(rec.decisions, res.Decisions) {
		t.Errorf("emitted decisions differ from result:\n%+v\n%+v", rec.decisions, res.Decisions)
	}
}

func TestAllocate_LowConfidence_FlagsReview(t *testing.T) {
	// GIVEN a winning cell whose prediction confidence is below the policy
	// threshold
	rooms := []Room{{ID: "room-a", Capacity: 30, Type: RoomClassroom}}
	s1 := slot("09-11")
	snap := testSnapshot(rooms, []SlotKey{s1}, 0.9)
	setPrediction(snap, "room-a", s1, 0.9, 0.1)
	pol := uncappedPolicy()
	pol.MinConfidence = 0.3
	engine := newTestEngine(t, snap, pol, NopEmitter{})

	reqs := []BookingRequest{
		{ID: "r1", RequesterID: "u1", Tier: TierCommercial, Slots: []SlotKey{s1}, Size: 10, SubmittedAt: at(0)},
	}

	// WHEN the engine allocates
	res, err := engine.Allocate(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// THEN the decision proceeds but is flagged for manual review
	if len(res.Decisions) != 1 {
		t.Fatalf("decisions: got %d, want 1", len(res.Decisions))
	}
	if !res.Decisions[0].NeedsReview {
		t.Error("low-confidence decision not flagged for review")
	}
}

func TestAllocate_ManualOverride_BypassesThresholdAndCarriesReason(t *testing.T) {
	// GIVEN a cell below the idle threshold and a manually overridden request
	rooms := []Room{{ID: "room-a", Capacity: 30, Type: RoomClassroom}}
	s1 := slot("09-11")
	snap := testSnapshot(rooms, []SlotKey{s1}, 0.2)
	pol := uncappedPolicy()
	pol.MinIdleThreshold = 0.5
	engine := newTestEngine(t, snap, pol, NopEmitter{})

	reqs := []BookingRequest{
		{ID: "r1", RequesterID: "u1", Tier: TierInstitutional, Slots: []SlotKey{s1}, Size: 10,
			SubmittedAt: at(0), ManualOverride: true, OverrideReason: "board meeting"},
	}

	// WHEN the engine allocates
	res, err := engine.Allocate(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// THEN the decision lands and carries the override reason
	if len(res.Decisions) != 1 {
		t.Fatalf("decisions: got %d, want 1", len(res.Decisions))
	}
	if res.Decisions[0].OverrideReason != "board meeting" {
		t.Errorf("override reason: got %q, want %q", res.Decisions[0].OverrideReason, "board meeting")
	}
}
