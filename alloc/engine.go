package alloc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine owns one planning cycle: an immutable input snapshot, the policy,
// the usage ledger, and the audit sink. Confirmed allocation runs are
// serialized by a run-level lock (single-writer discipline over the
// ledger); simulations take snapshots and run lock-free.
type Engine struct {
	snap    *Snapshot
	policy  *Policy
	ledger  *UsageLedger
	emitter DecisionEmitter

	// Clock stamps confirmed decisions. Overridable so tests and replay
	// tooling can pin decision timestamps.
	Clock func() time.Time

	mu sync.Mutex
}

// NewEngine validates the policy and snapshot and builds an engine.
// A nil emitter defaults to LogEmitter, a nil ledger to an empty one.
func NewEngine(snap *Snapshot, pol *Policy, ledger *UsageLedger, emitter DecisionEmitter) (*Engine, error) {
	if pol == nil {
		pol = DefaultPolicy()
	}
	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if err := ValidateSnapshot(snap); err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = NewUsageLedger()
	}
	if emitter == nil {
		emitter = LogEmitter{}
	}
	return &Engine{
		snap:    snap,
		policy:  pol,
		ledger:  ledger,
		emitter: emitter,
		Clock:   time.Now,
	}, nil
}

// Ledger exposes the engine's live usage ledger (read-style access for
// callers verifying window usage; mutation stays inside Allocate).
func (e *Engine) Ledger() *UsageLedger {
	return e.ledger
}

// RunResult bundles all outputs of one allocation or simulation sub-run.
type RunResult struct {
	RunID       string
	Method      Method // exact when the solver completed, fallback otherwise
	SolveStatus SolveStatus
	Decisions   []AllocationDecision
	Rejections  []Rejection
	Objective   float64 // total objective, unscaled
	Utilization float64 // allocated fraction of available (room, slot) cells
	Nodes       int64   // solver search nodes
	WallTime    time.Duration
}

// RunSummary aggregates a RunResult for logging and reporting.
type RunSummary struct {
	TotalRequests int
	Allocated     int
	Rejected      int
	NeedsReview   int
	ByTier        map[string]int
}

// Summarize computes aggregate statistics from a RunResult.
func (r *RunResult) Summarize() *RunSummary {
	s := &RunSummary{ByTier: make(map[string]int)}
	s.TotalRequests = len(r.Decisions) + len(r.Rejections)
	s.Allocated = len(r.Decisions)
	s.Rejected = len(r.Rejections)
	for _, d := range r.Decisions {
		s.ByTier[d.Tier.String()]++
		if d.NeedsReview {
			s.NeedsReview++
		}
	}
	return s
}

// Allocate executes one confirmed allocation run: Validate → Build → Solve
// → (on Timeout/Infeasible) Fallback, then commits the ledger and emits
// every decision to the audit sink. The only error return is a
// *ValidationError for malformed snapshot input; solver failures degrade
// to the fallback path and per-request rejections.
func (e *Engine) Allocate(ctx context.Context, reqs []BookingRequest) (*RunResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := runPipeline(ctx, e.snap, e.policy, e.ledger, reqs, e.Clock())
	if err != nil {
		return nil, err
	}
	res.RunID = runID(e.policy.Seed, reqs)

	// Commit. The run lock is held from validation through here, so ledger
	// state cannot have advanced between the cap checks and this write.
	for _, d := range res.Decisions {
		e.ledger.Charge(d.RequesterID)
	}
	for _, d := range res.Decisions {
		e.emitter.EmitDecision(d)
	}

	sum := res.Summarize()
	logrus.Infof("run %s: %d/%d allocated via %s (objective=%.4f, utilization=%.3f, review=%d, %d nodes in %s)",
		res.RunID, sum.Allocated, sum.TotalRequests, res.Method,
		res.Objective, res.Utilization, sum.NeedsReview, res.Nodes, res.WallTime)
	return res, nil
}

// runPipeline is the shared, side-effect-free pipeline behind Allocate and
// the simulation controller. It never mutates the snapshot, policy, or
// ledger it is handed.
func runPipeline(ctx context.Context, snap *Snapshot, pol *Policy, ledger *UsageLedger, reqs []BookingRequest, asOf time.Time) (*RunResult, error) {
	start := time.Now()
	if err := ValidateSnapshot(snap); err != nil {
		return nil, err
	}

	valid, rejected := ValidateRequests(snap, reqs)
	model := BuildModel(snap, valid, pol, ledger)

	deadline := start.Add(time.Duration(pol.SolverBudgetMS) * time.Millisecond)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	outcome := Solve(model, deadline)
	picks := outcome.Picks
	method := MethodExact
	if outcome.Status != StatusOptimal {
		logrus.Warnf("exact solve %s, engaging fallback allocator", outcome.Status)
		picks = Fallback(model)
		method = MethodFallback
	}

	res := &RunResult{
		Method:      method,
		SolveStatus: outcome.Status,
		Rejections:  rejected,
		Nodes:       outcome.Nodes,
	}
	res.Decisions, res.Rejections = composeDecisions(model, picks, method, pol, asOf, res.Rejections)
	res.Objective = float64(solutionObjective(model, picks)) / objectiveScale
	if avail := snap.availableSlots(); avail > 0 {
		res.Utilization = float64(len(res.Decisions)) / float64(avail)
	}
	if slot, intensity, ok := peakForecast(snap); ok {
		// Advisory only; demand forecasts never constrain the solve.
		logrus.Debugf("peak forecast demand %.2f at %s", intensity, slot)
	}
	res.WallTime = time.Since(start)
	return res, nil
}

// peakForecast returns the slot with the highest forecast demand intensity,
// ties broken by slot order. ok is false when the snapshot has no forecast.
func peakForecast(snap *Snapshot) (SlotKey, float64, bool) {
	var best SlotKey
	intensity := -1.0
	for k, v := range snap.Forecast {
		if v > intensity || (v == intensity && k.Less(best)) {
			best, intensity = k, v
		}
	}
	return best, intensity, intensity >= 0
}

// composeDecisions turns a picks vector into the ordered decision list and
// appends NO_FEASIBLE_ALLOCATION rejections for unplaced valid requests.
// Decisions inherit model order, which is the canonical
// (SubmittedAt, request ID) ordering; rejections sort by request ID.
func composeDecisions(m *Model, picks []int, method Method, pol *Policy, asOf time.Time, rejected []Rejection) ([]AllocationDecision, []Rejection) {
	var decisions []AllocationDecision
	for i, p := range picks {
		mr := &m.Requests[i]
		if p < 0 {
			rejected = append(rejected, Rejection{
				RequestID: mr.Req.ID,
				Reason:    ReasonNoFeasibleAllocation,
				Detail:    "no feasible (room, slot) remained under the hard constraints",
			})
			continue
		}
		c := mr.Candidates[p]
		decisions = append(decisions, AllocationDecision{
			RequestID:      mr.Req.ID,
			RequesterID:    mr.Req.RequesterID,
			Room:           c.Room,
			Slot:           c.Slot,
			Objective:      float64(c.Value) / objectiveScale,
			Tier:           mr.Req.Tier,
			Method:         method,
			NeedsReview:    c.Confidence < pol.MinConfidence,
			OverrideReason: overrideReason(&mr.Req),
			DecidedAt:      asOf,
		})
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].RequestID < rejected[j].RequestID })
	return decisions, rejected
}

func overrideReason(req *BookingRequest) string {
	if !req.ManualOverride {
		return ""
	}
	if req.OverrideReason != "" {
		return req.OverrideReason
	}
	return "manual override"
}

// runID derives a stable identifier from the seed and the request batch,
// so replayed runs carry the same ID in the audit trail.
func runID(seed int64, reqs []BookingRequest) string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	sort.Strings(ids)
	digest := fmt.Sprintf("%d", seed)
	for _, id := range ids {
		digest += "|" + id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(digest)).String()
}
