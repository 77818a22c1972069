package alloc

import (
	"time"

	"github.com/sirupsen/logrus"
)

// deadlineCheckInterval is how many search nodes pass between wall-clock
// checks. Checking every node would dominate runtime at this scale.
const deadlineCheckInterval = 256

// SolveOutcome is the tagged result of one exact solve.
type SolveOutcome struct {
	Status    SolveStatus
	Picks     []int // candidate index per model request, -1 = unassigned; nil unless Optimal
	Objective int64 // scaled objective of Picks
	Nodes     int64 // search nodes explored
}

// Solve runs an exact depth-first branch-and-bound over the model's
// candidate triples and returns the optimal assignment under the
// deterministic tie-break ordering, or a Timeout/Infeasible outcome.
//
// Hard constraints enforced in the search state: at most one decision per
// (room, slot), at most one per request, and per-stakeholder usage caps
// counting prior ledger usage plus in-run decisions. Capacity, desired
// rooms/slots, flags, and the idle threshold are already encoded in the
// candidate lists.
//
// The bound prunes only on strictly worse objective, so every
// equal-objective solution reaches the leaf comparison and the secondary
// tie-break keys are decided by betterSolution, never by search order.
func Solve(m *Model, deadline time.Time) *SolveOutcome {
	if len(m.Requests) > 0 && m.totalCandidates() == 0 {
		return &SolveOutcome{Status: StatusInfeasible}
	}
	if !time.Now().Before(deadline) {
		return &SolveOutcome{Status: StatusTimeout}
	}

	s := &search{
		m:        m,
		deadline: deadline,
		used:     make(map[occKey]bool),
		inRun:    make(map[string]int),
		cur:      make([]int, len(m.Requests)),
	}
	// Optimistic bound: best candidate value for every remaining request.
	s.suffixBest = make([]int64, len(m.Requests)+1)
	for i := len(m.Requests) - 1; i >= 0; i-- {
		best := int64(0)
		if len(m.Requests[i].Candidates) > 0 {
			best = m.Requests[i].Candidates[0].Value
		}
		s.suffixBest[i] = s.suffixBest[i+1] + best
	}

	s.dfs(0, 0)
	if s.timedOut {
		logrus.Warnf("solver timed out after %d nodes, engaging fallback", s.nodes)
		return &SolveOutcome{Status: StatusTimeout, Nodes: s.nodes}
	}
	return &SolveOutcome{
		Status:    StatusOptimal,
		Picks:     s.best,
		Objective: s.bestObj,
		Nodes:     s.nodes,
	}
}

type search struct {
	m        *Model
	deadline time.Time

	used  map[occKey]bool // occupied (room, slot) cells on the current path
	inRun map[string]int  // per-requester decisions on the current path

	cur        []int
	best       []int
	bestObj    int64
	bestSet    bool
	suffixBest []int64

	nodes    int64
	timedOut bool
}

func (s *search) dfs(i int, obj int64) {
	if s.timedOut {
		return
	}
	s.nodes++
	if s.nodes%deadlineCheckInterval == 0 && !time.Now().Before(s.deadline) {
		s.timedOut = true
		return
	}
	if i == len(s.m.Requests) {
		if !s.bestSet || betterSolution(s.m, s.cur, obj, s.best, s.bestObj) {
			s.best = append(s.best[:0], s.cur...)
			s.bestObj = obj
			s.bestSet = true
		}
		return
	}
	// Prune on strictly worse bound only. Equal-objective subtrees must
	// survive to their leaves: with cross-request value ties the search
	// order does not coincide with the tie-break ordering, so only
	// betterSolution may decide between equal-objective solutions.
	if s.bestSet && obj+s.suffixBest[i] < s.bestObj {
		return
	}

	mr := &s.m.Requests[i]
	for ci, c := range mr.Candidates {
		cell := occKey{Room: c.Room, Slot: c.Slot}
		if s.used[cell] {
			continue
		}
		if !s.m.capAllows(&mr.Req, s.inRun[mr.Req.RequesterID]) {
			break // cap binds regardless of which candidate is chosen
		}
		s.used[cell] = true
		s.inRun[mr.Req.RequesterID]++
		s.cur[i] = ci
		s.dfs(i+1, obj+c.Value)
		s.cur[i] = -1
		s.inRun[mr.Req.RequesterID]--
		delete(s.used, cell)
		if s.timedOut {
			return
		}
	}
	// Leaving the request unassigned is always an option; the engine turns
	// it into an explicit NO_FEASIBLE_ALLOCATION rejection.
	s.cur[i] = -1
	s.dfs(i+1, obj)
}
