package alloc

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// candidate is one admissible (room, slot) pair for a request, with its
// precomputed objective contribution.
type candidate struct {
	Room       RoomID
	Slot       SlotKey
	Prob       float64 // idle probability from the prediction map
	Confidence float64
	Value      int64 // round(Prob × weight × objectiveScale)
}

// occKey identifies one (room, slot) cell for double-booking checks.
type occKey struct {
	Room RoomID
	Slot SlotKey
}

// modelRequest is a validated request plus its candidate list, ordered by
// (value desc, room asc, slot asc) so both search and greedy passes walk
// candidates deterministically.
type modelRequest struct {
	Req        BookingRequest
	Weight     float64
	Candidates []candidate
}

// bestProb returns the highest idle probability among candidates, used by
// the fallback ordering. Zero when the request has no candidates.
func (m *modelRequest) bestProb() float64 {
	best := 0.0
	for _, c := range m.Candidates {
		if c.Prob > best {
			best = c.Prob
		}
	}
	return best
}

// Model is the decision-variable form of one allocation run: per-request
// candidate triples plus the cap state the hard constraints close over.
// Read-only once built; both the exact solver and the fallback consume it.
type Model struct {
	Requests []modelRequest
	policy   *Policy
	ledger   *UsageLedger
}

// BuildModel translates the snapshot, validated requests, policy, and prior
// ledger usage into a Model. Requests are ordered by (SubmittedAt, ID),
// which is the canonical order every downstream tie-break refers to.
func BuildModel(snap *Snapshot, reqs []BookingRequest, pol *Policy, ledger *UsageLedger) *Model {
	ordered := append([]BookingRequest(nil), reqs...)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].SubmittedAt.Equal(ordered[j].SubmittedAt) {
			return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	m := &Model{policy: pol, ledger: ledger}
	for _, req := range ordered {
		mr := modelRequest{Req: req, Weight: pol.WeightFor(req.Tier)}
		mr.Candidates = buildCandidates(snap, &req, mr.Weight, pol)
		if len(mr.Candidates) == 0 {
			logrus.Debugf("request %s has no admissible (room, slot) candidates", req.ID)
		}
		m.Requests = append(m.Requests, mr)
	}
	return m
}

// buildCandidates enumerates admissible (room, slot) pairs for one request:
// desired rooms/type only, locked and restricted rooms excluded, capacity
// respected, idle threshold respected unless the request carries a manual
// override. Pairs with no prediction entry count as probability zero, so
// they are reachable only via override.
func buildCandidates(snap *Snapshot, req *BookingRequest, weight float64, pol *Policy) []candidate {
	var out []candidate
	for i := range snap.Rooms {
		room := &snap.Rooms[i]
		if room.Locked || room.Restricted {
			continue
		}
		if !roomMatchesRequest(room, req) {
			continue
		}
		if room.Capacity < req.Size {
			continue
		}
		for _, slot := range req.Slots {
			pred := snap.Predictions[PredictionKey{Room: room.ID, Slot: slot}]
			if pred.Probability < pol.MinIdleThreshold && !req.ManualOverride {
				continue
			}
			out = append(out, candidate{
				Room:       room.ID,
				Slot:       slot,
				Prob:       pred.Probability,
				Confidence: pred.Confidence,
				Value:      int64(math.Round(pred.Probability * weight * objectiveScale)),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		if out[i].Room != out[j].Room {
			return out[i].Room < out[j].Room
		}
		return out[i].Slot.Less(out[j].Slot)
	})
	return out
}

// capAllows reports whether assigning one more slot to the requester stays
// within its tier's usage cap, counting prior ledger usage plus the
// decisions already made within this run (inRun).
func (m *Model) capAllows(req *BookingRequest, inRun int) bool {
	limit, capped := m.policy.CapFor(req.Tier)
	if !capped {
		return true
	}
	return m.ledger.Count(req.RequesterID)+inRun+1 <= limit
}

// totalCandidates counts candidate triples across all requests.
func (m *Model) totalCandidates() int {
	n := 0
	for i := range m.Requests {
		n += len(m.Requests[i].Candidates)
	}
	return n
}
