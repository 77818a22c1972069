package alloc

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Fallback is the deterministic greedy allocator engaged when the exact
// solver times out or reports infeasibility. It walks requests in priority
// order and gives each the first (room, slot) candidate that still
// satisfies every hard constraint given decisions made so far. Requests
// left without a feasible candidate become explicit rejections in the
// engine; nothing here fails.
//
// Order: tier rank descending (Institutional first), best-candidate idle
// probability descending, submission timestamp ascending, request ID
// ascending. Candidates within a request are already ordered
// (value desc, room asc, slot asc) by the model builder.
//
// The result is some constraint-respecting outcome, not the optimum.
func Fallback(m *Model) []int {
	order := make([]int, len(m.Requests))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := &m.Requests[order[a]], &m.Requests[order[b]]
		if ra.Req.Tier != rb.Req.Tier {
			return ra.Req.Tier < rb.Req.Tier // lower Tier value = higher rank
		}
		pa, pb := ra.bestProb(), rb.bestProb()
		if pa != pb {
			return pa > pb
		}
		if !ra.Req.SubmittedAt.Equal(rb.Req.SubmittedAt) {
			return ra.Req.SubmittedAt.Before(rb.Req.SubmittedAt)
		}
		return ra.Req.ID < rb.Req.ID
	})

	picks := make([]int, len(m.Requests))
	for i := range picks {
		picks[i] = -1
	}
	used := make(map[occKey]bool)
	inRun := make(map[string]int)
	for _, idx := range order {
		mr := &m.Requests[idx]
		if !m.capAllows(&mr.Req, inRun[mr.Req.RequesterID]) {
			logrus.Debugf("fallback: request %s blocked by usage cap", mr.Req.ID)
			continue
		}
		for ci, c := range mr.Candidates {
			cell := occKey{Room: c.Room, Slot: c.Slot}
			if used[cell] {
				continue
			}
			used[cell] = true
			inRun[mr.Req.RequesterID]++
			picks[idx] = ci
			break
		}
	}
	return picks
}
