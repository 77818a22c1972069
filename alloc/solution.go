package alloc

// picks encodes one solution: for each model request (in canonical model
// order) the index of its chosen candidate, or -1 when unassigned.

// solutionObjective sums the scaled objective values of a picks vector.
func solutionObjective(m *Model, picks []int) int64 {
	var total int64
	for i, p := range picks {
		if p >= 0 {
			total += m.Requests[i].Candidates[p].Value
		}
	}
	return total
}

// betterSolution reports whether solution a strictly beats solution b under
// the deterministic tie-break policy:
//
//  1. higher total scaled objective
//  2. lexicographically smaller submission-timestamp sequence over the
//     assigned requests (model order is already (SubmittedAt, ID) ascending)
//  3. lexicographically smaller assigned room-ID sequence
//  4. lexicographically smaller assigned slot sequence
//
// The final comparison of raw pick vectors guarantees a total order even
// between solutions identical on all four keys.
func betterSolution(m *Model, a []int, objA int64, b []int, objB int64) bool {
	if objA != objB {
		return objA > objB
	}
	if c := compareAssignedTimestamps(m, a, b); c != 0 {
		return c < 0
	}
	if c := compareAssignedRooms(m, a, b); c != 0 {
		return c < 0
	}
	if c := compareAssignedSlots(m, a, b); c != 0 {
		return c < 0
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func compareAssignedTimestamps(m *Model, a, b []int) int {
	i, j := nextAssigned(a, 0), nextAssigned(b, 0)
	for i >= 0 && j >= 0 {
		ta, tb := m.Requests[i].Req.SubmittedAt, m.Requests[j].Req.SubmittedAt
		if ta.Before(tb) {
			return -1
		}
		if tb.Before(ta) {
			return 1
		}
		if ida, idb := m.Requests[i].Req.ID, m.Requests[j].Req.ID; ida != idb {
			if ida < idb {
				return -1
			}
			return 1
		}
		i, j = nextAssigned(a, i+1), nextAssigned(b, j+1)
	}
	switch {
	case i < 0 && j < 0:
		return 0
	case i < 0:
		// a is a proper prefix of b: at equal objective the solution that
		// serves more requests wins.
		return 1
	default:
		return -1
	}
}

func compareAssignedRooms(m *Model, a, b []int) int {
	i, j := nextAssigned(a, 0), nextAssigned(b, 0)
	for i >= 0 && j >= 0 {
		ra := m.Requests[i].Candidates[a[i]].Room
		rb := m.Requests[j].Candidates[b[j]].Room
		if ra != rb {
			if ra < rb {
				return -1
			}
			return 1
		}
		i, j = nextAssigned(a, i+1), nextAssigned(b, j+1)
	}
	return 0
}

func compareAssignedSlots(m *Model, a, b []int) int {
	i, j := nextAssigned(a, 0), nextAssigned(b, 0)
	for i >= 0 && j >= 0 {
		sa := m.Requests[i].Candidates[a[i]].Slot
		sb := m.Requests[j].Candidates[b[j]].Slot
		if sa != sb {
			if sa.Less(sb) {
				return -1
			}
			return 1
		}
		i, j = nextAssigned(a, i+1), nextAssigned(b, j+1)
	}
	return 0
}

// nextAssigned returns the first index ≥ from with an assignment, or -1.
func nextAssigned(picks []int, from int) int {
	for i := from; i < len(picks); i++ {
		if picks[i] >= 0 {
			return i
		}
	}
	return -1
}
