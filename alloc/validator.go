package alloc

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateSnapshot checks the external prediction inputs. Out-of-range
// probabilities are a hard validation error, never silently clamped.
func ValidateSnapshot(snap *Snapshot) error {
	if len(snap.Rooms) == 0 {
		return &ValidationError{Reason: "snapshot has no rooms"}
	}
	if len(snap.Slots) == 0 {
		return &ValidationError{Reason: "snapshot has no slots"}
	}
	seen := make(map[RoomID]bool, len(snap.Rooms))
	for _, r := range snap.Rooms {
		if r.ID == "" {
			return &ValidationError{Reason: "room with empty ID"}
		}
		if seen[r.ID] {
			return &ValidationError{Reason: fmt.Sprintf("duplicate room ID %s", r.ID)}
		}
		seen[r.ID] = true
		if r.Capacity <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("room %s has non-positive capacity %d", r.ID, r.Capacity)}
		}
	}
	for key, p := range snap.Predictions {
		if p.Probability < 0 || p.Probability > 1 {
			return &ValidationError{Reason: fmt.Sprintf("idle probability %f for (%s, %s) outside [0,1]", p.Probability, key.Room, key.Slot)}
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			return &ValidationError{Reason: fmt.Sprintf("confidence %f for (%s, %s) outside [0,1]", p.Confidence, key.Room, key.Slot)}
		}
	}
	return nil
}

// ValidateRequests normalizes raw requests against the room and slot
// universe. Pure function: it never consults the optimizer and mutates
// nothing. Every input request ends up either in the returned valid set or
// as a VALIDATION_FAILED rejection with a specific reason.
func ValidateRequests(snap *Snapshot, reqs []BookingRequest) (valid []BookingRequest, rejected []Rejection) {
	seen := make(map[string]bool, len(reqs))
	for _, raw := range reqs {
		req := raw.normalized()
		if reason := validateOne(snap, req); reason != "" {
			rejected = append(rejected, Rejection{RequestID: req.ID, Reason: ReasonValidationFailed, Detail: reason})
			continue
		}
		key := duplicateKey(req)
		if seen[key] {
			rejected = append(rejected, Rejection{RequestID: req.ID, Reason: ReasonValidationFailed, Detail: "duplicate request"})
			continue
		}
		seen[key] = true
		valid = append(valid, req)
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].RequestID < rejected[j].RequestID })
	return valid, rejected
}

func validateOne(snap *Snapshot, req BookingRequest) string {
	if req.ID == "" {
		return "missing request ID"
	}
	if req.RequesterID == "" {
		return "missing requester ID"
	}
	if req.Tier < TierInstitutional || req.Tier >= numTiers {
		return fmt.Sprintf("unknown tier %d", int(req.Tier))
	}
	if req.Size <= 0 {
		return fmt.Sprintf("non-positive size %d", req.Size)
	}
	if len(req.Slots) == 0 {
		return "no desired slots"
	}
	for _, k := range req.Slots {
		if !snap.hasSlot(k) {
			return fmt.Sprintf("malformed slot reference %s", k)
		}
	}
	for _, id := range req.Rooms {
		if snap.room(id) == nil {
			return fmt.Sprintf("unknown room %s", id)
		}
	}
	// Capacity mismatch: the request must fit at least one candidate room.
	fits := false
	for _, r := range snap.Rooms {
		if !roomMatchesRequest(&r, &req) {
			continue
		}
		if r.Capacity >= req.Size {
			fits = true
			break
		}
	}
	if !fits {
		return fmt.Sprintf("size %d exceeds every candidate room's capacity", req.Size)
	}
	return ""
}

// roomMatchesRequest reports whether the room is among the request's
// desired rooms (or matches its desired type; empty desires match any room).
// Lock and restriction flags are a feasibility concern, not a validation one.
func roomMatchesRequest(r *Room, req *BookingRequest) bool {
	if len(req.Rooms) > 0 {
		for _, id := range req.Rooms {
			if id == r.ID {
				return true
			}
		}
		return false
	}
	if req.RoomType != "" {
		return r.Type == req.RoomType
	}
	return true
}

// duplicateKey identifies a pending request by requester plus desired
// rooms/slots; a second submission with the same key is a duplicate.
func duplicateKey(req BookingRequest) string {
	var b strings.Builder
	b.WriteString(req.RequesterID)
	b.WriteByte('|')
	b.WriteString(string(req.RoomType))
	for _, id := range req.Rooms {
		b.WriteByte('|')
		b.WriteString(string(id))
	}
	b.WriteByte('#')
	for _, k := range req.Slots {
		b.WriteByte('|')
		b.WriteString(k.String())
	}
	return b.String()
}
