package alloc

import (
	"fmt"
	"sort"
	"time"
)

// RoomID identifies a room within the planning universe.
type RoomID string

// RoomType classifies a room; requests may target a type instead of
// naming rooms explicitly.
type RoomType string

const (
	RoomClassroom  RoomType = "Classroom"
	RoomAuditorium RoomType = "Auditorium"
	RoomLab        RoomType = "Lab"
	RoomSeminar    RoomType = "Seminar"
)

// Room is a physical room. Immutable within a planning cycle; simulation
// overrides operate on copies, never on the engine's snapshot.
type Room struct {
	ID         RoomID
	Name       string
	Capacity   int
	Type       RoomType
	Location   string
	Locked     bool // administratively unavailable
	Restricted bool // excluded from general allocation
}

// Slot is one entry of the fixed daily slot set.
type Slot string

// DefaultSlots is the fixed daily slot set. Order is the canonical
// within-day ordering used by every deterministic sort.
var DefaultSlots = []Slot{"09-11", "11-13", "14-16", "16-18"}

// slotRank returns the position of s in DefaultSlots, or len(DefaultSlots)
// for unknown slots so they sort last.
func slotRank(s Slot) int {
	for i, d := range DefaultSlots {
		if d == s {
			return i
		}
	}
	return len(DefaultSlots)
}

// SlotKey combines a date (layout "2006-01-02") with a daily slot.
type SlotKey struct {
	Date string
	Slot Slot
}

func (k SlotKey) String() string {
	return k.Date + " " + string(k.Slot)
}

// Less orders slot keys by date, then by canonical slot position.
func (k SlotKey) Less(o SlotKey) bool {
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	return slotRank(k.Slot) < slotRank(o.Slot)
}

// Tier is the stakeholder priority class. Lower numeric value means higher
// priority rank (Institutional outranks Public-Service outranks Commercial).
type Tier int

const (
	TierInstitutional Tier = iota
	TierPublicService
	TierCommercial
	numTiers
)

// Tiers lists all tiers in rank order (highest first).
var Tiers = []Tier{TierInstitutional, TierPublicService, TierCommercial}

func (t Tier) String() string {
	switch t {
	case TierInstitutional:
		return "institutional"
	case TierPublicService:
		return "public-service"
	case TierCommercial:
		return "commercial"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier converts a tier name into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "institutional":
		return TierInstitutional, nil
	case "public-service", "ngo":
		return TierPublicService, nil
	case "commercial":
		return TierCommercial, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", s)
	}
}

// BookingRequest is one unit of demand. Created externally, consumed once
// by a single allocation or simulation run.
type BookingRequest struct {
	ID          string
	RequesterID string
	Tier        Tier
	Rooms       []RoomID  // explicit candidate rooms; empty = any (or by Type)
	RoomType    RoomType  // candidate room class; empty = any
	Slots       []SlotKey // desired slots; at least one required
	Size        int       // attendee count; must fit room capacity
	SubmittedAt time.Time

	// ManualOverride bypasses the idle-probability threshold for this
	// request. OverrideReason is carried onto the resulting decision.
	ManualOverride bool
	OverrideReason string
}

// normalized returns a copy with candidate rooms and slots deduplicated and
// canonically ordered, so downstream iteration order never depends on the
// caller's input order.
func (r BookingRequest) normalized() BookingRequest {
	n := r
	n.Rooms = append([]RoomID(nil), r.Rooms...)
	sort.Slice(n.Rooms, func(i, j int) bool { return n.Rooms[i] < n.Rooms[j] })
	n.Rooms = dedupeRooms(n.Rooms)
	n.Slots = append([]SlotKey(nil), r.Slots...)
	sort.Slice(n.Slots, func(i, j int) bool { return n.Slots[i].Less(n.Slots[j]) })
	n.Slots = dedupeSlots(n.Slots)
	return n
}

func dedupeRooms(ids []RoomID) []RoomID {
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}

func dedupeSlots(keys []SlotKey) []SlotKey {
	out := keys[:0]
	for i, k := range keys {
		if i == 0 || k != keys[i-1] {
			out = append(out, k)
		}
	}
	return out
}

// IdlePrediction is the externally supplied per-(room, slot) idleness score.
type IdlePrediction struct {
	Probability float64 // likelihood the room is unoccupied, in [0,1]
	Confidence  float64 // model confidence, in [0,1]
}

// PredictionKey addresses one IdlePrediction.
type PredictionKey struct {
	Room RoomID
	Slot SlotKey
}

// Snapshot is the read-only planning-cycle input: the room and slot
// universe plus the external prediction and forecast maps. The engine never
// mutates a Snapshot; simulations work on Clone()s.
type Snapshot struct {
	Rooms       []Room
	Slots       []SlotKey
	Predictions map[PredictionKey]IdlePrediction
	Forecast    map[SlotKey]float64 // advisory demand intensity, never a constraint
}

// Clone returns a deep copy. Copy-on-override keeps the simulation
// controller's no-side-effects guarantee structural rather than
// convention-based.
func (s *Snapshot) Clone() *Snapshot {
	cp := &Snapshot{
		Rooms: append([]Room(nil), s.Rooms...),
		Slots: append([]SlotKey(nil), s.Slots...),
	}
	if s.Predictions != nil {
		cp.Predictions = make(map[PredictionKey]IdlePrediction, len(s.Predictions))
		for k, v := range s.Predictions {
			cp.Predictions[k] = v
		}
	}
	if s.Forecast != nil {
		cp.Forecast = make(map[SlotKey]float64, len(s.Forecast))
		for k, v := range s.Forecast {
			cp.Forecast[k] = v
		}
	}
	return cp
}

// room returns the room with the given ID, or nil.
func (s *Snapshot) room(id RoomID) *Room {
	for i := range s.Rooms {
		if s.Rooms[i].ID == id {
			return &s.Rooms[i]
		}
	}
	return nil
}

// hasSlot reports whether k is part of the slot universe.
func (s *Snapshot) hasSlot(k SlotKey) bool {
	for _, sk := range s.Slots {
		if sk == k {
			return true
		}
	}
	return false
}

// availableSlots counts (room, slot) pairs in the allocation universe:
// all non-restricted rooms across the slot universe. Locked rooms stay in
// the denominator so utilization comparisons between a baseline and a
// blocked-room what-if run measure lost allocations, not a shrunk universe.
func (s *Snapshot) availableSlots() int {
	open := 0
	for _, r := range s.Rooms {
		if !r.Restricted {
			open++
		}
	}
	return open * len(s.Slots)
}

// Method records which execution path produced a decision.
type Method string

const (
	MethodExact    Method = "exact"
	MethodFallback Method = "fallback"
)

// AllocationDecision is one finalized assignment. Immutable once emitted.
type AllocationDecision struct {
	RequestID   string
	RequesterID string
	Room        RoomID
	Slot        SlotKey
	Objective   float64 // this decision's contribution to the run objective
	Tier        Tier
	Method      Method
	NeedsReview    bool // prediction confidence below the policy threshold
	OverrideReason string
	DecidedAt      time.Time
}

// RejectionReason classifies why a request received no decision.
type RejectionReason string

const (
	ReasonValidationFailed     RejectionReason = "VALIDATION_FAILED"
	ReasonNoFeasibleAllocation RejectionReason = "NO_FEASIBLE_ALLOCATION"
)

// Rejection is the per-request terminal record for unplaced requests.
// Never surfaced as an error: a complete run always accounts for every
// request with either a decision or a rejection.
type Rejection struct {
	RequestID string
	Reason    RejectionReason
	Detail    string
}
