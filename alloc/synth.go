package alloc

import (
	"fmt"
	"math"
	"time"
)

// Scenario is a self-contained allocation input set: a snapshot plus the
// request batch aimed at it. Produced by Synthesize or loaded from a
// scenario file by the CLI.
type Scenario struct {
	Snapshot *Snapshot
	Requests []BookingRequest
}

// SynthesisConfig parameterizes synthetic scenario generation. The defaults
// reproduce the original deployment's seed dataset: 10 rooms, 21 days of
// occupancy history, weekday occupancy 0.65, weekend 0.35.
type SynthesisConfig struct {
	Seed            int64
	HistoryDays     int
	RollingWindow   int     // days of history feeding each idle prediction
	WeekdayOccupied float64 // occupancy probability on weekdays
	WeekendOccupied float64
	ReferenceEnd    string // last history date, layout "2006-01-02"; target date is the day after
	NumRequests     int
}

// DefaultSynthesisConfig returns the original deployment's seeding
// parameters.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		Seed:            42,
		HistoryDays:     21,
		RollingWindow:   7,
		WeekdayOccupied: 0.65,
		WeekendOccupied: 0.35,
		ReferenceEnd:    "2026-02-21",
		NumRequests:     18,
	}
}

// synthRooms is the fixed room universe of the original seed dataset.
var synthRooms = []Room{
	{ID: "room-a", Name: "Room A", Capacity: 30, Type: RoomClassroom, Location: "Block 1"},
	{ID: "room-b", Name: "Room B", Capacity: 50, Type: RoomAuditorium, Location: "Block 1"},
	{ID: "room-c", Name: "Room C", Capacity: 20, Type: RoomLab, Location: "Block 2"},
	{ID: "room-d", Name: "Room D", Capacity: 40, Type: RoomClassroom, Location: "Block 2"},
	{ID: "room-e", Name: "Room E", Capacity: 25, Type: RoomSeminar, Location: "Block 3"},
	{ID: "room-f", Name: "Room F", Capacity: 60, Type: RoomAuditorium, Location: "Block 3"},
	{ID: "room-g", Name: "Room G", Capacity: 35, Type: RoomClassroom, Location: "Block 4"},
	{ID: "room-h", Name: "Room H", Capacity: 45, Type: RoomLab, Location: "Block 4"},
	{ID: "room-i", Name: "Room I", Capacity: 30, Type: RoomSeminar, Location: "Block 5"},
	{ID: "room-j", Name: "Room J", Capacity: 55, Type: RoomAuditorium, Location: "Block 5"},
}

// Synthesize generates a deterministic scenario from the config seed:
// occupancy history drawn per (day, room, slot) in fixed iteration order,
// idle predictions derived as rolling idle frequency over the window, a
// per-slot demand forecast, and a request batch for the target date.
func Synthesize(cfg SynthesisConfig) (*Scenario, error) {
	end, err := time.Parse("2006-01-02", cfg.ReferenceEnd)
	if err != nil {
		return nil, fmt.Errorf("parsing reference end date: %w", err)
	}
	if cfg.HistoryDays <= 0 || cfg.RollingWindow <= 0 || cfg.RollingWindow > cfg.HistoryDays {
		return nil, fmt.Errorf("invalid history configuration: days=%d window=%d", cfg.HistoryDays, cfg.RollingWindow)
	}

	rng := NewPartitionedRNG(ScenarioKey(cfg.Seed))
	history := rng.ForSubsystem(SubsystemHistory)

	// Occupancy history: occupied[day][room][slot]. Iteration order is
	// fixed (day, room, slot) so the draw sequence is reproducible.
	type cell struct {
		room RoomID
		slot Slot
	}
	occupied := make([]map[cell]bool, cfg.HistoryDays)
	for day := 0; day < cfg.HistoryDays; day++ {
		date := end.AddDate(0, 0, day-cfg.HistoryDays+1)
		p := cfg.WeekdayOccupied
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			p = cfg.WeekendOccupied
		}
		occupied[day] = make(map[cell]bool, len(synthRooms)*len(DefaultSlots))
		for _, room := range synthRooms {
			for _, slot := range DefaultSlots {
				occupied[day][cell{room.ID, slot}] = history.Float64() < p
			}
		}
	}

	targetDate := end.AddDate(0, 0, 1).Format("2006-01-02")
	snap := &Snapshot{
		Rooms:       append([]Room(nil), synthRooms...),
		Predictions: make(map[PredictionKey]IdlePrediction),
		Forecast:    make(map[SlotKey]float64),
	}
	for _, slot := range DefaultSlots {
		snap.Slots = append(snap.Slots, SlotKey{Date: targetDate, Slot: slot})
	}

	// Idle predictions: idle frequency over the trailing window. Confidence
	// reflects how one-sided the window was (an even split predicts nothing).
	for _, room := range synthRooms {
		for _, slot := range DefaultSlots {
			idle := 0
			for day := cfg.HistoryDays - cfg.RollingWindow; day < cfg.HistoryDays; day++ {
				if !occupied[day][cell{room.ID, slot}] {
					idle++
				}
			}
			freq := float64(idle) / float64(cfg.RollingWindow)
			snap.Predictions[PredictionKey{Room: room.ID, Slot: SlotKey{Date: targetDate, Slot: slot}}] = IdlePrediction{
				Probability: freq,
				Confidence:  math.Abs(2*freq - 1),
			}
		}
	}

	// Demand forecast: mean occupancy per slot across rooms and history.
	for _, slot := range DefaultSlots {
		busy := 0
		for day := 0; day < cfg.HistoryDays; day++ {
			for _, room := range synthRooms {
				if occupied[day][cell{room.ID, slot}] {
					busy++
				}
			}
		}
		snap.Forecast[SlotKey{Date: targetDate, Slot: slot}] =
			float64(busy) / float64(cfg.HistoryDays*len(synthRooms))
	}

	return &Scenario{
		Snapshot: snap,
		Requests: synthesizeRequests(cfg, rng, snap.Slots, end),
	}, nil
}

// synthesizeRequests draws a request batch for the target date. Tiers are
// weighted toward commercial demand, mirroring the original dataset's
// stakeholder mix.
func synthesizeRequests(cfg SynthesisConfig, rng *PartitionedRNG, slots []SlotKey, end time.Time) []BookingRequest {
	r := rng.ForSubsystem(SubsystemRequests)
	submitted := end.Add(-24 * time.Hour)

	reqs := make([]BookingRequest, 0, cfg.NumRequests)
	for i := 0; i < cfg.NumRequests; i++ {
		var tier Tier
		switch draw := r.Float64(); {
		case draw < 0.25:
			tier = TierInstitutional
		case draw < 0.55:
			tier = TierPublicService
		default:
			tier = TierCommercial
		}

		slot := slots[r.Intn(len(slots))]
		req := BookingRequest{
			ID:          fmt.Sprintf("req-%03d", i+1),
			RequesterID: fmt.Sprintf("org-%02d", r.Intn(8)+1),
			Tier:        tier,
			Slots:       []SlotKey{slot},
			Size:        5 + r.Intn(50),
			SubmittedAt: submitted.Add(time.Duration(i) * time.Minute),
		}
		// A minority of requests target a room class instead of any room.
		if r.Float64() < 0.3 {
			types := []RoomType{RoomClassroom, RoomAuditorium, RoomLab, RoomSeminar}
			req.RoomType = types[r.Intn(len(types))]
		}
		reqs = append(reqs, req)
	}
	return reqs
}
