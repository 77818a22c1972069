package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/siet-lab/roomalloc/alloc"
)

// scenarioFile is the YAML wire form of an alloc.Scenario. Slot keys are
// flattened to date+slot pairs so files stay hand-editable.
type scenarioFile struct {
	Rooms       []roomFile       `yaml:"rooms"`
	Slots       []slotFile       `yaml:"slots"`
	Predictions []predictionFile `yaml:"predictions"`
	Forecast    []forecastFile   `yaml:"forecast"`
	Requests    []requestFile    `yaml:"requests"`
}

type roomFile struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Capacity   int    `yaml:"capacity"`
	Type       string `yaml:"type"`
	Location   string `yaml:"location"`
	Locked     bool   `yaml:"locked"`
	Restricted bool   `yaml:"restricted"`
}

type slotFile struct {
	Date string `yaml:"date"`
	Slot string `yaml:"slot"`
}

type predictionFile struct {
	Room        string  `yaml:"room"`
	Date        string  `yaml:"date"`
	Slot        string  `yaml:"slot"`
	Probability float64 `yaml:"probability"`
	Confidence  float64 `yaml:"confidence"`
}

type forecastFile struct {
	Date      string  `yaml:"date"`
	Slot      string  `yaml:"slot"`
	Intensity float64 `yaml:"intensity"`
}

type requestFile struct {
	ID             string     `yaml:"id"`
	Requester      string     `yaml:"requester"`
	Tier           string     `yaml:"tier"`
	Rooms          []string   `yaml:"rooms,omitempty"`
	RoomType       string     `yaml:"room_type,omitempty"`
	Slots          []slotFile `yaml:"slots"`
	Size           int        `yaml:"size"`
	SubmittedAt    string     `yaml:"submitted_at"` // RFC 3339
	ManualOverride bool       `yaml:"manual_override,omitempty"`
	OverrideReason string     `yaml:"override_reason,omitempty"`
}

// LoadScenario reads and converts a YAML scenario file.
func LoadScenario(path string) (*alloc.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var sf scenarioFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}
	return sf.toScenario()
}

// SaveScenario writes a scenario as YAML.
func SaveScenario(path string, sc *alloc.Scenario) error {
	data, err := yaml.Marshal(fromScenario(sc))
	if err != nil {
		return fmt.Errorf("encoding scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing scenario file: %w", err)
	}
	return nil
}

func (sf *scenarioFile) toScenario() (*alloc.Scenario, error) {
	snap := &alloc.Snapshot{
		Predictions: make(map[alloc.PredictionKey]alloc.IdlePrediction),
		Forecast:    make(map[alloc.SlotKey]float64),
	}
	for _, r := range sf.Rooms {
		snap.Rooms = append(snap.Rooms, alloc.Room{
			ID:         alloc.RoomID(r.ID),
			Name:       r.Name,
			Capacity:   r.Capacity,
			Type:       alloc.RoomType(r.Type),
			Location:   r.Location,
			Locked:     r.Locked,
			Restricted: r.Restricted,
		})
	}
	for _, s := range sf.Slots {
		snap.Slots = append(snap.Slots, alloc.SlotKey{Date: s.Date, Slot: alloc.Slot(s.Slot)})
	}
	for _, p := range sf.Predictions {
		key := alloc.PredictionKey{
			Room: alloc.RoomID(p.Room),
			Slot: alloc.SlotKey{Date: p.Date, Slot: alloc.Slot(p.Slot)},
		}
		snap.Predictions[key] = alloc.IdlePrediction{Probability: p.Probability, Confidence: p.Confidence}
	}
	for _, f := range sf.Forecast {
		snap.Forecast[alloc.SlotKey{Date: f.Date, Slot: alloc.Slot(f.Slot)}] = f.Intensity
	}

	sc := &alloc.Scenario{Snapshot: snap}
	for _, rf := range sf.Requests {
		req, err := rf.toRequest()
		if err != nil {
			return nil, err
		}
		sc.Requests = append(sc.Requests, req)
	}
	return sc, nil
}

func (rf *requestFile) toRequest() (alloc.BookingRequest, error) {
	tier, err := alloc.ParseTier(rf.Tier)
	if err != nil {
		return alloc.BookingRequest{}, fmt.Errorf("request %s: %w", rf.ID, err)
	}
	submitted, err := time.Parse(time.RFC3339, rf.SubmittedAt)
	if err != nil {
		return alloc.BookingRequest{}, fmt.Errorf("request %s: parsing submitted_at: %w", rf.ID, err)
	}
	req := alloc.BookingRequest{
		ID:             rf.ID,
		RequesterID:    rf.Requester,
		Tier:           tier,
		RoomType:       alloc.RoomType(rf.RoomType),
		Size:           rf.Size,
		SubmittedAt:    submitted,
		ManualOverride: rf.ManualOverride,
		OverrideReason: rf.OverrideReason,
	}
	for _, id := range rf.Rooms {
		req.Rooms = append(req.Rooms, alloc.RoomID(id))
	}
	for _, s := range rf.Slots {
		req.Slots = append(req.Slots, alloc.SlotKey{Date: s.Date, Slot: alloc.Slot(s.Slot)})
	}
	return req, nil
}

func fromScenario(sc *alloc.Scenario) *scenarioFile {
	sf := &scenarioFile{}
	for _, r := range sc.Snapshot.Rooms {
		sf.Rooms = append(sf.Rooms, roomFile{
			ID:         string(r.ID),
			Name:       r.Name,
			Capacity:   r.Capacity,
			Type:       string(r.Type),
			Location:   r.Location,
			Locked:     r.Locked,
			Restricted: r.Restricted,
		})
	}
	for _, s := range sc.Snapshot.Slots {
		sf.Slots = append(sf.Slots, slotFile{Date: s.Date, Slot: string(s.Slot)})
	}
	// Emit predictions and forecast in slot-universe then room order so the
	// file is stable across generations with the same seed.
	for _, s := range sc.Snapshot.Slots {
		for _, r := range sc.Snapshot.Rooms {
			key := alloc.PredictionKey{Room: r.ID, Slot: s}
			if p, ok := sc.Snapshot.Predictions[key]; ok {
				sf.Predictions = append(sf.Predictions, predictionFile{
					Room:        string(r.ID),
					Date:        s.Date,
					Slot:        string(s.Slot),
					Probability: p.Probability,
					Confidence:  p.Confidence,
				})
			}
		}
		if intensity, ok := sc.Snapshot.Forecast[s]; ok {
			sf.Forecast = append(sf.Forecast, forecastFile{Date: s.Date, Slot: string(s.Slot), Intensity: intensity})
		}
	}
	for _, req := range sc.Requests {
		rf := requestFile{
			ID:             req.ID,
			Requester:      req.RequesterID,
			Tier:           req.Tier.String(),
			RoomType:       string(req.RoomType),
			Size:           req.Size,
			SubmittedAt:    req.SubmittedAt.Format(time.RFC3339),
			ManualOverride: req.ManualOverride,
			OverrideReason: req.OverrideReason,
		}
		for _, id := range req.Rooms {
			rf.Rooms = append(rf.Rooms, string(id))
		}
		for _, s := range req.Slots {
			rf.Slots = append(rf.Slots, slotFile{Date: s.Date, Slot: string(s.Slot)})
		}
		sf.Requests = append(sf.Requests, rf)
	}
	return sf
}
