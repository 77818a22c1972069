package alloc

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Fairness metric names accepted in the policy bundle.
const (
	// FairnessTierShareVariance is the population variance of per-tier
	// allocated share. Lower means more balanced; deltas are reported as
	// baseline minus simulated so a positive delta reads as "fairer".
	FairnessTierShareVariance = "tier-share-variance"
	// FairnessWeightedObjective is the sum of tier-weighted objective
	// contributions across decisions. Higher is better.
	FairnessWeightedObjective = "weighted-objective"
)

// ValidFairnessMetrics is the set of recognized fairness metric names.
// Shared by Policy.Validate and newFairnessFunc to avoid duplication.
var ValidFairnessMetrics = map[string]bool{
	FairnessTierShareVariance: true,
	FairnessWeightedObjective: true,
}

// fairnessFunc scores one decision set. Whatever metric the policy selects
// is applied identically to baseline and simulated runs, so only the delta
// is meaningful, never the absolute value.
type fairnessFunc func(decisions []AllocationDecision) float64

// newFairnessFunc creates a fairness metric by name.
// Empty string defaults to tier-share-variance.
func newFairnessFunc(name string) (fairnessFunc, error) {
	switch name {
	case "", FairnessTierShareVariance:
		return tierShareVariance, nil
	case FairnessWeightedObjective:
		return weightedObjective, nil
	default:
		return nil, fmt.Errorf("unknown fairness metric %q", name)
	}
}

// tierShareVariance computes the population variance of allocated share
// across the three tiers. All-zero decision sets score 0 (perfectly even).
func tierShareVariance(decisions []AllocationDecision) float64 {
	counts := make([]float64, len(Tiers))
	total := 0.0
	for _, d := range decisions {
		counts[int(d.Tier)]++
		total++
	}
	if total == 0 {
		return 0
	}
	shares := make([]float64, len(counts))
	for i, c := range counts {
		shares[i] = c / total
	}
	return stat.PopVariance(shares, nil)
}

// weightedObjective sums per-decision objective contributions, which
// already carry the tier weight from the model builder.
func weightedObjective(decisions []AllocationDecision) float64 {
	sum := 0.0
	for _, d := range decisions {
		sum += d.Objective
	}
	return sum
}
