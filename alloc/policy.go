package alloc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// objectiveScale converts float objective terms into exact integers so
// solution comparison never depends on float summation order.
const objectiveScale = 1_000_000

// Policy holds the allocation policy parameters, loadable from a YAML file.
// Zero-value maps fall back to the defaults in DefaultPolicy.
type Policy struct {
	// MinIdleThreshold is the minimum idle probability a (room, slot) pair
	// must carry to be assignable, unless the request sets ManualOverride.
	MinIdleThreshold float64 `yaml:"min_idle_threshold"`
	// MinConfidence marks decisions for manual review when the winning
	// prediction's confidence falls below it. Never blocks allocation.
	MinConfidence float64 `yaml:"min_confidence"`
	// UsageCaps limits slots per stakeholder per planning window, by tier
	// name. Missing tiers are uncapped.
	UsageCaps map[string]int `yaml:"usage_cap_by_tier"`
	// TierWeights are base priority weights by tier name. Normalized by the
	// maximum at model-build time so effective weights lie in (0,1].
	TierWeights map[string]float64 `yaml:"tier_base_weight"`
	// SolverBudgetMS bounds the exact solve; exceeding it engages the
	// fallback allocator.
	SolverBudgetMS int64 `yaml:"solver_time_budget_ms"`
	// FairnessMetric selects the fairness score applied to baseline and
	// simulated runs. See ValidFairnessMetrics.
	FairnessMetric string `yaml:"fairness_metric"`
	// Seed feeds synthetic scenario generation and the deterministic run ID.
	Seed int64 `yaml:"seed"`
}

// DefaultPolicy returns the policy defaults taken over from the original
// deployment configuration.
func DefaultPolicy() *Policy {
	return &Policy{
		MinIdleThreshold: 0.5,
		MinConfidence:    0.3,
		UsageCaps: map[string]int{
			TierInstitutional.String(): 2,
			TierPublicService.String(): 2,
			TierCommercial.String():    1,
		},
		TierWeights: map[string]float64{
			TierInstitutional.String(): 3.0,
			TierPublicService.String(): 2.0,
			TierCommercial.String():    1.0,
		},
		SolverBudgetMS: 3000,
		FairnessMetric: FairnessTierShareVariance,
		Seed:           42,
	}
}

// LoadPolicy reads and parses a YAML policy file, applying defaults for
// absent maps.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy config: %w", err)
	}
	pol := DefaultPolicy()
	if err := yaml.Unmarshal(data, pol); err != nil {
		return nil, fmt.Errorf("parsing policy config: %w", err)
	}
	return pol, nil
}

// Clone returns a deep copy, so simulation overrides never reach the
// engine's policy.
func (p *Policy) Clone() *Policy {
	cp := *p
	cp.UsageCaps = make(map[string]int, len(p.UsageCaps))
	for k, v := range p.UsageCaps {
		cp.UsageCaps[k] = v
	}
	cp.TierWeights = make(map[string]float64, len(p.TierWeights))
	for k, v := range p.TierWeights {
		cp.TierWeights[k] = v
	}
	return &cp
}

// Validate checks parameter ranges and metric names.
func (p *Policy) Validate() error {
	if p.MinIdleThreshold < 0 || p.MinIdleThreshold > 1 {
		return fmt.Errorf("min_idle_threshold must be in [0,1], got %f", p.MinIdleThreshold)
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %f", p.MinConfidence)
	}
	for name, limit := range p.UsageCaps {
		if _, err := ParseTier(name); err != nil {
			return fmt.Errorf("usage_cap_by_tier: %w", err)
		}
		if limit < 0 {
			return fmt.Errorf("usage_cap_by_tier[%s] must be non-negative, got %d", name, limit)
		}
	}
	for name, w := range p.TierWeights {
		if _, err := ParseTier(name); err != nil {
			return fmt.Errorf("tier_base_weight: %w", err)
		}
		if w <= 0 {
			return fmt.Errorf("tier_base_weight[%s] must be positive, got %f", name, w)
		}
	}
	if p.SolverBudgetMS <= 0 {
		return fmt.Errorf("solver_time_budget_ms must be positive, got %d", p.SolverBudgetMS)
	}
	if !ValidFairnessMetrics[p.FairnessMetric] {
		return fmt.Errorf("unknown fairness metric %q", p.FairnessMetric)
	}
	return nil
}

// WeightFor returns the normalized priority weight for a tier, in (0,1].
func (p *Policy) WeightFor(t Tier) float64 {
	top := 0.0
	for _, w := range p.TierWeights {
		if w > top {
			top = w
		}
	}
	if top == 0 {
		return 1.0
	}
	w, ok := p.TierWeights[t.String()]
	if !ok {
		return 1.0
	}
	return w / top
}

// CapFor returns the usage cap for a tier. The second return is false when
// the tier is uncapped.
func (p *Policy) CapFor(t Tier) (int, bool) {
	c, ok := p.UsageCaps[t.String()]
	return c, ok
}
