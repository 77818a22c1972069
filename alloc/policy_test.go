package alloc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy_IsValid(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
}

func TestPolicyValidate_RejectsBadRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"threshold above one", func(p *Policy) { p.MinIdleThreshold = 1.5 }},
		{"negative threshold", func(p *Policy) { p.MinIdleThreshold = -0.1 }},
		{"confidence above one", func(p *Policy) { p.MinConfidence = 2 }},
		{"negative cap", func(p *Policy) { p.UsageCaps[TierCommercial.String()] = -1 }},
		{"unknown cap tier", func(p *Policy) { p.UsageCaps["platinum"] = 1 }},
		{"zero weight", func(p *Policy) { p.TierWeights[TierCommercial.String()] = 0 }},
		{"unknown weight tier", func(p *Policy) { p.TierWeights["platinum"] = 1 }},
		{"zero budget", func(p *Policy) { p.SolverBudgetMS = 0 }},
		{"unknown fairness metric", func(p *Policy) { p.FairnessMetric = "gini" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pol := DefaultPolicy()
			tc.mutate(pol)
			assert.Error(t, pol.Validate())
		})
	}
}

func TestLoadPolicy_AppliesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := []byte("min_idle_threshold: 0.7\nsolver_time_budget_ms: 500\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	pol, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 0.7, pol.MinIdleThreshold)
	assert.Equal(t, int64(500), pol.SolverBudgetMS)
	// Untouched fields keep their defaults.
	assert.Equal(t, FairnessTierShareVariance, pol.FairnessMetric)
	assert.Equal(t, 2, pol.UsageCaps[TierInstitutional.String()])
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPolicyWeightFor_NormalizesIntoUnitInterval(t *testing.T) {
	pol := DefaultPolicy()
	assert.InDelta(t, 1.0, pol.WeightFor(TierInstitutional), 1e-12)
	assert.InDelta(t, 2.0/3.0, pol.WeightFor(TierPublicService), 1e-12)
	assert.InDelta(t, 1.0/3.0, pol.WeightFor(TierCommercial), 1e-12)
}

func TestPolicyClone_Independent(t *testing.T) {
	pol := DefaultPolicy()
	cp := pol.Clone()
	cp.UsageCaps[TierCommercial.String()] = 99
	cp.TierWeights[TierCommercial.String()] = 42

	assert.Equal(t, 1, pol.UsageCaps[TierCommercial.String()], "clone must not share cap map")
	assert.Equal(t, 1.0, pol.TierWeights[TierCommercial.String()], "clone must not share weight map")
}
