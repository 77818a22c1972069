package alloc

import (
	"hash/fnv"
	"math/rand"
)

// ScenarioKey uniquely identifies a reproducible synthetic scenario. Two
// scenarios generated with the same ScenarioKey MUST be identical.
type ScenarioKey int64

// RNG subsystems used by scenario synthesis. Each subsystem draws from its
// own deterministically derived stream, so adding draws to one cannot
// perturb another.
const (
	SubsystemHistory  = "history"  // occupancy history generation
	SubsystemRequests = "requests" // booking request generation
)

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem. Derivation: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type PartitionedRNG struct {
	key        ScenarioKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a ScenarioKey.
func NewPartitionedRNG(key ScenarioKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same name always returns the same cached *rand.Rand.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the ScenarioKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() ScenarioKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
