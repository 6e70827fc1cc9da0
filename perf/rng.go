package perf

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"
)

// === RunKey ===

// RunKey identifies a reproducible compile run. Two runs with the same RunKey,
// the same inputs and the same configuration MUST emit identical sources.
type RunKey int64

// NewRunKey creates a RunKey from an explicit seed, or from the clock when
// seed is nil. The unseeded default makes every run's split and fit differ;
// pass a seed for reproducible output.
func NewRunKey(seed *int64) RunKey {
	if seed != nil {
		return RunKey(*seed)
	}
	return RunKey(time.Now().UnixNano())
}

// === Subsystem Constants ===

const (
	// SubsystemSplit is the RNG subsystem for the train/held-out shuffle.
	// Uses the master seed directly.
	SubsystemSplit = "split"

	// SubsystemFit is the RNG subsystem the trainer seeds its per-tree streams from.
	SubsystemFit = "fit"
)

// SubsystemTree returns the subsystem name for tree N.
func SubsystemTree(id int) string {
	return fmt.Sprintf("tree_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemSplit: uses the master seed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Derive per-goroutine streams with
// DeriveSeed instead of sharing one PartitionedRNG across goroutines.
type PartitionedRNG struct {
	key        RunKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a RunKey.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(DeriveSeed(int64(p.key), name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the RunKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

// DeriveSeed returns the seed the named subsystem would use under master.
// Safe for concurrent use; it shares no state.
func DeriveSeed(master int64, name string) int64 {
	if name == SubsystemSplit {
		return master
	}
	return master ^ fnv1a64(name)
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
