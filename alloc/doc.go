// Package alloc provides the constraint-based room allocation engine and
// its what-if simulation controller.
//
// # Reading Guide
//
// Start with these three files to understand the allocation pipeline:
//   - types.go: Room, SlotKey, BookingRequest, AllocationDecision and the
//     immutable Snapshot passed into every run
//   - engine.go: the Validate → Build → Solve → Fallback pipeline, ledger
//     commit, and decision emission
//   - solver.go: the exact branch-and-bound optimizer and its time budget
//
// # Architecture
//
// A run is a pure function of (Snapshot, Policy, UsageLedger, requests):
//   - validator.go: rejects malformed, duplicate, and structurally
//     infeasible requests before any optimization
//   - model.go: expands valid requests into candidate (request, room, slot)
//     triples with scaled integer objective values
//   - solver.go: exact search returning a tagged SolveOutcome
//     (Optimal | Infeasible | Timeout), never a partial result
//   - fallback.go: deterministic greedy allocator engaged on Timeout or
//     Infeasible outcomes
//   - simulate.go: runs the pipeline twice (baseline, overridden) against
//     isolated snapshot copies and diffs utilization and fairness
//
// Determinism is load-bearing: identical inputs and seed produce
// bit-identical decisions and rejections. Every ordering in the package is
// explicit (multi-key sorts with ID tie-breaks); no map is iterated where
// order reaches the output.
//
// # Key Interfaces
//
//   - DecisionEmitter: write-only sink for finalized confirmed decisions
//   - fairnessFunc (fairness.go): metric selected by name in the Policy,
//     applied identically to baseline and simulated runs
package alloc
