package alloc

import (
	"github.com/sirupsen/logrus"
)

// DecisionEmitter receives finalized confirmed decisions for audit. The
// engine only writes to it, exactly once per decision; it never reads back.
// Simulation runs never emit.
type DecisionEmitter interface {
	EmitDecision(d AllocationDecision)
}

// LogEmitter writes decisions to the structured log. The default sink when
// no audit backend is wired in.
type LogEmitter struct{}

func (LogEmitter) EmitDecision(d AllocationDecision) {
	entry := logrus.WithFields(logrus.Fields{
		"request":   d.RequestID,
		"requester": d.RequesterID,
		"room":      d.Room,
		"slot":      d.Slot.String(),
		"tier":      d.Tier.String(),
		"method":    d.Method,
		"objective": d.Objective,
	})
	if d.OverrideReason != "" {
		entry = entry.WithField("override_reason", d.OverrideReason)
	}
	if d.NeedsReview {
		entry.Warn("decision flagged for manual review (low prediction confidence)")
		return
	}
	entry.Info("allocation decision")
}

// NopEmitter discards decisions. Used internally for simulation sub-runs.
type NopEmitter struct{}

func (NopEmitter) EmitDecision(AllocationDecision) {}
