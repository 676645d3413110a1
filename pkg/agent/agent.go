// Package agent implements the six enrichment agents and the registry that
// gates them. Each agent owns specific SlotRow fields, wraps one or two
// providers with a defined primary/fallback order, and never panics or throws
// past its boundary: every outcome surfaces as a Result.
package agent

import (
	"context"

	"github.com/slotpipe/slotpipe/pkg/slot"
)

// Budget reserves provider spend before a call is made. Implementations must
// commit atomically with respect to concurrent dispatch. slotScoped controls
// whether the per-slot ceiling applies in addition to the global guard; a
// fallback call whose policy does not share the slot budget passes false.
type Budget interface {
	TrySpend(amount float64, slotScoped bool) bool
}

// UnlimitedBudget approves all spend. Useful for direct agent invocation and
// tests.
type UnlimitedBudget struct{}

func (UnlimitedBudget) TrySpend(float64, bool) bool { return true }

// Result is the uniform agent outcome. Success means the agent mutated the
// row fields it owns; Error is a human-readable provider failure otherwise.
type Result struct {
	Success bool
	Error   string

	// Warning carries degraded-mode notes (unverified email, assumed
	// accessibility) that do not fail the run.
	Warning string

	// GateBlocked means the in-call spend reservation was refused. Not a
	// failure; the row is simply retried on a later pass.
	GateBlocked bool

	// Cost is the provider spend committed during this run.
	Cost float64

	FallbackUsed bool
}

func failure(msg string) Result {
	return Result{Error: msg}
}

// Agent is one enrichment step, keyed by the checklist item it fills.
type Agent interface {
	Type() slot.Item

	// Cost is the worst-case primary spend of one run, used by the dispatch
	// cost gate.
	Cost() float64

	// Run fills the agent's fields on the row. The row is exclusively owned
	// by the calling dispatch pass; no locking is needed on it.
	Run(ctx context.Context, row *slot.Row, budget Budget) Result
}

// Policy is the per-agent provider cost/fallback policy.
type Policy struct {
	PrimaryCost  float64
	FallbackCost float64

	FallbackEnabled bool

	// FallbackSharesBudget charges fallback calls against the same per-slot
	// ceiling as the primary. When false only the global guard applies.
	FallbackSharesBudget bool
}
