// Package dispatch orchestrates enrichment: for every slot row it runs the
// five-state pass (fuzzy match check, company-level slot check, checklist
// routing, failure handling, completion check) and processes batches of rows
// with bounded concurrency.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/slotpipe/slotpipe/pkg/agent"
	"github.com/slotpipe/slotpipe/pkg/guard"
	"github.com/slotpipe/slotpipe/pkg/match"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// Status is the outcome of one dispatch pass over one row.
type Status string

const (
	// StatusRouted means an agent was invoked. Err is set when the agent
	// reported a failure that was recorded against the row.
	StatusRouted Status = "ROUTED"

	StatusThrottled    Status = "THROTTLED"
	StatusKilled       Status = "KILLED"
	StatusCompleted    Status = "COMPLETED"
	StatusNoAction     Status = "NO_ACTION"
	StatusCostExceeded Status = "COST_EXCEEDED"
)

// Result tells the caller what happened to a row so it can persist state and
// decide whether to re-enqueue.
type Result struct {
	Status Status

	// Agent is the agent type invoked or gated, when any was selected.
	Agent slot.Item

	// Cost is the provider spend committed during this pass.
	Cost float64

	// Err is the recorded failure, distinguishing "retry later, fault
	// recorded" from gate blocks ("retry later, no fault").
	Err string

	// Reason explains gate blocks and no-action outcomes.
	Reason string

	// CreatedSlots are placeholder sibling rows emitted by the company-level
	// check. They seed the next dispatch pass; this pass does not touch them.
	CreatedSlots []*slot.Row

	// Moved reports executive movement detected at completion, when the row
	// carried a prior hash.
	Moved bool
}

// Config tunes a Dispatcher.
type Config struct {
	// MandatorySlots are the slot types every company must staff. Defaults
	// to CEO only.
	MandatorySlots []slot.Type

	// PlaceholderCostLimit is the per-slot ceiling given to placeholder rows
	// created by the company-level check.
	PlaceholderCostLimit float64

	// AgentTimeout bounds each agent's provider work. A timeout surfaces as
	// a temporary failure.
	AgentTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.MandatorySlots) == 0 {
		c.MandatorySlots = []slot.Type{slot.TypeCEO}
	}
	if c.AgentTimeout <= 0 {
		c.AgentTimeout = 30 * time.Second
	}
	return c
}

// Dispatcher sequences matching, slot creation, routing, failure handling,
// and completion for slot rows. Shared gates (kill, throttle, cost) live in
// the registry; per-row state is exclusively owned by the pass processing it.
type Dispatcher struct {
	registry *agent.Registry
	matcher  *match.Matcher
	fails    *guard.FailManager
	cfg      Config
}

func New(registry *agent.Registry, matcher *match.Matcher, fails *guard.FailManager, cfg Config) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		matcher:  matcher,
		fails:    fails,
		cfg:      cfg.withDefaults(),
	}
}

// DispatchRow runs one pass of the five-state sequence over a row. siblings
// is the read view of the company's other rows, used by the company-level
// slot check; callers must serialize passes per company so placeholder
// creation cannot race.
//
// Re-running a pass on a complete or permanently failed row is a no-op.
func (d *Dispatcher) DispatchRow(ctx context.Context, row *slot.Row, siblings []*slot.Row) Result {
	return d.dispatchRow(ctx, row, siblings, nil)
}

// dispatchRow is DispatchRow plus the batch-level ledger. When led is non-nil
// the company-level slot check runs through it, so concurrent worker groups
// that resolve to the same company share one sibling view.
func (d *Dispatcher) dispatchRow(ctx context.Context, row *slot.Row, siblings []*slot.Row, led *ledger) Result {
	if row.Complete {
		return Result{Status: StatusNoAction, Reason: "row already complete"}
	}
	if row.PermanentlyFailed {
		return Result{Status: StatusNoAction, Reason: "row permanently failed"}
	}

	// State 1: fuzzy match check. Unresolved identity aborts the pass; no
	// later state is entered.
	if !d.resolveMatch(row) {
		reason := "company unmatched"
		if row.MatchStatus == slot.MatchManualReview {
			reason = "company match needs manual review"
		}
		return Result{Status: StatusNoAction, Reason: reason}
	}

	// State 2: company-level slot check. May create placeholder rows for
	// missing sibling slots; they dispatch on the next pass.
	var created []*slot.Row
	if led != nil {
		created = led.plan(row, siblings, d.cfg.MandatorySlots, d.cfg.PlaceholderCostLimit)
	} else {
		created = slot.PlanMissingSlots(
			row.CompanyID,
			row.CompanyName,
			append(siblings, row),
			d.cfg.MandatorySlots,
			d.cfg.PlaceholderCostLimit,
		)
	}

	// State 3: checklist routing.
	cl := slot.Evaluate(row)
	item, missing := cl.Next()
	if !missing {
		return d.complete(row, Result{Status: StatusCompleted, CreatedSlots: created})
	}

	if !d.fails.CanRetry(row.ID) {
		return Result{Status: StatusNoAction, Reason: "waiting for retry backoff", Agent: item, CreatedSlots: created}
	}

	verdict := d.registry.CanRun(item, row)
	if !verdict.Allowed {
		res := Result{Agent: item, Reason: verdict.Reason, CreatedSlots: created}
		switch verdict.Blocked {
		case agent.BlockedKilled:
			res.Status = StatusKilled
		case agent.BlockedThrottled:
			res.Status = StatusThrottled
		case agent.BlockedCost:
			res.Status = StatusCostExceeded
		default:
			res.Status = StatusNoAction
		}
		return res
	}

	a, _ := d.registry.Get(item)

	budget := &rowBudget{row: row, global: d.registry.CostGuard()}
	runRes := d.runAgent(ctx, a, row, budget)

	out := Result{Status: StatusRouted, Agent: item, Cost: budget.total, CreatedSlots: created}

	// State 4: failure handling. Gate blocks are policy, not failures, and
	// leave failure state untouched.
	if runRes.GateBlocked {
		out.Status = StatusCostExceeded
		out.Reason = "spend reservation refused"
		return out
	}
	// Count the throttle unit only once the agent actually reached its
	// provider; a refused spend reservation made no call.
	d.registry.Throttles().RecordCall(item)
	if !runRes.Success {
		out.Err = runRes.Error
		if row.PermanentlyFailed {
			// Panic path: runAgent already blocked the row.
			return out
		}
		rec := d.fails.Record(row.ID, runRes.Error)
		row.RecordFailure(runRes.Error)
		if rec.Blocked {
			row.MarkPermanentlyFailed(runRes.Error)
		}
		return out
	}
	d.fails.Clear(row.ID)

	// State 5: completion check, the only terminal success path.
	if after := slot.Evaluate(row); after.Ready {
		return d.complete(row, out)
	}
	return out
}

// resolveMatch runs state 1. Returns true when the row's company identity is
// resolved and agents may be routed.
func (d *Dispatcher) resolveMatch(row *slot.Row) bool {
	if row.Matched() {
		return true
	}
	// MANUAL_REVIEW and UNMATCHED stick until upstream resolves them;
	// re-scoring the same input would produce the same answer.
	if row.MatchStatus != slot.MatchPending || d.matcher == nil {
		return false
	}
	match.Apply(row, d.matcher.Match(row.RawCompanyInput))
	return row.Matched()
}

func (d *Dispatcher) complete(row *slot.Row, res Result) Result {
	row.Complete = true
	row.Touch()
	res.Status = StatusCompleted
	res.Moved = agent.DetectMovement(row.PriorHash, row.MovementHash)
	return res
}

// runAgent bounds the agent call with the configured timeout and converts a
// panic into a permanent block: an agent escaping its boundary is a defect,
// not something to retry.
func (d *Dispatcher) runAgent(ctx context.Context, a agent.Agent, row *slot.Row, budget agent.Budget) (res agent.Result) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("agent %s panic: %v", a.Type(), r)
			d.fails.Block(row.ID, msg)
			row.MarkPermanentlyFailed(msg)
			res = agent.Result{Error: msg}
		}
	}()

	reqCtx, cancel := context.WithTimeout(ctx, d.cfg.AgentTimeout)
	defer cancel()
	return a.Run(reqCtx, row, budget)
}

// rowBudget enforces the per-slot ceiling and the global guard as one atomic
// pre-spend decision. Slot-scoped spend accrues on the row; non-slot-scoped
// fallback spend counts only globally, so the per-slot invariant holds.
type rowBudget struct {
	row    *slot.Row
	global *guard.CostGuard
	total  float64
}

func (b *rowBudget) TrySpend(amount float64, slotScoped bool) bool {
	if amount <= 0 {
		return true
	}
	if slotScoped && !b.row.CostHeadroom(amount) {
		return false
	}
	if !b.global.TrySpend(amount) {
		return false
	}
	if slotScoped {
		b.row.AddCost(amount)
	}
	b.total += amount
	return true
}
