package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/slotpipe/slotpipe/pkg/agent"
	"github.com/slotpipe/slotpipe/pkg/redact"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// tracedAgent decorates an agent with request/response logging. Attempts are
// counted per row so retry behavior is visible in the log stream.
type tracedAgent struct {
	next   agent.Agent
	logger *log.Logger
	runID  string

	mu       sync.Mutex
	attempts map[string]int
}

func newTracedAgent(next agent.Agent, logger *log.Logger, runID string) *tracedAgent {
	return &tracedAgent{
		next:     next,
		logger:   logger,
		runID:    runID,
		attempts: make(map[string]int),
	}
}

func (t *tracedAgent) Type() slot.Item { return t.next.Type() }
func (t *tracedAgent) Cost() float64   { return t.next.Cost() }

func (t *tracedAgent) Run(ctx context.Context, row *slot.Row, budget agent.Budget) agent.Result {
	attempt := t.nextAttempt(row.ID)

	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.logger.Printf(
		"run=%s agent request: agent=%s row=%s company=%q slot=%s attempt=%d deadlineIn=%s",
		t.runID,
		t.next.Type(),
		row.ID,
		row.CompanyName,
		row.SlotType,
		attempt,
		deadlineIn,
	)

	start := time.Now()
	res := t.next.Run(ctx, row, budget)
	elapsed := time.Since(start).Round(time.Millisecond)

	switch {
	case res.GateBlocked:
		t.logger.Printf(
			"run=%s agent response: agent=%s row=%s attempt=%d duration=%s status=gate_blocked",
			t.runID, t.next.Type(), row.ID, attempt, elapsed,
		)
	case !res.Success:
		t.logger.Printf(
			"run=%s agent response: agent=%s row=%s attempt=%d duration=%s status=error cost=%.2f error=%q",
			t.runID, t.next.Type(), row.ID, attempt, elapsed, res.Cost, redact.Secrets(res.Error),
		)
	default:
		t.logger.Printf(
			"run=%s agent response: agent=%s row=%s attempt=%d duration=%s status=ok cost=%.2f fallback=%t warning=%q",
			t.runID, t.next.Type(), row.ID, attempt, elapsed, res.Cost, res.FallbackUsed, res.Warning,
		)
	}
	return res
}

func (t *tracedAgent) nextAttempt(rowID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := string(t.next.Type()) + "/" + rowID
	t.attempts[key]++
	return t.attempts[key]
}
