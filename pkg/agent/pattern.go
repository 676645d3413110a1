package agent

import (
	"context"

	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// PatternUnknown is stored when the provider cannot determine a pattern, so
// the email agent can fall through to name+domain discovery instead of the
// slot stalling on a missing checklist item.
const PatternUnknown = "unknown"

// PatternAgent discovers the company's email address pattern.
type PatternAgent struct {
	Finder provider.PatternFinder
	Policy Policy
}

func (a *PatternAgent) Type() slot.Item { return slot.ItemPattern }
func (a *PatternAgent) Cost() float64   { return a.Policy.PrimaryCost }

func (a *PatternAgent) Run(ctx context.Context, row *slot.Row, budget Budget) Result {
	if a.Finder == nil {
		return failure("pattern agent: no pattern finder configured")
	}
	if !budget.TrySpend(a.Policy.PrimaryCost, true) {
		return Result{GateBlocked: true}
	}

	res := Result{Cost: a.Policy.PrimaryCost}
	out, err := a.Finder.FindPattern(ctx, provider.PatternQuery{
		Domain:      row.CompanyDomain,
		CompanyName: row.CompanyName,
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}

	if out.Pattern == "" {
		row.EmailPattern = PatternUnknown
		res.Warning = "email pattern not determined; email discovery will use name+domain lookup"
	} else {
		row.EmailPattern = out.Pattern
	}
	if row.CompanyDomain == "" && out.Domain != "" {
		row.CompanyDomain = out.Domain
	}
	row.Touch()
	res.Success = true
	return res
}
