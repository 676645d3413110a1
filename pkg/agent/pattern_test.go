package agent_test

import (
	"context"
	"testing"

	"github.com/slotpipe/slotpipe/pkg/agent"
	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

func TestPatternAgent_StoresPattern(t *testing.T) {
	t.Parallel()

	a := &agent.PatternAgent{
		Finder: &fakePatternFinder{result: provider.PatternResult{Pattern: "{first}.{last}", Domain: "acme.com"}},
		Policy: agent.Policy{PrimaryCost: 0.05},
	}

	row := testRow()
	res := a.Run(context.Background(), row, unlimited)
	if !res.Success {
		t.Fatalf("result: %+v", res)
	}
	if row.EmailPattern != "{first}.{last}" {
		t.Fatalf("pattern = %q", row.EmailPattern)
	}
}

func TestPatternAgent_UnknownMarkerOnEmptyResult(t *testing.T) {
	t.Parallel()

	a := &agent.PatternAgent{
		Finder: &fakePatternFinder{result: provider.PatternResult{}},
		Policy: agent.Policy{PrimaryCost: 0.05},
	}

	row := testRow()
	res := a.Run(context.Background(), row, unlimited)
	if !res.Success || res.Warning == "" {
		t.Fatalf("result: %+v", res)
	}
	if row.EmailPattern != agent.PatternUnknown {
		t.Fatalf("pattern = %q, want unknown marker", row.EmailPattern)
	}
	// The checklist item is filled; the row does not stall on pattern lookup.
	if c := slot.Evaluate(row); c.MissingPattern {
		t.Fatal("pattern item still missing after unknown marker")
	}
}

func TestPatternAgent_BackfillsDomain(t *testing.T) {
	t.Parallel()

	a := &agent.PatternAgent{
		Finder: &fakePatternFinder{result: provider.PatternResult{Pattern: "{f}{last}", Domain: "acme.io"}},
		Policy: agent.Policy{PrimaryCost: 0.05},
	}

	row := testRow()
	row.CompanyDomain = ""
	a.Run(context.Background(), row, unlimited)
	if row.CompanyDomain != "acme.io" {
		t.Fatalf("domain = %q, want backfilled acme.io", row.CompanyDomain)
	}

	// A known domain is never overwritten.
	row2 := testRow()
	a.Run(context.Background(), row2, unlimited)
	if row2.CompanyDomain != "acme.com" {
		t.Fatalf("domain = %q, existing domain overwritten", row2.CompanyDomain)
	}
}
