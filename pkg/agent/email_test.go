package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slotpipe/slotpipe/pkg/agent"
	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

func TestEmailAgent_PatternExpansionVerified(t *testing.T) {
	t.Parallel()

	finder := &fakeEmailFinder{}
	a := &agent.EmailAgent{
		Finder:   finder,
		Verifier: &fakeVerifier{result: provider.VerifyResult{Deliverable: true, Status: "deliverable"}},
		Policy:   agent.Policy{PrimaryCost: 0.15, FallbackCost: 0.05},
	}

	row := testRow()
	row.EmailPattern = "{first}.{last}"
	res := a.Run(context.Background(), row, unlimited)
	if !res.Success {
		t.Fatalf("result: %+v", res)
	}
	if row.Email != "jane.smith@acme.com" {
		t.Fatalf("email = %q", row.Email)
	}
	if row.EmailVerification != slot.VerificationVerified || row.EmailVerified == nil || !*row.EmailVerified {
		t.Fatalf("verification state: %s %v", row.EmailVerification, row.EmailVerified)
	}
	if finder.calls != 0 {
		t.Fatal("finder called despite usable pattern")
	}
	// Pattern expansion is free; only verification costs.
	if res.Cost != 0.05 {
		t.Fatalf("cost = %v, want 0.05", res.Cost)
	}
}

func TestEmailAgent_PatternVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		want    string
	}{
		{"{first}.{last}", "jane.smith@acme.com"},
		{"{f}{last}", "jsmith@acme.com"},
		{"{first}{l}", "janes@acme.com"},
		{"{f}.{l}", "j.s@acme.com"},
	}
	for _, tc := range tests {
		a := &agent.EmailAgent{Policy: agent.Policy{}}
		row := testRow()
		row.EmailPattern = tc.pattern
		res := a.Run(context.Background(), row, unlimited)
		if !res.Success || row.Email != tc.want {
			t.Fatalf("pattern %q: email=%q success=%t, want %q", tc.pattern, row.Email, res.Success, tc.want)
		}
	}
}

func TestEmailAgent_UnknownPatternFallsToFinder(t *testing.T) {
	t.Parallel()

	finder := &fakeEmailFinder{result: provider.EmailResult{Email: "jane@acme.com"}}
	a := &agent.EmailAgent{
		Finder: finder,
		Policy: agent.Policy{PrimaryCost: 0.15},
	}

	row := testRow()
	row.EmailPattern = agent.PatternUnknown
	res := a.Run(context.Background(), row, unlimited)
	if !res.Success {
		t.Fatalf("result: %+v", res)
	}
	if finder.calls != 1 {
		t.Fatalf("finder calls = %d, want 1", finder.calls)
	}
	if row.Email != "jane@acme.com" {
		t.Fatalf("email = %q", row.Email)
	}
}

func TestEmailAgent_NoVerifierKeepsEmailAsUnknown(t *testing.T) {
	t.Parallel()

	a := &agent.EmailAgent{Policy: agent.Policy{}}

	row := testRow()
	row.EmailPattern = "{first}.{last}"
	res := a.Run(context.Background(), row, unlimited)
	if !res.Success {
		t.Fatalf("result: %+v", res)
	}
	if row.Email == "" {
		t.Fatal("email discarded without a verifier")
	}
	if row.EmailVerification != slot.VerificationUnknown {
		t.Fatalf("verification = %q, want unknown", row.EmailVerification)
	}
	if !strings.Contains(res.Warning, "no verifier") {
		t.Fatalf("warning = %q", res.Warning)
	}
	// The checklist must consider the email item satisfied now.
	if c := slot.Evaluate(row); c.MissingEmail {
		t.Fatal("email item still missing; the row would loop forever")
	}
}

func TestEmailAgent_InvalidEmailKeptWithWarning(t *testing.T) {
	t.Parallel()

	a := &agent.EmailAgent{
		Verifier: &fakeVerifier{result: provider.VerifyResult{Deliverable: false, Status: "undeliverable"}},
		Policy:   agent.Policy{FallbackCost: 0.05},
	}

	row := testRow()
	row.EmailPattern = "{first}.{last}"
	res := a.Run(context.Background(), row, unlimited)
	if !res.Success {
		t.Fatalf("result: %+v", res)
	}
	if row.Email != "jane.smith@acme.com" {
		t.Fatalf("email = %q, must be kept even when undeliverable", row.Email)
	}
	if row.EmailVerified == nil || *row.EmailVerified {
		t.Fatalf("EmailVerified = %v, want false", row.EmailVerified)
	}
	if row.EmailVerification != slot.VerificationInvalid {
		t.Fatalf("verification = %q", row.EmailVerification)
	}
	if res.Warning == "" {
		t.Fatal("no warning for failed verification")
	}
}

func TestEmailAgent_VerifierErrorDegrades(t *testing.T) {
	t.Parallel()

	a := &agent.EmailAgent{
		Verifier: &fakeVerifier{err: errors.New("verifier unavailable")},
		Policy:   agent.Policy{FallbackCost: 0.05},
	}

	row := testRow()
	row.EmailPattern = "{first}.{last}"
	res := a.Run(context.Background(), row, unlimited)
	if !res.Success {
		t.Fatalf("result: %+v", res)
	}
	if row.EmailVerification != slot.VerificationUnknown {
		t.Fatalf("verification = %q, want unknown after verifier error", row.EmailVerification)
	}
}

func TestEmailAgent_NoPatternNoFinderFails(t *testing.T) {
	t.Parallel()

	a := &agent.EmailAgent{Policy: agent.Policy{}}
	row := testRow()
	res := a.Run(context.Background(), row, unlimited)
	if res.Success || res.Error == "" {
		t.Fatalf("result: %+v", res)
	}
}

func TestEmailAgent_FinderGateBlocked(t *testing.T) {
	t.Parallel()

	finder := &fakeEmailFinder{result: provider.EmailResult{Email: "x@acme.com"}}
	a := &agent.EmailAgent{Finder: finder, Policy: agent.Policy{PrimaryCost: 0.15}}

	row := testRow() // no pattern, forces the finder path
	res := a.Run(context.Background(), row, newBudget(0))
	if !res.GateBlocked || res.Cost != 0 {
		t.Fatalf("result: %+v, want gate block with no spend", res)
	}
	if finder.calls != 0 {
		t.Fatal("finder called despite refused budget")
	}
}

func TestEmailAgent_MononymCannotExpand(t *testing.T) {
	t.Parallel()

	finder := &fakeEmailFinder{result: provider.EmailResult{Email: "cher@acme.com"}}
	a := &agent.EmailAgent{Finder: finder, Policy: agent.Policy{PrimaryCost: 0.15}}

	row := testRow()
	row.PersonName = "Cher"
	row.EmailPattern = "{first}.{last}"
	res := a.Run(context.Background(), row, unlimited)
	if !res.Success {
		t.Fatalf("result: %+v", res)
	}
	if finder.calls != 1 {
		t.Fatal("single-word name should fall through to the finder")
	}
}
