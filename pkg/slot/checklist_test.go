package slot_test

import (
	"testing"

	"github.com/slotpipe/slotpipe/pkg/slot"
)

func fullRow() *slot.Row {
	r := slot.NewRow("Acme Corporation", slot.TypeCEO, "Jane Smith", 2)
	r.CompanyName = "Acme Corporation"
	r.MatchStatus = slot.MatchMatched
	r.LinkedInURL = "https://www.linkedin.com/in/janesmith"
	r.PublicAccessible = slot.BoolPtr(true)
	r.EmailPattern = "{first}.{last}"
	r.Email = "jane.smith@acme.com"
	r.EmailVerified = slot.BoolPtr(true)
	r.EmailVerification = slot.VerificationVerified
	r.CurrentTitle = "CEO"
	r.CurrentCompany = "Acme Corporation"
	r.MovementHash = "deadbeef"
	return r
}

func TestEvaluate_FullRowIsReady(t *testing.T) {
	t.Parallel()

	c := slot.Evaluate(fullRow())
	if c.MissingCount() != 0 {
		t.Fatalf("missing = %d, want 0", c.MissingCount())
	}
	if !c.Ready {
		t.Fatal("Ready = false, want true")
	}
	if _, ok := c.Next(); ok {
		t.Fatal("Next returned an item for a complete checklist")
	}
}

func TestEvaluate_ReadyRequiresMatchAndNotFailed(t *testing.T) {
	t.Parallel()

	r := fullRow()
	r.MatchStatus = slot.MatchManualReview
	if c := slot.Evaluate(r); c.Ready {
		t.Fatal("Ready = true for unmatched row")
	}

	r = fullRow()
	r.PermanentlyFailed = true
	if c := slot.Evaluate(r); c.Ready {
		t.Fatal("Ready = true for permanently failed row")
	}
}

func TestNext_FollowsPriorityOrder(t *testing.T) {
	t.Parallel()

	// Knock items out one at a time; Next must always surface the
	// highest-priority gap regardless of what else is missing.
	tests := []struct {
		name string
		mut  func(*slot.Row)
		want slot.Item
	}{
		{"linkedin first", func(r *slot.Row) { r.LinkedInURL = "" }, slot.ItemLinkedIn},
		{"public flag second", func(r *slot.Row) { r.PublicAccessible = nil }, slot.ItemPublicFlag},
		{"pattern third", func(r *slot.Row) { r.EmailPattern = "" }, slot.ItemPattern},
		{"email fourth", func(r *slot.Row) { r.Email = ""; r.EmailVerification = slot.VerificationNone }, slot.ItemEmail},
		{"title fifth", func(r *slot.Row) { r.CurrentTitle = "" }, slot.ItemTitleCompany},
		{"hash last", func(r *slot.Row) { r.MovementHash = "" }, slot.ItemHash},
	}
	for _, tc := range tests {
		r := fullRow()
		tc.mut(r)
		got, ok := slot.Evaluate(r).Next()
		if !ok || got != tc.want {
			t.Fatalf("%s: Next = %q ok=%t, want %q", tc.name, got, ok, tc.want)
		}
	}
}

func TestNext_LinkedInBeatsEverything(t *testing.T) {
	t.Parallel()

	r := slot.NewRow("Acme Corporation", slot.TypeCFO, "", 0)
	r.MatchStatus = slot.MatchMatched
	r.CompanyName = "Acme Corporation"

	c := slot.Evaluate(r)
	if c.MissingCount() != 6 {
		t.Fatalf("missing = %d, want 6", c.MissingCount())
	}
	got, ok := c.Next()
	if !ok || got != slot.ItemLinkedIn {
		t.Fatalf("Next = %q, want linkedin", got)
	}
}

func TestEvaluate_UnverifiedEmailStillMissing(t *testing.T) {
	t.Parallel()

	// An email present without any verification outcome keeps the email item
	// open so the email agent can run verification.
	r := fullRow()
	r.EmailVerification = slot.VerificationNone
	c := slot.Evaluate(r)
	if !c.MissingEmail {
		t.Fatal("MissingEmail = false for unverified email")
	}

	// "unknown" (no verifier configured) closes the item.
	r.EmailVerification = slot.VerificationUnknown
	if c := slot.Evaluate(r); c.MissingEmail {
		t.Fatal("MissingEmail = true for verification status unknown")
	}
}
