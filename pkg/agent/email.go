package agent

import (
	"context"
	"strings"

	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// EmailAgent generates and verifies a work email. Generation prefers the
// discovered pattern; otherwise it falls back to a name+domain finder.
// Verification is always attempted, but its outcome never discards the
// address: an invalid or unverifiable email is kept with a warning so the
// slot degrades gracefully instead of failing.
// Policy mapping for this agent: PrimaryCost is the name+domain finder call
// (pattern expansion is free), FallbackCost is the verification call.
type EmailAgent struct {
	Finder   provider.EmailFinder
	Verifier provider.EmailVerifier
	Policy   Policy
}

func (a *EmailAgent) Type() slot.Item { return slot.ItemEmail }
func (a *EmailAgent) Cost() float64   { return a.Policy.PrimaryCost }

func (a *EmailAgent) Run(ctx context.Context, row *slot.Row, budget Budget) Result {
	email, warning, res := a.discover(ctx, row, budget)
	if !res.Success {
		return res
	}

	row.Email = email
	if warning != "" {
		row.Warning = warning
	}

	if a.Verifier == nil {
		row.EmailVerification = slot.VerificationUnknown
		row.Touch()
		res.Warning = joinWarnings(warning, "email verification skipped: no verifier configured")
		row.Warning = res.Warning
		return res
	}

	if !budget.TrySpend(a.Policy.FallbackCost, a.Policy.FallbackSharesBudget) {
		// Keep the address; verification retries on a later pass would need
		// re-discovery, so record the degraded state instead.
		row.EmailVerification = slot.VerificationUnknown
		row.Touch()
		res.Warning = joinWarnings(warning, "email verification skipped: verification budget exhausted")
		row.Warning = res.Warning
		return res
	}
	res.Cost += a.Policy.FallbackCost

	ver, err := a.Verifier.Verify(ctx, email)
	switch {
	case err != nil:
		row.EmailVerification = slot.VerificationUnknown
		res.Warning = joinWarnings(warning, "email verification failed: "+err.Error())
	case ver.Deliverable:
		row.EmailVerified = slot.BoolPtr(true)
		row.EmailVerification = slot.VerificationVerified
		res.Warning = warning
	default:
		// Verification says undeliverable: keep the email, mark it, warn.
		row.EmailVerified = slot.BoolPtr(false)
		row.EmailVerification = slot.VerificationInvalid
		res.Warning = joinWarnings(warning, "email failed verification ("+ver.Status+"); kept unverified")
	}
	row.Warning = res.Warning
	row.Touch()
	return res
}

// discover produces the candidate address. The returned Result carries any
// spend committed and, on failure, the provider error.
func (a *EmailAgent) discover(ctx context.Context, row *slot.Row, budget Budget) (string, string, Result) {
	if email, ok := expandPattern(row.EmailPattern, row.PersonName, row.CompanyDomain); ok {
		return email, "", Result{Success: true}
	}

	if a.Finder == nil {
		return "", "", failure("email agent: no usable pattern and no email finder configured")
	}
	if !budget.TrySpend(a.Policy.PrimaryCost, true) {
		return "", "", Result{GateBlocked: true}
	}
	res := Result{Cost: a.Policy.PrimaryCost}

	out, err := a.Finder.FindEmail(ctx, provider.EmailQuery{
		PersonName:  row.PersonName,
		CompanyName: row.CompanyName,
		Domain:      row.CompanyDomain,
	})
	if err != nil {
		res.Error = err.Error()
		return "", "", res
	}
	if out.Email == "" {
		res.Error = "email not found"
		return "", "", res
	}
	res.Success = true
	return out.Email, "", res
}

// expandPattern renders templates like "{first}.{last}" or "{f}{last}" for a
// person at a domain. Returns ok=false when the pattern, name, or domain is
// missing or the pattern is the stored unknown marker.
func expandPattern(pattern, personName, domain string) (string, bool) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || pattern == PatternUnknown || domain == "" {
		return "", false
	}
	first, last := splitName(personName)
	if first == "" || last == "" {
		return "", false
	}

	local := pattern
	local = strings.ReplaceAll(local, "{first}", first)
	local = strings.ReplaceAll(local, "{last}", last)
	local = strings.ReplaceAll(local, "{f}", first[:1])
	local = strings.ReplaceAll(local, "{l}", last[:1])
	if strings.ContainsAny(local, "{}") {
		// Unrecognized placeholder survived; treat the pattern as unusable.
		return "", false
	}
	return local + "@" + strings.ToLower(domain), true
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) < 2 {
		return "", ""
	}
	clean := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r >= 'a' && r <= 'z' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	first = clean(fields[0])
	last = clean(fields[len(fields)-1])
	return first, last
}

func joinWarnings(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}
