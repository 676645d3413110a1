package agent

import (
	"context"

	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// LinkedInFinder resolves a row's public profile URL. Primary is direct
// profile resolution; fallback is a broader person search, allowed only when
// enabled, the budget has headroom, and the primary found no URL.
type LinkedInFinder struct {
	Resolver provider.ProfileResolver
	Searcher provider.PersonSearcher
	Policy   Policy
}

func (a *LinkedInFinder) Type() slot.Item { return slot.ItemLinkedIn }
func (a *LinkedInFinder) Cost() float64   { return a.Policy.PrimaryCost }

func (a *LinkedInFinder) Run(ctx context.Context, row *slot.Row, budget Budget) Result {
	if a.Resolver == nil {
		return failure("linkedin finder: no profile resolver configured")
	}
	if !budget.TrySpend(a.Policy.PrimaryCost, true) {
		return Result{GateBlocked: true}
	}

	res := Result{Cost: a.Policy.PrimaryCost}
	prof, err := a.Resolver.ResolveProfile(ctx, provider.ProfileQuery{
		CompanyName: row.CompanyName,
		PersonName:  row.PersonName,
		SlotType:    string(row.SlotType),
	})
	if err == nil && prof.LinkedInURL != "" {
		a.apply(row, prof.LinkedInURL)
		res.Success = true
		return res
	}

	if !a.Policy.FallbackEnabled || a.Searcher == nil {
		if err != nil {
			res.Error = err.Error()
			return res
		}
		return a.notFound(res)
	}
	if !budget.TrySpend(a.Policy.FallbackCost, a.Policy.FallbackSharesBudget) {
		// Primary already failed; without fallback headroom this pass is done.
		if err != nil {
			res.Error = err.Error()
			return res
		}
		return a.notFound(res)
	}

	res.Cost += a.Policy.FallbackCost
	res.FallbackUsed = true
	hit, ferr := a.Searcher.SearchPerson(ctx, provider.PersonQuery{
		CompanyName: row.CompanyName,
		PersonName:  row.PersonName,
		SlotType:    string(row.SlotType),
	})
	if ferr != nil {
		res.Error = ferr.Error()
		return res
	}
	if hit.LinkedInURL == "" {
		return a.notFound(res)
	}

	a.apply(row, hit.LinkedInURL)
	res.Success = true
	return res
}

// apply sets only the URL: title/company from a profile hit belong to the
// title-company agent, which runs with its own providers and budget.
func (a *LinkedInFinder) apply(row *slot.Row, url string) {
	row.LinkedInURL = url
	row.Touch()
}

func (a *LinkedInFinder) notFound(res Result) Result {
	res.Error = "linkedin profile not found"
	return res
}
