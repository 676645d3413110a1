package agent

import (
	"context"

	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// TitleCompanyAgent fills current title and company. The primary provider
// reads the resolved LinkedIn profile; the person-search fallback is used
// when no profile URL is present or the profile yielded no title/company.
type TitleCompanyAgent struct {
	Resolver provider.ProfileResolver
	Searcher provider.PersonSearcher
	Policy   Policy
}

func (a *TitleCompanyAgent) Type() slot.Item { return slot.ItemTitleCompany }
func (a *TitleCompanyAgent) Cost() float64   { return a.Policy.PrimaryCost }

func (a *TitleCompanyAgent) Run(ctx context.Context, row *slot.Row, budget Budget) Result {
	var res Result

	if row.LinkedInURL != "" && a.Resolver != nil {
		if !budget.TrySpend(a.Policy.PrimaryCost, true) {
			return Result{GateBlocked: true}
		}
		res.Cost = a.Policy.PrimaryCost

		prof, err := a.Resolver.ResolveProfile(ctx, provider.ProfileQuery{
			CompanyName: row.CompanyName,
			PersonName:  row.PersonName,
			SlotType:    string(row.SlotType),
			LinkedInURL: row.LinkedInURL,
		})
		if err == nil && prof.Title != "" && prof.Company != "" {
			a.apply(row, prof.Title, prof.Company)
			res.Success = true
			return res
		}
		if err != nil {
			res.Error = err.Error()
		}
	}

	if a.Searcher == nil {
		if res.Error != "" {
			return res
		}
		res.Error = "title/company not found"
		return res
	}
	if !budget.TrySpend(a.Policy.FallbackCost, a.Policy.FallbackSharesBudget) {
		if res.Cost == 0 {
			// Nothing was attempted yet; report the gate, not a failure.
			return Result{GateBlocked: true}
		}
		res.Error = "title/company not found"
		return res
	}
	res.Cost += a.Policy.FallbackCost
	res.FallbackUsed = true

	hit, err := a.Searcher.SearchPerson(ctx, provider.PersonQuery{
		CompanyName: row.CompanyName,
		PersonName:  row.PersonName,
		SlotType:    string(row.SlotType),
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if hit.Title == "" || hit.Company == "" {
		res.Error = "title/company not found"
		return res
	}

	a.apply(row, hit.Title, hit.Company)
	res.Success = true
	res.Error = ""
	return res
}

func (a *TitleCompanyAgent) apply(row *slot.Row, title, company string) {
	row.CurrentTitle = title
	row.CurrentCompany = company
	row.Touch()
}
