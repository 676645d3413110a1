// Package app wires the dispatch pipeline together and drives local runs.
package app

import (
	"github.com/slotpipe/slotpipe/internal/config"
	"github.com/slotpipe/slotpipe/pkg/agent"
	"github.com/slotpipe/slotpipe/pkg/guard"
	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// Providers bundles the external collaborators the agents wrap. Any entry may
// be nil; the affected agents degrade or fail per their own contracts.
type Providers struct {
	Resolver      provider.ProfileResolver
	Searcher      provider.PersonSearcher
	Checker       provider.ProfileChecker
	PatternFinder provider.PatternFinder
	EmailFinder   provider.EmailFinder
	Verifier      provider.EmailVerifier
}

// Guards are the process-wide shared gates, constructed once at startup and
// threaded through the dispatcher rather than imported as globals.
type Guards struct {
	Kill     *guard.KillSwitch
	Throttle *guard.ThrottleRegistry
	Cost     *guard.CostGuard
	Fails    *guard.FailManager
}

// NewGuards builds the shared gates from policy.
func NewGuards(cfg config.Config) Guards {
	throttles := guard.NewThrottleRegistry()
	for _, item := range slot.Priority() {
		ac := cfg.Agent(item)
		if ac.PerMinute > 0 || ac.PerDay > 0 {
			throttles.Set(item, guard.ThrottleLimits{PerMinute: ac.PerMinute, PerDay: ac.PerDay})
		}
	}
	return Guards{
		Kill:     guard.NewKillSwitch(),
		Throttle: throttles,
		Cost:     guard.NewCostGuard(cfg.Budget.GlobalCeiling),
		Fails: guard.NewFailManager(guard.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay.Std(),
			MaxDelay:   cfg.Retry.MaxDelay.Std(),
			Multiplier: cfg.Retry.Multiplier,
		}),
	}
}

// BuildRegistry registers the six agents with their configured policies.
// wrap, when non-nil, decorates each agent (tracing).
func BuildRegistry(cfg config.Config, p Providers, g Guards, wrap func(agent.Agent) agent.Agent) *agent.Registry {
	reg := agent.NewRegistry(g.Kill, g.Throttle, g.Cost)

	policy := func(item slot.Item) agent.Policy {
		ac := cfg.Agent(item)
		return agent.Policy{
			PrimaryCost:          ac.PrimaryCost,
			FallbackCost:         ac.FallbackCost,
			FallbackEnabled:      ac.FallbackEnabled,
			FallbackSharesBudget: ac.FallbackSharesBudget,
		}
	}

	register := func(a agent.Agent, meta agent.Metadata) {
		if wrap != nil {
			a = wrap(a)
		}
		reg.Register(a, meta)
	}

	register(&agent.LinkedInFinder{
		Resolver: p.Resolver,
		Searcher: p.Searcher,
		Policy:   policy(slot.ItemLinkedIn),
	}, agent.Metadata{Layer: 1, Paid: true})

	register(&agent.PublicScanner{
		Checker: p.Checker,
	}, agent.Metadata{Layer: 2, DependsOn: slot.ItemLinkedIn})

	register(&agent.PatternAgent{
		Finder: p.PatternFinder,
		Policy: policy(slot.ItemPattern),
	}, agent.Metadata{Layer: 3, Paid: true})

	register(&agent.EmailAgent{
		Finder:   p.EmailFinder,
		Verifier: p.Verifier,
		Policy:   policy(slot.ItemEmail),
	}, agent.Metadata{Layer: 3, DependsOn: slot.ItemPattern, Paid: true})

	register(&agent.TitleCompanyAgent{
		Resolver: p.Resolver,
		Searcher: p.Searcher,
		Policy:   policy(slot.ItemTitleCompany),
	}, agent.Metadata{Layer: 3, DependsOn: slot.ItemLinkedIn, Paid: true})

	register(&agent.HashAgent{}, agent.Metadata{Layer: 4, DependsOn: slot.ItemTitleCompany})

	return reg
}
