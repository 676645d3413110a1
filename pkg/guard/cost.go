package guard

import "sync"

// CostGuard enforces the global spend ceiling. A ceiling of zero or below
// means unlimited. Spend only ever grows.
type CostGuard struct {
	mu      sync.Mutex
	ceiling float64
	spent   float64
}

func NewCostGuard(ceiling float64) *CostGuard {
	return &CostGuard{ceiling: ceiling}
}

// CanSpend reports whether amount fits under the ceiling right now. Prefer
// TrySpend when the decision and the commit must be one atomic step.
func (g *CostGuard) CanSpend(amount float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fits(amount)
}

// TrySpend atomically checks headroom and commits the spend. This is the
// pre-spend enforcement used by dispatch decisions.
func (g *CostGuard) TrySpend(amount float64) bool {
	if amount <= 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.fits(amount) {
		return false
	}
	g.spent += amount
	return true
}

// Spent returns cumulative committed spend.
func (g *CostGuard) Spent() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spent
}

// Ceiling returns the configured global ceiling.
func (g *CostGuard) Ceiling() float64 {
	return g.ceiling
}

func (g *CostGuard) fits(amount float64) bool {
	if g.ceiling <= 0 {
		return true
	}
	return g.spent+amount <= g.ceiling
}
