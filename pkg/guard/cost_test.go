package guard

import (
	"sync"
	"testing"
)

func TestCostGuard_TrySpendEnforcesCeiling(t *testing.T) {
	t.Parallel()

	g := NewCostGuard(1.0)
	if !g.TrySpend(0.60) {
		t.Fatal("first spend rejected")
	}
	if !g.TrySpend(0.40) {
		t.Fatal("spend to exactly the ceiling rejected")
	}
	if g.TrySpend(0.01) {
		t.Fatal("spend past the ceiling accepted")
	}
	if got := g.Spent(); got != 1.0 {
		t.Fatalf("spent = %v, want 1.0", got)
	}
}

func TestCostGuard_ZeroCeilingUnlimited(t *testing.T) {
	t.Parallel()

	g := NewCostGuard(0)
	for i := 0; i < 100; i++ {
		if !g.TrySpend(10) {
			t.Fatal("unlimited guard rejected a spend")
		}
	}
	if !g.CanSpend(1e9) {
		t.Fatal("unlimited guard denied headroom")
	}
}

func TestCostGuard_FreeSpendAlwaysFits(t *testing.T) {
	t.Parallel()

	g := NewCostGuard(0.10)
	g.TrySpend(0.10)
	if !g.TrySpend(0) {
		t.Fatal("zero-cost spend rejected at the ceiling")
	}
}

func TestCostGuard_ConcurrentTrySpendNeverOvershoots(t *testing.T) {
	t.Parallel()

	const ceiling = 50.0
	g := NewCostGuard(ceiling)

	var wg sync.WaitGroup
	for w := 0; w < 20; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				g.TrySpend(0.07)
			}
		}()
	}
	wg.Wait()

	if got := g.Spent(); got > ceiling+1e-9 {
		t.Fatalf("spent = %v, overshot ceiling %v", got, ceiling)
	}
}
