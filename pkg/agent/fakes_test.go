package agent_test

import (
	"context"
	"sync"

	"github.com/slotpipe/slotpipe/pkg/agent"
	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// recordingBudget approves a limited number of spends and remembers each one.
type recordingBudget struct {
	mu      sync.Mutex
	allow   int // -1 means unlimited
	spends  []float64
	scoped  []bool
	refused int
}

func newBudget(allow int) *recordingBudget {
	return &recordingBudget{allow: allow}
}

func (b *recordingBudget) TrySpend(amount float64, slotScoped bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allow == 0 {
		b.refused++
		return false
	}
	if b.allow > 0 {
		b.allow--
	}
	b.spends = append(b.spends, amount)
	b.scoped = append(b.scoped, slotScoped)
	return true
}

type fakeResolver struct {
	result provider.ProfileResult
	err    error
	calls  int
	lastQ  provider.ProfileQuery
}

func (f *fakeResolver) ResolveProfile(_ context.Context, q provider.ProfileQuery) (provider.ProfileResult, error) {
	f.calls++
	f.lastQ = q
	return f.result, f.err
}

type fakeSearcher struct {
	result provider.PersonResult
	err    error
	calls  int
}

func (f *fakeSearcher) SearchPerson(_ context.Context, _ provider.PersonQuery) (provider.PersonResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeChecker struct {
	result provider.AccessResult
	err    error
}

func (f *fakeChecker) CheckAccess(_ context.Context, _ provider.AccessQuery) (provider.AccessResult, error) {
	return f.result, f.err
}

type fakePatternFinder struct {
	result provider.PatternResult
	err    error
}

func (f *fakePatternFinder) FindPattern(_ context.Context, _ provider.PatternQuery) (provider.PatternResult, error) {
	return f.result, f.err
}

type fakeEmailFinder struct {
	result provider.EmailResult
	err    error
	calls  int
}

func (f *fakeEmailFinder) FindEmail(_ context.Context, _ provider.EmailQuery) (provider.EmailResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeVerifier struct {
	result provider.VerifyResult
	err    error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (provider.VerifyResult, error) {
	return f.result, f.err
}

func testRow() *slot.Row {
	r := slot.NewRow("Acme Corporation", slot.TypeCEO, "Jane Smith", 2)
	r.CompanyID = "c1"
	r.CompanyName = "Acme Corporation"
	r.CompanyDomain = "acme.com"
	r.MatchStatus = slot.MatchMatched
	r.MatchScore = 100
	return r
}

var unlimited agent.UnlimitedBudget
