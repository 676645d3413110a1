// Package match resolves raw company-name strings against a canonical
// company master list.
package match

import (
	"sort"
	"strings"

	"github.com/slotpipe/slotpipe/pkg/slot"
)

// Config holds the three-tier decision thresholds.
type Config struct {
	// AutoAcceptThreshold is the minimum score for an automatic MATCHED.
	AutoAcceptThreshold float64
	// MinMatchScore is the minimum score to surface a candidate at all;
	// scores in [MinMatchScore, AutoAcceptThreshold) go to manual review.
	MinMatchScore float64
	// MaxCandidates caps the ranked candidate list.
	MaxCandidates int
}

// DefaultConfig returns the standard 90/60/5 thresholds.
func DefaultConfig() Config {
	return Config{
		AutoAcceptThreshold: 90,
		MinMatchScore:       60,
		MaxCandidates:       5,
	}
}

// Company is one canonical master-list entry.
type Company struct {
	ID   string
	Name string
}

// Result is the outcome of matching one raw input against the master list.
type Result struct {
	Status     slot.MatchStatus
	Score      float64
	Best       Company
	Candidates []slot.MatchCandidate
}

// Matcher scores raw inputs against a fixed master list. Safe for concurrent
// use; the master list is never mutated after construction.
type Matcher struct {
	cfg    Config
	master []Company
}

func NewMatcher(cfg Config, master []Company) *Matcher {
	if cfg.AutoAcceptThreshold <= 0 {
		cfg.AutoAcceptThreshold = 90
	}
	if cfg.MinMatchScore <= 0 {
		cfg.MinMatchScore = 60
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	return &Matcher{cfg: cfg, master: master}
}

// Match scores raw against every master entry and applies the threshold
// contract: >= auto-accept is MATCHED, >= min is MANUAL_REVIEW, below is
// UNMATCHED. Candidates are ranked descending; ties keep master-list order.
func (m *Matcher) Match(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(m.master) == 0 {
		return Result{Status: slot.MatchUnmatched}
	}

	type scored struct {
		company Company
		score   float64
	}
	all := make([]scored, 0, len(m.master))
	for _, c := range m.master {
		all = append(all, scored{company: c, score: Score(raw, c.Name)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	res := Result{Status: slot.MatchUnmatched}
	for i, s := range all {
		if i >= m.cfg.MaxCandidates || s.score < m.cfg.MinMatchScore {
			break
		}
		res.Candidates = append(res.Candidates, slot.MatchCandidate{Name: s.company.Name, Score: s.score})
	}

	best := all[0]
	res.Score = best.score
	switch {
	case best.score >= m.cfg.AutoAcceptThreshold:
		res.Status = slot.MatchMatched
		res.Best = best.company
	case best.score >= m.cfg.MinMatchScore:
		res.Status = slot.MatchManualReview
	default:
		res.Status = slot.MatchUnmatched
	}
	return res
}

// Apply writes a match result onto a row. CompanyName (and CompanyID) are set
// only on MATCHED; manual-review and unmatched rows keep their identity
// untouched for upstream resolution.
func Apply(r *slot.Row, res Result) {
	r.MatchStatus = res.Status
	r.MatchScore = res.Score
	r.MatchCandidates = res.Candidates
	if res.Status == slot.MatchMatched {
		r.CompanyName = res.Best.Name
		if res.Best.ID != "" {
			r.CompanyID = res.Best.ID
		}
	}
	r.Touch()
}

// Score returns a deterministic 0..100 similarity between a raw input and a
// canonical name. Exact normalized equality scores 100; equal base names
// (legal suffixes stripped) score 95; containment scores by length ratio;
// everything else by normalized Levenshtein distance.
func Score(raw, candidate string) float64 {
	a := Normalize(raw)
	b := Normalize(candidate)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	if sa, sb := stripLegalSuffix(a), stripLegalSuffix(b); sa != "" && sa == sb {
		return 95
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		return 100 * float64(len(shorter)) / float64(len(longer))
	}

	dist := levenshtein(a, b)
	return 100 * (1 - float64(dist)/float64(len([]rune(longer))))
}

// Normalize lowercases, strips punctuation, and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '-' || r == '_' || r == '/':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

var legalSuffixes = []string{
	"corporation", "incorporated", "company", "limited",
	"corp", "inc", "llc", "ltd", "co", "plc", "gmbh",
}

func stripLegalSuffix(normalized string) string {
	tokens := strings.Fields(normalized)
	for len(tokens) > 1 {
		last := tokens[len(tokens)-1]
		stripped := false
		for _, suf := range legalSuffixes {
			if last == suf {
				tokens = tokens[:len(tokens)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(tokens, " ")
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
