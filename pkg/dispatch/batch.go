package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/slotpipe/slotpipe/pkg/match"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// BatchOptions tune one batch pass.
type BatchOptions struct {
	// Workers is the bound on concurrent company groups.
	Workers int

	// RateLimitRPS is a global agent-call limit across all workers. Set to
	// <=0 to disable.
	RateLimitRPS float64
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Workers <= 0 {
		o.Workers = 10
	}
	return o
}

// RowResult pairs a row with its pass outcome.
type RowResult struct {
	Row    *slot.Row
	Result Result
}

// DispatchBatch runs one dispatch pass over every row with bounded
// concurrency. Rows are grouped by company and each group is processed by a
// single worker: that serializes the missing-slot check per company, which is
// the one write that must not race. No ordering holds across companies.
//
// Returned results are in input-row order. Placeholder rows created during
// the pass are reported on their creating row's Result and are not
// dispatched; the caller adds them to the next pass.
func (d *Dispatcher) DispatchBatch(ctx context.Context, rows []*slot.Row, opts BatchOptions) ([]RowResult, error) {
	opts = opts.withDefaults()
	led := newLedger(rows)

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	type job struct {
		indexes []int
	}
	groups := groupByCompany(rows)

	out := make([]RowResult, len(rows))
	jobs := make(chan job)

	g, runCtx := errgroup.WithContext(ctx)
	for range opts.Workers {
		g.Go(func() error {
			for j := range jobs {
				if err := runCtx.Err(); err != nil {
					return err
				}
				d.dispatchGroup(runCtx, rows, j.indexes, limiter, led, out)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, idxs := range groups {
			select {
			case jobs <- job{indexes: idxs}:
			case <-runCtx.Done():
				return runCtx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// dispatchGroup processes one company's rows sequentially. The sibling view
// grows with placeholders created earlier in the group, so a second row of
// the same company never re-creates the same slot within a pass.
func (d *Dispatcher) dispatchGroup(ctx context.Context, rows []*slot.Row, indexes []int, limiter *rate.Limiter, led *ledger, out []RowResult) {
	// Terminal rows stay in the sibling view: the missing-slot skip
	// conditions need to see completed and permanently failed slots.
	siblings := make([]*slot.Row, 0, len(indexes))
	for _, i := range indexes {
		siblings = append(siblings, rows[i])
	}

	for _, i := range indexes {
		row := rows[i]
		if limiter != nil && !row.Terminal() {
			if err := limiter.Wait(ctx); err != nil {
				out[i] = RowResult{Row: row, Result: Result{Status: StatusNoAction, Reason: err.Error()}}
				continue
			}
		}

		res := d.dispatchRow(ctx, row, siblingsExcept(siblings, row), led)
		out[i] = RowResult{Row: row, Result: res}
		siblings = append(siblings, res.CreatedSlots...)
	}
}

// ledger serializes the company-level slot check on resolved identity. Rows
// are grouped by raw input before matching, so two spellings of one company
// can land in different worker groups; once they both match, their state-2
// checks must share one sibling view or each would emit its own placeholders.
// The ledger keys every known row by post-match identity and runs the
// missing-slot plan under that company's lock.
type ledger struct {
	mu        sync.Mutex
	byCompany map[string][]*slot.Row
}

func newLedger(rows []*slot.Row) *ledger {
	l := &ledger{byCompany: make(map[string][]*slot.Row)}
	for _, r := range rows {
		if r.Matched() {
			key := companyKey(r)
			l.byCompany[key] = append(l.byCompany[key], r)
		}
	}
	return l
}

// plan registers the row and its group siblings under the company key, then
// runs the missing-slot check against everything known for that company,
// recording any created placeholders so later rows see them.
func (l *ledger) plan(row *slot.Row, siblings []*slot.Row, mandatory []slot.Type, costLimit float64) []*slot.Row {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := companyKey(row)
	known := l.byCompany[key]
	seen := make(map[*slot.Row]bool, len(known)+len(siblings)+1)
	for _, r := range known {
		seen[r] = true
	}
	add := func(r *slot.Row) {
		if !seen[r] {
			seen[r] = true
			known = append(known, r)
		}
	}
	add(row)
	for _, s := range siblings {
		add(s)
	}

	created := slot.PlanMissingSlots(row.CompanyID, row.CompanyName, known, mandatory, costLimit)
	l.byCompany[key] = append(known, created...)
	return created
}

// companyKey identifies a matched company: the master-list ID when the entry
// carries one, else the normalized canonical name (identical for every raw
// spelling once matched).
func companyKey(r *slot.Row) string {
	if r.CompanyID != "" {
		return r.CompanyID
	}
	return "name:" + match.Normalize(r.CompanyName)
}

func siblingsExcept(rows []*slot.Row, self *slot.Row) []*slot.Row {
	out := make([]*slot.Row, 0, len(rows))
	for _, r := range rows {
		if r != self {
			out = append(out, r)
		}
	}
	return out
}

// groupByCompany buckets row indexes by resolved company ID, falling back to
// the normalized raw input for rows not yet matched. Group order follows
// first appearance in the input.
func groupByCompany(rows []*slot.Row) [][]int {
	byKey := make(map[string][]int)
	var order []string
	for i, r := range rows {
		key := r.CompanyID
		if key == "" {
			key = "raw:" + match.Normalize(r.RawCompanyInput)
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], i)
	}

	out := make([][]int, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}
