package guard

import (
	"strings"
	"sync"
	"time"
)

// Class is the failure classification for a provider error.
type Class string

const (
	ClassTemporary Class = "TEMPORARY"
	ClassPermanent Class = "PERMANENT"
	ClassUnknown   Class = "UNKNOWN"
)

var temporaryMarkers = []string{
	"timeout",
	"timed out",
	"rate limit",
	"too many requests",
	"429",
	"connection",
	"try again",
	"temporarily",
	"unavailable",
	"503",
	"502",
}

var permanentMarkers = []string{
	"not found",
	"does not exist",
	"invalid",
	"deleted",
	"blocked",
	"forbidden",
	"unauthorized",
}

// Classify buckets an error message by substring heuristics. Temporary
// markers win over permanent ones: a rate-limited "not found" endpoint is
// still worth retrying.
func Classify(msg string) Class {
	m := strings.ToLower(msg)
	if m == "" {
		return ClassUnknown
	}
	for _, s := range temporaryMarkers {
		if strings.Contains(m, s) {
			return ClassTemporary
		}
	}
	for _, s := range permanentMarkers {
		if strings.Contains(m, s) {
			return ClassPermanent
		}
	}
	return ClassUnknown
}

// RetryPolicy controls retry eligibility after failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryPolicy matches the standard 3-attempt exponential schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  30 * time.Second,
		MaxDelay:   30 * time.Minute,
		Multiplier: 2,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxRetries <= 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Multiplier <= 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

// Backoff computes the retry delay after the given attempt count:
// min(base * multiplier^(attempts-1), max).
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	p = p.withDefaults()
	if attempts < 1 {
		attempts = 1
	}
	delay := float64(p.BaseDelay)
	for i := 1; i < attempts; i++ {
		delay *= p.Multiplier
		if delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// FailureRecord tracks one row's failure history.
type FailureRecord struct {
	RowID         string
	AttemptCount  int
	LastError     string
	Class         Class
	LastFailureAt time.Time
	NextRetryAt   time.Time

	// Blocked is terminal: set on the first PERMANENT classification, or once
	// AttemptCount reaches the retry ceiling regardless of class.
	Blocked bool
}

// FailManager classifies agent failures and computes retry eligibility.
type FailManager struct {
	mu      sync.Mutex
	policy  RetryPolicy
	now     func() time.Time
	records map[string]*FailureRecord
}

func NewFailManager(policy RetryPolicy) *FailManager {
	return &FailManager{
		policy:  policy.withDefaults(),
		now:     time.Now,
		records: make(map[string]*FailureRecord),
	}
}

// Record registers a failure for a row and returns the updated record.
func (f *FailManager) Record(rowID, errMsg string) FailureRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.records[rowID]
	if !ok {
		rec = &FailureRecord{RowID: rowID}
		f.records[rowID] = rec
	}
	now := f.now()
	rec.AttemptCount++
	rec.LastError = errMsg
	rec.Class = Classify(errMsg)
	rec.LastFailureAt = now
	rec.NextRetryAt = now.Add(f.policy.Backoff(rec.AttemptCount))
	if rec.Class == ClassPermanent || rec.AttemptCount >= f.policy.MaxRetries {
		rec.Blocked = true
	}
	return *rec
}

// Block force-blocks a row, bypassing classification. Used when an agent
// escapes its boundary (panic), which is treated as permanent.
func (f *FailManager) Block(rowID, errMsg string) FailureRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.records[rowID]
	if !ok {
		rec = &FailureRecord{RowID: rowID}
		f.records[rowID] = rec
	}
	now := f.now()
	rec.AttemptCount++
	rec.LastError = errMsg
	rec.Class = ClassPermanent
	rec.LastFailureAt = now
	rec.Blocked = true
	return *rec
}

// CanRetry reports whether a row is eligible for another attempt right now.
// Rows without failure history are always eligible.
func (f *FailManager) CanRetry(rowID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[rowID]
	if !ok {
		return true
	}
	if rec.Blocked {
		return false
	}
	return !f.now().Before(rec.NextRetryAt)
}

// Get returns the failure record for a row, if any.
func (f *FailManager) Get(rowID string) (FailureRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[rowID]
	if !ok {
		return FailureRecord{}, false
	}
	return *rec, true
}

// Clear drops a row's failure history after a successful agent call.
func (f *FailManager) Clear(rowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, rowID)
}
