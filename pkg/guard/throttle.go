// Package guard holds the process-wide dispatch gates: throttle windows,
// operator kill switches, spend ceilings, and failure classification. All
// types are safe for concurrent use by dispatch workers.
package guard

import (
	"sync"
	"time"

	"github.com/slotpipe/slotpipe/pkg/slot"
)

// ThrottleLimits are per-window call ceilings. Zero or negative disables the
// corresponding window.
type ThrottleLimits struct {
	PerMinute int
	PerDay    int
}

// Throttle is a per-agent call counter over minute and day windows. Windows
// reset on check from elapsed wall-clock time; there are no background timers.
type Throttle struct {
	mu     sync.Mutex
	limits ThrottleLimits
	now    func() time.Time

	minuteStart time.Time
	minuteCalls int
	dayStart    time.Time
	dayCalls    int
}

func NewThrottle(limits ThrottleLimits) *Throttle {
	return &Throttle{limits: limits, now: time.Now}
}

// Throttled reports whether either window has reached its ceiling.
func (t *Throttle) Throttled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll()
	if t.limits.PerMinute > 0 && t.minuteCalls >= t.limits.PerMinute {
		return true
	}
	if t.limits.PerDay > 0 && t.dayCalls >= t.limits.PerDay {
		return true
	}
	return false
}

// RecordCall counts one provider call against both windows.
func (t *Throttle) RecordCall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll()
	t.minuteCalls++
	t.dayCalls++
}

// Counts returns the current window counters, rolling windows first.
func (t *Throttle) Counts() (minute, day int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll()
	return t.minuteCalls, t.dayCalls
}

// roll resets any window whose span has elapsed. Callers hold t.mu.
func (t *Throttle) roll() {
	now := t.now()
	if t.minuteStart.IsZero() || now.Sub(t.minuteStart) >= time.Minute {
		t.minuteStart = now
		t.minuteCalls = 0
	}
	if t.dayStart.IsZero() || now.Sub(t.dayStart) >= 24*time.Hour {
		t.dayStart = now
		t.dayCalls = 0
	}
}

// ThrottleRegistry maps agent types to their throttles. Agents without an
// entry are never throttled.
type ThrottleRegistry struct {
	mu sync.Mutex
	m  map[slot.Item]*Throttle
}

func NewThrottleRegistry() *ThrottleRegistry {
	return &ThrottleRegistry{m: make(map[slot.Item]*Throttle)}
}

// Set installs or replaces the throttle for an agent type.
func (r *ThrottleRegistry) Set(item slot.Item, limits ThrottleLimits) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[item] = NewThrottle(limits)
}

// Get returns the throttle for an agent type, or nil if none is configured.
func (r *ThrottleRegistry) Get(item slot.Item) *Throttle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[item]
}

// Throttled reports whether the agent type is currently at a ceiling.
func (r *ThrottleRegistry) Throttled(item slot.Item) bool {
	t := r.Get(item)
	return t != nil && t.Throttled()
}

// RecordCall counts a call for the agent type, if a throttle is configured.
func (r *ThrottleRegistry) RecordCall(item slot.Item) {
	if t := r.Get(item); t != nil {
		t.RecordCall()
	}
}
