package guard

import (
	"sync"
	"time"

	"github.com/slotpipe/slotpipe/pkg/slot"
)

// KillRecord documents an operator-initiated stop.
type KillRecord struct {
	Reason   string
	Operator string
	At       time.Time
}

// KillSwitch is the emergency disable for one or all agent types. It is
// independent of throttling and is always checked first: an operator stop
// must short-circuit capacity accounting.
type KillSwitch struct {
	mu     sync.Mutex
	now    func() time.Time
	global *KillRecord
	agents map[slot.Item]*KillRecord
}

func NewKillSwitch() *KillSwitch {
	return &KillSwitch{now: time.Now, agents: make(map[slot.Item]*KillRecord)}
}

// Kill disables one agent type.
func (k *KillSwitch) Kill(item slot.Item, reason, operator string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.agents[item] = &KillRecord{Reason: reason, Operator: operator, At: k.now()}
}

// Revive re-enables one agent type. A global kill still applies.
func (k *KillSwitch) Revive(item slot.Item) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.agents, item)
}

// KillAll disables every agent type.
func (k *KillSwitch) KillAll(reason, operator string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.global = &KillRecord{Reason: reason, Operator: operator, At: k.now()}
}

// ReviveAll clears the global kill. Per-agent kills remain in place.
func (k *KillSwitch) ReviveAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.global = nil
}

// Killed reports whether the agent type is disabled, and by which record.
// The global kill takes precedence over per-agent records.
func (k *KillSwitch) Killed(item slot.Item) (KillRecord, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.global != nil {
		return *k.global, true
	}
	if rec, ok := k.agents[item]; ok {
		return *rec, true
	}
	return KillRecord{}, false
}
