package agent

import (
	"sync"

	"github.com/slotpipe/slotpipe/pkg/guard"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// Metadata describes an agent for routing decisions.
type Metadata struct {
	// Layer is the pipeline layer the agent belongs to (1 identity, 2 access,
	// 3 contact, 4 tracking). Informational; routing order comes from the
	// checklist priority.
	Layer int

	// DependsOn names the checklist item this agent benefits from having
	// filled first, if any.
	DependsOn slot.Item

	// Paid marks agents whose providers bill per call; only paid agents are
	// subject to the cost gate.
	Paid bool
}

// BlockReason says which gate refused an agent run.
type BlockReason string

const (
	BlockedNone      BlockReason = ""
	BlockedKilled    BlockReason = "killed"
	BlockedThrottled BlockReason = "throttled"
	BlockedCost      BlockReason = "cost"
)

// Verdict is the outcome of the combined can-this-agent-run-now gate.
type Verdict struct {
	Allowed bool
	Blocked BlockReason
	Reason  string
}

// Registry holds the agent instances, their metadata, and the shared gates.
// Gate order is fixed: kill switch, then throttle, then cost. An operator
// stop must short-circuit capacity accounting, so the kill check always runs
// first and a killed agent never touches throttle or cost state.
type Registry struct {
	mu     sync.Mutex
	agents map[slot.Item]Agent
	meta   map[slot.Item]Metadata

	kill     *guard.KillSwitch
	throttle *guard.ThrottleRegistry
	cost     *guard.CostGuard
}

func NewRegistry(kill *guard.KillSwitch, throttle *guard.ThrottleRegistry, cost *guard.CostGuard) *Registry {
	return &Registry{
		agents:   make(map[slot.Item]Agent),
		meta:     make(map[slot.Item]Metadata),
		kill:     kill,
		throttle: throttle,
		cost:     cost,
	}
}

// Register installs an agent under its own type.
func (r *Registry) Register(a Agent, meta Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Type()] = a
	r.meta[a.Type()] = meta
}

// Get returns the agent for a checklist item.
func (r *Registry) Get(item slot.Item) (Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[item]
	return a, ok
}

// Meta returns the metadata recorded for an agent type.
func (r *Registry) Meta(item slot.Item) (Metadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meta[item]
	return m, ok
}

// KillSwitch exposes the shared kill switch for operator control.
func (r *Registry) KillSwitch() *guard.KillSwitch { return r.kill }

// Throttles exposes the shared throttle registry.
func (r *Registry) Throttles() *guard.ThrottleRegistry { return r.throttle }

// CostGuard exposes the shared global cost guard.
func (r *Registry) CostGuard() *guard.CostGuard { return r.cost }

// CanRun evaluates kill, throttle, and cost gates for running an agent
// against a row right now. Gate refusals are policy decisions, never
// failures; callers retry the row on a later pass.
func (r *Registry) CanRun(item slot.Item, row *slot.Row) Verdict {
	a, ok := r.Get(item)
	if !ok {
		return Verdict{Blocked: BlockedNone, Reason: "no agent registered for " + string(item)}
	}

	if rec, killed := r.kill.Killed(item); killed {
		return Verdict{Blocked: BlockedKilled, Reason: rec.Reason}
	}

	if r.throttle.Throttled(item) {
		return Verdict{Blocked: BlockedThrottled, Reason: "rate window exhausted"}
	}

	meta, _ := r.Meta(item)
	if meta.Paid && a.Cost() > 0 {
		if !row.CostHeadroom(a.Cost()) {
			return Verdict{Blocked: BlockedCost, Reason: "slot cost limit reached"}
		}
		if !r.cost.CanSpend(a.Cost()) {
			return Verdict{Blocked: BlockedCost, Reason: "global cost ceiling reached"}
		}
	}

	return Verdict{Allowed: true}
}
