// Package config loads the dispatch policy file: match thresholds, per-agent
// costs and rate ceilings, spend budgets, and the retry schedule.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slotpipe/slotpipe/pkg/slot"
)

// Duration parses YAML values like "30s" or "15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MatchConfig holds the fuzzy-match threshold contract.
type MatchConfig struct {
	AutoAcceptThreshold float64 `yaml:"auto_accept_threshold"`
	MinMatchScore       float64 `yaml:"min_match_score"`
	MaxCandidates       int     `yaml:"max_candidates"`
}

// BudgetConfig holds the spend ceilings.
type BudgetConfig struct {
	// GlobalCeiling bounds total spend across the run. <=0 disables.
	GlobalCeiling float64 `yaml:"global_ceiling"`
	// SlotLimit is the default per-slot ceiling for new rows. <=0 disables.
	SlotLimit float64 `yaml:"slot_limit"`
}

// RetryConfig holds the failure backoff schedule.
type RetryConfig struct {
	MaxRetries int      `yaml:"max_retries"`
	BaseDelay  Duration `yaml:"base_delay"`
	MaxDelay   Duration `yaml:"max_delay"`
	Multiplier float64  `yaml:"multiplier"`
}

// AgentConfig is one agent's cost and rate policy.
type AgentConfig struct {
	PrimaryCost          float64 `yaml:"primary_cost"`
	FallbackCost         float64 `yaml:"fallback_cost"`
	FallbackEnabled      bool    `yaml:"fallback_enabled"`
	FallbackSharesBudget bool    `yaml:"fallback_shares_budget"`
	PerMinute            int     `yaml:"per_minute"`
	PerDay               int     `yaml:"per_day"`
}

// Config is the full dispatch policy.
type Config struct {
	Match          MatchConfig `yaml:"match"`
	MandatorySlots []string    `yaml:"mandatory_slots"`

	Budget BudgetConfig `yaml:"budget"`
	Retry  RetryConfig  `yaml:"retry"`

	// AgentTimeout bounds each provider call.
	AgentTimeout Duration `yaml:"agent_timeout"`

	Agents map[string]AgentConfig `yaml:"agents"`
}

// Default returns the policy used when no file is given. Identity-resolution
// agents allow far higher throughput than paid lookups, mirroring provider
// pricing tiers.
func Default() Config {
	return Config{
		Match: MatchConfig{
			AutoAcceptThreshold: 90,
			MinMatchScore:       60,
			MaxCandidates:       5,
		},
		MandatorySlots: []string{string(slot.TypeCEO)},
		Budget: BudgetConfig{
			GlobalCeiling: 50,
			SlotLimit:     2,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  Duration(30 * time.Second),
			MaxDelay:   Duration(30 * time.Minute),
			Multiplier: 2,
		},
		AgentTimeout: Duration(30 * time.Second),
		Agents: map[string]AgentConfig{
			string(slot.ItemLinkedIn): {
				PrimaryCost:          0.10,
				FallbackCost:         0.25,
				FallbackEnabled:      true,
				FallbackSharesBudget: true,
				PerMinute:            60,
				PerDay:               5000,
			},
			string(slot.ItemPublicFlag): {
				PerMinute: 120,
				PerDay:    10000,
			},
			string(slot.ItemPattern): {
				PrimaryCost: 0.05,
				PerMinute:   30,
				PerDay:      2000,
			},
			string(slot.ItemEmail): {
				PrimaryCost:          0.15,
				FallbackCost:         0.05, // verification call
				FallbackSharesBudget: true,
				PerMinute:            30,
				PerDay:               1000,
			},
			string(slot.ItemTitleCompany): {
				PrimaryCost:          0.10,
				FallbackCost:         0.25,
				FallbackEnabled:      true,
				FallbackSharesBudget: true,
				PerMinute:            60,
				PerDay:               5000,
			},
			string(slot.ItemHash): {
				PerMinute: 0, // local computation, never throttled
				PerDay:    0,
			},
		},
	}
}

// Load reads a YAML policy file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Match.MinMatchScore > c.Match.AutoAcceptThreshold {
		return fmt.Errorf("match: min_match_score %g exceeds auto_accept_threshold %g",
			c.Match.MinMatchScore, c.Match.AutoAcceptThreshold)
	}
	for _, raw := range c.MandatorySlots {
		if _, ok := slot.ParseType(raw); !ok {
			return fmt.Errorf("unknown mandatory slot type %q", raw)
		}
	}
	for name := range c.Agents {
		switch slot.Item(name) {
		case slot.ItemLinkedIn, slot.ItemPublicFlag, slot.ItemPattern,
			slot.ItemEmail, slot.ItemTitleCompany, slot.ItemHash:
		default:
			return fmt.Errorf("unknown agent %q in config", name)
		}
	}
	return nil
}

// Mandatory returns the parsed mandatory slot types.
func (c Config) Mandatory() []slot.Type {
	out := make([]slot.Type, 0, len(c.MandatorySlots))
	for _, raw := range c.MandatorySlots {
		if t, ok := slot.ParseType(raw); ok {
			out = append(out, t)
		}
	}
	return out
}

// Agent returns the policy for one agent type, zero-valued when absent.
func (c Config) Agent(item slot.Item) AgentConfig {
	return c.Agents[string(item)]
}
