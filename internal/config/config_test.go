package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/slotpipe/slotpipe/internal/config"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Match.AutoAcceptThreshold != 90 || cfg.Match.MinMatchScore != 60 || cfg.Match.MaxCandidates != 5 {
		t.Fatalf("match defaults: %+v", cfg.Match)
	}
	if got := cfg.Mandatory(); len(got) != 1 || got[0] != slot.TypeCEO {
		t.Fatalf("mandatory = %v, want [CEO]", got)
	}
	if cfg.Retry.Multiplier != 2 || cfg.Retry.BaseDelay.Std() != 30*time.Second {
		t.Fatalf("retry defaults: %+v", cfg.Retry)
	}
	li := cfg.Agent(slot.ItemLinkedIn)
	if li.PrimaryCost != 0.10 || !li.FallbackEnabled {
		t.Fatalf("linkedin agent defaults: %+v", li)
	}
	if cfg.Agent(slot.ItemHash).PrimaryCost != 0 {
		t.Fatal("hash agent should be free")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
match:
  auto_accept_threshold: 95
  min_match_score: 70
  max_candidates: 3
mandatory_slots: [CEO, CFO]
budget:
  global_ceiling: 10
  slot_limit: 1
retry:
  max_retries: 5
  base_delay: 10s
  max_delay: 5m
  multiplier: 3
agent_timeout: 15s
agents:
  email:
    primary_cost: 0.99
    per_minute: 7
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Match.AutoAcceptThreshold != 95 {
		t.Fatalf("threshold = %v", cfg.Match.AutoAcceptThreshold)
	}
	if got := cfg.Mandatory(); len(got) != 2 || got[1] != slot.TypeCFO {
		t.Fatalf("mandatory = %v", got)
	}
	if cfg.Budget.GlobalCeiling != 10 || cfg.Budget.SlotLimit != 1 {
		t.Fatalf("budget: %+v", cfg.Budget)
	}
	if cfg.Retry.BaseDelay.Std() != 10*time.Second || cfg.Retry.MaxDelay.Std() != 5*time.Minute {
		t.Fatalf("retry: %+v", cfg.Retry)
	}
	if cfg.AgentTimeout.Std() != 15*time.Second {
		t.Fatalf("timeout = %v", cfg.AgentTimeout.Std())
	}
	if cfg.Agent(slot.ItemEmail).PrimaryCost != 0.99 {
		t.Fatalf("email agent: %+v", cfg.Agent(slot.ItemEmail))
	}
}

func TestLoad_RejectsBadPolicies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"inverted thresholds", "match:\n  auto_accept_threshold: 50\n  min_match_score: 80\n"},
		{"unknown mandatory slot", "mandatory_slots: [CTO]\n"},
		{"unknown agent", "agents:\n  fax_machine:\n    primary_cost: 1\n"},
		{"bad duration", "agent_timeout: soon\n"},
	}
	for _, tc := range tests {
		path := writeConfig(t, tc.content)
		if _, err := config.Load(path); err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
