package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/slotpipe/slotpipe/pkg/slot"
)

// HashAgent computes the movement hash: a deterministic fingerprint of
// identity + title + company used to detect executive job changes between
// runs. Pure local computation; no provider, no cost.
type HashAgent struct {
	// AsOf, when set, is folded into the hash so callers can scope movement
	// detection to a reporting period.
	AsOf string
}

func (a *HashAgent) Type() slot.Item { return slot.ItemHash }
func (a *HashAgent) Cost() float64   { return 0 }

func (a *HashAgent) Run(_ context.Context, row *slot.Row, _ Budget) Result {
	if row.CurrentTitle == "" || row.CurrentCompany == "" {
		return failure("hash agent: title/company not yet enriched")
	}

	row.MovementHash = MovementHash(map[string]string{
		"company":         row.CompanyName,
		"person":          row.PersonName,
		"slot":            string(row.SlotType),
		"current_title":   row.CurrentTitle,
		"current_company": row.CurrentCompany,
		"as_of":           a.AsOf,
	})
	row.Touch()
	return Result{Success: true}
}

// MovementHash returns the SHA-256 of the normalized, key-sorted "k:v" pairs.
// Key order in the input map never affects the output.
func MovementHash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.TrimSpace(fields[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ToLower(strings.Join(strings.Fields(fields[k]), " "))
		parts = append(parts, k+":"+v)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// DetectMovement compares a stored prior hash against the current one. An
// empty prior hash means there is no baseline and reports no movement.
func DetectMovement(priorHash, currentHash string) bool {
	return priorHash != "" && currentHash != "" && priorHash != currentHash
}
