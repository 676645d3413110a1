// Package pipeline adapts slot rows to the CLI's CSV input/output surface.
package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slotpipe/slotpipe/pkg/agent"
	"github.com/slotpipe/slotpipe/pkg/redact"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// InputRow is one raw record from the input CSV.
type InputRow struct {
	Company    string
	SlotType   string
	PersonName string
	Domain     string
	PriorHash  string
}

// ToSlotRow converts an input record into a pending slot row.
func (in InputRow) ToSlotRow(costLimit float64) (*slot.Row, error) {
	if strings.TrimSpace(in.Company) == "" {
		return nil, fmt.Errorf("empty company")
	}
	slotType, ok := slot.ParseType(in.SlotType)
	if !ok {
		return nil, fmt.Errorf("unknown slot type %q", in.SlotType)
	}
	r := slot.NewRow(in.Company, slotType, in.PersonName, costLimit)
	r.CompanyDomain = strings.ToLower(strings.TrimSpace(in.Domain))
	r.PriorHash = strings.TrimSpace(in.PriorHash)
	return r, nil
}

// Row is the stable output schema contract.
type Row struct {
	CompanyInput   string
	Company        string
	SlotType       string
	PersonName     string
	MatchStatus    string
	MatchScore     string
	LinkedInURL    string
	Public         string
	EmailPattern   string
	Email          string
	Verification   string
	CurrentTitle   string
	CurrentCompany string
	MovementHash   string
	Moved          string
	Status         string
	Failures       string
	Cost           string
	Error          string
	Warning        string
}

// Header returns the stable CSV header for Row.
func Header() []string {
	return []string{
		"company_input",
		"company",
		"slot_type",
		"person_name",
		"match_status",
		"match_score",
		"linkedin_url",
		"public_accessible",
		"email_pattern",
		"email",
		"email_verification",
		"current_title",
		"current_company",
		"movement_hash",
		"moved",
		"status",
		"failures",
		"cost",
		"error",
		"warning",
	}
}

// FromSlotRow flattens a dispatched row into the output schema. Error strings
// pass through secret redaction before they reach the output.
func FromSlotRow(r *slot.Row) Row {
	status := "pending"
	switch {
	case r.Complete:
		status = "complete"
	case r.PermanentlyFailed:
		status = "failed"
	case r.MatchStatus == slot.MatchManualReview:
		status = "manual_review"
	case r.MatchStatus == slot.MatchUnmatched:
		status = "unmatched"
	}

	return Row{
		CompanyInput:   r.RawCompanyInput,
		Company:        r.CompanyName,
		SlotType:       string(r.SlotType),
		PersonName:     r.PersonName,
		MatchStatus:    string(r.MatchStatus),
		MatchScore:     formatScore(r.MatchScore),
		LinkedInURL:    r.LinkedInURL,
		Public:         formatTriState(r.PublicAccessible),
		EmailPattern:   r.EmailPattern,
		Email:          r.Email,
		Verification:   string(r.EmailVerification),
		CurrentTitle:   r.CurrentTitle,
		CurrentCompany: r.CurrentCompany,
		MovementHash:   r.MovementHash,
		Moved:          formatMoved(r),
		Status:         status,
		Failures:       strconv.Itoa(r.FailureCount),
		Cost:           strconv.FormatFloat(r.CostAccumulated, 'f', 2, 64),
		Error:          redact.Secrets(r.LastFailureReason),
		Warning:        r.Warning,
	}
}

func (r Row) record() []string {
	return []string{
		r.CompanyInput,
		r.Company,
		r.SlotType,
		r.PersonName,
		r.MatchStatus,
		r.MatchScore,
		r.LinkedInURL,
		r.Public,
		r.EmailPattern,
		r.Email,
		r.Verification,
		r.CurrentTitle,
		r.CurrentCompany,
		r.MovementHash,
		r.Moved,
		r.Status,
		r.Failures,
		r.Cost,
		r.Error,
		r.Warning,
	}
}

func formatScore(score float64) string {
	if score == 0 {
		return ""
	}
	return strconv.FormatFloat(score, 'f', 1, 64)
}

func formatTriState(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func formatMoved(r *slot.Row) string {
	if r.PriorHash == "" || r.MovementHash == "" {
		return ""
	}
	return strconv.FormatBool(agent.DetectMovement(r.PriorHash, r.MovementHash))
}
