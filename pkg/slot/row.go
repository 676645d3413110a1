package slot

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is one executive role tracked per company.
type Type string

const (
	TypeCEO      Type = "CEO"
	TypeCFO      Type = "CFO"
	TypeHR       Type = "HR"
	TypeBenefits Type = "BENEFITS"
)

// AllTypes lists the known slot types in canonical order.
func AllTypes() []Type {
	return []Type{TypeCEO, TypeCFO, TypeHR, TypeBenefits}
}

// ParseType normalizes a raw slot-type string. Unknown values return ok=false.
func ParseType(raw string) (Type, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CEO":
		return TypeCEO, true
	case "CFO":
		return TypeCFO, true
	case "HR":
		return TypeHR, true
	case "BENEFITS":
		return TypeBenefits, true
	default:
		return "", false
	}
}

// MatchStatus is the fuzzy-match lifecycle state of a row's company identity.
type MatchStatus string

const (
	MatchPending      MatchStatus = "PENDING"
	MatchMatched      MatchStatus = "MATCHED"
	MatchManualReview MatchStatus = "MANUAL_REVIEW"
	MatchUnmatched    MatchStatus = "UNMATCHED"
)

// MatchCandidate is one ranked canonical-name candidate from fuzzy matching.
type MatchCandidate struct {
	Name  string
	Score float64
}

// VerificationStatus records the outcome of email verification for a row.
type VerificationStatus string

const (
	// VerificationNone means verification has not been attempted yet.
	VerificationNone VerificationStatus = ""

	VerificationVerified VerificationStatus = "verified"
	VerificationInvalid  VerificationStatus = "invalid"

	// VerificationUnknown means no verifier was configured; the generated
	// email is kept rather than discarded.
	VerificationUnknown VerificationStatus = "unknown"
)

// Row is one (company, slot type) enrichment work item.
//
// Enrichment fields start empty and are filled one at a time by agents through
// the dispatcher. Rows are never deleted here; external storage owns
// persistence and archival.
type Row struct {
	ID              string
	CompanyID       string
	CompanyName     string // set only once fuzzy matching succeeds
	CompanyDomain   string
	RawCompanyInput string
	SlotType        Type
	PersonName      string

	MatchStatus     MatchStatus
	MatchScore      float64
	MatchCandidates []MatchCandidate

	LinkedInURL       string
	PublicAccessible  *bool
	EmailPattern      string
	Email             string
	EmailVerified     *bool
	EmailVerification VerificationStatus
	CurrentTitle      string
	CurrentCompany    string
	MovementHash      string

	// PriorHash is the movement hash from the previous enrichment run, if the
	// caller has one. Compared against MovementHash to detect job changes.
	PriorHash string

	FailureCount      int
	LastFailureReason string
	PermanentlyFailed bool

	CostAccumulated float64
	CostLimit       float64

	Complete    bool
	LastUpdated time.Time

	Warning string
}

// NewRow creates a pending row for a raw company input.
func NewRow(rawCompany string, slotType Type, personName string, costLimit float64) *Row {
	return &Row{
		ID:              uuid.NewString(),
		RawCompanyInput: strings.TrimSpace(rawCompany),
		SlotType:        slotType,
		PersonName:      strings.TrimSpace(personName),
		MatchStatus:     MatchPending,
		CostLimit:       costLimit,
		LastUpdated:     time.Now().UTC(),
	}
}

// Terminal reports whether the row can never be dispatched again.
func (r *Row) Terminal() bool {
	return r.Complete || r.PermanentlyFailed
}

// Matched reports whether the row's company identity has been resolved.
func (r *Row) Matched() bool {
	return r.MatchStatus == MatchMatched
}

// CostHeadroom reports whether spending amount would stay within the per-slot
// ceiling. A zero CostLimit means the row carries no per-slot ceiling.
func (r *Row) CostHeadroom(amount float64) bool {
	if r.CostLimit <= 0 {
		return true
	}
	return r.CostAccumulated+amount <= r.CostLimit
}

// AddCost accrues spend against the row. Callers must have checked
// CostHeadroom first; accumulated cost only ever grows.
func (r *Row) AddCost(amount float64) {
	if amount <= 0 {
		return
	}
	r.CostAccumulated += amount
	r.Touch()
}

// RecordFailure notes a provider or unknown failure against the row.
// Gate-blocked outcomes (kill switch, throttle, cost) must not be recorded.
func (r *Row) RecordFailure(reason string) {
	r.FailureCount++
	r.LastFailureReason = reason
	r.Touch()
}

// MarkPermanentlyFailed is terminal; no agent routing happens afterwards.
func (r *Row) MarkPermanentlyFailed(reason string) {
	r.PermanentlyFailed = true
	r.LastFailureReason = reason
	r.Touch()
}

// Touch bumps the last-updated timestamp.
func (r *Row) Touch() {
	r.LastUpdated = time.Now().UTC()
}

// BoolPtr is a convenience for the tri-state fields.
func BoolPtr(v bool) *bool {
	return &v
}
