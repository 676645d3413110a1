package slot

// CompanyState is the derived company-level view across all rows for one
// company. Recomputed on demand; never stored.
type CompanyState struct {
	CompanyID   string
	CompanyName string

	MissingSlots    []Type
	FilledSlots     []Type
	InProgressSlots []Type
	FailedSlots     []Type

	FullyStaffed bool
}

// ComputeCompanyState aggregates rows into the company-level view. mandatory
// is the set of slot types the company is expected to staff.
func ComputeCompanyState(companyID, companyName string, rows []*Row, mandatory []Type) CompanyState {
	st := CompanyState{CompanyID: companyID, CompanyName: companyName}

	represented := make(map[Type]bool, len(rows))
	for _, r := range rows {
		represented[r.SlotType] = true
		switch {
		case r.Complete:
			st.FilledSlots = append(st.FilledSlots, r.SlotType)
		case r.PermanentlyFailed:
			st.FailedSlots = append(st.FailedSlots, r.SlotType)
		default:
			st.InProgressSlots = append(st.InProgressSlots, r.SlotType)
		}
	}

	for _, t := range mandatory {
		if !represented[t] {
			st.MissingSlots = append(st.MissingSlots, t)
		}
	}

	st.FullyStaffed = len(st.MissingSlots) == 0 && len(st.InProgressSlots) == 0 && len(st.FailedSlots) == 0 && len(st.FilledSlots) > 0
	return st
}

// PlanMissingSlots decides which placeholder rows a company still needs.
//
// Placeholders inherit the already-resolved company identity, so they are
// created pre-matched and seed the next dispatch pass. Returns nil when the
// company is fully staffed or every mandatory slot has permanently failed.
// Callers must serialize invocations per company to avoid duplicate creation.
func PlanMissingSlots(companyID, companyName string, rows []*Row, mandatory []Type, costLimit float64) []*Row {
	if companyName == "" || len(mandatory) == 0 {
		return nil
	}

	st := ComputeCompanyState(companyID, companyName, rows, mandatory)
	if st.FullyStaffed || len(st.MissingSlots) == 0 {
		return nil
	}
	if allMandatoryFailed(rows, mandatory) {
		return nil
	}

	out := make([]*Row, 0, len(st.MissingSlots))
	for _, t := range st.MissingSlots {
		r := NewRow(companyName, t, "", costLimit)
		r.CompanyID = companyID
		r.CompanyName = companyName
		r.MatchStatus = MatchMatched
		r.MatchScore = 100
		out = append(out, r)
	}
	return out
}

func allMandatoryFailed(rows []*Row, mandatory []Type) bool {
	failed := make(map[Type]bool)
	present := make(map[Type]bool)
	for _, r := range rows {
		present[r.SlotType] = true
		if r.PermanentlyFailed {
			failed[r.SlotType] = true
		}
	}
	for _, t := range mandatory {
		if !present[t] || !failed[t] {
			return false
		}
	}
	return true
}
