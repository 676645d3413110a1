package slot

// Item is one required enrichment piece on the checklist. Items double as the
// routing key for enrichment agents.
type Item string

const (
	ItemLinkedIn     Item = "linkedin"
	ItemPublicFlag   Item = "public_flag"
	ItemPattern      Item = "pattern"
	ItemEmail        Item = "email"
	ItemTitleCompany Item = "title_company"
	ItemHash         Item = "hash"
)

// Priority is the fixed routing order. It encodes the dependency chain: email
// generation benefits from a known pattern, and title/company lookup benefits
// from a resolved LinkedIn URL, so earlier items are always filled first.
func Priority() []Item {
	return []Item{
		ItemLinkedIn,
		ItemPublicFlag,
		ItemPattern,
		ItemEmail,
		ItemTitleCompany,
		ItemHash,
	}
}

// Checklist reports which enrichment pieces a row is still missing.
type Checklist struct {
	MissingLinkedIn     bool
	MissingPublicFlag   bool
	MissingPattern      bool
	MissingEmail        bool
	MissingTitleCompany bool
	MissingHash         bool

	// Ready is true when nothing is missing and the row is neither blocked by
	// an unresolved company match nor permanently failed.
	Ready bool
}

// Evaluate inspects a row and returns its checklist. Pure; no side effects.
func Evaluate(r *Row) Checklist {
	c := Checklist{
		MissingLinkedIn:     r.LinkedInURL == "",
		MissingPublicFlag:   r.PublicAccessible == nil,
		MissingPattern:      r.EmailPattern == "",
		MissingEmail:        r.Email == "" || r.EmailVerification == VerificationNone,
		MissingTitleCompany: r.CurrentTitle == "" || r.CurrentCompany == "",
		MissingHash:         r.MovementHash == "",
	}
	c.Ready = c.MissingCount() == 0 && r.Matched() && !r.PermanentlyFailed
	return c
}

// MissingCount returns how many checklist items are still missing.
func (c Checklist) MissingCount() int {
	n := 0
	for _, item := range Priority() {
		if c.missing(item) {
			n++
		}
	}
	return n
}

// Next returns the highest-priority missing item.
func (c Checklist) Next() (Item, bool) {
	for _, item := range Priority() {
		if c.missing(item) {
			return item, true
		}
	}
	return "", false
}

func (c Checklist) missing(item Item) bool {
	switch item {
	case ItemLinkedIn:
		return c.MissingLinkedIn
	case ItemPublicFlag:
		return c.MissingPublicFlag
	case ItemPattern:
		return c.MissingPattern
	case ItemEmail:
		return c.MissingEmail
	case ItemTitleCompany:
		return c.MissingTitleCompany
	case ItemHash:
		return c.MissingHash
	default:
		return false
	}
}
