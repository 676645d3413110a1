package agent

import (
	"context"

	"github.com/slotpipe/slotpipe/pkg/provider"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// PublicScanner fills the public-accessibility flag for a resolved profile.
// It delegates to the profile checker and makes no independent paid lookup,
// so it carries no cost.
type PublicScanner struct {
	Checker provider.ProfileChecker
}

func (a *PublicScanner) Type() slot.Item { return slot.ItemPublicFlag }
func (a *PublicScanner) Cost() float64   { return 0 }

func (a *PublicScanner) Run(ctx context.Context, row *slot.Row, _ Budget) Result {
	if row.LinkedInURL == "" {
		return failure("public scanner: no linkedin url on row")
	}

	if a.Checker == nil {
		// Degrade instead of blocking the slot: assume private and flag it.
		row.PublicAccessible = slot.BoolPtr(false)
		row.Warning = "accessibility check skipped: no profile checker configured"
		row.Touch()
		return Result{Success: true, Warning: row.Warning}
	}

	access, err := a.Checker.CheckAccess(ctx, provider.AccessQuery{LinkedInURL: row.LinkedInURL})
	if err != nil {
		return failure(err.Error())
	}
	row.PublicAccessible = slot.BoolPtr(access.Accessible)
	row.Touch()
	return Result{Success: true}
}
