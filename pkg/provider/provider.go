// Package provider defines the narrow request/response contracts the
// enrichment agents consume. Provider implementations wrap external data
// services (profile resolvers, person search, pattern lookup, verification);
// authentication, pagination, and transport are their concern, not ours.
package provider

import "context"

// ProfileQuery identifies the person whose public profile should be resolved.
// LinkedInURL, when already known, lets the provider read the profile
// directly instead of searching.
type ProfileQuery struct {
	CompanyName string
	PersonName  string
	SlotType    string
	LinkedInURL string
}

// ProfileResult is a resolved public profile.
type ProfileResult struct {
	LinkedInURL string
	Title       string
	Company     string
	Source      string
}

// ProfileResolver resolves a person to their public profile URL.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, q ProfileQuery) (ProfileResult, error)
}

// PersonQuery drives a broader person search, used as fallback when direct
// profile resolution finds nothing.
type PersonQuery struct {
	CompanyName string
	PersonName  string
	SlotType    string
}

// PersonResult is a person-search hit.
type PersonResult struct {
	LinkedInURL string
	Title       string
	Company     string
}

// PersonSearcher searches for a person across public sources.
type PersonSearcher interface {
	SearchPerson(ctx context.Context, q PersonQuery) (PersonResult, error)
}

// AccessQuery asks whether a known profile URL is publicly readable.
type AccessQuery struct {
	LinkedInURL string
}

// AccessResult reports profile accessibility.
type AccessResult struct {
	Accessible bool
}

// ProfileChecker checks public accessibility of an already-known profile.
type ProfileChecker interface {
	CheckAccess(ctx context.Context, q AccessQuery) (AccessResult, error)
}

// PatternQuery asks for a company's email address pattern.
type PatternQuery struct {
	Domain      string
	CompanyName string
}

// PatternResult carries a pattern template such as "{first}.{last}".
type PatternResult struct {
	Pattern string
	Domain  string
}

// PatternFinder discovers the email pattern for a company domain.
type PatternFinder interface {
	FindPattern(ctx context.Context, q PatternQuery) (PatternResult, error)
}

// EmailQuery asks for a specific person's email address.
type EmailQuery struct {
	PersonName  string
	CompanyName string
	Domain      string
}

// EmailResult is a discovered email address.
type EmailResult struct {
	Email string
}

// EmailFinder finds a person's email when no pattern-based generation is
// possible.
type EmailFinder interface {
	FindEmail(ctx context.Context, q EmailQuery) (EmailResult, error)
}

// VerifyResult reports deliverability of an email address.
type VerifyResult struct {
	Deliverable bool
	Status      string
}

// EmailVerifier verifies deliverability of a candidate email address.
type EmailVerifier interface {
	Verify(ctx context.Context, email string) (VerifyResult, error)
}

// TransientError marks a provider failure as retryable. Dispatch retry
// scheduling treats anything else from a provider as classification input.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
