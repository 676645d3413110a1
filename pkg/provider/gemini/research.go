// Package gemini implements the provider contracts with web-search-grounded
// Gemini calls. It is the bundled research provider; commercial lookup APIs
// plug in behind the same contracts.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/slotpipe/slotpipe/pkg/provider"
	"google.golang.org/genai"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// Researcher answers profile, person-search, pattern, email, and
// accessibility queries through structured-JSON Gemini calls.
type Researcher struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Researcher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Researcher{client: client, model: strings.TrimSpace(cfg.Model)}, nil
}

var profileSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"linkedin_url": {Type: genai.TypeString},
		"title":        {Type: genai.TypeString},
		"company":      {Type: genai.TypeString},
	},
	Required: []string{"linkedin_url", "title", "company"},
}

type profileJSON struct {
	LinkedInURL string `json:"linkedin_url"`
	Title       string `json:"title"`
	Company     string `json:"company"`
}

// ResolveProfile looks up the public profile for a named person, or for the
// holder of the given role when no person name is known.
func (r *Researcher) ResolveProfile(ctx context.Context, q provider.ProfileQuery) (provider.ProfileResult, error) {
	source := "web search"
	known := ""
	if strings.TrimSpace(q.LinkedInURL) != "" {
		source = "URL context on the known profile, plus web search"
		known = "\nKnown profile URL: " + strings.TrimSpace(q.LinkedInURL)
	}
	prompt := strings.TrimSpace(fmt.Sprintf(`
You are a contact research tool. Use %s to find the public LinkedIn profile, current title, and current company for this person.

Company: %s
Person: %s
Role: %s%s

Return ONLY a JSON object with keys linkedin_url, title, company.
If you cannot find a field, set it to an empty string. Only return a
linkedin_url you actually found; never guess or construct one.
`, source, q.CompanyName, orUnknown(q.PersonName), orUnknown(q.SlotType), known))

	var parsed profileJSON
	if err := r.generate(ctx, prompt, profileSchema, &parsed); err != nil {
		return provider.ProfileResult{}, err
	}
	return provider.ProfileResult{
		LinkedInURL: strings.TrimSpace(parsed.LinkedInURL),
		Title:       strings.TrimSpace(parsed.Title),
		Company:     strings.TrimSpace(parsed.Company),
		Source:      r.model,
	}, nil
}

// SearchPerson is the broader fallback search over public sources.
func (r *Researcher) SearchPerson(ctx context.Context, q provider.PersonQuery) (provider.PersonResult, error) {
	prompt := strings.TrimSpace(fmt.Sprintf(`
You are a contact research tool. Use web search to identify who currently holds this role, and their public LinkedIn profile if any.

Company: %s
Role: %s
Known person name (may be empty): %s

Return ONLY a JSON object with keys linkedin_url, title, company.
If you cannot find a field, set it to an empty string.
`, q.CompanyName, orUnknown(q.SlotType), q.PersonName))

	var parsed profileJSON
	if err := r.generate(ctx, prompt, profileSchema, &parsed); err != nil {
		return provider.PersonResult{}, err
	}
	return provider.PersonResult{
		LinkedInURL: strings.TrimSpace(parsed.LinkedInURL),
		Title:       strings.TrimSpace(parsed.Title),
		Company:     strings.TrimSpace(parsed.Company),
	}, nil
}

var accessSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"accessible": {Type: genai.TypeBoolean},
	},
	Required: []string{"accessible"},
}

// CheckAccess reports whether a profile URL is publicly readable.
func (r *Researcher) CheckAccess(ctx context.Context, q provider.AccessQuery) (provider.AccessResult, error) {
	prompt := strings.TrimSpace(fmt.Sprintf(`
Use URL context to check whether this profile page is publicly readable without signing in: %s

Return ONLY a JSON object with key accessible (boolean).
`, q.LinkedInURL))

	var parsed struct {
		Accessible bool `json:"accessible"`
	}
	if err := r.generate(ctx, prompt, accessSchema, &parsed); err != nil {
		return provider.AccessResult{}, err
	}
	return provider.AccessResult{Accessible: parsed.Accessible}, nil
}

var patternSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"pattern": {Type: genai.TypeString},
		"domain":  {Type: genai.TypeString},
	},
	Required: []string{"pattern", "domain"},
}

// FindPattern discovers a company's email address pattern.
func (r *Researcher) FindPattern(ctx context.Context, q provider.PatternQuery) (provider.PatternResult, error) {
	prompt := strings.TrimSpace(fmt.Sprintf(`
You are a contact research tool. Use web search to find the corporate email address pattern for this company.

Company: %s
Domain (may be empty): %s

Return ONLY a JSON object with keys pattern and domain. Express the pattern
with placeholders {first}, {last}, {f}, {l}, e.g. "{first}.{last}" or "{f}{last}".
If you cannot determine the pattern, set it to an empty string.
`, q.CompanyName, q.Domain))

	var parsed struct {
		Pattern string `json:"pattern"`
		Domain  string `json:"domain"`
	}
	if err := r.generate(ctx, prompt, patternSchema, &parsed); err != nil {
		return provider.PatternResult{}, err
	}
	return provider.PatternResult{
		Pattern: strings.TrimSpace(parsed.Pattern),
		Domain:  strings.ToLower(strings.TrimSpace(parsed.Domain)),
	}, nil
}

var emailSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"email": {Type: genai.TypeString},
	},
	Required: []string{"email"},
}

// FindEmail finds a person's work email when pattern generation is not
// possible.
func (r *Researcher) FindEmail(ctx context.Context, q provider.EmailQuery) (provider.EmailResult, error) {
	prompt := strings.TrimSpace(fmt.Sprintf(`
You are a contact research tool. Use web search to find the work email address for this person.

Person: %s
Company: %s
Domain (may be empty): %s

Return ONLY a JSON object with key email. Only return an address you actually
found published somewhere; if none, set it to an empty string.
`, q.PersonName, q.CompanyName, q.Domain))

	var parsed struct {
		Email string `json:"email"`
	}
	if err := r.generate(ctx, prompt, emailSchema, &parsed); err != nil {
		return provider.EmailResult{}, err
	}
	return provider.EmailResult{Email: strings.ToLower(strings.TrimSpace(parsed.Email))}, nil
}

func (r *Researcher) generate(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	resp, err := r.client.Models.GenerateContent(
		ctx,
		r.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
				{URLContext: &genai.URLContext{}},
			},
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	)
	if err != nil {
		return classifyErr(err)
	}
	if err := json.Unmarshal([]byte(resp.Text()), out); err != nil {
		return fmt.Errorf("gemini: parse structured json: %w", err)
	}
	return nil
}

func classifyErr(err error) error {
	// Wrap transient failures so dispatch retry scheduling backs off instead
	// of blocking the row.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &provider.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return &provider.TransientError{Err: err}
	}
	return err
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
