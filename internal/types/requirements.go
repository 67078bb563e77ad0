// Package types provides type definitions for structured data used throughout the intake pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Competency is a named signal the hiring team wants to evaluate, with the reason it matters
type Competency struct {
	Name      string `json:"name"`
	Rationale string `json:"rationale"`
}

// ExtractedRequirements represents the structured output of job description analysis.
// It is produced once by extraction and then freely edited by the user.
type ExtractedRequirements struct {
	Level        string       `json:"level"`
	Function     string       `json:"function"`
	MustHaves    []string     `json:"mustHaves"`
	NiceToHaves  []string     `json:"niceToHaves"`
	Competencies []Competency `json:"competencies"`
	Risks        []string     `json:"risks"`
}

// Signals returns the competency names in order, skipping blanks
func (r *ExtractedRequirements) Signals() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Competencies))
	for _, c := range r.Competencies {
		if c.Name != "" {
			out = append(out, c.Name)
		}
	}
	return out
}

// OrgSource identifies where an OrgContext came from
type OrgSource string

const (
	// OrgSourceLive marks data returned by the enterprise search integration
	OrgSourceLive OrgSource = "glean"
	// OrgSourceSynthetic marks data generated because no integration is configured
	OrgSourceSynthetic OrgSource = "synthetic"
	// OrgSourceFallback marks synthetic data generated after a live lookup failed
	OrgSourceFallback OrgSource = "fallback"
)

// OrgContext describes the hiring manager's organization.
// Team and CrossFunc entries are formatted as "Name - Title".
type OrgContext struct {
	Manager     string    `json:"manager"`
	Department  string    `json:"department"`
	Team        []string  `json:"team"`
	CrossFunc   []string  `json:"crossFunc"`
	Source      OrgSource `json:"source,omitempty"`
	LookupError string    `json:"lookupError,omitempty"`
}

// TemplateSource identifies the catalog a TemplateHit came from
type TemplateSource string

const (
	// SourceWikiTemplate is an interview guide page in the document wiki
	SourceWikiTemplate TemplateSource = "wiki-template"
	// SourceATSForm is a feedback form in the applicant tracking system
	SourceATSForm TemplateSource = "ats-form"
)

// TemplateHit is a scored match from one of the template catalogs
type TemplateHit struct {
	Source TemplateSource `json:"source"`
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Score  float64        `json:"score"`
	URL    string         `json:"url,omitempty"`
	Notes  string         `json:"notes,omitempty"`
}
