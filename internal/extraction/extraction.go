// Package extraction turns job descriptions and hiring documents into structured
// requirements, and offers copywriting help for the intake brief.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/prompts"
	"github.com/jonathan/smart-intake/internal/schemas"
	"github.com/jonathan/smart-intake/internal/types"
)

var (
	// ErrJobDescriptionRequired is returned when no job description text is given
	ErrJobDescriptionRequired = errors.New("job description is required")
	// ErrSectionRequired is returned when assist is called without a section
	ErrSectionRequired = errors.New("section type is required")
	// ErrNoDocuments is returned when no documents are given for extraction
	ErrNoDocuments = errors.New("no documents provided")
)

// FallbackRisk marks requirements produced without a usable generation response
const FallbackRisk = "Could not parse AI response - using fallback data"

// Extractor wraps a text generation client
type Extractor struct {
	client llm.Client
}

// New creates an extractor
func New(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

// AnalyzeRequest is a job description with optional hiring context
type AnalyzeRequest struct {
	JobDescription string `json:"jobDescription" validate:"required"`
	HiringManager  string `json:"hiringManager,omitempty"`
	Department     string `json:"department,omitempty"`
}

// AnalyzeResult carries the extracted requirements
type AnalyzeResult struct {
	Requirements types.ExtractedRequirements `json:"requirements"`
	Fallback     bool                        `json:"fallback"`
}

// AnalyzeJD extracts level, function, requirements, competencies and risks
func (e *Extractor) AnalyzeJD(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, ErrJobDescriptionRequired
	}

	hiringContext := ""
	if req.HiringManager != "" {
		department := req.Department
		if department == "" {
			department = "Unknown"
		}
		var err error
		hiringContext, err = prompts.Render("extraction.json", "analyze-jd-hiring-context", map[string]string{
			"HiringManager": req.HiringManager,
			"Department":    department,
		})
		if err != nil {
			return nil, err
		}
	}

	system, err := prompts.Render("extraction.json", "analyze-jd-system", map[string]string{"HiringContext": hiringContext})
	if err != nil {
		return nil, err
	}
	user, err := prompts.Render("extraction.json", "analyze-jd-user", map[string]string{"JobDescription": req.JobDescription})
	if err != nil {
		return nil, err
	}

	raw, err := e.client.GenerateJSON(ctx, system, user, llm.TierStandard)
	if err != nil {
		return nil, &llm.UnavailableError{Operation: "job description analysis", Cause: err}
	}

	reqs, err := ParseRequirements(raw)
	if err != nil {
		log.Printf("[extraction] using fallback requirements: %v", err)
		return &AnalyzeResult{Requirements: FallbackRequirements(), Fallback: true}, nil
	}
	return &AnalyzeResult{Requirements: *reqs}, nil
}

// ParseRequirements extracts and validates requirements from raw generation output
func ParseRequirements(raw string) (*types.ExtractedRequirements, error) {
	payload, err := llm.ExtractStructuredPayload(raw)
	if err != nil {
		return nil, err
	}
	if err := schemas.Validate(schemas.ExtractedRequirements, payload); err != nil {
		return nil, &llm.ParseError{Reason: "requirements failed schema validation", Raw: raw, Cause: err}
	}

	var reqs types.ExtractedRequirements
	if err := json.Unmarshal(payload, &reqs); err != nil {
		return nil, &llm.ParseError{Reason: "payload does not match expected shape", Raw: raw, Cause: err}
	}
	normalize(&reqs)
	return &reqs, nil
}

// FallbackRequirements is returned when the generation response is unusable
func FallbackRequirements() types.ExtractedRequirements {
	return types.ExtractedRequirements{
		Level:       "Senior",
		Function:    "Engineering",
		MustHaves:   []string{"Technical expertise", "Communication skills", "Problem solving"},
		NiceToHaves: []string{"Leadership experience", "Domain knowledge"},
		Competencies: []types.Competency{
			{Name: "Technical Skills", Rationale: "Core requirement for the role"},
			{Name: "Collaboration", Rationale: "Need to work with teams"},
		},
		Risks: []string{FallbackRisk},
	}
}

// normalize replaces nil lists so the wire shape is stable
func normalize(r *types.ExtractedRequirements) {
	if r.MustHaves == nil {
		r.MustHaves = []string{}
	}
	if r.NiceToHaves == nil {
		r.NiceToHaves = []string{}
	}
	if r.Competencies == nil {
		r.Competencies = []types.Competency{}
	}
	if r.Risks == nil {
		r.Risks = []string{}
	}
}
