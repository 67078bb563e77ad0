package extraction

import (
	"context"
	"strings"

	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/prompts"
)

// EnhanceRequest is a job description to rewrite
type EnhanceRequest struct {
	JobDescription string `json:"jobDescription" validate:"required"`
	JobTitle       string `json:"jobTitle,omitempty"`
	Department     string `json:"department,omitempty"`
}

// EnhanceJD rewrites a job description to be clearer and more compelling
func (e *Extractor) EnhanceJD(ctx context.Context, req EnhanceRequest) (string, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return "", ErrJobDescriptionRequired
	}

	system, err := prompts.Get("extraction.json", "enhance-jd-system")
	if err != nil {
		return "", err
	}
	user, err := prompts.Render("extraction.json", "enhance-jd-user", map[string]string{
		"JobTitle":       orDefault(req.JobTitle, "Not specified"),
		"Department":     orDefault(req.Department, "Not specified"),
		"JobDescription": req.JobDescription,
	})
	if err != nil {
		return "", err
	}

	text, err := e.client.GenerateContent(ctx, system, user, llm.TierStandard)
	if err != nil {
		return "", &llm.UnavailableError{Operation: "job description enhancement", Cause: err}
	}
	return strings.TrimSpace(text), nil
}

// AssistSections lists the sections with a dedicated instruction
var AssistSections = []string{"idealCandidate", "objectives", "targetCompanies", "rolePitch"}

// AssistRequest asks for suggestions on one section of the brief
type AssistRequest struct {
	Section  string `json:"section" validate:"required"`
	Context  string `json:"context,omitempty"`
	JobTitle string `json:"jobTitle,omitempty"`
	Company  string `json:"company,omitempty"`
}

// Assist drafts suggestions for a section of the intake brief
func (e *Extractor) Assist(ctx context.Context, req AssistRequest) (string, error) {
	if strings.TrimSpace(req.Section) == "" {
		return "", ErrSectionRequired
	}

	system, err := prompts.Get("extraction.json", "assist-"+req.Section)
	if err != nil {
		system, err = prompts.Render("extraction.json", "assist-default", map[string]string{"Section": req.Section})
		if err != nil {
			return "", err
		}
	}

	companySuffix := ""
	if req.Company != "" {
		companySuffix = " at " + req.Company
	}
	user, err := prompts.Render("extraction.json", "assist-user", map[string]string{
		"Section":       req.Section,
		"JobTitle":      orDefault(req.JobTitle, "this"),
		"CompanySuffix": companySuffix,
		"Context":       orDefault(req.Context, "None provided"),
	})
	if err != nil {
		return "", err
	}

	text, err := e.client.GenerateContent(ctx, system, user, llm.TierLite)
	if err != nil {
		return "", &llm.UnavailableError{Operation: "section assist", Cause: err}
	}
	return strings.TrimSpace(text), nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
