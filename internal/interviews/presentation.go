package interviews

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/schemas"
	"github.com/jonathan/smart-intake/internal/types"
)

// PresentationPrompt designs a presentation exercise for a stage. When existing is
// set the generator is asked to improve it rather than start over.
func (g *Generator) PresentationPrompt(ctx context.Context, stage types.Stage, jobFunction, existing string) (*types.PresentationPrompt, error) {
	if strings.TrimSpace(stage.Name) == "" {
		return nil, ErrStageRequired
	}

	data := stageData(stage, jobFunction)
	if strings.TrimSpace(existing) != "" {
		data["ExistingPrompt"] = "EXISTING PROMPT TO IMPROVE/BUILD UPON:\n" + existing + "\n"
		data["Instruction"] = "Please improve and build upon the existing prompt provided."
	} else {
		data["ExistingPrompt"] = ""
		data["Instruction"] = "Create a new presentation prompt from scratch."
	}

	raw, err := g.generate(ctx, "presentation prompt generation", "presentation-system", "presentation-user", data)
	if err != nil {
		return nil, err
	}

	prompt, err := parsePresentation(raw)
	if err != nil {
		logFallback("presentation prompt", stage.Name, err)
		return FallbackPresentationPrompt(jobFunction), nil
	}
	return prompt, nil
}

// parsePresentation accepts the prompt either wrapped in a presentationPrompt key or bare
func parsePresentation(raw string) (*types.PresentationPrompt, error) {
	payload, err := llm.ExtractStructuredPayload(raw)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		PresentationPrompt json.RawMessage `json:"presentationPrompt"`
	}
	if err := json.Unmarshal(payload, &wrapper); err == nil && len(wrapper.PresentationPrompt) > 0 {
		payload = wrapper.PresentationPrompt
	}

	if err := schemas.Validate(schemas.PresentationPrompt, payload); err != nil {
		return nil, &llm.ParseError{Reason: "presentation prompt failed schema validation", Raw: raw, Cause: err}
	}

	var prompt types.PresentationPrompt
	if err := json.Unmarshal(payload, &prompt); err != nil {
		return nil, &llm.ParseError{Reason: "presentation prompt does not match expected shape", Raw: raw, Cause: err}
	}
	return &prompt, nil
}

// FallbackPresentationPrompt is a generic case study for the job function
func FallbackPresentationPrompt(jobFunction string) *types.PresentationPrompt {
	role := orDefault(jobFunction, "Role")
	subject := orDefault(jobFunction, "role")
	return &types.PresentationPrompt{
		Title: fmt.Sprintf("%s Case Study Presentation", role),
		Context: fmt.Sprintf("You've been brought in as a consultant to help solve a challenge relevant to this %s. "+
			"Prepare a presentation that demonstrates your approach and recommendations.", subject),
		Deliverables: []string{
			"Problem analysis and key insights",
			"Proposed solution with clear rationale",
			"Implementation plan with timeline",
			"Success metrics and evaluation criteria",
		},
		TimeLimit: "15 minutes presentation + 10 minutes Q&A",
		Format:    "Slides recommended (5-8 slides max), bring your own laptop",
		EvaluationCriteria: []string{
			"Clarity of thinking and communication",
			"Depth of analysis and insights",
			"Feasibility of proposed solutions",
			"Ability to handle questions and feedback",
		},
		CandidateGuidance: []string{
			"Focus on your thought process, not just conclusions",
			"Use specific examples where possible",
			"Be prepared to defend your recommendations",
			"Practice timing - stick to the time limit",
		},
	}
}
