// Package synthesis drafts an interview loop from competencies and org context
// using the text generation service, with a fixed fallback when the output
// cannot be parsed.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/prompts"
	"github.com/jonathan/smart-intake/internal/schemas"
	"github.com/jonathan/smart-intake/internal/types"
)

// Loop length guidance given to the generator. Plans outside it are accepted with a warning.
const (
	MinBudgetMins = 180
	MaxBudgetMins = 300
)

// FallbackRisk is attached to the fallback plan
const FallbackRisk = "AI parsing failed - using fallback plan. Please retry or manually create interview stages."

// Result is a synthesized loop plus any advisory notes
type Result struct {
	Plan          types.LoopPlan `json:"plan"`
	BudgetWarning string         `json:"budgetWarning,omitempty"`
	Fallback      bool           `json:"fallback"`
}

// Synthesizer drafts loops with a text generation client
type Synthesizer struct {
	client llm.Client
	tier   llm.ModelTier
}

// New creates a synthesizer
func New(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client, tier: llm.TierAdvanced}
}

// Synthesize drafts a loop. It only returns an error when the generator itself
// fails; unparseable output yields the fallback plan.
func (s *Synthesizer) Synthesize(ctx context.Context, competencies []types.Competency, org types.OrgContext, functionHint string) (*Result, error) {
	system, err := prompts.Get("synthesis.json", "loop-system")
	if err != nil {
		return nil, err
	}
	user, err := prompts.Render("synthesis.json", "loop-user", map[string]string{
		"Function":     orDefault(functionHint, "General"),
		"Competencies": formatCompetencies(competencies),
		"Manager":      orDefault(org.Manager, "Unknown"),
		"Team":         joinOrNone(org.Team),
		"CrossFunc":    joinOrNone(org.CrossFunc),
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GenerateJSON(ctx, system, user, s.tier)
	if err != nil {
		return nil, &llm.UnavailableError{Operation: "loop synthesis", Cause: err}
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		log.Printf("[synthesis] using fallback plan: %v", err)
		return &Result{Plan: FallbackPlan(), Fallback: true}, nil
	}

	return &Result{Plan: *plan, BudgetWarning: BudgetWarning(plan.TotalMins)}, nil
}

// ParsePlan extracts and validates a loop plan from raw generator output.
// Stage ids are assigned and totalMins is recomputed from the stages.
func ParsePlan(raw string) (*types.LoopPlan, error) {
	payload, err := llm.ExtractStructuredPayload(raw)
	if err != nil {
		return nil, err
	}
	if err := schemas.Validate(schemas.LoopPlan, payload); err != nil {
		return nil, &llm.ParseError{Reason: "loop plan failed schema validation", Raw: raw, Cause: err}
	}

	var plan types.LoopPlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return nil, &llm.ParseError{Reason: "payload does not match expected shape", Raw: raw, Cause: err}
	}

	for i := range plan.Stages {
		if plan.Stages[i].ID == "" {
			plan.Stages[i].ID = uuid.New().String()
		}
	}
	if plan.Risks == nil {
		plan.Risks = []string{}
	}
	plan.TotalMins = plan.SumDurations()
	return &plan, nil
}

// FallbackPlan is the two-stage plan returned when generation output is unusable
func FallbackPlan() types.LoopPlan {
	plan := types.LoopPlan{
		Stages: []types.Stage{
			{
				ID:               uuid.New().String(),
				Name:             "Recruiter Screen",
				Intent:           "Initial assessment and role alignment",
				DurationMins:     30,
				Signals:          []string{"Communication", "Motivation"},
				InterviewerHints: []string{"Recruiting Team"},
			},
			{
				ID:               uuid.New().String(),
				Name:             "Hiring Manager Interview",
				Intent:           "Role-specific evaluation",
				DurationMins:     45,
				Signals:          []string{"Technical Skills", "Experience"},
				InterviewerHints: []string{"Hiring Manager"},
			},
		},
		Risks: []string{FallbackRisk},
	}
	plan.TotalMins = plan.SumDurations()
	return plan
}

// BudgetWarning describes a total outside the recommended range, or returns ""
func BudgetWarning(totalMins int) string {
	switch {
	case totalMins > MaxBudgetMins:
		return fmt.Sprintf("Total interview time of %d minutes exceeds the recommended %d minutes", totalMins, MaxBudgetMins)
	case totalMins < MinBudgetMins:
		return fmt.Sprintf("Total interview time of %d minutes is below the recommended %d minutes", totalMins, MinBudgetMins)
	}
	return ""
}

func formatCompetencies(competencies []types.Competency) string {
	if len(competencies) == 0 {
		return "None specified"
	}
	parts := make([]string, 0, len(competencies))
	for _, c := range competencies {
		if c.Rationale != "" {
			parts = append(parts, c.Name+": "+c.Rationale)
		} else {
			parts = append(parts, c.Name)
		}
	}
	return strings.Join(parts, "; ")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
