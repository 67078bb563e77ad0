package interviews

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/schemas"
	"github.com/jonathan/smart-intake/internal/types"
)

// Rubric writes evaluation criteria for a stage. customPrompt is appended as extra guidance.
func (g *Generator) Rubric(ctx context.Context, stage types.Stage, jobFunction, customPrompt string) ([]types.RubricCriterion, error) {
	if strings.TrimSpace(stage.Name) == "" {
		return nil, ErrStageRequired
	}
	if strings.TrimSpace(stage.Intent) == "" {
		return nil, ErrStageIntentRequired
	}

	data := stageData(stage, jobFunction)
	data["CustomGuidance"] = ""
	if strings.TrimSpace(customPrompt) != "" {
		data["CustomGuidance"] = "\n\nADDITIONAL GUIDANCE: " + customPrompt
	}

	raw, err := g.generate(ctx, "rubric generation", "rubric-system", "rubric-user", data)
	if err != nil {
		return nil, err
	}

	rubric, err := parseRubric(raw)
	if err != nil {
		logFallback("rubric", stage.Name, err)
		return FallbackRubric(stage), nil
	}
	return rubric, nil
}

func parseRubric(raw string) ([]types.RubricCriterion, error) {
	payload, err := validated(raw, schemas.Rubric, true)
	if err != nil {
		return nil, err
	}
	var rubric []types.RubricCriterion
	if err := json.Unmarshal(payload, &rubric); err != nil {
		return nil, &llm.ParseError{Reason: "rubric does not match expected shape", Raw: raw, Cause: err}
	}
	return rubric, nil
}

// FallbackRubric covers the stage's first signal plus communication and problem solving
func FallbackRubric(stage types.Stage) []types.RubricCriterion {
	return []types.RubricCriterion{
		{
			Criterion:        primarySignal(stage, "General Performance"),
			Excellent:        "Demonstrates exceptional capability with specific examples and clear impact",
			Good:             "Shows solid competency with relevant examples and positive outcomes",
			NeedsImprovement: "Shows basic understanding but examples lack depth or clarity",
			Poor:             "Unable to demonstrate competency or provides irrelevant examples",
		},
		{
			Criterion:        "Communication",
			Excellent:        "Articulates thoughts clearly, listens actively, asks thoughtful questions",
			Good:             "Communicates effectively with minor areas for improvement",
			NeedsImprovement: "Communication is unclear or one-directional",
			Poor:             "Significant communication barriers or unprofessional demeanor",
		},
		{
			Criterion:        "Problem-Solving Approach",
			Excellent:        "Demonstrates structured thinking, considers multiple approaches, shows adaptability",
			Good:             "Uses logical approach with some structure and consideration of alternatives",
			NeedsImprovement: "Basic problem-solving approach with limited structure or creativity",
			Poor:             "Disorganized thinking or inability to work through problems systematically",
		},
	}
}
