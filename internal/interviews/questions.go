package interviews

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/smart-intake/internal/confluence"
	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/schemas"
	"github.com/jonathan/smart-intake/internal/types"
)

// Questions writes interview questions for a stage
func (g *Generator) Questions(ctx context.Context, stage types.Stage, jobFunction string) ([]types.Question, error) {
	if strings.TrimSpace(stage.Name) == "" {
		return nil, ErrStageRequired
	}

	data := stageData(stage, jobFunction)
	data["BestPractices"] = confluence.DefaultGuidance
	if g.guidance != nil {
		if text := g.guidance.StageGuidance(ctx, stage.Name, jobFunction); text != "" {
			data["BestPractices"] = text
		}
	}

	raw, err := g.generate(ctx, "question generation", "questions-system", "questions-user", data)
	if err != nil {
		return nil, err
	}

	questions, err := g.parseQuestions(raw, stage)
	if err != nil {
		logFallback("questions", stage.Name, err)
		return g.FallbackQuestions(stage), nil
	}
	return questions, nil
}

func (g *Generator) parseQuestions(raw string, stage types.Stage) ([]types.Question, error) {
	payload, err := validated(raw, schemas.Questions, true)
	if err != nil {
		return nil, err
	}

	var questions []types.Question
	if err := json.Unmarshal(payload, &questions); err != nil {
		return nil, &llm.ParseError{Reason: "questions do not match expected shape", Raw: raw, Cause: err}
	}
	if len(questions) == 0 {
		return nil, &llm.ParseError{Reason: "no questions returned", Raw: raw}
	}

	suffix := idSuffix(g.now())
	for i := range questions {
		q := &questions[i]
		q.ID = fmt.Sprintf("q_%s_%d", suffix, i)
		q.Type = types.QuestionType(strings.ToLower(string(q.Type)))
		if !q.Type.Valid() {
			q.Type = types.QuestionBehavioral
		}
		if q.Competency == "" {
			q.Competency = primarySignal(stage, "General")
		}
		if q.FollowUps == nil {
			q.FollowUps = []string{}
		}
	}
	return questions, nil
}

// FallbackQuestions returns two generic questions built from the stage's first signal and intent
func (g *Generator) FallbackQuestions(stage types.Stage) []types.Question {
	competency := primarySignal(stage, "General")
	intent := strings.ToLower(orDefault(stage.Intent, "this kind of work"))
	suffix := idSuffix(g.now())

	return []types.Question{
		{
			ID:         "fallback_1_" + suffix,
			Question:   fmt.Sprintf("Tell me about a time when you demonstrated %s in a challenging situation.", strings.ToLower(competency)),
			Type:       types.QuestionBehavioral,
			Competency: competency,
			FollowUps:  []string{"What was the outcome?", "What would you do differently?"},
			Rationale:  "Uses behavioral interviewing to assess past performance",
		},
		{
			ID:         "fallback_2_" + suffix,
			Question:   fmt.Sprintf("How do you approach %s?", intent),
			Type:       types.QuestionSituational,
			Competency: competency,
			FollowUps:  []string{"Can you give me a specific example?", "How do you measure success in this area?"},
			Rationale:  "Assesses approach and methodology",
		},
	}
}
