package interviews

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/llm/llmtest"
	"github.com/jonathan/smart-intake/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedGuidance string

func (f fixedGuidance) StageGuidance(context.Context, string, string) string { return string(f) }

func testStage() types.Stage {
	return types.Stage{
		Name:             "Portfolio Review",
		Intent:           "Evaluate Design Craft",
		DurationMins:     60,
		Signals:          []string{"Design Craft", "Storytelling"},
		InterviewerHints: []string{"Design Lead"},
	}
}

func newGenerator(client llm.Client, guidance GuidanceSource) *Generator {
	g := New(client, guidance)
	g.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return g
}

func TestQuestions_Parsed(t *testing.T) {
	raw := "```json\n" + `[
	  {"question":"Walk me through a recent project.","type":"Behavioral","competency":"Design Craft","followUps":["What changed?"]},
	  {"question":"How would you test this flow?","type":"odd","followUps":null}
	]` + "\n```"
	client := llmtest.Returning(raw)
	g := newGenerator(client, fixedGuidance("ALWAYS USE STAR"))

	questions, err := g.Questions(context.Background(), testStage(), "Design")
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, "q_1700000000000_0", questions[0].ID)
	assert.Equal(t, types.QuestionBehavioral, questions[0].Type)
	assert.Equal(t, "q_1700000000000_1", questions[1].ID)
	assert.Equal(t, types.QuestionBehavioral, questions[1].Type)
	assert.Equal(t, "Design Craft", questions[1].Competency)
	assert.NotNil(t, questions[1].FollowUps)

	assert.Contains(t, client.LastPrompt(), "Stage: Portfolio Review")
	assert.Contains(t, client.LastPrompt(), "Suggested interviewers: Design Lead")
}

func TestQuestions_UsesGuidanceInSystemPrompt(t *testing.T) {
	var system string
	client := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, sys, _ string, _ llm.ModelTier) (string, error) {
			system = sys
			return `[{"question":"Q?"}]`, nil
		},
	}

	_, err := newGenerator(client, fixedGuidance("ALWAYS USE STAR")).Questions(context.Background(), testStage(), "")
	require.NoError(t, err)
	assert.Contains(t, system, "ALWAYS USE STAR")
}

func TestQuestions_Fallback(t *testing.T) {
	g := newGenerator(llmtest.Returning("no questions today"), nil)

	questions, err := g.Questions(context.Background(), testStage(), "Design")
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, "fallback_1_1700000000000", questions[0].ID)
	assert.Equal(t, "Tell me about a time when you demonstrated design craft in a challenging situation.", questions[0].Question)
	assert.Equal(t, "How do you approach evaluate design craft?", questions[1].Question)
	assert.Equal(t, types.QuestionSituational, questions[1].Type)
	assert.Equal(t, "Design Craft", questions[1].Competency)
}

func TestQuestions_Errors(t *testing.T) {
	g := newGenerator(llmtest.Failing(errors.New("boom")), nil)

	_, err := g.Questions(context.Background(), types.Stage{}, "")
	assert.ErrorIs(t, err, ErrStageRequired)

	_, err = g.Questions(context.Background(), testStage(), "")
	var unavailable *llm.UnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestRubric_Parsed(t *testing.T) {
	raw := `Sure! [{"criterion":"Craft","excellent":"a","good":"b","needs_improvement":"c","poor":"d"}]`
	client := llmtest.Returning(raw)

	rubric, err := newGenerator(client, nil).Rubric(context.Background(), testStage(), "Design", "Weight accessibility")
	require.NoError(t, err)
	require.Len(t, rubric, 1)
	assert.Equal(t, "c", rubric[0].NeedsImprovement)
	assert.Contains(t, client.LastPrompt(), "ADDITIONAL GUIDANCE: Weight accessibility")
}

func TestRubric_FallbackWhenLevelMissing(t *testing.T) {
	raw := `[{"criterion":"Craft","excellent":"a","good":"b","poor":"d"}]`

	rubric, err := newGenerator(llmtest.Returning(raw), nil).Rubric(context.Background(), testStage(), "", "")
	require.NoError(t, err)
	require.Len(t, rubric, 3)
	assert.Equal(t, "Design Craft", rubric[0].Criterion)
	assert.Equal(t, "Communication", rubric[1].Criterion)
	assert.Equal(t, "Problem-Solving Approach", rubric[2].Criterion)
}

func TestRubric_RequiresIntent(t *testing.T) {
	stage := testStage()
	stage.Intent = ""
	_, err := newGenerator(llmtest.Returning("[]"), nil).Rubric(context.Background(), stage, "", "")
	assert.ErrorIs(t, err, ErrStageIntentRequired)
}

func TestPresentationPrompt_WrappedAndBare(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"wrapped", `{"presentationPrompt":{"title":"Redesign onboarding","context":"Signups drop","deliverables":["Flow"]}}`},
		{"bare", `{"title":"Redesign onboarding","context":"Signups drop","deliverables":["Flow"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := newGenerator(llmtest.Returning(tt.raw), nil).PresentationPrompt(context.Background(), testStage(), "Design", "")
			require.NoError(t, err)
			assert.Equal(t, "Redesign onboarding", prompt.Title)
			assert.Equal(t, []string{"Flow"}, prompt.Deliverables)
		})
	}
}

func TestPresentationPrompt_ExistingPrompt(t *testing.T) {
	var system, user string
	client := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, sys, usr string, _ llm.ModelTier) (string, error) {
			system, user = sys, usr
			return "garbage", nil
		},
	}

	prompt, err := newGenerator(client, nil).PresentationPrompt(context.Background(), testStage(), "", "Old brief")
	require.NoError(t, err)
	assert.Contains(t, system, "EXISTING PROMPT TO IMPROVE/BUILD UPON:\nOld brief")
	assert.Contains(t, user, "improve and build upon")

	assert.Equal(t, "Role Case Study Presentation", prompt.Title)
	assert.Contains(t, prompt.Context, "relevant to this role.")
	assert.Len(t, prompt.Deliverables, 4)
	assert.Equal(t, "15 minutes presentation + 10 minutes Q&A", prompt.TimeLimit)
}

func TestFallbackPresentationPrompt_UsesFunction(t *testing.T) {
	prompt := FallbackPresentationPrompt("Product")
	assert.Equal(t, "Product Case Study Presentation", prompt.Title)
	assert.Contains(t, prompt.Context, "relevant to this Product.")
}
