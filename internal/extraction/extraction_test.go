package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requirementsJSON = `{
  "level": "Staff",
  "function": "Engineering",
  "mustHaves": ["Go", "Distributed systems"],
  "niceToHaves": ["Kubernetes"],
  "competencies": [{"name": "System Design", "rationale": "Owns architecture"}],
  "risks": ["Small candidate pool"]
}`

func TestAnalyzeJD_Parsed(t *testing.T) {
	var system string
	client := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, sys, _ string, _ llm.ModelTier) (string, error) {
			system = sys
			return "```json\n" + requirementsJSON + "\n```", nil
		},
	}

	res, err := New(client).AnalyzeJD(context.Background(), AnalyzeRequest{
		JobDescription: "We need a staff engineer.",
		HiringManager:  "Dana Park",
	})
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Equal(t, "Staff", res.Requirements.Level)
	assert.Equal(t, []string{"System Design"}, res.Requirements.Signals())
	assert.Contains(t, system, "Hiring manager: Dana Park")
	assert.Contains(t, system, "Department: Unknown")
	assert.Contains(t, client.LastPrompt(), "We need a staff engineer.")
}

func TestAnalyzeJD_NoHiringContext(t *testing.T) {
	var system string
	client := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, sys, _ string, _ llm.ModelTier) (string, error) {
			system = sys
			return requirementsJSON, nil
		},
	}

	_, err := New(client).AnalyzeJD(context.Background(), AnalyzeRequest{JobDescription: "JD"})
	require.NoError(t, err)
	assert.NotContains(t, system, "Hiring manager")
	assert.NotContains(t, system, "{{.")
}

func TestAnalyzeJD_Fallback(t *testing.T) {
	res, err := New(llmtest.Returning("I cannot help with that.")).AnalyzeJD(context.Background(), AnalyzeRequest{JobDescription: "JD"})
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Equal(t, "Senior", res.Requirements.Level)
	assert.Equal(t, "Engineering", res.Requirements.Function)
	assert.Len(t, res.Requirements.MustHaves, 3)
	assert.Equal(t, []string{"Technical Skills", "Collaboration"}, res.Requirements.Signals())
	assert.Equal(t, []string{FallbackRisk}, res.Requirements.Risks)
}

func TestAnalyzeJD_Errors(t *testing.T) {
	_, err := New(llmtest.Returning("{}")).AnalyzeJD(context.Background(), AnalyzeRequest{})
	assert.ErrorIs(t, err, ErrJobDescriptionRequired)

	_, err = New(llmtest.Failing(errors.New("503"))).AnalyzeJD(context.Background(), AnalyzeRequest{JobDescription: "JD"})
	var unavailable *llm.UnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestParseRequirements_NormalizesLists(t *testing.T) {
	reqs, err := ParseRequirements(`{"level":"Mid","competencies":[]}`)
	require.NoError(t, err)
	assert.NotNil(t, reqs.MustHaves)
	assert.NotNil(t, reqs.Risks)
}

func TestEnhanceJD(t *testing.T) {
	client := llmtest.Returning("  A better description.  ")

	out, err := New(client).EnhanceJD(context.Background(), EnhanceRequest{JobDescription: "Old", JobTitle: "Designer"})
	require.NoError(t, err)
	assert.Equal(t, "A better description.", out)
	assert.Contains(t, client.LastPrompt(), "Role: Designer")
	assert.Contains(t, client.LastPrompt(), "Department: Not specified")

	_, err = New(client).EnhanceJD(context.Background(), EnhanceRequest{})
	assert.ErrorIs(t, err, ErrJobDescriptionRequired)
}

func TestAssist_SectionPrompts(t *testing.T) {
	tests := []struct {
		section    string
		wantSystem string
	}{
		{"targetCompanies", "comma-separated list"},
		{"rolePitch", "pitch"},
		{"hiringTimeline", "the hiringTimeline section"},
	}

	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			var system string
			client := &llmtest.MockClient{
				GenerateContentFunc: func(_ context.Context, sys, _ string, _ llm.ModelTier) (string, error) {
					system = sys
					return "suggestion", nil
				},
			}

			out, err := New(client).Assist(context.Background(), AssistRequest{Section: tt.section, JobTitle: "PM", Company: "Acme"})
			require.NoError(t, err)
			assert.Equal(t, "suggestion", out)
			assert.Contains(t, system, tt.wantSystem)
			assert.Contains(t, client.LastPrompt(), "for a PM role at Acme.")
		})
	}
}

func TestAssist_RequiresSection(t *testing.T) {
	_, err := New(llmtest.Returning("x")).Assist(context.Background(), AssistRequest{})
	assert.ErrorIs(t, err, ErrSectionRequired)
}

func TestProcessDocuments(t *testing.T) {
	client := llmtest.Returning(`{"jobTitle":"Data Scientist","hiringManager":null,"level":"Mid","competencies":[{"name":"Statistics","rationale":"core"}]}`)
	docs := []Document{{FileName: "jd.txt", Text: "Role text"}, {FileName: "notes.md", Text: "Notes"}}

	res, err := New(client).ProcessDocuments(context.Background(), docs)
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Equal(t, "Data Scientist", res.Brief.JobTitle)
	assert.Equal(t, []string{"Statistics"}, res.Brief.Signals())
	assert.Equal(t, []string{"jd.txt", "notes.md"}, res.FilesProcessed)
	assert.Contains(t, client.LastPrompt(), "--- jd.txt ---\nRole text\n\n--- notes.md ---\nNotes")

	out, err := json.Marshal(res.Brief)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"jobTitle":"Data Scientist"`)
	assert.Contains(t, string(out), `"level":"Mid"`)
}

func TestProcessDocuments_Fallback(t *testing.T) {
	res, err := New(llmtest.Returning("nope")).ProcessDocuments(context.Background(), []Document{{FileName: "a.txt", Text: "A"}})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "--- a.txt ---\nA", res.Brief.JobDescription)

	_, err = New(llmtest.Returning("{}")).ProcessDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}
