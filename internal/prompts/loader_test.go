package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("synthesis.json", "loop-system")
	require.NoError(t, err)
	assert.Contains(t, prompt, `"durationMins"`)
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("interviews.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestFormat(t *testing.T) {
	template := "Stage {{.StageName}} for {{.JobFunction}}"
	result := Format(template, map[string]string{
		"StageName":   "Craft Review",
		"JobFunction": "Design",
	})
	assert.Equal(t, "Stage Craft Review for Design", result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	assert.Equal(t, template, Format(template, map[string]string{}))
}

func TestRender(t *testing.T) {
	ClearCache()

	out, err := Render("synthesis.json", "loop-user", map[string]string{
		"Function":     "Engineering",
		"Competencies": "Ownership: leads projects",
		"Manager":      "Sam Lee",
		"Team":         "Alex Chen - Lead",
		"CrossFunc":    "None",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Function: Engineering")
	assert.NotContains(t, out, "{{.")
}

func TestEveryPromptFileParses(t *testing.T) {
	ClearCache()

	for _, file := range []string{"extraction.json", "synthesis.json", "interviews.json"} {
		t.Run(file, func(t *testing.T) {
			keys, err := List(file)
			require.NoError(t, err)
			assert.NotEmpty(t, keys)
		})
	}
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("interviews.json")
	require.NoError(t, err)
	assert.Contains(t, keys, "rubric-system")
	assert.Contains(t, keys, "presentation-user")
}
