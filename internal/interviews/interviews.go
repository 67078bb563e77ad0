// Package interviews generates per-stage enrichments: interview questions,
// evaluation rubrics and presentation exercises. Each generator falls back to
// fixed content when the generation output cannot be parsed.
package interviews

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/prompts"
	"github.com/jonathan/smart-intake/internal/schemas"
	"github.com/jonathan/smart-intake/internal/types"
)

var (
	// ErrStageRequired is returned when the stage has no name
	ErrStageRequired = errors.New("stage information is required")
	// ErrStageIntentRequired is returned when a rubric is requested for a stage without an intent
	ErrStageIntentRequired = errors.New("stage intent is required")
)

// GuidanceSource supplies company interviewing practices for a stage
type GuidanceSource interface {
	StageGuidance(ctx context.Context, stageName, jobFunction string) string
}

// Generator produces stage enrichments with a text generation client
type Generator struct {
	client   llm.Client
	guidance GuidanceSource
	now      func() time.Time
}

// New creates a generator. guidance may be nil.
func New(client llm.Client, guidance GuidanceSource) *Generator {
	return &Generator{client: client, guidance: guidance, now: time.Now}
}

// stageData is the placeholder set shared by every stage prompt
func stageData(stage types.Stage, jobFunction string) map[string]string {
	return map[string]string{
		"StageName":    stage.Name,
		"Intent":       stage.Intent,
		"Duration":     strconv.Itoa(stage.DurationMins),
		"JobFunction":  orDefault(jobFunction, "General"),
		"Signals":      strings.Join(stage.Signals, ", "),
		"Interviewers": orDefault(strings.Join(stage.InterviewerHints, ", "), "TBD"),
	}
}

func (g *Generator) generate(ctx context.Context, operation, systemKey, userKey string, data map[string]string) (string, error) {
	system, err := prompts.Render("interviews.json", systemKey, data)
	if err != nil {
		return "", err
	}
	user, err := prompts.Render("interviews.json", userKey, data)
	if err != nil {
		return "", err
	}

	raw, err := g.client.GenerateJSON(ctx, system, user, llm.TierStandard)
	if err != nil {
		return "", &llm.UnavailableError{Operation: operation, Cause: err}
	}
	return raw, nil
}

// validated extracts the payload of raw and checks it against schema
func validated(raw, schema string, array bool) ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	if array {
		payload, err = llm.ExtractArrayPayload(raw)
	} else {
		payload, err = llm.ExtractStructuredPayload(raw)
	}
	if err != nil {
		return nil, err
	}
	if err := schemas.Validate(schema, payload); err != nil {
		return nil, &llm.ParseError{Reason: schema + " failed schema validation", Raw: raw, Cause: err}
	}
	return payload, nil
}

func logFallback(kind, stage string, err error) {
	log.Printf("[interviews] %s for %q fell back to defaults: %v", kind, stage, err)
}

func primarySignal(stage types.Stage, def string) string {
	for _, s := range stage.Signals {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return def
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func idSuffix(t time.Time) string {
	return fmt.Sprintf("%d", t.UnixMilli())
}
