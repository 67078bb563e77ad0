package loop

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/smart-intake/internal/types"
)

// Kind names one per-stage enrichment
type Kind string

// Enrichment kinds
const (
	KindQuestions          Kind = "questions"
	KindRubric             Kind = "rubric"
	KindPresentationPrompt Kind = "presentation-prompt"
	KindCodingAssessment   Kind = "coding-assessment"
)

// ParseKind validates an enrichment kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindQuestions, KindRubric, KindPresentationPrompt, KindCodingAssessment:
		return k, nil
	}
	return "", fmt.Errorf("unknown enrichment kind %q", s)
}

// Enrichment is a generated result for one field of one stage. Only the field
// matching Kind is read.
type Enrichment struct {
	Kind               Kind                     `json:"kind"`
	Questions          []types.Question         `json:"questions,omitempty"`
	Rubric             []types.RubricCriterion  `json:"rubric,omitempty"`
	PresentationPrompt *types.PresentationPrompt `json:"presentationPrompt,omitempty"`
	CodingAssessment   *types.CodingAssessment   `json:"codeSignalTest,omitempty"`
}

// ReplaceEnrichment overwrites the field named by e.Kind on the stage with
// stageID. Every other field and stage is left alone. It reports false when
// the stage no longer exists.
func ReplaceEnrichment(p types.LoopPlan, stageID string, e Enrichment) (types.LoopPlan, bool) {
	i := IndexOf(p, stageID)
	if i < 0 {
		return p, false
	}

	out := p.Clone()
	stage := &out.Stages[i]
	switch e.Kind {
	case KindQuestions:
		stage.Questions = types.Stage{Questions: e.Questions}.Clone().Questions
	case KindRubric:
		stage.Rubric = append([]types.RubricCriterion(nil), e.Rubric...)
	case KindPresentationPrompt:
		stage.PresentationPrompt = types.Stage{PresentationPrompt: e.PresentationPrompt}.Clone().PresentationPrompt
	case KindCodingAssessment:
		stage.CodeSignalTest = types.Stage{CodeSignalTest: e.CodingAssessment}.Clone().CodeSignalTest
	default:
		return p, false
	}
	return withTotal(out), true
}

// Token identifies one issued enrichment request
type Token struct {
	StageID string
	Kind    Kind
	seq     uint64
}

type trackerKey struct {
	stageID string
	kind    Kind
}

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// EnrichmentTracker makes sure only the most recent request per stage and
// kind may apply its result. Issuing a newer request cancels the older one.
type EnrichmentTracker struct {
	mu     sync.Mutex
	seq    uint64
	active map[trackerKey]inflight
}

// NewEnrichmentTracker creates an empty tracker
func NewEnrichmentTracker() *EnrichmentTracker {
	return &EnrichmentTracker{active: make(map[trackerKey]inflight)}
}

// Begin registers a request and returns a context that is cancelled when a
// newer request for the same stage and kind begins
func (t *EnrichmentTracker) Begin(ctx context.Context, stageID string, kind Kind) (context.Context, Token) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	key := trackerKey{stageID, kind}
	if prev, ok := t.active[key]; ok {
		prev.cancel()
	}
	t.seq++
	t.active[key] = inflight{seq: t.seq, cancel: cancel}
	return ctx, Token{StageID: stageID, Kind: kind, seq: t.seq}
}

// Commit reports whether tok is still the latest request for its stage and
// kind, and retires it. A stale token returns false and its result must be
// dropped.
func (t *EnrichmentTracker) Commit(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := trackerKey{tok.StageID, tok.Kind}
	cur, ok := t.active[key]
	if !ok || cur.seq != tok.seq {
		return false
	}
	cur.cancel()
	delete(t.active, key)
	return true
}

// CancelStage cancels every outstanding request for a stage, used when the
// stage is deleted
func (t *EnrichmentTracker) CancelStage(stageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, cur := range t.active {
		if key.stageID == stageID {
			cur.cancel()
			delete(t.active, key)
		}
	}
}

// CancelAll cancels every outstanding request
func (t *EnrichmentTracker) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, cur := range t.active {
		cur.cancel()
		delete(t.active, key)
	}
}

// Pending returns the number of outstanding requests
func (t *EnrichmentTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
