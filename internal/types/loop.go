package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// QuestionType classifies an interview question
type QuestionType string

// Supported question types
const (
	QuestionBehavioral  QuestionType = "behavioral"
	QuestionTechnical   QuestionType = "technical"
	QuestionSituational QuestionType = "situational"
	QuestionValues      QuestionType = "values"
)

// Valid reports whether t is one of the supported question types
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionBehavioral, QuestionTechnical, QuestionSituational, QuestionValues:
		return true
	}
	return false
}

// Question is a single interview question attached to a stage
type Question struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	Type       QuestionType `json:"type"`
	Competency string       `json:"competency"`
	FollowUps  []string     `json:"followUps"`
	Rationale  string       `json:"rationale,omitempty"`
}

// RubricCriterion describes four performance levels for one evaluation criterion
type RubricCriterion struct {
	Criterion        string `json:"criterion"`
	Excellent        string `json:"excellent"`
	Good             string `json:"good"`
	NeedsImprovement string `json:"needs_improvement"`
	Poor             string `json:"poor"`
}

// PresentationPrompt is a case-study brief handed to candidates ahead of a presentation stage
type PresentationPrompt struct {
	Title              string   `json:"title"`
	Context            string   `json:"context"`
	Deliverables       []string `json:"deliverables"`
	TimeLimit          string   `json:"timeLimit"`
	Format             string   `json:"format"`
	EvaluationCriteria []string `json:"evaluationCriteria"`
	CandidateGuidance  []string `json:"candidateGuidance"`
}

// CodingAssessment is a take-home or proctored coding test suggestion
type CodingAssessment struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description"`
	Duration      int      `json:"duration" yaml:"duration"`
	Skills        []string `json:"skills" yaml:"skills"`
	Languages     []string `json:"languages" yaml:"languages"`
	Difficulty    string   `json:"difficulty" yaml:"difficulty"`
	QuestionCount int      `json:"questionCount" yaml:"questionCount"`
}

// Stage is one scheduled segment of an interview loop
type Stage struct {
	ID                 string              `json:"id,omitempty"`
	Name               string              `json:"name"`
	Intent             string              `json:"intent"`
	DurationMins       int                 `json:"durationMins"`
	Signals            []string            `json:"signals"`
	InterviewerHints   []string            `json:"interviewerHints,omitempty"`
	FormTemplateID     string              `json:"formTemplateId,omitempty"`
	Questions          []Question          `json:"questions,omitempty"`
	Rubric             []RubricCriterion   `json:"rubric,omitempty"`
	PresentationPrompt *PresentationPrompt `json:"presentationPrompt,omitempty"`
	CodeSignalTest     *CodingAssessment   `json:"codeSignalTest,omitempty"`
}

// UnmarshalJSON reads durationMins as any whole JSON number, so 45 and 45.0
// decode alike. Fractional durations are rejected.
func (s *Stage) UnmarshalJSON(data []byte) error {
	type plain Stage
	aux := struct {
		*plain
		DurationMins json.Number `json:"durationMins"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.DurationMins == "" {
		return nil
	}
	f, err := aux.DurationMins.Float64()
	if err != nil {
		return fmt.Errorf("durationMins: %w", err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("durationMins must be a whole number of minutes, got %s", aux.DurationMins)
	}
	s.DurationMins = int(f)
	return nil
}

// LoopPlan is the ordered set of stages for a full interview process.
// TotalMins is derived from the stages and is recomputed on every mutation.
type LoopPlan struct {
	Stages    []Stage  `json:"stages"`
	TotalMins int      `json:"totalMins"`
	Risks     []string `json:"risks"`
}

// SumDurations returns the sum of all stage durations
func (p LoopPlan) SumDurations() int {
	total := 0
	for _, s := range p.Stages {
		total += s.DurationMins
	}
	return total
}

// Clone returns a deep copy of the plan so callers can derive new plans without aliasing
func (p LoopPlan) Clone() LoopPlan {
	out := LoopPlan{
		TotalMins: p.TotalMins,
		Risks:     cloneStrings(p.Risks),
	}
	if p.Stages != nil {
		out.Stages = make([]Stage, len(p.Stages))
		for i, s := range p.Stages {
			out.Stages[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the stage
func (s Stage) Clone() Stage {
	out := s
	out.Signals = cloneStrings(s.Signals)
	out.InterviewerHints = cloneStrings(s.InterviewerHints)
	if s.Questions != nil {
		out.Questions = make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			q.FollowUps = cloneStrings(q.FollowUps)
			out.Questions[i] = q
		}
	}
	if s.Rubric != nil {
		out.Rubric = append([]RubricCriterion(nil), s.Rubric...)
	}
	if s.PresentationPrompt != nil {
		pp := *s.PresentationPrompt
		pp.Deliverables = cloneStrings(pp.Deliverables)
		pp.EvaluationCriteria = cloneStrings(pp.EvaluationCriteria)
		pp.CandidateGuidance = cloneStrings(pp.CandidateGuidance)
		out.PresentationPrompt = &pp
	}
	if s.CodeSignalTest != nil {
		ct := *s.CodeSignalTest
		ct.Skills = cloneStrings(ct.Skills)
		ct.Languages = cloneStrings(ct.Languages)
		out.CodeSignalTest = &ct
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
