// Package confluence serves recruiting best practices from the document wiki,
// falling back to a curated copy embedded in the binary.
package confluence

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed practices.yaml
var practicesFile []byte

// Topic ids
const (
	TopicInterviewStructure   = "interview_structure"
	TopicRecruitingProcess    = "recruiting_process"
	TopicCompetencyEvaluation = "competency_evaluation"
	TopicAIRecruiting         = "ai_recruiting"
)

// DefaultGuidance is used when no best practices can be loaded at all
const DefaultGuidance = `INTERVIEW BEST PRACTICES:
- Use structured, competency-based questions
- Follow the STAR method for behavioral questions
- Focus on specific examples from the candidate's experience
- Ask follow-up questions to understand outcomes and lessons learned
- Look for evidence of growth and learning from challenges`

// Topic is one body of guidance
type Topic struct {
	ID     string `yaml:"id" json:"id"`
	Title  string `yaml:"title" json:"title"`
	Source string `yaml:"source" json:"source"`
	PageID string `yaml:"page_id,omitempty" json:"-"`
	Body   string `yaml:"body" json:"-"`
}

// Source is a wiki page cited alongside guidance
type Source struct {
	Title string `yaml:"title" json:"title"`
	Path  string `yaml:"path" json:"-"`
	URL   string `yaml:"-" json:"url"`
	Space string `yaml:"space" json:"space"`
}

type practices struct {
	Topics  []Topic  `yaml:"topics"`
	Sources []Source `yaml:"sources"`
}

// Request selects guidance for a topic, stage and job function
type Request struct {
	Topic       string `json:"topic"`
	StageName   string `json:"stageName"`
	JobFunction string `json:"jobFunction"`
}

// Guidance is the selected best practices text with the pages it came from
type Guidance struct {
	TopicID       string   `json:"topic"`
	BestPractices string   `json:"bestPractices"`
	Sources       []Source `json:"sources"`
}

// PageFetcher reads a wiki page as plain text
type PageFetcher interface {
	PageText(ctx context.Context, pageID string) (string, error)
}

// Library selects best practices and refreshes them from the wiki when it can
type Library struct {
	topics  map[string]Topic
	order   []string
	sources []Source
	pages   PageFetcher
}

// NewLibrary loads the curated practices. baseURL prefixes source links;
// pages may be nil when the wiki is not configured.
func NewLibrary(baseURL string, pages PageFetcher) (*Library, error) {
	var p practices
	if err := yaml.Unmarshal(practicesFile, &p); err != nil {
		return nil, fmt.Errorf("failed to parse best practices: %w", err)
	}

	lib := &Library{topics: make(map[string]Topic, len(p.Topics)), pages: pages}
	for _, t := range p.Topics {
		lib.topics[t.ID] = t
		lib.order = append(lib.order, t.ID)
	}

	base := strings.TrimRight(baseURL, "/")
	for _, s := range p.Sources {
		s.URL = base + s.Path
		lib.sources = append(lib.sources, s)
	}
	return lib, nil
}

// Topics lists available topics in catalog order
func (l *Library) Topics() []Topic {
	out := make([]Topic, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.topics[id])
	}
	return out
}

// Sources lists the cited wiki pages
func (l *Library) Sources() []Source {
	out := make([]Source, len(l.sources))
	copy(out, l.sources)
	return out
}

// BestPractices returns guidance for req. It never fails; a wiki error falls back
// to the curated copy.
func (l *Library) BestPractices(ctx context.Context, req Request) *Guidance {
	id := SelectTopic(req)
	topic, ok := l.topics[id]
	if !ok {
		return &Guidance{TopicID: id, BestPractices: DefaultGuidance, Sources: l.Sources()}
	}

	body := strings.TrimSpace(topic.Body)
	if l.pages != nil && topic.PageID != "" {
		text, err := l.pages.PageText(ctx, topic.PageID)
		if err != nil {
			log.Printf("[confluence] page %s unavailable, using curated copy: %v", topic.PageID, err)
		} else if strings.TrimSpace(text) != "" {
			body = text
		}
	}

	return &Guidance{TopicID: id, BestPractices: body, Sources: l.Sources()}
}

// StageGuidance returns the best practices text used when writing questions for a stage
func (l *Library) StageGuidance(ctx context.Context, stageName, jobFunction string) string {
	return l.BestPractices(ctx, Request{Topic: "interview_questions", StageName: stageName, JobFunction: jobFunction}).BestPractices
}

// SelectTopic picks the topic for a request. Stage name rules win over topic and function.
func SelectTopic(req Request) string {
	stage := strings.ToLower(req.StageName)
	topic := strings.ToLower(req.Topic)
	function := strings.ToLower(req.JobFunction)

	switch {
	case strings.Contains(stage, "recruiter"):
		return TopicRecruitingProcess
	case strings.Contains(stage, "technical"), strings.Contains(stage, "craft"):
		return TopicCompetencyEvaluation
	case strings.Contains(topic, "ai"), strings.Contains(function, "data"):
		return TopicAIRecruiting
	case strings.Contains(stage, "manager"), strings.Contains(stage, "leadership"):
		return TopicCompetencyEvaluation
	}
	return TopicInterviewStructure
}
