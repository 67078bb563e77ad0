package server

import (
	"net/http"

	"github.com/jonathan/smart-intake/internal/assessments"
	"github.com/jonathan/smart-intake/internal/confluence"
	"github.com/jonathan/smart-intake/internal/extraction"
	"github.com/jonathan/smart-intake/internal/glean"
	"github.com/jonathan/smart-intake/internal/types"
)

// -----------------------------------------------------------------------------
// Job Description Handlers
// -----------------------------------------------------------------------------

func (s *Server) handleAnalyzeJD(w http.ResponseWriter, r *http.Request) {
	var req extraction.AnalyzeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	result, err := s.extractor.AnalyzeJD(r.Context(), req)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleEnhanceJD(w http.ResponseWriter, r *http.Request) {
	var req extraction.EnhanceRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	enhanced, err := s.extractor.EnhanceJD(r.Context(), req)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"enhancedJD": enhanced})
}

func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	var req extraction.AssistRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	suggestion, err := s.extractor.Assist(r.Context(), req)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"suggestion": suggestion})
}

// -----------------------------------------------------------------------------
// Organization Handlers
// -----------------------------------------------------------------------------

// ResolveOrgRequest names the hiring manager to look up
type ResolveOrgRequest struct {
	JobTitle    string `json:"jobTitle"`
	ManagerHint string `json:"managerHint"`
}

func (s *Server) handleResolveOrg(w http.ResponseWriter, r *http.Request) {
	var req ResolveOrgRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	org, err := s.deps.Resolver.Resolve(r.Context(), req.ManagerHint, req.JobTitle)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, org)
}

// AskOrgRequest is a free-form question for the search assistant
type AskOrgRequest struct {
	Question string `json:"question" validate:"required"`
}

// handleAskOrg answers a question with the enterprise search assistant. An
// unconfigured assistant is reported in the body, not as an error status.
func (s *Server) handleAskOrg(w http.ResponseWriter, r *http.Request) {
	var req AskOrgRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	if s.deps.Agent == nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"success":         false,
			"error":           "Glean agent not configured",
			"fallbackMessage": "Set GLEAN_BASE_URL, a Glean token and GLEAN_AGENT_ID to enable the assistant.",
		})
		return
	}

	answer, err := s.deps.Agent.QueryAgent(r.Context(), s.deps.AgentID, req.Question)
	if err != nil {
		s.errorFrom(w, r, &CollaboratorError{Collaborator: "glean", Err: err})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"answer":  glean.ConvertMarkdownToSlack(answer),
		"source":  "Glean AI Agent",
	})
}

// -----------------------------------------------------------------------------
// Template and Loop Handlers
// -----------------------------------------------------------------------------

// MatchTemplatesRequest carries the signals to match catalogs against
type MatchTemplatesRequest struct {
	Signals     []string `json:"signals" validate:"required"`
	JobFunction string   `json:"jobFunction"`
	JobLevel    string   `json:"jobLevel"`
}

func (s *Server) handleMatchTemplates(w http.ResponseWriter, r *http.Request) {
	var req MatchTemplatesRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	hits := s.deps.Matcher.Match(r.Context(), req.Signals, req.JobFunction, req.JobLevel)
	if hits == nil {
		hits = []types.TemplateHit{}
	}
	s.jsonResponse(w, http.StatusOK, hits)
}

// SynthesizeLoopRequest is the input of loop synthesis
type SynthesizeLoopRequest struct {
	Competencies []types.Competency `json:"competencies" validate:"required"`
	Org          *types.OrgContext  `json:"org" validate:"required"`
	FunctionHint string             `json:"functionHint" validate:"required"`
}

func (s *Server) handleSynthesizeLoop(w http.ResponseWriter, r *http.Request) {
	var req SynthesizeLoopRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	result, err := s.synthesizer.Synthesize(r.Context(), req.Competencies, *req.Org, req.FunctionHint)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// -----------------------------------------------------------------------------
// Stage Enrichment Handlers
// -----------------------------------------------------------------------------

// StageRequest asks for generated content for one stage
type StageRequest struct {
	Stage          types.Stage `json:"stage"`
	JobFunction    string      `json:"jobFunction"`
	CustomPrompt   string      `json:"customPrompt,omitempty"`
	ExistingPrompt string      `json:"existingPrompt,omitempty"`
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	questions, err := s.generator.Questions(r.Context(), req.Stage, req.JobFunction)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleGenerateRubric(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	rubric, err := s.generator.Rubric(r.Context(), req.Stage, req.JobFunction, req.CustomPrompt)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"rubric": rubric})
}

func (s *Server) handleGeneratePresentationPrompt(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	prompt, err := s.generator.PresentationPrompt(r.Context(), req.Stage, req.JobFunction, req.ExistingPrompt)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, prompt)
}

func (s *Server) handleSuggestAssessments(w http.ResponseWriter, r *http.Request) {
	var req assessments.Request
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	tests := s.deps.Assessments.Suggest(req)
	if tests == nil {
		tests = []types.CodingAssessment{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"tests": tests,
		"note":  s.deps.Assessments.Note(),
	})
}

func (s *Server) handleAssessmentCategories(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"categories": s.deps.Assessments.Categories(),
		"note":       s.deps.Assessments.Note(),
	})
}

// BestPracticesRequest selects guidance by topic, or by stage and function
type BestPracticesRequest struct {
	Topic       string `json:"topic"`
	Stage       string `json:"stage"`
	JobFunction string `json:"jobFunction"`
}

func (s *Server) handleBestPractices(w http.ResponseWriter, r *http.Request) {
	var req BestPracticesRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	guidance := s.deps.Practices.BestPractices(r.Context(), confluence.Request{
		Topic:       req.Topic,
		StageName:   req.Stage,
		JobFunction: req.JobFunction,
	})
	s.jsonResponse(w, http.StatusOK, guidance)
}

func (s *Server) handleBestPracticeTopics(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"topics": s.deps.Practices.Topics()})
}
