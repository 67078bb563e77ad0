package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/ashby"
	"github.com/jonathan/smart-intake/internal/types"
)

// SearchJobRequest looks up an ATS job by title
type SearchJobRequest struct {
	JobTitle string `json:"jobTitle" validate:"required"`
}

// handleSearchJob finds the ATS job for a title. Without an API key the
// search reports that in the body.
func (s *Server) handleSearchJob(w http.ResponseWriter, r *http.Request) {
	var req SearchJobRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	if s.deps.ATS == nil {
		s.jsonResponse(w, http.StatusOK, ashby.NotConfiguredResult())
		return
	}

	result, err := s.deps.ATS.SearchJob(r.Context(), strings.TrimSpace(req.JobTitle))
	if err != nil {
		s.errorFrom(w, r, &CollaboratorError{Collaborator: "ashby", Err: err})
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// PushLoopRequest publishes a loop to an ATS job. IntakeID, when given, gets
// a pushed_to_ats activity entry.
type PushLoopRequest struct {
	AshbyJobID string              `json:"ashbyJobId" validate:"required"`
	Loop       *types.LoopPlan     `json:"loop" validate:"required"`
	Templates  []types.TemplateHit `json:"templates"`
	IntakeID   string              `json:"intakeId,omitempty"`
}

func (s *Server) handlePushLoop(w http.ResponseWriter, r *http.Request) {
	var req PushLoopRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	var intakeID *uuid.UUID
	if req.IntakeID != "" {
		id, err := uuid.Parse(req.IntakeID)
		if err != nil {
			s.errorFrom(w, r, &ErrValidation{Field: "intakeId", Message: "must be a UUID"})
			return
		}
		intakeID = &id
	}

	if s.deps.ATS == nil {
		s.errorFrom(w, r, &ErrNotConfigured{Integration: "ashby"})
		return
	}

	result, err := s.deps.ATS.PushLoop(r.Context(), req.AshbyJobID, *req.Loop, req.Templates)
	if err != nil {
		s.errorFrom(w, r, &CollaboratorError{Collaborator: "ashby", Err: err})
		return
	}

	if intakeID != nil {
		details := map[string]any{
			"ashby_job_id":   req.AshbyJobID,
			"stages_created": result.StagesCreated,
			"forms_linked":   result.FormsLinked,
		}
		if err := s.intakes.RecordPush(r.Context(), actor(r), *intakeID, details); err != nil {
			s.errorFrom(w, r, err)
			return
		}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobId":   req.AshbyJobID,
		"diff":    result,
		"success": true,
	})
}
