package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/assessments"
	"github.com/jonathan/smart-intake/internal/intake"
	"github.com/jonathan/smart-intake/internal/loop"
	"github.com/jonathan/smart-intake/internal/types"
)

// draftCloseTimeout bounds the final save when a draft is closed
const draftCloseTimeout = 30 * time.Second

// errSuperseded is reported when a newer request for the same stage and kind won
const errSuperseded = "superseded by a newer request"

// OpenDraftRequest optionally names a stored intake to edit
type OpenDraftRequest struct {
	IntakeID string `json:"intakeId,omitempty"`
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req OpenDraftRequest
	if r.ContentLength != 0 {
		if err := s.decodeJSON(w, r, &req); err != nil {
			s.errorFrom(w, r, err)
			return
		}
	}

	var from *uuid.UUID
	if req.IntakeID != "" {
		id, err := uuid.Parse(req.IntakeID)
		if err != nil {
			s.errorFrom(w, r, &ErrValidation{Field: "intakeId", Message: "must be a UUID"})
			return
		}
		from = &id
	}

	session, err := s.drafts.Open(r.Context(), actor(r), from)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, session.View())
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	session, err := s.drafts.Get(r.PathValue("key"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, session.View())
}

// UpdateDraftRequest replaces parts of a draft. Absent fields are left alone.
type UpdateDraftRequest struct {
	intake.JobDetails
	Extracted *types.ExtractedRequirements `json:"extracted,omitempty"`
	Org       *types.OrgContext            `json:"org,omitempty"`
	Templates *[]types.TemplateHit         `json:"templates,omitempty"`
	Loop      *types.LoopPlan              `json:"loop,omitempty"`
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	session, err := s.drafts.Get(r.PathValue("key"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	var req UpdateDraftRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	view, _ := session.Apply(func(d intake.Draft, _ *loop.ViewState) (intake.Draft, bool) {
		changed := false
		if req.JobTitle != nil || req.Level != nil || req.JobDescription != nil || req.AshbyJobID != nil {
			d = intake.ApplyJobDetails(d, req.JobDetails)
			changed = true
		}
		if req.Extracted != nil {
			d = intake.ApplyExtraction(d, *req.Extracted)
			changed = true
		}
		if req.Org != nil {
			d = intake.ApplyOrgContext(d, *req.Org)
			changed = true
		}
		if req.Templates != nil {
			d = intake.ApplyTemplates(d, *req.Templates)
			changed = true
		}
		if req.Loop != nil {
			d = intake.ApplyLoop(d, *req.Loop)
			changed = true
		}
		return d, changed
	})
	s.jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleCloseDraft(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), draftCloseTimeout)
	defer cancel()

	view, err := s.drafts.Close(ctx, r.PathValue("key"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

// -----------------------------------------------------------------------------
// Loop Editing
// -----------------------------------------------------------------------------

// Loop edit operations
const (
	OpAdd          = "add"
	OpDelete       = "delete"
	OpMove         = "move"
	OpRename       = "rename"
	OpUpdate       = "update"
	OpDuration     = "duration"
	OpToggle       = "toggle"
	OpSynthesize   = "synthesize"
	OpStartRename  = "start-rename"
	OpRenameText   = "rename-text"
	OpSaveRename   = "save-rename"
	OpCancelRename = "cancel-rename"
)

// LoopEditRequest is one editor operation on the draft loop. Index addresses
// the stage for every operation except add and synthesize. Once start-rename
// picks a stage, rename-text, save-rename and cancel-rename act on it.
type LoopEditRequest struct {
	Op           string       `json:"op" validate:"required,oneof=add delete move rename update duration toggle synthesize start-rename rename-text save-rename cancel-rename"`
	Index        int          `json:"index"`
	Direction    string       `json:"direction,omitempty"`
	Name         string       `json:"name,omitempty"`
	Stage        *types.Stage `json:"stage,omitempty"`
	DurationMins int          `json:"durationMins,omitempty"`
}

// LoopEditResponse reports whether the edit changed anything. Rejected edits
// leave the draft as it was.
type LoopEditResponse struct {
	DraftView
	Applied       bool   `json:"applied"`
	BudgetWarning string `json:"budgetWarning,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
}

func (s *Server) handleEditDraftLoop(w http.ResponseWriter, r *http.Request) {
	session, err := s.drafts.Get(r.PathValue("key"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	var req LoopEditRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	if req.Op == OpSynthesize {
		s.synthesizeDraftLoop(w, r, session)
		return
	}

	var edit intake.LoopEdit
	switch req.Op {
	case OpAdd:
		edit = intake.AddStageEdit()
	case OpDelete:
		edit = intake.DeleteStageEdit(req.Index)
	case OpMove:
		dir, ok := loop.ParseDirection(req.Direction)
		if !ok {
			s.errorFrom(w, r, &ErrValidation{Field: "direction", Message: "must be up or down"})
			return
		}
		edit = intake.MoveStageEdit(req.Index, dir)
	case OpRename:
		edit = intake.RenameStageEdit(req.Index, req.Name)
	case OpUpdate:
		if req.Stage == nil {
			s.errorFrom(w, r, &ErrValidation{Field: "stage", Message: "required"})
			return
		}
		if strings.TrimSpace(req.Stage.Name) == "" {
			s.errorFrom(w, r, &ErrValidation{Field: "stage.name", Message: "required"})
			return
		}
		if req.Stage.DurationMins <= 0 {
			s.errorFrom(w, r, &ErrValidation{Field: "stage.durationMins", Message: "must be a positive number of minutes"})
			return
		}
		edit = intake.UpdateStageEdit(req.Index, *req.Stage)
	case OpDuration:
		if req.DurationMins <= 0 {
			s.errorFrom(w, r, &ErrValidation{Field: "durationMins", Message: "must be a positive number of minutes"})
			return
		}
		edit = intake.SetDurationEdit(req.Index, req.DurationMins)
	}

	var (
		removedStage string
		viewChanged  bool
	)
	view, changed := session.Apply(func(d intake.Draft, v *loop.ViewState) (intake.Draft, bool) {
		switch req.Op {
		case OpToggle:
			if hasStage(d, req.Index) {
				v.ToggleExpand(req.Index)
				viewChanged = true
			}
			return d, false
		case OpStartRename:
			if hasStage(d, req.Index) {
				v.StartRename(req.Index, d.Loop.Stages[req.Index].Name)
				viewChanged = true
			}
			return d, false
		case OpRenameText:
			if _, _, renaming := v.Renaming(); renaming {
				v.SetRenameText(req.Name)
				viewChanged = true
			}
			return d, false
		case OpCancelRename:
			if _, _, renaming := v.Renaming(); renaming {
				v.CancelRename()
				viewChanged = true
			}
			return d, false
		case OpSaveRename:
			if _, _, renaming := v.Renaming(); !renaming {
				return d, false
			}
			viewChanged = true
			if d.Loop == nil {
				v.CancelRename()
				return d, false
			}
			return intake.ApplyLoopEdit(d, v.SaveRename)
		}

		if req.Op == OpAdd && d.Loop == nil {
			d = intake.ApplyLoop(d, types.LoopPlan{})
		}
		if req.Op == OpDelete && hasStage(d, req.Index) {
			removedStage = d.Loop.Stages[req.Index].ID
		}

		next, ok := intake.ApplyLoopEdit(d, edit)
		if !ok {
			return d, false
		}
		switch req.Op {
		case OpDelete:
			v.OnDelete(req.Index)
		case OpMove:
			dir, _ := loop.ParseDirection(req.Direction)
			v.OnMove(req.Index, loop.Target(req.Index, dir))
		case OpRename:
			if i, _, renaming := v.Renaming(); renaming && i == req.Index {
				v.CancelRename()
			}
		}
		return next, true
	})

	if changed && removedStage != "" {
		session.tracker.CancelStage(removedStage)
		view.PendingEnrichments = session.tracker.Pending()
	}
	s.jsonResponse(w, http.StatusOK, LoopEditResponse{DraftView: view, Applied: changed || viewChanged})
}

func hasStage(d intake.Draft, i int) bool {
	return d.Loop != nil && i >= 0 && i < len(d.Loop.Stages)
}

// synthesizeDraftLoop replaces the draft loop with a synthesized one built
// from the draft's competencies and org context
func (s *Server) synthesizeDraftLoop(w http.ResponseWriter, r *http.Request, session *DraftSession) {
	d := session.Draft()
	if d.Extracted == nil || len(d.Extracted.Competencies) == 0 {
		s.errorFrom(w, r, &ErrValidation{Field: "extracted", Message: "analyze the job description first"})
		return
	}
	if d.Org == nil {
		s.errorFrom(w, r, &ErrValidation{Field: "org", Message: "resolve the org context first"})
		return
	}

	result, err := s.synthesizer.Synthesize(r.Context(), d.Extracted.Competencies, *d.Org, d.Extracted.Function)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	// Enrichments of the old loop cannot land on the new one
	session.tracker.CancelAll()
	view, _ := session.Apply(func(d intake.Draft, _ *loop.ViewState) (intake.Draft, bool) {
		return intake.ApplyLoop(d, result.Plan), true
	})
	s.jsonResponse(w, http.StatusOK, LoopEditResponse{
		DraftView:     view,
		Applied:       true,
		BudgetWarning: result.BudgetWarning,
		Fallback:      result.Fallback,
	})
}

// -----------------------------------------------------------------------------
// Stage Enrichment
// -----------------------------------------------------------------------------

// EnrichStageRequest tunes generation for one stage. JobFunction defaults to
// the draft's extracted function.
type EnrichStageRequest struct {
	JobFunction    string   `json:"jobFunction,omitempty"`
	CustomPrompt   string   `json:"customPrompt,omitempty"`
	ExistingPrompt string   `json:"existingPrompt,omitempty"`
	TechStack      []string `json:"techStack,omitempty"`
}

// EnrichStageResponse is the applied enrichment and the resulting draft
type EnrichStageResponse struct {
	DraftView
	Enrichment loop.Enrichment `json:"enrichment"`
}

// handleEnrichDraftStage generates questions, a rubric, a presentation prompt
// or a coding assessment for one stage and stores it in the draft. Only the
// latest request per stage and kind is applied.
func (s *Server) handleEnrichDraftStage(w http.ResponseWriter, r *http.Request) {
	kind, err := loop.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.errorFrom(w, r, &ErrValidation{Field: "kind", Message: err.Error()})
		return
	}
	session, err := s.drafts.Get(r.PathValue("key"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	var req EnrichStageRequest
	if r.ContentLength != 0 {
		if err := s.decodeJSON(w, r, &req); err != nil {
			s.errorFrom(w, r, err)
			return
		}
	}

	stageID := r.PathValue("stage_id")
	d := session.Draft()
	if d.Loop == nil || loop.IndexOf(*d.Loop, stageID) < 0 {
		s.errorFrom(w, r, &intake.NotFoundError{What: "stage", ID: stageID})
		return
	}
	stage := d.Loop.Stages[loop.IndexOf(*d.Loop, stageID)]
	if req.JobFunction == "" && d.Extracted != nil {
		req.JobFunction = d.Extracted.Function
	}

	ctx, tok := session.tracker.Begin(r.Context(), stageID, kind)
	enrichment, err := s.enrich(ctx, kind, stage, d, req)
	current := session.tracker.Commit(tok)
	if !current {
		s.errorResponse(w, http.StatusConflict, errSuperseded)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() == nil {
			s.errorResponse(w, http.StatusConflict, errSuperseded)
			return
		}
		s.errorFrom(w, r, err)
		return
	}

	view, applied := session.Apply(func(d intake.Draft, _ *loop.ViewState) (intake.Draft, bool) {
		return intake.ApplyEnrichment(d, stageID, enrichment)
	})
	if !applied {
		s.errorResponse(w, http.StatusConflict, "stage was removed while generating")
		return
	}
	s.jsonResponse(w, http.StatusOK, EnrichStageResponse{DraftView: view, Enrichment: enrichment})
}

func (s *Server) enrich(ctx context.Context, kind loop.Kind, stage types.Stage, d intake.Draft, req EnrichStageRequest) (loop.Enrichment, error) {
	e := loop.Enrichment{Kind: kind}
	var err error

	switch kind {
	case loop.KindQuestions:
		e.Questions, err = s.generator.Questions(ctx, stage, req.JobFunction)
	case loop.KindRubric:
		e.Rubric, err = s.generator.Rubric(ctx, stage, req.JobFunction, req.CustomPrompt)
	case loop.KindPresentationPrompt:
		e.PresentationPrompt, err = s.generator.PresentationPrompt(ctx, stage, req.JobFunction, req.ExistingPrompt)
	case loop.KindCodingAssessment:
		suggested := s.deps.Assessments.Suggest(assessments.Request{
			JobFunction:     req.JobFunction,
			Competencies:    stage.Signals,
			ExperienceLevel: d.Level,
			TechStack:       req.TechStack,
		})
		if len(suggested) == 0 {
			return e, &intake.NotFoundError{What: "coding assessment", ID: req.JobFunction}
		}
		e.CodingAssessment = &suggested[0]
	}
	return e, err
}

// handleDraftEvents streams the draft's autosave events. The stream starts
// with the current draft and ends when the draft is closed.
func (s *Server) handleDraftEvents(w http.ResponseWriter, r *http.Request) {
	session, err := s.drafts.Get(r.PathValue("key"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	if err := sse.WriteEvent("draft", session.View()); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				sse.WriteClosed(session.Key)
				return
			}
			if err := sse.WriteSaveEvent(e); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := sse.WriteComment("ping"); err != nil {
				return
			}
		}
	}
}
