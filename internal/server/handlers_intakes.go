package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/export"
	"github.com/jonathan/smart-intake/internal/intake"
)

// pathUUID reads a UUID path parameter
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

// queryLimit reads an optional positive "limit" query parameter
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &ErrValidation{Field: "limit", Message: "must be a positive integer"}
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Intake Handlers
// -----------------------------------------------------------------------------

func (s *Server) handleCreateIntake(w http.ResponseWriter, r *http.Request) {
	var patch intake.Patch
	if err := s.decodeJSON(w, r, &patch); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	created, err := s.intakes.Create(r.Context(), actor(r), patch)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{"intake": created})
}

func (s *Server) handleListIntakes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	intakes, err := s.intakes.List(r.Context(), db.IntakeFilter{
		CreatedBy: r.URL.Query().Get("created_by"),
		Status:    r.URL.Query().Get("status"),
		Limit:     limit,
	})
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if intakes == nil {
		intakes = []db.Intake{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"intakes": intakes})
}

func (s *Server) handleGetIntake(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	in, err := s.intakes.Get(r.Context(), id)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"intake": in})
}

func (s *Server) handleUpdateIntake(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	var patch intake.Patch
	if err := s.decodeJSON(w, r, &patch); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	updated, err := s.intakes.Update(r.Context(), actor(r), id, patch)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"intake": updated})
}

func (s *Server) handleDeleteIntake(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	if err := s.intakes.Delete(r.Context(), actor(r), id); err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	versions, err := s.intakes.Versions(r.Context(), id)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if versions == nil {
		versions = []db.IntakeVersion{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"versions": versions})
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	activity, err := s.intakes.Activity(r.Context(), id, limit)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if activity == nil {
		activity = []db.IntakeActivity{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"activity": activity})
}

// handleExportIntake streams the intake as a spreadsheet download
func (s *Server) handleExportIntake(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	in, err := s.intakes.Get(r.Context(), id)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	// Render fully before writing headers so a failure can still be reported
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, in); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(in)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// -----------------------------------------------------------------------------
// Share Handlers
// -----------------------------------------------------------------------------

func (s *Server) handleShareIntake(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	var req intake.ShareRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	share, created, err := s.intakes.Share(r.Context(), actor(r), id, req)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if created {
		s.jsonResponse(w, http.StatusCreated, map[string]any{"share": share, "created": true})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"share": share, "updated": true})
}

func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	shares, err := s.intakes.Shares(r.Context(), id)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if shares == nil {
		shares = []db.Share{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"shares": shares})
}

func (s *Server) handleRevokeShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	shareID, err := pathUUID(r, "share_id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	if err := s.intakes.RevokeShare(r.Context(), actor(r), id, shareID); err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// -----------------------------------------------------------------------------
// Comment Handlers
// -----------------------------------------------------------------------------

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	var req intake.CommentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	comment, err := s.intakes.AddComment(r.Context(), actor(r), id, req)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{"comment": comment})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	q := r.URL.Query()
	comments, err := s.intakes.Comments(r.Context(), db.CommentFilter{
		IntakeID:        id,
		Section:         q.Get("section"),
		IncludeResolved: q.Get("includeResolved") == "true",
	})
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if comments == nil {
		comments = []db.Comment{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"comments": comments})
}

// ResolveCommentRequest resolves or reopens a comment
type ResolveCommentRequest struct {
	Resolved *bool `json:"resolved" validate:"required"`
}

func (s *Server) handleResolveComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	commentID, err := pathUUID(r, "comment_id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	var req ResolveCommentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	comment, err := s.intakes.SetCommentResolved(r.Context(), actor(r), id, commentID, *req.Resolved)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"comment": comment})
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	commentID, err := pathUUID(r, "comment_id")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	if err := s.intakes.DeleteComment(r.Context(), id, commentID); err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}
