package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/db"
)

// commentExcerptLen bounds the comment text copied into the activity log
const commentExcerptLen = 100

// Actor is the person a change is attributed to
type Actor struct {
	Email string
	Name  string
}

// Service applies intake changes together with their version and activity records
type Service struct {
	store    db.IntakeStore
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a service over store
func NewService(store db.IntakeStore) *Service {
	return &Service{store: store, validate: validator.New(), now: time.Now}
}

// -----------------------------------------------------------------------------
// Intake Methods
// -----------------------------------------------------------------------------

// Create stores a new intake and logs its creation
func (s *Service) Create(ctx context.Context, actor Actor, p Patch) (*db.Intake, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var created *db.Intake
	err := s.store.InTx(ctx, func(q db.Queries) error {
		var err error
		created, err = q.CreateIntake(ctx, p.NewIntake(actor.Email))
		if err != nil {
			return err
		}
		return q.LogActivity(ctx, &db.IntakeActivity{
			IntakeID:  created.ID,
			UserEmail: actor.Email,
			UserName:  actor.Name,
			Action:    db.ActionCreated,
			Details:   map[string]any{"title": created.Title},
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[intake] created %s by %s", created.ID, actor.Email)
	return created, nil
}

// Get returns a live intake
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*db.Intake, error) {
	in, err := s.store.GetIntake(ctx, id)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, &NotFoundError{What: "intake", ID: id.String()}
	}
	return in, nil
}

// List returns live intakes, most recently updated first
func (s *Service) List(ctx context.Context, f db.IntakeFilter) ([]db.Intake, error) {
	return s.store.ListIntakes(ctx, f)
}

// Update applies p to an intake. Inside one transaction it locks the row,
// snapshots the prior state as the next version, saves the change, and logs
// the names of the fields the patch set.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, p Patch) (*db.Intake, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	summary := strings.TrimSpace(p.ChangeSummary)
	if summary == "" {
		summary = DefaultChangeSummary
	}

	var saved *db.Intake
	err := s.store.InTx(ctx, func(q db.Queries) error {
		current, err := q.LockIntake(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return &NotFoundError{What: "intake", ID: id.String()}
		}

		prior, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to snapshot intake: %w", err)
		}
		next, err := q.NextVersionNumber(ctx, id)
		if err != nil {
			return err
		}
		if _, err := q.CreateVersion(ctx, &db.IntakeVersion{
			IntakeID:      id,
			VersionNumber: next,
			Data:          prior,
			ChangedBy:     actor.Email,
			ChangeSummary: summary,
		}); err != nil {
			return err
		}

		p.Apply(current, s.now())
		if saved, err = q.SaveIntake(ctx, current); err != nil {
			return err
		}
		if saved == nil {
			return &NotFoundError{What: "intake", ID: id.String()}
		}

		return q.LogActivity(ctx, &db.IntakeActivity{
			IntakeID:  id,
			UserEmail: actor.Email,
			UserName:  actor.Name,
			Action:    db.ActionUpdated,
			Details:   map[string]any{"fields": p.Fields(), "version": next},
		})
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete soft-deletes an intake
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	return s.store.InTx(ctx, func(q db.Queries) error {
		ok, err := q.SoftDeleteIntake(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return &NotFoundError{What: "intake", ID: id.String()}
		}
		return q.LogActivity(ctx, &db.IntakeActivity{
			IntakeID:  id,
			UserEmail: actor.Email,
			UserName:  actor.Name,
			Action:    db.ActionDeleted,
		})
	})
}

// Versions returns the version history of an intake, newest first
func (s *Service) Versions(ctx context.Context, id uuid.UUID) ([]db.IntakeVersion, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, id)
}

// Activity returns the most recent activity of an intake
func (s *Service) Activity(ctx context.Context, id uuid.UUID, limit int) ([]db.IntakeActivity, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListActivity(ctx, id, limit)
}

// RecordPush logs that an intake's loop was pushed to the ATS
func (s *Service) RecordPush(ctx context.Context, actor Actor, id uuid.UUID, details map[string]any) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.LogActivity(ctx, &db.IntakeActivity{
		IntakeID:  id,
		UserEmail: actor.Email,
		UserName:  actor.Name,
		Action:    db.ActionPushedToATS,
		Details:   details,
	})
}

// -----------------------------------------------------------------------------
// Share Methods
// -----------------------------------------------------------------------------

// ShareRequest grants a person access to an intake
type ShareRequest struct {
	SharedWith string `json:"shared_with"`
	Permission string `json:"permission"`
}

// Share grants access, updating the permission when the person already has a
// share. It reports whether a new share was created.
func (s *Service) Share(ctx context.Context, actor Actor, id uuid.UUID, req ShareRequest) (*db.Share, bool, error) {
	email := strings.ToLower(strings.TrimSpace(req.SharedWith))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, false, &ValidationError{Field: "shared_with", Message: "a valid email is required"}
	}
	switch req.Permission {
	case db.PermissionView, db.PermissionEdit, db.PermissionApprove:
	default:
		return nil, false, &ValidationError{Field: "permission", Message: "must be view, edit, or approve"}
	}

	var share *db.Share
	var created bool
	err := s.store.InTx(ctx, func(q db.Queries) error {
		in, err := q.GetIntake(ctx, id)
		if err != nil {
			return err
		}
		if in == nil {
			return &NotFoundError{What: "intake", ID: id.String()}
		}
		share, created, err = q.UpsertShare(ctx, &db.Share{
			IntakeID:   id,
			SharedWith: email,
			Permission: req.Permission,
			SharedBy:   actor.Email,
		})
		if err != nil {
			return err
		}
		return q.LogActivity(ctx, &db.IntakeActivity{
			IntakeID:  id,
			UserEmail: actor.Email,
			UserName:  actor.Name,
			Action:    db.ActionShared,
			Details:   map[string]any{"shared_with": email, "permission": req.Permission, "created": created},
		})
	})
	if err != nil {
		return nil, false, err
	}
	return share, created, nil
}

// Shares lists who an intake is shared with
func (s *Service) Shares(ctx context.Context, id uuid.UUID) ([]db.Share, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListShares(ctx, id)
}

// RevokeShare removes a share
func (s *Service) RevokeShare(ctx context.Context, actor Actor, id, shareID uuid.UUID) error {
	return s.store.InTx(ctx, func(q db.Queries) error {
		removed, err := q.DeleteShare(ctx, id, shareID)
		if err != nil {
			return err
		}
		if removed == nil {
			return &NotFoundError{What: "share", ID: shareID.String()}
		}
		return q.LogActivity(ctx, &db.IntakeActivity{
			IntakeID:  id,
			UserEmail: actor.Email,
			UserName:  actor.Name,
			Action:    db.ActionShareRevoked,
			Details:   map[string]any{"shared_with": removed.SharedWith},
		})
	})
}

// -----------------------------------------------------------------------------
// Comment Methods
// -----------------------------------------------------------------------------

// CommentRequest adds a comment, optionally scoped to a section
type CommentRequest struct {
	Comment string `json:"comment"`
	Section string `json:"section,omitempty"`
}

// AddComment posts a comment on an intake
func (s *Service) AddComment(ctx context.Context, actor Actor, id uuid.UUID, req CommentRequest) (*db.Comment, error) {
	text := strings.TrimSpace(req.Comment)
	if text == "" {
		return nil, &ValidationError{Field: "comment", Message: "comment text is required"}
	}

	var created *db.Comment
	err := s.store.InTx(ctx, func(q db.Queries) error {
		in, err := q.GetIntake(ctx, id)
		if err != nil {
			return err
		}
		if in == nil {
			return &NotFoundError{What: "intake", ID: id.String()}
		}
		created, err = q.CreateComment(ctx, &db.Comment{
			IntakeID:  id,
			UserEmail: actor.Email,
			UserName:  actor.Name,
			Comment:   text,
			Section:   req.Section,
		})
		if err != nil {
			return err
		}
		return q.LogActivity(ctx, &db.IntakeActivity{
			IntakeID:  id,
			UserEmail: actor.Email,
			UserName:  actor.Name,
			Action:    db.ActionCommentAdded,
			Details:   map[string]any{"section": req.Section, "comment": excerpt(text, commentExcerptLen)},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Comments lists comments of an intake
func (s *Service) Comments(ctx context.Context, f db.CommentFilter) ([]db.Comment, error) {
	if _, err := s.Get(ctx, f.IntakeID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, f)
}

// SetCommentResolved resolves or reopens a comment. Any participant may do either.
func (s *Service) SetCommentResolved(ctx context.Context, actor Actor, id, commentID uuid.UUID, resolved bool) (*db.Comment, error) {
	action := db.ActionCommentReopened
	if resolved {
		action = db.ActionCommentResolved
	}

	var updated *db.Comment
	err := s.store.InTx(ctx, func(q db.Queries) error {
		var err error
		updated, err = q.SetCommentResolved(ctx, id, commentID, resolved, actor.Email)
		if err != nil {
			return err
		}
		if updated == nil {
			return &NotFoundError{What: "comment", ID: commentID.String()}
		}
		return q.LogActivity(ctx, &db.IntakeActivity{
			IntakeID:  id,
			UserEmail: actor.Email,
			UserName:  actor.Name,
			Action:    action,
			Details:   map[string]any{"comment_id": commentID.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteComment removes a comment
func (s *Service) DeleteComment(ctx context.Context, id, commentID uuid.UUID) error {
	ok, err := s.store.DeleteComment(ctx, id, commentID)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{What: "comment", ID: commentID.String()}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Upload Methods
// -----------------------------------------------------------------------------

// SaveUpload stores an uploaded file
func (s *Service) SaveUpload(ctx context.Context, f *db.UploadedFile) (*db.UploadedFile, error) {
	if strings.TrimSpace(f.FileName) == "" {
		return nil, &ValidationError{Field: "file_name", Message: "file name is required"}
	}
	if f.FileSize == 0 {
		f.FileSize = int64(len(f.FileContent))
	}
	return s.store.CreateUpload(ctx, f)
}

// Uploads lists stored files without their content
func (s *Service) Uploads(ctx context.Context, f db.UploadFilter) ([]db.UploadedFile, error) {
	return s.store.ListUploads(ctx, f)
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
