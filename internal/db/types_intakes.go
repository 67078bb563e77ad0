package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/types"
)

// Intake statuses. Any of them may follow any other.
const (
	StatusDraft     = "draft"
	StatusInReview  = "in_review"
	StatusApproved  = "approved"
	StatusPublished = "published"
)

// ValidStatus reports whether status is one of the intake statuses
func ValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusInReview, StatusApproved, StatusPublished:
		return true
	}
	return false
}

// Activity actions
const (
	ActionCreated         = "created"
	ActionUpdated         = "updated"
	ActionDeleted         = "deleted"
	ActionCommentAdded    = "comment_added"
	ActionCommentResolved = "comment_resolved"
	ActionCommentReopened = "comment_reopened"
	ActionShared          = "shared"
	ActionShareRevoked    = "share_revoked"
	ActionPushedToATS     = "pushed_to_ats"
)

// Share permissions
const (
	PermissionView    = "view"
	PermissionEdit    = "edit"
	PermissionApprove = "approve"
)

// Intake is the stored hiring intake document
type Intake struct {
	ID             uuid.UUID                    `json:"id"`
	Title          string                       `json:"title"`
	Status         string                       `json:"status"`
	Level          string                       `json:"level"`
	JobTitle       string                       `json:"job_title"`
	HiringManager  string                       `json:"hiring_manager"`
	Department     string                       `json:"department"`
	JobDescription string                       `json:"job_description"`
	AshbyJobID     string                       `json:"ashby_job_id"`
	ExtractedData  *types.ExtractedRequirements `json:"extracted_data"`
	OrgContext     *types.OrgContext            `json:"org_context"`
	Templates      []types.TemplateHit          `json:"templates"`
	InterviewLoop  *types.LoopPlan              `json:"interview_loop"`
	CreatedBy      string                       `json:"created_by"`
	PublishedAt    *time.Time                   `json:"published_at,omitempty"`
	ConfluenceURL  string                       `json:"confluence_url"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
	DeletedAt      *time.Time                   `json:"deleted_at,omitempty"`
}

// IntakeFilter narrows ListIntakes
type IntakeFilter struct {
	CreatedBy string
	Status    string
	Limit     int
}

// IntakeVersion is a snapshot of an intake taken before an update
type IntakeVersion struct {
	ID            uuid.UUID       `json:"id"`
	IntakeID      uuid.UUID       `json:"intake_id"`
	VersionNumber int             `json:"version_number"`
	Data          json.RawMessage `json:"data"`
	ChangedBy     string          `json:"changed_by"`
	ChangeSummary string          `json:"change_summary"`
	ChangedAt     time.Time       `json:"changed_at"`
}

// IntakeActivity is one entry of an intake's audit log
type IntakeActivity struct {
	ID        uuid.UUID      `json:"id"`
	IntakeID  uuid.UUID      `json:"intake_id"`
	UserEmail string         `json:"user_email"`
	UserName  string         `json:"user_name,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}

// Comment is a reviewer note on an intake, optionally scoped to a section
type Comment struct {
	ID         uuid.UUID  `json:"id"`
	IntakeID   uuid.UUID  `json:"intake_id"`
	UserEmail  string     `json:"user_email"`
	UserName   string     `json:"user_name,omitempty"`
	Comment    string     `json:"comment"`
	Section    string     `json:"section,omitempty"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy *string    `json:"resolved_by"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CommentFilter narrows ListComments
type CommentFilter struct {
	IntakeID        uuid.UUID
	Section         string
	IncludeResolved bool
}

// Share grants a person access to an intake. One share per (intake, person).
type Share struct {
	ID         uuid.UUID `json:"id"`
	IntakeID   uuid.UUID `json:"intake_id"`
	SharedWith string    `json:"shared_with"`
	Permission string    `json:"permission"`
	SharedBy   string    `json:"shared_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UploadedFile is a stored source document
type UploadedFile struct {
	ID            uuid.UUID       `json:"id"`
	UserID        string          `json:"user_id"`
	FileName      string          `json:"file_name"`
	FileType      string          `json:"file_type"`
	FileSize      int64           `json:"file_size"`
	FileContent   []byte          `json:"-"`
	ExtractedData json.RawMessage `json:"extracted_data,omitempty"`
	IntakeID      *uuid.UUID      `json:"intake_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// UploadFilter narrows ListUploads
type UploadFilter struct {
	UserID string
	Limit  int
}

// DefaultUploadListLimit is how many uploads ListUploads returns when no limit is given
const DefaultUploadListLimit = 20
