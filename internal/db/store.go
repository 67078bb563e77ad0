package db

import (
	"context"

	"github.com/google/uuid"
)

// Queries is every read and write the intake service performs. Lookups of a
// single row return nil with no error when the row does not exist.
type Queries interface {
	CreateIntake(ctx context.Context, in *Intake) (*Intake, error)
	GetIntake(ctx context.Context, id uuid.UUID) (*Intake, error)
	// LockIntake reads an intake and holds it against concurrent updates
	// until the surrounding transaction ends
	LockIntake(ctx context.Context, id uuid.UUID) (*Intake, error)
	ListIntakes(ctx context.Context, f IntakeFilter) ([]Intake, error)
	// SaveIntake writes every mutable column and bumps updated_at
	SaveIntake(ctx context.Context, in *Intake) (*Intake, error)
	SoftDeleteIntake(ctx context.Context, id uuid.UUID) (bool, error)

	NextVersionNumber(ctx context.Context, intakeID uuid.UUID) (int, error)
	CreateVersion(ctx context.Context, v *IntakeVersion) (*IntakeVersion, error)
	ListVersions(ctx context.Context, intakeID uuid.UUID) ([]IntakeVersion, error)

	LogActivity(ctx context.Context, a *IntakeActivity) error
	ListActivity(ctx context.Context, intakeID uuid.UUID, limit int) ([]IntakeActivity, error)

	// UpsertShare creates the share or updates the permission of the existing
	// share for the same person, reporting whether a row was inserted
	UpsertShare(ctx context.Context, s *Share) (*Share, bool, error)
	ListShares(ctx context.Context, intakeID uuid.UUID) ([]Share, error)
	DeleteShare(ctx context.Context, intakeID, shareID uuid.UUID) (*Share, error)

	CreateComment(ctx context.Context, c *Comment) (*Comment, error)
	GetComment(ctx context.Context, intakeID, commentID uuid.UUID) (*Comment, error)
	ListComments(ctx context.Context, f CommentFilter) ([]Comment, error)
	SetCommentResolved(ctx context.Context, intakeID, commentID uuid.UUID, resolved bool, resolvedBy string) (*Comment, error)
	DeleteComment(ctx context.Context, intakeID, commentID uuid.UUID) (bool, error)

	CreateUpload(ctx context.Context, f *UploadedFile) (*UploadedFile, error)
	ListUploads(ctx context.Context, f UploadFilter) ([]UploadedFile, error)
}

// IntakeStore runs queries directly or inside one transaction
type IntakeStore interface {
	Queries
	// InTx runs fn in a transaction, committing when fn returns nil
	InTx(ctx context.Context, fn func(q Queries) error) error
}
