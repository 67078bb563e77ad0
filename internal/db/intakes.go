package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/smart-intake/internal/types"
)

// -----------------------------------------------------------------------------
// Intake Methods
// -----------------------------------------------------------------------------

const intakeColumns = `id, title, status, level, job_title, hiring_manager, department,
	job_description, ashby_job_id, extracted_data, org_context, templates, interview_loop,
	created_by, published_at, confluence_url, created_at, updated_at, deleted_at`

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntake(row rowScanner) (*Intake, error) {
	var in Intake
	var extractedJSON, orgJSON, templatesJSON, loopJSON []byte

	err := row.Scan(&in.ID, &in.Title, &in.Status, &in.Level, &in.JobTitle, &in.HiringManager,
		&in.Department, &in.JobDescription, &in.AshbyJobID, &extractedJSON, &orgJSON,
		&templatesJSON, &loopJSON, &in.CreatedBy, &in.PublishedAt, &in.ConfluenceURL,
		&in.CreatedAt, &in.UpdatedAt, &in.DeletedAt)
	if err != nil {
		return nil, err
	}

	if in.ExtractedData, err = fromJSONB[types.ExtractedRequirements](extractedJSON); err != nil {
		return nil, fmt.Errorf("failed to decode extracted_data: %w", err)
	}
	if in.OrgContext, err = fromJSONB[types.OrgContext](orgJSON); err != nil {
		return nil, fmt.Errorf("failed to decode org_context: %w", err)
	}
	if in.InterviewLoop, err = fromJSONB[types.LoopPlan](loopJSON); err != nil {
		return nil, fmt.Errorf("failed to decode interview_loop: %w", err)
	}
	templates, err := fromJSONB[[]types.TemplateHit](templatesJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	in.Templates = []types.TemplateHit{}
	if templates != nil {
		in.Templates = *templates
	}
	return &in, nil
}

// intakeArgs encodes the JSONB columns of an intake
func intakeArgs(in *Intake) (extracted, org, templates, loop []byte, err error) {
	if extracted, err = toJSONB(in.ExtractedData); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal extracted_data: %w", err)
	}
	if org, err = toJSONB(in.OrgContext); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal org_context: %w", err)
	}
	if loop, err = toJSONB(in.InterviewLoop); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal interview_loop: %w", err)
	}
	hits := in.Templates
	if hits == nil {
		hits = []types.TemplateHit{}
	}
	if templates, err = toJSONB(&hits); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal templates: %w", err)
	}
	return extracted, org, templates, loop, nil
}

// CreateIntake inserts an intake. An empty status becomes draft.
func (q *pgQueries) CreateIntake(ctx context.Context, in *Intake) (*Intake, error) {
	extracted, org, templates, loop, err := intakeArgs(in)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = StatusDraft
	}

	row := q.q.QueryRow(ctx,
		`INSERT INTO intakes (title, status, level, job_title, hiring_manager, department,
		        job_description, ashby_job_id, extracted_data, org_context, templates,
		        interview_loop, created_by, published_at, confluence_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+intakeColumns,
		in.Title, status, in.Level, in.JobTitle, in.HiringManager, in.Department,
		in.JobDescription, in.AshbyJobID, extracted, org, templates, loop,
		in.CreatedBy, in.PublishedAt, in.ConfluenceURL,
	)
	created, err := scanIntake(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create intake: %w", err)
	}
	return created, nil
}

// GetIntake returns a live intake by ID, or nil if it does not exist or was deleted
func (q *pgQueries) GetIntake(ctx context.Context, id uuid.UUID) (*Intake, error) {
	return q.getIntake(ctx, id, "")
}

// LockIntake is GetIntake with a row lock held until the transaction ends
func (q *pgQueries) LockIntake(ctx context.Context, id uuid.UUID) (*Intake, error) {
	return q.getIntake(ctx, id, " FOR UPDATE")
}

func (q *pgQueries) getIntake(ctx context.Context, id uuid.UUID, suffix string) (*Intake, error) {
	row := q.q.QueryRow(ctx,
		`SELECT `+intakeColumns+` FROM intakes WHERE id = $1 AND deleted_at IS NULL`+suffix,
		id,
	)
	in, err := scanIntake(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get intake: %w", err)
	}
	return in, nil
}

// ListIntakes returns live intakes, most recently updated first
func (q *pgQueries) ListIntakes(ctx context.Context, f IntakeFilter) ([]Intake, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := q.q.Query(ctx,
		`SELECT `+intakeColumns+` FROM intakes
		 WHERE deleted_at IS NULL
		   AND ($1::text IS NULL OR created_by = $1)
		   AND ($2::text IS NULL OR status = $2)
		 ORDER BY updated_at DESC
		 LIMIT $3`,
		nullIfEmpty(f.CreatedBy), nullIfEmpty(f.Status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list intakes: %w", err)
	}
	defer rows.Close()

	intakes := []Intake{}
	for rows.Next() {
		in, err := scanIntake(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intake: %w", err)
		}
		intakes = append(intakes, *in)
	}
	return intakes, rows.Err()
}

// SaveIntake writes every mutable column of in
func (q *pgQueries) SaveIntake(ctx context.Context, in *Intake) (*Intake, error) {
	extracted, org, templates, loop, err := intakeArgs(in)
	if err != nil {
		return nil, err
	}

	row := q.q.QueryRow(ctx,
		`UPDATE intakes SET
		     title = $2, status = $3, level = $4, job_title = $5, hiring_manager = $6,
		     department = $7, job_description = $8, ashby_job_id = $9, extracted_data = $10,
		     org_context = $11, templates = $12, interview_loop = $13, published_at = $14,
		     confluence_url = $15, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+intakeColumns,
		in.ID, in.Title, in.Status, in.Level, in.JobTitle, in.HiringManager, in.Department,
		in.JobDescription, in.AshbyJobID, extracted, org, templates, loop,
		in.PublishedAt, in.ConfluenceURL,
	)
	saved, err := scanIntake(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to save intake: %w", err)
	}
	return saved, nil
}

// SoftDeleteIntake marks an intake deleted, reporting false if it was not live
func (q *pgQueries) SoftDeleteIntake(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.q.Exec(ctx,
		`UPDATE intakes SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete intake: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
