package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Version and Activity Methods
// -----------------------------------------------------------------------------

// NextVersionNumber returns one more than the highest version of an intake.
// Call it while holding LockIntake so concurrent updates cannot collide.
func (q *pgQueries) NextVersionNumber(ctx context.Context, intakeID uuid.UUID) (int, error) {
	var next int
	err := q.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM intake_versions WHERE intake_id = $1`,
		intakeID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to get next version number: %w", err)
	}
	return next, nil
}

// CreateVersion stores a snapshot of an intake
func (q *pgQueries) CreateVersion(ctx context.Context, v *IntakeVersion) (*IntakeVersion, error) {
	var out IntakeVersion
	var data []byte
	err := q.q.QueryRow(ctx,
		`INSERT INTO intake_versions (intake_id, version_number, data, changed_by, change_summary)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, intake_id, version_number, data, changed_by, change_summary, changed_at`,
		v.IntakeID, v.VersionNumber, []byte(v.Data), v.ChangedBy, v.ChangeSummary,
	).Scan(&out.ID, &out.IntakeID, &out.VersionNumber, &data, &out.ChangedBy,
		&out.ChangeSummary, &out.ChangedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create version %d: %w", v.VersionNumber,
			asDuplicate(err, "intake version"))
	}
	out.Data = data
	return &out, nil
}

// ListVersions returns an intake's versions, newest first
func (q *pgQueries) ListVersions(ctx context.Context, intakeID uuid.UUID) ([]IntakeVersion, error) {
	rows, err := q.q.Query(ctx,
		`SELECT id, intake_id, version_number, data, changed_by, change_summary, changed_at
		 FROM intake_versions WHERE intake_id = $1
		 ORDER BY version_number DESC`,
		intakeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := []IntakeVersion{}
	for rows.Next() {
		var v IntakeVersion
		var data []byte
		if err := rows.Scan(&v.ID, &v.IntakeID, &v.VersionNumber, &data, &v.ChangedBy,
			&v.ChangeSummary, &v.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		v.Data = data
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// LogActivity appends an activity entry
func (q *pgQueries) LogActivity(ctx context.Context, a *IntakeActivity) error {
	details := a.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal activity details: %w", err)
	}

	_, err = q.q.Exec(ctx,
		`INSERT INTO intake_activity (intake_id, user_email, user_name, action, details)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.IntakeID, a.UserEmail, nullIfEmpty(a.UserName), a.Action, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to log %s activity: %w", a.Action, err)
	}
	return nil
}

// ListActivity returns the most recent activity entries, newest first
func (q *pgQueries) ListActivity(ctx context.Context, intakeID uuid.UUID, limit int) ([]IntakeActivity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := q.q.Query(ctx,
		`SELECT id, intake_id, user_email, COALESCE(user_name, ''), action, details, created_at
		 FROM intake_activity WHERE intake_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2`,
		intakeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []IntakeActivity{}
	for rows.Next() {
		var a IntakeActivity
		var detailsJSON []byte
		if err := rows.Scan(&a.ID, &a.IntakeID, &a.UserEmail, &a.UserName, &a.Action,
			&detailsJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &a.Details)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
