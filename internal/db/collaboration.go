package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Share and Comment Methods
// -----------------------------------------------------------------------------

const shareColumns = `id, intake_id, shared_with, permission, shared_by, created_at, updated_at`

func scanShare(row rowScanner, extra ...any) (*Share, error) {
	var s Share
	dest := append([]any{&s.ID, &s.IntakeID, &s.SharedWith, &s.Permission, &s.SharedBy,
		&s.CreatedAt, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertShare implements Queries. xmax is zero only for a freshly inserted row.
func (q *pgQueries) UpsertShare(ctx context.Context, s *Share) (*Share, bool, error) {
	var inserted bool
	row := q.q.QueryRow(ctx,
		`INSERT INTO intake_shares (intake_id, shared_with, permission, shared_by)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (intake_id, shared_with) DO UPDATE SET
		     permission = EXCLUDED.permission,
		     shared_by = EXCLUDED.shared_by,
		     updated_at = NOW()
		 RETURNING `+shareColumns+`, (xmax = 0)`,
		s.IntakeID, s.SharedWith, s.Permission, s.SharedBy,
	)
	share, err := scanShare(row, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert share: %w", err)
	}
	return share, inserted, nil
}

// ListShares returns an intake's shares, newest first
func (q *pgQueries) ListShares(ctx context.Context, intakeID uuid.UUID) ([]Share, error) {
	rows, err := q.q.Query(ctx,
		`SELECT `+shareColumns+` FROM intake_shares WHERE intake_id = $1 ORDER BY created_at DESC`,
		intakeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	shares := []Share{}
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, *s)
	}
	return shares, rows.Err()
}

// DeleteShare removes a share and returns it, or nil if it did not exist
func (q *pgQueries) DeleteShare(ctx context.Context, intakeID, shareID uuid.UUID) (*Share, error) {
	row := q.q.QueryRow(ctx,
		`DELETE FROM intake_shares WHERE id = $1 AND intake_id = $2 RETURNING `+shareColumns,
		shareID, intakeID,
	)
	s, err := scanShare(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete share: %w", err)
	}
	return s, nil
}

const commentColumns = `id, intake_id, user_email, COALESCE(user_name, ''), comment,
	COALESCE(section, ''), resolved, resolved_by, resolved_at, created_at`

func scanComment(row rowScanner) (*Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.IntakeID, &c.UserEmail, &c.UserName, &c.Comment, &c.Section,
		&c.Resolved, &c.ResolvedBy, &c.ResolvedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment adds an unresolved comment
func (q *pgQueries) CreateComment(ctx context.Context, c *Comment) (*Comment, error) {
	row := q.q.QueryRow(ctx,
		`INSERT INTO intake_comments (intake_id, user_email, user_name, comment, section)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+commentColumns,
		c.IntakeID, c.UserEmail, nullIfEmpty(c.UserName), c.Comment, nullIfEmpty(c.Section),
	)
	created, err := scanComment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return created, nil
}

// GetComment returns a comment of an intake, or nil if it does not exist
func (q *pgQueries) GetComment(ctx context.Context, intakeID, commentID uuid.UUID) (*Comment, error) {
	row := q.q.QueryRow(ctx,
		`SELECT `+commentColumns+` FROM intake_comments WHERE id = $1 AND intake_id = $2`,
		commentID, intakeID,
	)
	c, err := scanComment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

// ListComments returns comments newest first, unresolved only unless asked
func (q *pgQueries) ListComments(ctx context.Context, f CommentFilter) ([]Comment, error) {
	rows, err := q.q.Query(ctx,
		`SELECT `+commentColumns+` FROM intake_comments
		 WHERE intake_id = $1
		   AND ($2::text IS NULL OR section = $2)
		   AND ($3 OR NOT resolved)
		 ORDER BY created_at DESC`,
		f.IntakeID, nullIfEmpty(f.Section), f.IncludeResolved,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// SetCommentResolved resolves or reopens a comment. Reopening clears the resolver.
func (q *pgQueries) SetCommentResolved(ctx context.Context, intakeID, commentID uuid.UUID, resolved bool, resolvedBy string) (*Comment, error) {
	row := q.q.QueryRow(ctx,
		`UPDATE intake_comments SET
		     resolved = $3,
		     resolved_by = CASE WHEN $3 THEN $4 ELSE NULL END,
		     resolved_at = CASE WHEN $3 THEN NOW() ELSE NULL END
		 WHERE id = $1 AND intake_id = $2
		 RETURNING `+commentColumns,
		commentID, intakeID, resolved, nullIfEmpty(resolvedBy),
	)
	c, err := scanComment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment, reporting false if it did not exist
func (q *pgQueries) DeleteComment(ctx context.Context, intakeID, commentID uuid.UUID) (bool, error) {
	tag, err := q.q.Exec(ctx,
		`DELETE FROM intake_comments WHERE id = $1 AND intake_id = $2`,
		commentID, intakeID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete comment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
