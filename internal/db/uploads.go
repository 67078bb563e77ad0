package db

import (
	"context"
	"fmt"
)

// -----------------------------------------------------------------------------
// Uploaded File Methods
// -----------------------------------------------------------------------------

// CreateUpload stores an uploaded file with its content
func (q *pgQueries) CreateUpload(ctx context.Context, f *UploadedFile) (*UploadedFile, error) {
	out := *f
	out.FileContent = nil
	var extracted []byte
	if len(f.ExtractedData) > 0 {
		extracted = []byte(f.ExtractedData)
	}

	err := q.q.QueryRow(ctx,
		`INSERT INTO uploaded_files (user_id, file_name, file_type, file_size, file_content,
		        extracted_data, intake_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		f.UserID, f.FileName, f.FileType, f.FileSize, f.FileContent, extracted, f.IntakeID,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save uploaded file %s: %w", f.FileName, err)
	}
	return &out, nil
}

// ListUploads returns file metadata without content, newest first
func (q *pgQueries) ListUploads(ctx context.Context, f UploadFilter) ([]UploadedFile, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultUploadListLimit
	}

	rows, err := q.q.Query(ctx,
		`SELECT id, user_id, file_name, file_type, file_size, extracted_data, intake_id, created_at
		 FROM uploaded_files
		 WHERE ($1::text IS NULL OR user_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2`,
		nullIfEmpty(f.UserID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploaded files: %w", err)
	}
	defer rows.Close()

	files := []UploadedFile{}
	for rows.Next() {
		var u UploadedFile
		var extracted []byte
		if err := rows.Scan(&u.ID, &u.UserID, &u.FileName, &u.FileType, &u.FileSize,
			&extracted, &u.IntakeID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan uploaded file: %w", err)
		}
		if len(extracted) > 0 {
			u.ExtractedData = extracted
		}
		files = append(files, u)
	}
	return files, rows.Err()
}
