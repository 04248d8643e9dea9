package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// File is one imported file. SourceInfo records where the data came from so
// the import can be refreshed later; it is nil for one-shot uploads.
type File struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	MimeType   string
	Size       int64
	SheetCount int
	SourceInfo json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateFile inserts a file record and returns its ID.
func (s *Store) CreateFile(ctx context.Context, ownerID uuid.UUID, name, mimeType string, size int64, sheetCount int, sourceInfo json.RawMessage) (uuid.UUID, error) {
	id := uuid.New()

	_, err := s.db.Exec(ctx, `
		INSERT INTO files (id, owner_id, name, mime_type, size_bytes, sheet_count, source_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, ownerID, name, mimeType, size, sheetCount, sourceInfo,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create file: %w", err)
	}
	return id, nil
}

// GetFileByID returns the file or (nil, nil) if it does not exist.
func (s *Store) GetFileByID(ctx context.Context, id uuid.UUID) (*File, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, name, mime_type, size_bytes, sheet_count, source_info, created_at, updated_at
		FROM files WHERE id = $1`, id)

	var f File
	err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &f.MimeType, &f.Size, &f.SheetCount, &f.SourceInfo, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

// ListFiles returns all files owned by ownerID, newest first.
func (s *Store) ListFiles(ctx context.Context, ownerID uuid.UUID) ([]File, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, name, mime_type, size_bytes, sheet_count, source_info, created_at, updated_at
		FROM files WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.MimeType, &f.Size, &f.SheetCount, &f.SourceInfo, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file; sheets and rows cascade.
func (s *Store) DeleteFile(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file not found: %w", ErrNotFound)
	}
	return nil
}

// TouchFile bumps a file's updated_at, used after a refresh rewrites data.
func (s *Store) TouchFile(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE files SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch file: %w", err)
	}
	return nil
}
