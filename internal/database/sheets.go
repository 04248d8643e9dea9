package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Sheet is one worksheet of an imported file.
type Sheet struct {
	ID          uuid.UUID
	FileID      uuid.UUID
	Name        string
	Position    int
	RowCount    int
	ColumnCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateSheet inserts a sheet record and returns its ID.
func (s *Store) CreateSheet(ctx context.Context, fileID uuid.UUID, name string, position, rowCount, columnCount int) (uuid.UUID, error) {
	id := uuid.New()

	_, err := s.db.Exec(ctx, `
		INSERT INTO sheets (id, file_id, name, position, row_count, column_count)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, fileID, name, position, rowCount, columnCount,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create sheet: %w", err)
	}
	return id, nil
}

// GetSheetByID returns the sheet or (nil, nil) if it does not exist.
func (s *Store) GetSheetByID(ctx context.Context, id uuid.UUID) (*Sheet, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, file_id, name, position, row_count, column_count, created_at, updated_at
		FROM sheets WHERE id = $1`, id)

	var sh Sheet
	err := row.Scan(&sh.ID, &sh.FileID, &sh.Name, &sh.Position, &sh.RowCount, &sh.ColumnCount, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sheet: %w", err)
	}
	return &sh, nil
}

// ListSheets returns a file's sheets in position order.
func (s *Store) ListSheets(ctx context.Context, fileID uuid.UUID) ([]Sheet, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, file_id, name, position, row_count, column_count, created_at, updated_at
		FROM sheets WHERE file_id = $1 ORDER BY position`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	var sheets []Sheet
	for rows.Next() {
		var sh Sheet
		if err := rows.Scan(&sh.ID, &sh.FileID, &sh.Name, &sh.Position, &sh.RowCount, &sh.ColumnCount, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		sheets = append(sheets, sh)
	}
	return sheets, rows.Err()
}

// ReplaceSheetData deletes a sheet's rows, writes the new rows in order,
// and updates the stored counts. Used by import refresh, which rewrites
// data without recreating the file and sheet records.
func (s *Store) ReplaceSheetData(ctx context.Context, sheetID uuid.UUID, rows [][]string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sheet_rows WHERE sheet_id = $1`, sheetID); err != nil {
		return fmt.Errorf("clear sheet rows: %w", err)
	}

	for i, row := range rows {
		if err := s.CreateRow(ctx, sheetID, i, row); err != nil {
			return err
		}
	}

	columnCount := 0
	if len(rows) > 0 {
		columnCount = len(rows[0])
	}
	_, err := s.db.Exec(ctx, `
		UPDATE sheets SET row_count = $2, column_count = $3, updated_at = now()
		WHERE id = $1`,
		sheetID, len(rows), columnCount,
	)
	if err != nil {
		return fmt.Errorf("update sheet counts: %w", err)
	}
	return nil
}
