package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CreateRow inserts one row of cell values at rowIndex. Rows are written
// one at a time in source order; callers rely on row_index reflecting the
// original ordering exactly.
func (s *Store) CreateRow(ctx context.Context, sheetID uuid.UUID, rowIndex int, cells []string) error {
	payload, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO sheet_rows (sheet_id, row_index, cells)
		VALUES ($1, $2, $3)`,
		sheetID, rowIndex, payload,
	)
	if err != nil {
		return fmt.Errorf("create row %d: %w", rowIndex, err)
	}
	return nil
}

// GetRows returns a sheet's rows in index order.
func (s *Store) GetRows(ctx context.Context, sheetID uuid.UUID) ([][]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT cells FROM sheet_rows WHERE sheet_id = $1 ORDER BY row_index`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("get rows: %w", err)
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal(payload, &cells); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		result = append(result, cells)
	}
	return result, rows.Err()
}
