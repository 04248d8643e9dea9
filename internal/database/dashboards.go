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

// Dashboard is a user-defined arrangement of imported data.
// Layout is an opaque JSON document owned by the frontend.
type Dashboard struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Layout    json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateDashboard inserts a dashboard and returns the created record.
func (s *Store) CreateDashboard(ctx context.Context, userID uuid.UUID, name string, layout json.RawMessage) (*Dashboard, error) {
	id := uuid.New()

	row := s.db.QueryRow(ctx, `
		INSERT INTO dashboards (id, user_id, name, layout)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, layout, created_at, updated_at`,
		id, userID, name, layout,
	)

	var d Dashboard
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Layout, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create dashboard: %w", err)
	}
	return &d, nil
}

// GetDashboardByID returns the dashboard or (nil, nil) if it does not exist.
func (s *Store) GetDashboardByID(ctx context.Context, id uuid.UUID) (*Dashboard, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, name, layout, created_at, updated_at
		FROM dashboards WHERE id = $1`, id)

	var d Dashboard
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Layout, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dashboard: %w", err)
	}
	return &d, nil
}

// ListDashboards returns a user's dashboards, newest first.
func (s *Store) ListDashboards(ctx context.Context, userID uuid.UUID) ([]Dashboard, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, layout, created_at, updated_at
		FROM dashboards WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	defer rows.Close()

	var dashboards []Dashboard
	for rows.Next() {
		var d Dashboard
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Layout, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dashboard: %w", err)
		}
		dashboards = append(dashboards, d)
	}
	return dashboards, rows.Err()
}

// UpdateDashboard rewrites a dashboard's name and layout.
func (s *Store) UpdateDashboard(ctx context.Context, id uuid.UUID, name string, layout json.RawMessage) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE dashboards SET name = $2, layout = $3, updated_at = now()
		WHERE id = $1`,
		id, name, layout,
	)
	if err != nil {
		return fmt.Errorf("update dashboard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dashboard not found: %w", ErrNotFound)
	}
	return nil
}

// DeleteDashboard removes a dashboard.
func (s *Store) DeleteDashboard(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM dashboards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dashboard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dashboard not found: %w", ErrNotFound)
	}
	return nil
}
