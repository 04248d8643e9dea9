package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gridport/gridport/internal/token"
)

// connections.go implements token.ConnectionStore on user_connections.
// The user_id primary key enforces exactly one connection per user; the
// upsert replaces the token pair and expiry in one statement.

// GetConnection returns the user's connection or (nil, nil) when absent.
func (s *Store) GetConnection(ctx context.Context, userID string) (*token.Connection, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, encrypted_access_token, encrypted_refresh_token, expires_at, tenant_id
		FROM user_connections WHERE user_id = $1`, userID)

	var conn token.Connection
	err := row.Scan(&conn.UserID, &conn.EncryptedAccessToken, &conn.EncryptedRefreshToken, &conn.ExpiresAt, &conn.TenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return &conn, nil
}

// UpsertConnection creates or replaces the user's connection record.
func (s *Store) UpsertConnection(ctx context.Context, conn *token.Connection) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_connections (user_id, encrypted_access_token, encrypted_refresh_token, expires_at, tenant_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			encrypted_access_token  = EXCLUDED.encrypted_access_token,
			encrypted_refresh_token = EXCLUDED.encrypted_refresh_token,
			expires_at              = EXCLUDED.expires_at,
			tenant_id               = EXCLUDED.tenant_id,
			updated_at              = now()`,
		conn.UserID, conn.EncryptedAccessToken, conn.EncryptedRefreshToken, conn.ExpiresAt, conn.TenantID,
	)
	if err != nil {
		return fmt.Errorf("upsert connection: %w", err)
	}
	return nil
}

// DeleteConnection removes the user's connection. Deleting an absent
// connection is not an error; disconnect is idempotent.
func (s *Store) DeleteConnection(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM user_connections WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}
