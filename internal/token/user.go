package token

// user.go is the user-mode (delegated identity) broker. Each user has at
// most one connection record holding their encrypted token pair; the broker
// refreshes the pair transparently when it is near expiry and deletes it
// outright when the remote API reports the tokens dead.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/gridport/gridport/internal/vault"
)

// Connection is a user's stored OAuth connection. Token values are
// encrypted at rest; ExpiresAt refers to the access token.
type Connection struct {
	UserID                string
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	ExpiresAt             time.Time
	TenantID              string
}

// ConnectionStore persists per-user connections. Get returns (nil, nil)
// when the user has no connection.
type ConnectionStore interface {
	GetConnection(ctx context.Context, userID string) (*Connection, error)
	UpsertConnection(ctx context.Context, conn *Connection) error
	DeleteConnection(ctx context.Context, userID string) error
}

// UserBroker manages delegated tokens for the authorization-code flow.
type UserBroker struct {
	oauth    *oauth2.Config
	vault    *vault.Vault
	store    ConnectionStore
	tenantID string
	now      func() time.Time
}

// NewUserBroker creates a user-mode broker. The oauth config carries the
// identity provider's endpoints, client credentials, redirect URI and scopes.
func NewUserBroker(cfg *oauth2.Config, v *vault.Vault, store ConnectionStore, tenantID string) *UserBroker {
	return &UserBroker{
		oauth:    cfg,
		vault:    v,
		store:    store,
		tenantID: tenantID,
		now:      time.Now,
	}
}

// AuthURL builds the authorization URL for userID. The user's identity
// travels in the state parameter, so the callback needs no session.
func (b *UserBroker) AuthURL(userID string) (string, error) {
	state, err := EncodeState(userID, b.now())
	if err != nil {
		return "", err
	}
	return b.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Complete finishes the authorization-code flow: it recovers the user from
// the state, exchanges the code, and stores the encrypted token pair.
// Returns the user ID the connection was created for.
func (b *UserBroker) Complete(ctx context.Context, code, state string) (string, error) {
	st, err := DecodeState(state)
	if err != nil {
		return "", err
	}

	tok, err := b.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}

	if err := b.save(ctx, st.UserID, tok); err != nil {
		return "", err
	}
	return st.UserID, nil
}

// AccessToken returns a usable decrypted access token for userID,
// refreshing the stored pair first when it is within the safety margin
// of expiry. A user without a connection gets ErrNotConnected.
func (b *UserBroker) AccessToken(ctx context.Context, userID string) (string, error) {
	conn, err := b.store.GetConnection(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load connection: %w", err)
	}
	if conn == nil {
		return "", ErrNotConnected
	}

	if conn.ExpiresAt.After(b.now().Add(SafetyMargin)) {
		return b.vault.Decrypt(conn.EncryptedAccessToken)
	}

	return b.refresh(ctx, conn)
}

// refresh renews the token pair with the refresh grant and rewrites the
// stored connection. Both tokens and the expiry are replaced together.
func (b *UserBroker) refresh(ctx context.Context, conn *Connection) (string, error) {
	refreshToken, err := b.vault.Decrypt(conn.EncryptedRefreshToken)
	if err != nil {
		return "", err
	}

	src := b.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("refresh token grant: %w", err)
	}

	// Some providers omit the refresh token on renewal; keep the old one.
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}

	if err := b.save(ctx, conn.UserID, tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// save encrypts and upserts a token pair for userID.
func (b *UserBroker) save(ctx context.Context, userID string, tok *oauth2.Token) error {
	encAccess, err := b.vault.Encrypt(tok.AccessToken)
	if err != nil {
		return err
	}
	encRefresh, err := b.vault.Encrypt(tok.RefreshToken)
	if err != nil {
		return err
	}

	conn := &Connection{
		UserID:                userID,
		EncryptedAccessToken:  encAccess,
		EncryptedRefreshToken: encRefresh,
		ExpiresAt:             tok.Expiry,
		TenantID:              b.tenantID,
	}
	if err := b.store.UpsertConnection(ctx, conn); err != nil {
		return fmt.Errorf("store connection: %w", err)
	}
	return nil
}

// Connected reports whether userID has a stored connection.
func (b *UserBroker) Connected(ctx context.Context, userID string) (bool, error) {
	conn, err := b.store.GetConnection(ctx, userID)
	if err != nil {
		return false, err
	}
	return conn != nil, nil
}

// Disconnect deletes the user's stored connection.
func (b *UserBroker) Disconnect(ctx context.Context, userID string) error {
	return b.store.DeleteConnection(ctx, userID)
}

// DropOnUnauthorized returns a hook that deletes userID's connection.
// Wired into the Graph client's 401 handling: a revoked token is removed
// immediately so the next call fails fast with ErrNotConnected instead of
// looping on a dead token.
func (b *UserBroker) DropOnUnauthorized(userID string) func(context.Context) {
	return func(ctx context.Context) {
		if err := b.store.DeleteConnection(ctx, userID); err != nil {
			slog.Error("failed to drop dead connection", "user_id", userID, "error", err)
			return
		}
		slog.Info("dropped connection after upstream 401", "user_id", userID)
	}
}
