package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/gridport/gridport/internal/vault"
)

// memStore is an in-memory ConnectionStore.
type memStore struct {
	mu    sync.Mutex
	conns map[string]*Connection
}

func newMemStore() *memStore {
	return &memStore{conns: make(map[string]*Connection)}
}

func (s *memStore) GetConnection(_ context.Context, userID string) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.conns[userID]
	if !ok {
		return nil, nil
	}
	copied := *conn
	return &copied, nil
}

func (s *memStore) UpsertConnection(_ context.Context, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *conn
	s.conns[conn.UserID] = &copied
	return nil
}

func (s *memStore) DeleteConnection(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, userID)
	return nil
}

// oauthServer fakes the provider's token endpoint and records grant types.
func oauthServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	grants := &[]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		mu.Lock()
		*grants = append(*grants, r.PostForm.Get("grant_type"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	return srv, grants
}

func newTestUserBroker(t *testing.T, tokenURL string) (*UserBroker, *memStore) {
	t.Helper()

	v, err := vault.New(bytes.Repeat([]byte("k"), vault.KeySize))
	if err != nil {
		t.Fatal(err)
	}

	cfg := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/callback",
		Scopes:       []string{"Sites.Read.All", "offline_access"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  tokenURL + "/authorize",
			TokenURL: tokenURL + "/token",
		},
	}

	store := newMemStore()
	return NewUserBroker(cfg, v, store, "tenant-1"), store
}

func TestAccessToken_NotConnected(t *testing.T) {
	b, _ := newTestUserBroker(t, "http://unused.invalid")

	_, err := b.AccessToken(context.Background(), "nobody")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestComplete_StoresEncryptedConnection(t *testing.T) {
	srv, grants := oauthServer(t)
	defer srv.Close()

	b, store := newTestUserBroker(t, srv.URL)

	state, err := EncodeState("user-7", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	userID, err := b.Complete(context.Background(), "auth-code", state)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "user-7" {
		t.Errorf("userID = %q, want user-7", userID)
	}
	if len(*grants) != 1 || (*grants)[0] != "authorization_code" {
		t.Errorf("grants = %v, want one authorization_code exchange", *grants)
	}

	conn, err := store.GetConnection(context.Background(), "user-7")
	if err != nil || conn == nil {
		t.Fatalf("connection not stored: %v", err)
	}
	if conn.EncryptedAccessToken == "fresh-access" {
		t.Error("access token stored in plaintext")
	}
	if conn.TenantID != "tenant-1" {
		t.Errorf("tenant = %q, want tenant-1", conn.TenantID)
	}

	got, err := b.vault.Decrypt(conn.EncryptedAccessToken)
	if err != nil || got != "fresh-access" {
		t.Errorf("decrypted access token = %q (%v), want fresh-access", got, err)
	}
}

func TestAccessToken_FreshTokenSkipsRefresh(t *testing.T) {
	srv, grants := oauthServer(t)
	defer srv.Close()

	b, _ := newTestUserBroker(t, srv.URL)

	err := b.save(context.Background(), "user-1", &oauth2.Token{
		AccessToken:  "live-access",
		RefreshToken: "live-refresh",
		Expiry:       time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	tok, err := b.AccessToken(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "live-access" {
		t.Errorf("token = %q, want live-access", tok)
	}
	if len(*grants) != 0 {
		t.Errorf("token endpoint was hit %d times, want 0", len(*grants))
	}
}

func TestAccessToken_RefreshesNearExpiry(t *testing.T) {
	srv, grants := oauthServer(t)
	defer srv.Close()

	b, store := newTestUserBroker(t, srv.URL)

	// Expires within the 5-minute margin: must refresh before use.
	err := b.save(context.Background(), "user-1", &oauth2.Token{
		AccessToken:  "stale-access",
		RefreshToken: "stale-refresh",
		Expiry:       time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	tok, err := b.AccessToken(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "fresh-access" {
		t.Errorf("token = %q, want fresh-access", tok)
	}
	if len(*grants) != 1 || (*grants)[0] != "refresh_token" {
		t.Errorf("grants = %v, want one refresh_token grant", *grants)
	}

	// Both tokens and the expiry must have been rewritten together.
	conn, err := store.GetConnection(context.Background(), "user-1")
	if err != nil || conn == nil {
		t.Fatal("connection missing after refresh")
	}
	access, _ := b.vault.Decrypt(conn.EncryptedAccessToken)
	refresh, _ := b.vault.Decrypt(conn.EncryptedRefreshToken)
	if access != "fresh-access" || refresh != "fresh-refresh" {
		t.Errorf("stored pair = (%q, %q), want fresh pair", access, refresh)
	}
	if !conn.ExpiresAt.After(time.Now().Add(30 * time.Minute)) {
		t.Errorf("expiry %v was not extended", conn.ExpiresAt)
	}
}

func TestDropOnUnauthorized_DeletesConnection(t *testing.T) {
	srv, _ := oauthServer(t)
	defer srv.Close()

	b, _ := newTestUserBroker(t, srv.URL)

	err := b.save(context.Background(), "user-1", &oauth2.Token{
		AccessToken:  "revoked-access",
		RefreshToken: "revoked-refresh",
		Expiry:       time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Simulate the Graph client seeing a 401.
	b.DropOnUnauthorized("user-1")(context.Background())

	_, err = b.AccessToken(context.Background(), "user-1")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after upstream 401, got %v", err)
	}
}
