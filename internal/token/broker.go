// Package token acquires and caches bearer tokens for the remote APIs.
//
// Two independent modes share the same cached-token shape:
//
//   - service mode: a single process-wide token from the client-credentials
//     grant, refreshed synchronously when absent or near expiry.
//   - user mode: one token set per user from the authorization-code grant,
//     persisted encrypted and refreshed transparently before use.
//
// Refresh is the only self-healing path in the system: an expiring token is
// renewed before use, never retried after failure.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SafetyMargin is subtracted from a token's expiry when deciding usability:
// a token is used only while now < expiresAt - SafetyMargin.
const SafetyMargin = 5 * time.Minute

// ErrNotConnected indicates the user has no stored OAuth connection. The
// caller should surface this as a "needs auth" response and redirect the
// user into the connect flow.
var ErrNotConnected = errors.New("user has no active connection")

// cachedToken is an acquired bearer token with its absolute expiry.
// Replaced wholesale on refresh, never mutated in place.
type cachedToken struct {
	value     string
	expiresAt time.Time
}

// usable reports whether the token can still be presented upstream.
func (t cachedToken) usable(now time.Time) bool {
	return t.value != "" && now.Before(t.expiresAt.Add(-SafetyMargin))
}

// Broker is the service-mode (application identity) token broker. It holds
// one process-wide cached token and refreshes it on demand. Concurrent
// refreshes are collapsed to a single upstream request.
type Broker struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	httpClient *http.Client
	now        func() time.Time

	mu     sync.RWMutex
	cached cachedToken
	group  singleflight.Group
}

// NewBroker creates a service-mode broker for the given token endpoint.
func NewBroker(tokenURL, clientID, clientSecret, scope string) *Broker {
	return &Broker{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scope:        scope,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
}

// Token returns a usable bearer token, fetching a fresh one when the cache
// is empty or within the safety margin of expiry.
func (b *Broker) Token(ctx context.Context) (string, error) {
	b.mu.RLock()
	cached := b.cached
	b.mu.RUnlock()

	if cached.usable(b.now()) {
		return cached.value, nil
	}

	// Collapse concurrent refreshes into one upstream request.
	v, err, _ := b.group.Do("token", func() (any, error) {
		b.mu.RLock()
		cached := b.cached
		b.mu.RUnlock()
		if cached.usable(b.now()) {
			return cached.value, nil
		}

		fresh, err := b.fetch(ctx)
		if err != nil {
			return "", err
		}

		b.mu.Lock()
		b.cached = fresh
		b.mu.Unlock()
		return fresh.value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (b *Broker) Invalidate() {
	b.mu.Lock()
	b.cached = cachedToken{}
	b.mu.Unlock()
}

// tokenResponse is the OAuth2 token endpoint wire shape.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// fetch performs the client-credentials grant.
func (b *Broker) fetch(ctx context.Context) (cachedToken, error) {
	if b.ClientID == "" || b.ClientSecret == "" || b.TokenURL == "" {
		return cachedToken{}, errors.New("token broker is not configured: missing client credentials")
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {b.ClientID},
		"client_secret": {b.ClientSecret},
		"scope":         {b.Scope},
	}

	resp, err := b.postForm(ctx, form)
	if err != nil {
		return cachedToken{}, err
	}

	return cachedToken{
		value:     resp.AccessToken,
		expiresAt: b.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

// postForm posts a grant request and decodes the token response.
func (b *Broker) postForm(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer httpResp.Body.Close()

	var resp tokenResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK || resp.AccessToken == "" {
		msg := resp.ErrorDescription
		if msg == "" {
			msg = resp.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("token endpoint returned status %d", httpResp.StatusCode)
		}
		return nil, fmt.Errorf("token request failed: %s", msg)
	}

	return &resp, nil
}
