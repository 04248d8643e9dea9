// Package graph is a thin Microsoft Graph client: bearer-token injection,
// JSON decoding, error mapping, and cursor pagination over list endpoints.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BaseURL is the Graph v1.0 API root.
const BaseURL = "https://graph.microsoft.com/v1.0"

// TokenProvider supplies a bearer token for one request. Both broker modes
// (service and per-user) satisfy this shape.
type TokenProvider func(ctx context.Context) (string, error)

// RemoteError carries the upstream status and message of a failed
// third-party API call. The message is passed through to the caller.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote api error (status %d): %s", e.Status, e.Message)
}

// Client issues authenticated requests against the Graph API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenProvider

	// OnUnauthorized is invoked when the API answers 401, before the
	// error is returned. The user-mode broker hooks this to drop dead
	// connections so the next call fails fast instead of looping on a
	// revoked token.
	OnUnauthorized func(ctx context.Context)
}

// NewClient creates a Graph client using the given token provider.
func NewClient(token TokenProvider) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    BaseURL,
		token:      token,
	}
}

// SetBaseURL overrides the API root. Used by tests to point at a fake server.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

// GetJSON issues an authenticated GET and decodes the JSON response into out.
// target is either a path relative to the API root or a fully qualified URL
// (next-links arrive fully qualified and are used verbatim).
func (c *Client) GetJSON(ctx context.Context, target string, out any) error {
	url := target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		url = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	tok, err := c.token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && c.OnUnauthorized != nil {
			c.OnUnauthorized(ctx)
		}
		return &RemoteError{Status: resp.StatusCode, Message: readAPIError(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readAPIError extracts the error message from a Graph error body,
// falling back to the raw body when the shape is unexpected.
func readAPIError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return "request failed"
	}

	var parsed struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		if parsed.Error.Code != "" {
			return parsed.Error.Code + ": " + parsed.Error.Message
		}
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
