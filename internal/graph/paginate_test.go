package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testToken(ctx context.Context) (string, error) { return "test-token", nil }

// pagedServer serves pages of fixed size until pageCount pages are consumed.
func pagedServer(t *testing.T, pageCount, pageSize int, requests *int) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests++

		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", got)
		}

		pageNum := 1
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &pageNum)

		items := make([]map[string]any, pageSize)
		for i := range items {
			items[i] = map[string]any{"id": fmt.Sprintf("p%d-i%d", pageNum, i)}
		}

		resp := map[string]any{"value": items}
		if pageNum < pageCount {
			resp["@odata.nextLink"] = fmt.Sprintf("%s/items?page=%d", srv.URL, pageNum+1)
		}
		json.NewEncoder(w).Encode(resp)
	}))
	return srv
}

func TestFetchAll_Terminates(t *testing.T) {
	const pages, size = 4, 25

	var requests int
	srv := pagedServer(t, pages, size, &requests)
	defer srv.Close()

	c := NewClient(testToken)
	c.SetBaseURL(srv.URL)

	records, err := c.FetchAll(context.Background(), "/items?page=1")
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != pages*size {
		t.Errorf("got %d records, want %d", len(records), pages*size)
	}
	if requests != pages {
		t.Errorf("made %d requests, want %d", requests, pages)
	}
}

func TestFetchAll_StopsAtRecordCap(t *testing.T) {
	const pageSize = 30_000

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		items := make([]map[string]any, pageSize)
		for i := range items {
			items[i] = map[string]any{"n": i}
		}
		// Always another page: the cap is the only way out.
		json.NewEncoder(w).Encode(map[string]any{
			"value":           items,
			"@odata.nextLink": "http://" + r.Host + "/more",
		})
	}))
	defer srv.Close()

	c := NewClient(testToken)
	c.SetBaseURL(srv.URL)

	records, err := c.FetchAll(context.Background(), "/items")
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != MaxRecords {
		t.Errorf("got %d records, want exactly %d", len(records), MaxRecords)
	}
	wantRequests := (MaxRecords + pageSize - 1) / pageSize
	if requests != wantRequests {
		t.Errorf("made %d requests, want %d", requests, wantRequests)
	}
}

func TestFetchAll_RemoteErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "accessDenied", "message": "no access to list"},
		})
	}))
	defer srv.Close()

	c := NewClient(testToken)
	c.SetBaseURL(srv.URL)

	records, err := c.FetchAll(context.Background(), "/items")
	if records != nil {
		t.Errorf("expected no partial result on error, got %d records", len(records))
	}

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", remote.Status)
	}
	if remote.Message != "accessDenied: no access to list" {
		t.Errorf("message = %q, want upstream message passed through", remote.Message)
	}
}

func TestGetJSON_UnauthorizedInvokesHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testToken)
	c.SetBaseURL(srv.URL)

	hookCalled := false
	c.OnUnauthorized = func(ctx context.Context) { hookCalled = true }

	err := c.GetJSON(context.Background(), "/me", nil)

	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 RemoteError, got %v", err)
	}
	if !hookCalled {
		t.Error("OnUnauthorized hook was not invoked")
	}
}
