package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/database"
)

// Store is the persistence surface the CRUD handlers need.
// *database.Store satisfies it.
type Store interface {
	GetFileByID(ctx context.Context, id uuid.UUID) (*database.File, error)
	ListFiles(ctx context.Context, ownerID uuid.UUID) ([]database.File, error)
	DeleteFile(ctx context.Context, id uuid.UUID) error
	ListSheets(ctx context.Context, fileID uuid.UUID) ([]database.Sheet, error)
	GetSheetByID(ctx context.Context, id uuid.UUID) (*database.Sheet, error)
	GetRows(ctx context.Context, sheetID uuid.UUID) ([][]string, error)

	CreateUser(ctx context.Context, email, displayName string) (*database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*database.User, error)
	ListUsers(ctx context.Context) ([]database.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, email, displayName string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateDashboard(ctx context.Context, userID uuid.UUID, name string, layout json.RawMessage) (*database.Dashboard, error)
	GetDashboardByID(ctx context.Context, id uuid.UUID) (*database.Dashboard, error)
	ListDashboards(ctx context.Context, userID uuid.UUID) ([]database.Dashboard, error)
	UpdateDashboard(ctx context.Context, id uuid.UUID, name string, layout json.RawMessage) error
	DeleteDashboard(ctx context.Context, id uuid.UUID) error
}

// writeJSON encodes v with the given status. Encoding failures can only be
// logged since the header is already out.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathUUID parses a UUID route parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// readUpload reads one multipart file field, capped at maxBytes.
func readUpload(r *http.Request, field string, maxBytes int64) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, "", fmt.Errorf("invalid multipart request: %w", err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("no file provided in field %q", field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("file too large: exceeds the %d byte limit", maxBytes)
	}
	return data, header.Filename, nil
}
