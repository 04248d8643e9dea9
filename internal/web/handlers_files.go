package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/core"
	"github.com/gridport/gridport/internal/database"
)

type fileResponse struct {
	ID         uuid.UUID       `json:"id"`
	OwnerID    uuid.UUID       `json:"ownerId"`
	Name       string          `json:"name"`
	MimeType   string          `json:"mimeType"`
	Size       int64           `json:"size"`
	SheetCount int             `json:"sheetCount"`
	SourceInfo json.RawMessage `json:"sourceInfo,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type sheetResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Position    int       `json:"position"`
	RowCount    int       `json:"rowCount"`
	ColumnCount int       `json:"columnCount"`
}

func toFileResponse(f database.File) fileResponse {
	return fileResponse{
		ID:         f.ID,
		OwnerID:    f.OwnerID,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Size:       f.Size,
		SheetCount: f.SheetCount,
		SourceInfo: f.SourceInfo,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

func toSheetResponse(sh database.Sheet) sheetResponse {
	return sheetResponse{
		ID:          sh.ID,
		Name:        sh.Name,
		Position:    sh.Position,
		RowCount:    sh.RowCount,
		ColumnCount: sh.ColumnCount,
	}
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		s.respondErrorStatus(w, r, fmt.Errorf("owner_id query parameter is required"), http.StatusBadRequest)
		return
	}

	files, err := s.store.ListFiles(r.Context(), ownerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathUUID(r, "fileID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	file, err := s.store.GetFileByID(r.Context(), fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if file == nil {
		s.respondError(w, r, fmt.Errorf("file %s: %w", fileID, core.ErrNotFound))
		return
	}

	sheets, err := s.store.ListSheets(r.Context(), fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sheetsOut := make([]sheetResponse, 0, len(sheets))
	for _, sh := range sheets {
		sheetsOut = append(sheetsOut, toSheetResponse(sh))
	}

	writeJSON(w, http.StatusOK, struct {
		fileResponse
		Sheets []sheetResponse `json:"sheets"`
	}{toFileResponse(*file), sheetsOut})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathUUID(r, "fileID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteFile(r.Context(), fileID); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetSheetRows returns a sheet's grid, header row first.
func (s *Server) handleGetSheetRows(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathUUID(r, "fileID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	sheetID, err := pathUUID(r, "sheetID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	sheet, err := s.store.GetSheetByID(r.Context(), sheetID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sheet == nil || sheet.FileID != fileID {
		s.respondError(w, r, fmt.Errorf("sheet %s: %w", sheetID, core.ErrNotFound))
		return
	}

	rows, err := s.store.GetRows(r.Context(), sheetID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheetId": sheetID, "rows": rows})
}
