package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/core"
	"github.com/gridport/gridport/internal/database"
)

type dashboardBody struct {
	UserID uuid.UUID       `json:"userId"`
	Name   string          `json:"name"`
	Layout json.RawMessage `json:"layout"`
}

func (b dashboardBody) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("dashboard name is required")
	}
	return nil
}

type dashboardResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Name      string          `json:"name"`
	Layout    json.RawMessage `json:"layout,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toDashboardResponse(d database.Dashboard) dashboardResponse {
	return dashboardResponse{
		ID:        d.ID,
		UserID:    d.UserID,
		Name:      d.Name,
		Layout:    d.Layout,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (s *Server) handleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var body dashboardBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	if err := body.validate(); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	dash, err := s.store.CreateDashboard(r.Context(), body.UserID, body.Name, body.Layout)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDashboardResponse(*dash))
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		s.respondErrorStatus(w, r, fmt.Errorf("user_id query parameter is required"), http.StatusBadRequest)
		return
	}

	dashboards, err := s.store.ListDashboards(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]dashboardResponse, 0, len(dashboards))
	for _, d := range dashboards {
		out = append(out, toDashboardResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "dashboardID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	dash, err := s.store.GetDashboardByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if dash == nil {
		s.respondError(w, r, fmt.Errorf("dashboard %s: %w", id, core.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, toDashboardResponse(*dash))
}

func (s *Server) handleUpdateDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "dashboardID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	var body dashboardBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	if err := body.validate(); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.store.UpdateDashboard(r.Context(), id, body.Name, body.Layout); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "dashboardID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteDashboard(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
