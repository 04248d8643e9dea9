package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/core"
	"github.com/gridport/gridport/internal/database"
)

type userBody struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func (b userBody) validate() error {
	if strings.TrimSpace(b.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(b.Email, "@") {
		return fmt.Errorf("email %q is not valid", b.Email)
	}
	return nil
}

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	if err := body.validate(); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	user, err := s.store.CreateUser(r.Context(), body.Email, body.DisplayName)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "userID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if user == nil {
		s.respondError(w, r, fmt.Errorf("user %s: %w", id, core.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "userID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	var body userBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	if err := body.validate(); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.store.UpdateUser(r.Context(), id, body.Email, body.DisplayName); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "userID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
