package web

// errors.go maps service errors to HTTP responses. The technical error is
// logged with the request ID; the client only sees the mapped user message
// and a support code.

import (
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"google.golang.org/api/googleapi"

	"github.com/gridport/gridport/internal/core"
	"github.com/gridport/gridport/internal/database"
	"github.com/gridport/gridport/internal/graph"
	"github.com/gridport/gridport/internal/token"
	"github.com/gridport/gridport/internal/vault"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor decides the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, token.ErrNotConnected):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound), errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyResult), errors.Is(err, core.ErrNotRefreshable):
		return http.StatusBadRequest
	case errors.Is(err, vault.ErrConfiguration):
		return http.StatusInternalServerError
	}

	var remote *graph.RemoteError
	if errors.As(err, &remote) {
		return http.StatusBadGateway
	}
	var gapi *googleapi.Error
	if errors.As(err, &gapi) {
		return http.StatusBadGateway
	}

	return http.StatusBadRequest
}

// respondError logs the technical error and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusFor(err))
}

// respondErrorStatus is respondError with the status forced by the caller,
// used where the handler knows better than the generic mapping.
func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	)

	writeJSON(w, status, errorBody{Error: msg.Message, Code: msg.Code})
}
