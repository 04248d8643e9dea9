package web

// handlers_auth.go implements the delegated OAuth surface: a user connects
// their Microsoft account, the callback stores the encrypted token pair, and
// status/disconnect manage the stored connection.

import (
	"fmt"
	"net/http"
)

// requireConnector answers 503 when the delegated flow is not configured.
func (s *Server) requireConnector(w http.ResponseWriter, r *http.Request) bool {
	if s.connector == nil {
		s.respondErrorStatus(w, r,
			fmt.Errorf("delegated sharepoint flow is not configured"),
			http.StatusServiceUnavailable)
		return false
	}
	return true
}

// handleAuthConnect redirects the user to the Microsoft consent page. The
// initiating user travels in the OAuth state parameter, so the callback
// needs no session.
func (s *Server) handleAuthConnect(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnector(w, r) {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondErrorStatus(w, r, fmt.Errorf("user_id query parameter is required"), http.StatusBadRequest)
		return
	}

	authURL, err := s.connector.AuthURL(userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleAuthCallback exchanges the authorization code and stores the
// encrypted token pair for the user recovered from the state parameter.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnector(w, r) {
		return
	}

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		s.respondErrorStatus(w, r,
			fmt.Errorf("authorization was denied: %s", errCode),
			http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		s.respondErrorStatus(w, r, fmt.Errorf("callback requires code and state"), http.StatusBadRequest)
		return
	}

	userID, err := s.connector.Complete(r.Context(), code, state)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connected": true, "userId": userID})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnector(w, r) {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondErrorStatus(w, r, fmt.Errorf("user_id query parameter is required"), http.StatusBadRequest)
		return
	}

	connected, err := s.connector.Connected(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connected": connected})
}

func (s *Server) handleAuthDisconnect(w http.ResponseWriter, r *http.Request) {
	if !s.requireConnector(w, r) {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondErrorStatus(w, r, fmt.Errorf("user_id query parameter is required"), http.StatusBadRequest)
		return
	}

	if err := s.connector.Disconnect(r.Context(), userID); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connected": false})
}
