package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/p-n-ai/pai-grc/internal/session"
)

type sessionKey struct{}

type createSessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createSessionResponse struct {
	Token   string          `json:"token"`
	Session session.Session `json:"session"`
}

// requireSession rejects requests without a live bearer session and puts
// the session in the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Lookup(r.Context(), tokenFrom(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) session.Session {
	sess, _ := ctx.Value(sessionKey{}).(session.Session)
	return sess
}

// tokenFrom reads the bearer token from the Authorization header, or from
// the access_token query parameter for WebSocket clients that cannot set
// headers.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, sess, err := s.sessions.Initialize(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{Token: token, Session: sess})
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Teardown(r.Context(), tokenFrom(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
