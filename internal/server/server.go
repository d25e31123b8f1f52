// Package server exposes the GRC API over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/p-n-ai/pai-grc/internal/advisor"
	"github.com/p-n-ai/pai-grc/internal/assessment"
	"github.com/p-n-ai/pai-grc/internal/audit"
	"github.com/p-n-ai/pai-grc/internal/comment"
	"github.com/p-n-ai/pai-grc/internal/notify"
	"github.com/p-n-ai/pai-grc/internal/session"
)

// Check is a named readiness probe, such as a database ping.
type Check func(ctx context.Context) error

// Config holds the services the HTTP API is built on.
type Config struct {
	Assessments *assessment.Service
	Comments    *comment.Service
	Sessions    *session.Manager
	Audit       audit.Trail
	Advisor     *advisor.Advisor
	Hub         *notify.Hub // nil disables the WebSocket endpoint
	Checks      map[string]Check
}

// Server routes API requests to the underlying services.
type Server struct {
	assessments *assessment.Service
	comments    *comment.Service
	sessions    *session.Manager
	audit       audit.Trail
	advisor     *advisor.Advisor
	hub         *notify.Hub
	checks      map[string]Check
}

// New creates a server.
func New(cfg Config) *Server {
	adv := cfg.Advisor
	if adv == nil {
		adv = advisor.New(nil)
	}
	trail := cfg.Audit
	if trail == nil {
		trail = audit.NewMemoryLogger()
	}
	return &Server{
		assessments: cfg.Assessments,
		comments:    cfg.Comments,
		sessions:    cfg.Sessions,
		audit:       trail,
		advisor:     adv,
		hub:         cfg.Hub,
		checks:      cfg.Checks,
	}
}

// Handler returns the HTTP router with every API route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.Handle("GET /api/v1/sessions/current", s.requireSession(s.handleCurrentSession))
	mux.Handle("DELETE /api/v1/sessions", s.requireSession(s.handleDeleteSession))

	mux.Handle("GET /api/v1/questionnaires", s.requireSession(s.handleListQuestionnaires))
	mux.Handle("GET /api/v1/questionnaires/{id}", s.requireSession(s.handleGetQuestionnaire))

	mux.Handle("POST /api/v1/assessments/preview", s.requireSession(s.handlePreview))
	mux.Handle("GET /api/v1/assessments/{id}", s.requireSession(s.handleGetAssessment))
	mux.Handle("POST /api/v1/vendors/{vendorID}/assessments", s.requireSession(s.handleSubmitAssessment))
	mux.Handle("GET /api/v1/vendors/{vendorID}/assessments", s.requireSession(s.handleAssessmentHistory))
	mux.Handle("GET /api/v1/vendors/{vendorID}/assessments/latest", s.requireSession(s.handleLatestAssessment))
	mux.Handle("GET /api/v1/vendors/{vendorID}/assessments/latest/report.xlsx", s.requireSession(s.handleLatestReport))
	mux.Handle("GET /api/v1/vendors/{vendorID}/assessments/latest/remediation", s.requireSession(s.handleLatestRemediation))

	mux.HandleFunc("POST /api/v1/mentions/extract", s.handleExtractMentions)
	mux.Handle("GET /api/v1/resources/{resource}/comments", s.requireSession(s.handleListComments))
	mux.Handle("POST /api/v1/resources/{resource}/comments", s.requireSession(s.handlePostComment))
	mux.Handle("GET /api/v1/resources/{resource}/audit", s.requireSession(s.handleAuditTrail))

	if s.hub != nil {
		mux.Handle("GET /api/v1/notifications/ws", s.requireSession(s.handleNotifications))
	}
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, readinessResponse{Status: "not ready", Checks: failed})
		return
	}
	writeJSON(w, http.StatusOK, readinessResponse{Status: "ready"})
}
