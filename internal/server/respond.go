package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-grc/internal/assessment"
	"github.com/p-n-ai/pai-grc/internal/comment"
	"github.com/p-n-ai/pai-grc/internal/session"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service sentinel errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, assessment.ErrNotFound),
		errors.Is(err, assessment.ErrQuestionnaireNotFound):
		return http.StatusNotFound
	case errors.Is(err, assessment.ErrUnknownQuestion),
		errors.Is(err, assessment.ErrUnknownOption),
		errors.Is(err, assessment.ErrEmptyQuestionnaire),
		errors.Is(err, assessment.ErrInvalidRequest),
		errors.Is(err, comment.ErrInvalidComment):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the request body, rejecting
// unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid request body: trailing data")
	}
	return nil
}

// queryLimit parses ?limit=, defaulting to def and capping at max.
func queryLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}
