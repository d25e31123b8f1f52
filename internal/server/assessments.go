package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-grc/internal/assessment"
	"github.com/p-n-ai/pai-grc/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type questionnaireSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Sections    int    `json:"sections"`
	Questions   int    `json:"questions"`
}

type questionnaireListResponse struct {
	DefaultID      string                 `json:"default_id"`
	Questionnaires []questionnaireSummary `json:"questionnaires"`
}

type scoreRequest struct {
	QuestionnaireID string             `json:"questionnaire_id"`
	Answers         assessment.Answers `json:"answers"`
}

type historyResponse struct {
	Assessments []assessment.Record `json:"assessments"`
}

func (s *Server) handleListQuestionnaires(w http.ResponseWriter, r *http.Request) {
	catalog := s.assessments.Catalog()
	resp := questionnaireListResponse{
		DefaultID:      catalog.DefaultID(),
		Questionnaires: []questionnaireSummary{},
	}
	for _, q := range catalog.All() {
		resp.Questionnaires = append(resp.Questionnaires, questionnaireSummary{
			ID:          q.ID,
			Name:        q.Name,
			Version:     q.Version,
			Description: q.Description,
			Sections:    len(q.Sections),
			Questions:   q.QuestionCount(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	q, err := s.assessments.Catalog().Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.assessments.Preview(req.QuestionnaireID, req.Answers)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	rec, err := s.assessments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.assessments.Submit(r.Context(), assessment.SubmitRequest{
		VendorID:        r.PathValue("vendorID"),
		QuestionnaireID: req.QuestionnaireID,
		Answers:         req.Answers,
		AssessedBy:      sessionFrom(r.Context()).Username,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleAssessmentHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 20, 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.assessments.History(r.Context(), r.PathValue("vendorID"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if recs == nil {
		recs = []assessment.Record{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Assessments: recs})
}

func (s *Server) handleLatestAssessment(w http.ResponseWriter, r *http.Request) {
	rec, err := s.assessments.Latest(r.Context(), r.PathValue("vendorID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	q, rec, ok := s.latestWithQuestionnaire(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteAssessment(&buf, q, rec); err != nil {
		writeServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.xlsx", rec.VendorID, rec.CreatedAt.Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to stream report", "vendor_id", rec.VendorID, "error", err)
	}
}

func (s *Server) handleLatestRemediation(w http.ResponseWriter, r *http.Request) {
	q, rec, ok := s.latestWithQuestionnaire(w, r)
	if !ok {
		return
	}
	plan, err := s.advisor.Remediation(r.Context(), sessionFrom(r.Context()).Username, q, rec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) latestWithQuestionnaire(w http.ResponseWriter, r *http.Request) (*assessment.Questionnaire, assessment.Record, bool) {
	rec, err := s.assessments.Latest(r.Context(), r.PathValue("vendorID"))
	if err != nil {
		writeServiceError(w, r, err)
		return nil, assessment.Record{}, false
	}
	q, err := s.assessments.Catalog().Get(rec.QuestionnaireID)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, assessment.Record{}, false
	}
	return q, rec, true
}
