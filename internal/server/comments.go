package server

import (
	"net/http"

	"github.com/p-n-ai/pai-grc/internal/audit"
	"github.com/p-n-ai/pai-grc/internal/comment"
	"github.com/p-n-ai/pai-grc/internal/mention"
)

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Mentions []string `json:"mentions"`
	Unique   []string `json:"unique"`
}

type postCommentRequest struct {
	Body string `json:"body"`
}

type commentsResponse struct {
	Comments []comment.Comment `json:"comments"`
}

type auditResponse struct {
	Events []audit.Event `json:"events"`
}

func (s *Server) handleExtractMentions(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := extractResponse{
		Mentions: mention.Extract(req.Text),
		Unique:   mention.Unique(mention.Extract(req.Text)),
	}
	if resp.Mentions == nil {
		resp.Mentions = []string{}
		resp.Unique = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.comments.List(r.Context(), r.PathValue("resource"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

func (s *Server) handlePostComment(w http.ResponseWriter, r *http.Request) {
	var req postCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.comments.Post(r.Context(), r.PathValue("resource"), sessionFrom(r.Context()).Username, req.Body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 50, 500)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := s.audit.List(r.Context(), r.PathValue("resource"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, auditResponse{Events: events})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, sessionFrom(r.Context()).Username)
}
