// Package httpapi serves member searches over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/Alp4ka/pagequery"
	"github.com/Alp4ka/pagequery/internal/logger"
	"github.com/Alp4ka/pagequery/internal/member"
	"github.com/Alp4ka/pagequery/internal/metrics"
)

// Error codes returned in error responses.
const (
	codeBadRequest         = "bad_request"
	codeInvalidRange       = "invalid_range"
	codeInvalidQuery       = "invalid_query"
	codeNotFound           = "not_found"
	codeTimeout            = "timeout"
	codeProjectionMismatch = "projection_mismatch"
	codeDataSourceError    = "data_source_error"
	codeInternalError      = "internal_error"
)

type (
	// PageResponse is a page of members. TotalElements is null when the
	// count was skipped.
	PageResponse struct {
		Content       []member.MemberTeam       `json:"content"`
		TotalElements nullable.Nullable[int64] `json:"totalElements"`
		Offset        int                      `json:"offset"`
		Limit         int                      `json:"limit"`
		NextToken     string                   `json:"nextToken,omitempty"`
	}

	MemberResponse struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Age      int    `json:"age"`
		TeamID   *int64 `json:"teamId"`
	}

	ErrorResponse struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes the member search service.
type Server struct {
	members       *member.Service
	limits        pagequery.Limits
	errorHandlers []errorHandler
}

func NewServer(members *member.Service, limits pagequery.Limits) *Server {
	s := &Server{
		members: members,
		limits:  limits,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(errBadRequest, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(pagequery.ErrInvalidRange, http.StatusBadRequest, codeInvalidRange),
		sentinelHandler(pagequery.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(member.ErrNotFound, http.StatusNotFound, codeNotFound),
		timeoutHandler,
		sentinelHandler(pagequery.ErrProjectionMismatch, http.StatusInternalServerError, codeProjectionMismatch),
		sentinelHandler(pagequery.ErrDataSource, http.StatusInternalServerError, codeDataSourceError),
	}
	return s
}

// Routes registers the member endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/members", func(r chi.Router) {
		r.Get("/v1", s.ListMembers)
		r.Get("/v2", s.pageHandler(pagequery.PolicySimple))
		r.Get("/v3", s.pageHandler(pagequery.PolicyDecoupledCount))
		r.Get("/v4", s.pageHandler(pagequery.PolicyOptimisticSkip))
		r.Get("/v5", s.pageHandler(""))
		r.Get("/{id}", s.GetMember)
	})
}

// ListMembers handles GET /members/v1: every matching member, unpaged.
func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rows, err := s.members.Search(r.Context(), criteria)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// pageHandler serves one page of matching members under policy. An empty
// policy selects the service default.
func (s *Server) pageHandler(policy pagequery.Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()

		criteria, err := parseCriteria(values)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}

		req, err := parsePageRequest(values, s.limits)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}

		page, err := s.members.SearchPage(r.Context(), criteria, req, policy)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}

		if policy == "" {
			policy = s.members.DefaultPolicy()
		}
		metrics.ObservePage(policy, page.HasTotal())

		writeJSON(w, http.StatusOK, pageToResponse(page))
	}
}

// GetMember handles GET /members/{id}.
func (s *Server) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.handleDomainError(w, r, badParam("id", errors.New("not an integer")))
		return
	}

	m, err := s.members.FindMemberByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MemberResponse{
		ID:       m.ID,
		Username: m.Username,
		Age:      m.Age,
		TeamID:   m.TeamID,
	})
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pageToResponse(page *pagequery.Page[member.MemberTeam]) PageResponse {
	var total nullable.Nullable[int64]
	if value, ok := page.GetTotal(); ok {
		total.Set(value)
	} else {
		total.SetNull()
	}

	return PageResponse{
		Content:       page.Content,
		TotalElements: total,
		Offset:        page.Offset,
		Limit:         page.Limit,
		NextToken:     page.NextToken().String(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeMessage(err, status))
		return true
	}
}

// timeoutHandler reports store calls cut short by the request deadline,
// including transaction begin and commit failing outside the data source.
func timeoutHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, codeTimeout, "request timed out")
	return true
}

// safeMessage exposes client errors verbatim and hides server-side details.
func safeMessage(err error, status int) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
