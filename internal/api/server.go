// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes the orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/orchestrator"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// Researcher is the part of the orchestrator the server calls.
type Researcher interface {
	ConductResearch(ctx context.Context, plan string) (*types.Result, error)
	AnswerQuestion(ctx context.Context, question string) (*types.Answer, error)
}

// DefaultRequestTimeout bounds one research request. Runs with several
// improvement iterations take minutes.
const DefaultRequestTimeout = 20 * time.Minute

// Server serves research and answers for a Researcher.
type Server struct {
	researcher Researcher
	logger     *zap.Logger
	timeout    time.Duration
}

// NewServer returns a server over researcher. A timeout of zero uses
// DefaultRequestTimeout.
func NewServer(researcher Researcher, timeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Server{researcher: researcher, logger: logger.Named("api"), timeout: timeout}
}

// Router returns the HTTP handler: health and metrics at the root, the
// research and answer endpoints under /v1 with a per-request deadline.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.deadline)
		r.Post("/research", s.research)
		r.Post("/answer", s.answer)
	})
	return r
}

// deadline bounds each request by s.timeout. The handler reports an expired
// deadline itself through fail, so the 504 is written once and carries the
// JSON error body.
func (s *Server) deadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type researchRequest struct {
	ContentPlan string `json:"content_plan"`
}

type answerRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) research(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ContentPlan) == "" {
		writeError(w, "content_plan is required", http.StatusBadRequest)
		return
	}
	res, err := s.researcher.ConductResearch(r.Context(), req.ContentPlan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, "question is required", http.StatusBadRequest)
		return
	}
	ans, err := s.researcher.AnswerQuestion(r.Context(), req.Question)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, ans, http.StatusOK)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestrator.ErrEmptyPlan), errors.Is(err, orchestrator.ErrEmptyQuestion):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	s.logger.Error("request failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err))
	writeError(w, err.Error(), status)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, errorResponse{Error: msg}, status)
}

func writeJSON(w http.ResponseWriter, value any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
