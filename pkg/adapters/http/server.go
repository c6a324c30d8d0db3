// Package http exposes a pipeline run to remote drivers over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/gantry/internal/logging"
	"github.com/aretw0/gantry/internal/state"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session is the run surface the handler drives. *gantry.Session satisfies it.
type Session interface {
	State() domain.PipelineState
	Overview() state.Summary
	Next() []domain.Slot
	Begin(ctx context.Context, slotID, agentID, prompt string) (domain.SlotState, error)
	Complete(ctx context.Context, slotID string) (domain.SlotState, error)
	Fail(ctx context.Context, slotID, reason string) (domain.SlotState, error)
	Skip(ctx context.Context, slotID string) (domain.SlotState, error)
	StartAuditing(ctx context.Context) error
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Overview state.Summary        `json:"overview"`
	State    domain.PipelineState `json:"state"`
}

// NextResponse is the body of GET /slots/next.
type NextResponse struct {
	Slots []domain.Slot `json:"slots"`
}

// BeginRequest is the optional body of POST /slots/{id}/begin.
type BeginRequest struct {
	AgentID     string `json:"agent_id"`
	AgentPrompt string `json:"agent_prompt"`
}

// FailRequest is the body of POST /slots/{id}/fail.
type FailRequest struct {
	Error string `json:"error"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves one Session.
type Server struct {
	Session  Session
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the logger used for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// NewHandler creates the HTTP handler for sess.
func NewHandler(sess Session, opts ...Option) http.Handler {
	s := &Server{Session: sess}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", s.Status)
	r.Get("/slots/next", s.NextSlots)
	r.Route("/slots/{id}", func(r chi.Router) {
		r.Post("/begin", s.Begin)
		r.Post("/complete", s.Complete)
		r.Post("/fail", s.Fail)
		r.Post("/skip", s.Skip)
	})
	r.Post("/audit", s.Audit)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Status handles GET /status.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusResponse{Overview: s.Session.Overview(), State: s.Session.State()})
}

// NextSlots handles GET /slots/next.
func (s *Server) NextSlots(w http.ResponseWriter, r *http.Request) {
	slots := s.Session.Next()
	if slots == nil {
		slots = []domain.Slot{}
	}
	s.writeJSON(w, http.StatusOK, NextResponse{Slots: slots})
}

// Begin handles POST /slots/{id}/begin. A pre-condition failure is a 200 whose
// body is the failed slot.
func (s *Server) Begin(w http.ResponseWriter, r *http.Request) {
	var body BeginRequest
	if !s.decode(w, r, &body) {
		return
	}
	ss, err := s.Session.Begin(r.Context(), chi.URLParam(r, "id"), body.AgentID, body.AgentPrompt)
	s.respond(w, r, ss, err)
}

// Complete handles POST /slots/{id}/complete.
func (s *Server) Complete(w http.ResponseWriter, r *http.Request) {
	ss, err := s.Session.Complete(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, ss, err)
}

// Fail handles POST /slots/{id}/fail.
func (s *Server) Fail(w http.ResponseWriter, r *http.Request) {
	var body FailRequest
	if !s.decode(w, r, &body) {
		return
	}
	ss, err := s.Session.Fail(r.Context(), chi.URLParam(r, "id"), body.Error)
	s.respond(w, r, ss, err)
}

// Skip handles POST /slots/{id}/skip.
func (s *Server) Skip(w http.ResponseWriter, r *http.Request) {
	ss, err := s.Session.Skip(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, ss, err)
}

// Audit handles POST /audit.
func (s *Server) Audit(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.StartAuditing(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Session.State())
}

// decode reads an optional JSON body. An empty body leaves out untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	err := json.NewDecoder(r.Body).Decode(out)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	s.Logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
	s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	return false
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, ss domain.SlotState, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ss)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSlotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	default:
		s.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "error", err)
	}
}
