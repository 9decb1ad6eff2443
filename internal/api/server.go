// Package api exposes the chatbot over HTTP:
//
//	POST   /api/query          →  answer a question
//	GET    /api/courses        →  corpus analytics
//	DELETE /api/session/{id}   →  drop a conversation
//	GET    /health             →  liveness probe
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/agent"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/rag"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/search"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8000"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because a query may spend two generation
	// round-trips before responding.
	WriteTimeout = 120 * time.Second

	// IdleTimeout applies to keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server over one rag.System.
type Server struct {
	mux    *http.ServeMux
	system *rag.System
	logger *slog.Logger
}

// NewServer creates a server with all routes registered. logger may be nil.
func NewServer(system *rag.System, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{mux: http.NewServeMux(), system: system, logger: logger}

	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("DELETE /api/session/{id}", s.handleClearSession)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler returns the routes with middleware applied.
// Order: recovery → request ID → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware, requestIDMiddleware, loggingMiddleware)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// QueryRequest is the POST /api/query body.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the POST /api/query reply.
type QueryResponse struct {
	Answer    string          `json:"answer"`
	Sources   []search.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query must not be empty")
		return
	}

	result, err := s.system.Query(r.Context(), req.Query, req.SessionID)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		switch {
		case errors.Is(err, agent.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", "generation service unreachable")
		case errors.Is(err, search.ErrUnknownTool):
			writeError(w, http.StatusInternalServerError, "unknown_tool", "model requested an undefined tool")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to answer query")
		}
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []search.Source{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    result.Answer,
		Sources:   sources,
		SessionID: result.SessionID,
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.system.Analytics(r.Context())
	if err != nil {
		s.logger.Error("analytics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load course analytics")
		return
	}
	if analytics.CourseTitles == nil {
		analytics.CourseTitles = []string{}
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}
	s.system.ClearSession(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
