package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/ports"
	"github.com/aretw0/tutor/pkg/runner"
)

// Watcher is implemented by engines that can report page changes.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// Server exposes an engine over a JSON API.
type Server struct {
	Engine  ports.Engine
	Streams *StreamManager

	version string
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		version: "unknown",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/pages", func(r chi.Router) {
		r.Get("/", s.ListPages)
		r.Get("/{id}", s.GetPage)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.With(middleware.RequestSize(maxSubmitBody())).Post("/submit", s.Submit)
			r.Post("/reset", s.ResetSession)
			r.Post("/restart", s.RestartSession)
		})
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StepOutline is the public view of a step: the prompt, never the answer.
type StepOutline struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// PageOutline is the public view of a page.
type PageOutline struct {
	ID    string        `json:"id"`
	Title string        `json:"title,omitempty"`
	Steps []StepOutline `json:"steps"`
}

// StartRequest is the body of POST /sessions.
type StartRequest struct {
	PageID string `json:"page_id"`
}

// SubmitRequest is the body of POST /sessions/{id}/submit.
type SubmitRequest struct {
	Source string `json:"source"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "tutor-http",
		"version": strings.TrimSpace(s.version),
	})
}

// ListPages handles the GET /pages request.
func (s *Server) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.Engine.ListPages(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pages)
}

// GetPage handles the GET /pages/{id} request.
func (s *Server) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.Engine.GetPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := PageOutline{ID: page.ID, Title: page.Title, Steps: make([]StepOutline, 0, len(page.Steps))}
	for i := range page.Steps {
		out.Steps = append(out.Steps, StepOutline{ID: page.Steps[i].ID, Prompt: page.Steps[i].Prompt()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// StartSession handles the POST /sessions request.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PageID == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "body must be {\"page_id\": ...}"})
		return
	}
	view, err := s.Engine.StartSession(r.Context(), body.PageID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.Engine.(interface {
		ListSessions(ctx context.Context) ([]string, error)
	})
	if !ok {
		s.writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "session listing not supported"})
		return
	}
	ids, err := lister.ListSessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.Engine.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// Submit handles the POST /sessions/{id}/submit request.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body too large"})
			s.logger.Warn("Submit: Request body too large", "limit", tooLarge.Limit)
			return
		}
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		s.logger.Warn("Submit: Invalid request body", "err", err)
		return
	}

	source, err := runner.SanitizeInput(body.Source)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Invalid input: %v", err)})
		s.logger.Warn("Submit: Input rejected", "err", err, "size", len(body.Source))
		return
	}

	sessionID := chi.URLParam(r, "id")
	fb, err := s.Engine.Submit(r.Context(), sessionID, source)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if fb.Diff != nil {
		if bytes, err := json.Marshal(fb.Diff); err == nil {
			s.Streams.Broadcast(sessionID, string(bytes))
		}
	}
	s.writeJSON(w, http.StatusOK, fb)
}

// maxSubmitBody bounds a submit request: the largest accepted source with
// every byte JSON-escaped, plus room for the envelope.
func maxSubmitBody() int64 {
	return int64(runner.MaxInputSize())*6 + 1<<10
}

// ResetSession handles the POST /sessions/{id}/reset request.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.Engine.ResetSession)
}

// RestartSession handles the POST /sessions/{id}/restart request.
func (s *Server) RestartSession(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.Engine.RestartSession)
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*domain.SessionView, error)) {
	view, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// CloseSession handles the DELETE /sessions/{id} request.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.CloseSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusOf maps engine errors onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPageComplete):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAuthoring):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
