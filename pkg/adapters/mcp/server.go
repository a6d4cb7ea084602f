package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/ports"
	"github.com/aretw0/tutor/pkg/runner"
)

// PagesURI is the resource listing every page.
const PagesURI = "tutor://pages"

// SessionArgs identifies a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// StartArgs are the arguments of start_session.
type StartArgs struct {
	PageID string `json:"page_id"`
}

// SubmitArgs are the arguments of submit.
type SubmitArgs struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
}

// PageList is the result of list_pages.
type PageList struct {
	Pages []domain.PageSummary `json:"pages" jsonschema_description:"Every available page"`
}

// Server wraps the tutor Engine and exposes it as an MCP Server, so an agent
// can drive a lesson on behalf of (or alongside) a learner.
type Server struct {
	engine    ports.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("tutor-mcp", strings.TrimSpace(version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List the lesson pages that can be started."),
		mcp.WithOutputSchema[PageList](),
	), mcp.NewStructuredToolHandler(s.handleListPages))

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a learner session on the first step of a page. Returns the session and the first prompt."),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("ID of the page to start")),
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleStartSession))

	s.mcpServer.AddTool(mcp.NewTool("submit",
		mcp.WithDescription("Submit source code for the current step of a session and get the verdict."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_session")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source code of the attempt")),
		mcp.WithOutputSchema[domain.Feedback](),
	), mcp.NewStructuredToolHandler(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Clear the variables of a session without leaving the current step."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleResetSession))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Show the current step of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))
}

func (s *Server) handleListPages(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (PageList, error) {
	pages, err := s.engine.ListPages(ctx)
	if err != nil {
		return PageList{}, fmt.Errorf("list pages failed: %w", err)
	}
	return PageList{Pages: pages}, nil
}

func (s *Server) handleStartSession(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (domain.SessionView, error) {
	if args.PageID == "" {
		return domain.SessionView{}, fmt.Errorf("page_id is required")
	}
	view, err := s.engine.StartSession(ctx, args.PageID)
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("start failed: %w", err)
	}
	return *view, nil
}

func (s *Server) handleSubmit(ctx context.Context, _ mcp.CallToolRequest, args SubmitArgs) (domain.Feedback, error) {
	clean, err := runner.SanitizeInput(args.Source)
	if err != nil {
		s.logger.Warn("MCP Submit: Input rejected", "err", err, "size", len(args.Source))
		return domain.Feedback{}, fmt.Errorf("input rejected: %w", err)
	}
	fb, err := s.engine.Submit(ctx, args.SessionID, clean)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("submit failed: %w", err)
	}
	return *fb, nil
}

func (s *Server) handleResetSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (domain.SessionView, error) {
	view, err := s.engine.ResetSession(ctx, args.SessionID)
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("reset failed: %w", err)
	}
	return *view, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (domain.SessionView, error) {
	view, err := s.engine.Session(ctx, args.SessionID)
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("get session failed: %w", err)
	}
	return *view, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(PagesURI, "Lesson Pages",
		mcp.WithMIMEType("application/json"),
	), s.readPages)
}

func (s *Server) readPages(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.engine.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	jsonBytes, err := json.Marshal(pages)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PagesURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
