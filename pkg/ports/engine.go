package ports

import (
	"context"

	"github.com/aretw0/tutor/pkg/domain"
)

// Engine is the driving port used by transport adapters (HTTP, MCP, terminal).
type Engine interface {
	// ListPages returns a summary of every available page.
	ListPages(ctx context.Context) ([]domain.PageSummary, error)

	// GetPage returns a compiled page.
	GetPage(ctx context.Context, id string) (*domain.Page, error)

	// StartSession creates a session on the first step of a page with an empty namespace.
	StartSession(ctx context.Context, pageID string) (*domain.SessionView, error)

	// Session returns the current view of a session.
	Session(ctx context.Context, sessionID string) (*domain.SessionView, error)

	// Submit runs one attempt of learner source against the session's current step.
	Submit(ctx context.Context, sessionID, source string) (*domain.Feedback, error)

	// ResetSession clears the session namespace without moving the cursor.
	ResetSession(ctx context.Context, sessionID string) (*domain.SessionView, error)

	// RestartSession moves back to the first step with an empty namespace.
	RestartSession(ctx context.Context, sessionID string) (*domain.SessionView, error)

	// CloseSession discards a session.
	CloseSession(ctx context.Context, sessionID string) error
}
