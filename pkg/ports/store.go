package ports

import (
	"context"

	"github.com/aretw0/tutor/pkg/domain"
)

// StateStore defines the interface for persisting session snapshots.
// The namespace is never stored: it is rebuilt from the state's replay log,
// which lets a session survive a restart or move to another replica.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.SessionState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.SessionState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
