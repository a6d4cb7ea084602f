package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/ports"
)

// ResumeOrStart loads sessionID if given and present, otherwise starts a
// new session on pageID. It reports whether an existing session was resumed.
func ResumeOrStart(ctx context.Context, engine ports.Engine, sessionID, pageID string) (*domain.SessionView, bool, error) {
	if sessionID != "" {
		view, err := engine.Session(ctx, sessionID)
		if err == nil {
			if pageID != "" && view.State.PageID != pageID {
				return nil, false, fmt.Errorf("session %s belongs to page %q, not %q", sessionID, view.State.PageID, pageID)
			}
			return view, true, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, false, fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}
	}

	if pageID == "" {
		return nil, false, errors.New("a page is required to start a session")
	}
	view, err := engine.StartSession(ctx, pageID)
	if err != nil {
		return nil, false, err
	}
	return view, false, nil
}
