package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/tutor/internal/presentation/graph"
)

// Graph prints the Mermaid flowchart of a page, marking the progress of
// sessionID when given.
func Graph(ctx context.Context, stack *Stack, pageID, sessionID string, w io.Writer) error {
	var overlay *graph.Overlay
	if sessionID != "" {
		state, err := stack.Store.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", sessionID, err)
		}
		if pageID == "" {
			pageID = state.PageID
		}
		overlay = graph.OverlayOf(state)
	}
	if pageID == "" {
		var err error
		if pageID, err = defaultPage(ctx, stack); err != nil {
			return err
		}
	}
	page, err := stack.Engine.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, graph.GenerateMermaid(page, overlay))
	return err
}
