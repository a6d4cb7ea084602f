package cli

import (
	"context"
	"fmt"
	"io"
)

// Validate compiles every page and prints a summary of each.
func Validate(ctx context.Context, stack *Stack, w io.Writer) error {
	if err := stack.Engine.Validate(ctx); err != nil {
		return err
	}
	pages, err := stack.Engine.ListPages(ctx)
	if err != nil {
		return err
	}
	for _, p := range pages {
		title := p.Title
		if title == "" {
			title = p.ID
		}
		fmt.Fprintf(w, "- %s: %s (%d steps)\n", p.ID, title, p.Steps)
	}
	fmt.Fprintf(w, "%d pages are valid.\n", len(pages))
	return nil
}
