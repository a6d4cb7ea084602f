package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tutor/internal/presentation/tui"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/runner"
)

// RunOptions configures an interactive lesson.
type RunOptions struct {
	PageID    string
	SessionID string
	JSON      bool
	Watch     bool
	Keep      bool
	// Rich enables the banner and markdown rendering.
	Rich bool
}

// RunSession takes the learner through one page on in and out.
func RunSession(ctx context.Context, stack *Stack, opts RunOptions, in io.Reader, out io.Writer) error {
	pageID := opts.PageID
	if pageID == "" && opts.SessionID == "" {
		var err error
		if pageID, err = defaultPage(ctx, stack); err != nil {
			return err
		}
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(in, out)
	} else {
		var thOpts []runner.TextHandlerOption
		if opts.Rich {
			tui.PrintBanner(out)
			thOpts = append(thOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		handler = runner.NewTextHandler(in, out, thOpts...)
	}

	if opts.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := watch(watchCtx, stack, handler); err != nil {
			return err
		}
	}

	r := runner.NewRunner(stack.Engine,
		runner.WithLogger(stack.Logger),
		runner.WithInputHandler(handler),
		runner.WithPageID(pageID),
		runner.WithSessionID(opts.SessionID),
		runner.WithKeepSession(opts.Keep),
	)
	view, err := r.Run(ctx)
	if err != nil {
		return handleExecutionError(err)
	}
	stack.Logger.Info("Session finished",
		"session_id", view.State.SessionID,
		"page_id", view.State.PageID,
		"status", view.State.Status,
	)
	return nil
}

// defaultPage picks the only page of the repository.
func defaultPage(ctx context.Context, stack *Stack) (string, error) {
	pages, err := stack.Engine.ListPages(ctx)
	if err != nil {
		return "", err
	}
	switch len(pages) {
	case 0:
		return "", fmt.Errorf("no pages found")
	case 1:
		return pages[0].ID, nil
	}
	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	return "", fmt.Errorf("choose a page with --page: %s", strings.Join(ids, ", "))
}

// watch reports lesson edits; the engine drops its page cache on each one,
// so the next prompt already reflects the change.
func watch(ctx context.Context, stack *Stack, handler runner.IOHandler) error {
	changes, err := stack.Engine.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch unavailable: %w", err)
	}
	go func() {
		for id := range changes {
			stack.Logger.Debug("Lesson changed", "page_id", id)
			_ = handler.SystemOutput(ctx, "Lesson reloaded.")
		}
	}()
	return nil
}

func handleExecutionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	if errors.Is(err, domain.ErrPageNotFound) {
		return fmt.Errorf("%w (run 'tutor validate' to list pages)", err)
	}
	return err
}
