package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/ports"
)

// Terminal commands understood by the Runner. Anything else is source code.
const (
	CommandReset   = ":reset"
	CommandRestart = ":restart"
	CommandQuit    = ":quit"
	CommandExit    = ":exit"
	CommandHelp    = ":help"
)

const helpText = ":reset clears your variables, :restart goes back to the first step, :quit leaves (progress is kept)"

// IsCommand reports whether line is a runner command rather than source.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ":")
}

// Runner drives one learner session through an Engine using an IOHandler.
// This allows for easy testing and integration with different frontends.
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler over Stdin/Stdout is used.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	SessionID string
	PageID    string

	// Renderer is handed to the default TextHandler.
	Renderer ContentRenderer

	// KeepSession keeps completed sessions in the store.
	KeepSession bool

	engine ports.Engine
	page   *domain.Page
}

// NewRunner creates a Runner for engine.
func NewRunner(engine ports.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run presents steps and submits attempts until the page is complete, the
// input ends or ctx is cancelled (SIGINT and SIGTERM cancel it too).
// Leaving early is not an error: the session stays in the store and can be
// resumed with WithSessionID. The last view of the session is returned.
func (r *Runner) Run(ctx context.Context) (*domain.SessionView, error) {
	handler := r.resolveHandler()

	signals := NewSignalManager(ctx)
	defer signals.Stop()
	ctx = signals.Context()

	view, resumed, err := ResumeOrStart(ctx, r.engine, r.SessionID, r.PageID)
	if err != nil {
		return nil, err
	}
	sessionID := view.State.SessionID
	verb := "Started"
	if resumed {
		verb = "Resumed"
	}
	if err := handler.SystemOutput(ctx, fmt.Sprintf("%s session %s on page %s", verb, sessionID, view.State.PageID)); err != nil {
		return view, fmt.Errorf("output error: %w", err)
	}

	if view.State.Status == domain.StatusComplete {
		return view, handler.ShowStep(ctx, view)
	}

	shown := -1
	for {
		if view.State.Cursor != shown {
			if err := handler.ShowStep(ctx, view); err != nil {
				return view, fmt.Errorf("output error: %w", err)
			}
			shown = view.State.Cursor
		}

		text, err := handler.Input(ctx, r.isEditor(ctx, view))
		if err != nil {
			signals.CheckRace()
			switch {
			case ctx.Err() != nil:
				r.Logger.Debug("Runner input: Context cancelled", "err", ctx.Err())
				return view, r.leave(handler, sessionID)
			case errors.Is(err, io.EOF):
				return view, r.leave(handler, sessionID)
			case errors.Is(err, ErrInputTooLarge), errors.Is(err, ErrInvalidUTF8):
				if err := handler.SystemOutput(ctx, err.Error()); err != nil {
					return view, err
				}
				continue
			}
			return view, fmt.Errorf("input error: %w", err)
		}

		if IsCommand(text) {
			next, quit, err := r.command(ctx, handler, sessionID, text)
			if err != nil {
				return view, err
			}
			if quit {
				return view, r.leave(handler, sessionID)
			}
			if next != nil {
				view = next
				shown = -1
			}
			continue
		}

		fb, err := r.engine.Submit(ctx, sessionID, text)
		if err != nil {
			if ctx.Err() != nil {
				return view, r.leave(handler, sessionID)
			}
			return view, fmt.Errorf("submit error: %w", err)
		}
		if err := handler.ShowFeedback(ctx, fb); err != nil {
			return view, fmt.Errorf("output error: %w", err)
		}

		view, err = r.engine.Session(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("session error: %w", err)
		}
		if fb.Complete {
			r.Logger.Debug("Page complete", "session_id", sessionID, "page_id", view.State.PageID)
			if !r.KeepSession {
				if err := r.engine.CloseSession(context.WithoutCancel(ctx), sessionID); err != nil {
					r.Logger.Warn("failed to close completed session", "session_id", sessionID, "err", err)
				}
			}
			return view, nil
		}
	}
}

func (r *Runner) command(ctx context.Context, handler IOHandler, sessionID, text string) (*domain.SessionView, bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case CommandQuit, CommandExit:
		return nil, true, nil
	case CommandReset:
		view, err := r.engine.ResetSession(ctx, sessionID)
		if err != nil {
			return nil, false, fmt.Errorf("reset error: %w", err)
		}
		return view, false, handler.SystemOutput(ctx, "Variables cleared.")
	case CommandRestart:
		view, err := r.engine.RestartSession(ctx, sessionID)
		if err != nil {
			return nil, false, fmt.Errorf("restart error: %w", err)
		}
		return view, false, handler.SystemOutput(ctx, "Back to the first step.")
	case CommandHelp:
		return nil, false, handler.SystemOutput(ctx, helpText)
	}
	return nil, false, handler.SystemOutput(ctx, fmt.Sprintf("Unknown command %q. %s", text, helpText))
}

func (r *Runner) leave(handler IOHandler, sessionID string) error {
	return handler.SystemOutput(context.Background(), "Progress saved. Resume with session "+sessionID)
}

// isEditor reports whether the current step takes a whole program.
func (r *Runner) isEditor(ctx context.Context, view *domain.SessionView) bool {
	if r.page == nil || r.page.ID != view.State.PageID {
		page, err := r.engine.GetPage(ctx, view.State.PageID)
		if err != nil {
			r.Logger.Debug("page lookup failed", "page_id", view.State.PageID, "err", err)
			return false
		}
		r.page = page
	}
	step, ok := r.page.Step(view.State.Cursor)
	return ok && step.EffectiveMode() == domain.ModeEditor
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout, WithTextHandlerRenderer(r.Renderer))
	}
	return r.Handler
}
