package runner

import (
	"log/slog"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID resumes the given session instead of starting a new one.
// If the session does not exist a new one is started on the page.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithPageID selects the page a new session starts on.
func WithPageID(id string) Option {
	return func(r *Runner) {
		r.PageID = id
	}
}

// WithRenderer configures the content renderer used by the default text handler.
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.Renderer = renderer
	}
}

// WithKeepSession keeps the session in the store once the page is complete.
func WithKeepSession(keep bool) Option {
	return func(r *Runner) {
		r.KeepSession = keep
	}
}
