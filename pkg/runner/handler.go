package runner

import (
	"context"

	"github.com/aretw0/tutor/pkg/domain"
)

// IOHandler defines the strategy for interacting with the learner.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// ShowStep presents the step awaiting input.
	ShowStep(ctx context.Context, view *domain.SessionView) error

	// ShowFeedback presents the result of an attempt.
	ShowFeedback(ctx context.Context, fb *domain.Feedback) error

	// Input reads one attempt. When multiline is set the attempt may span
	// several lines (editor steps); otherwise it is a single line.
	Input(ctx context.Context, multiline bool) (string, error)

	// SystemOutput presents a meta-message (session ID, command results).
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms markdown before it is written.
// This allows terminal rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
