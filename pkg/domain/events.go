package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventAttempt  EventType = "attempt"
	EventAdvance  EventType = "advance"
	EventComplete EventType = "complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	PageID    string    `json:"page_id"`
}

// AttemptEvent is emitted once per judged attempt.
type AttemptEvent struct {
	EventBase
	StepID    string        `json:"step_id"`
	Verdict   VerdictKind   `json:"verdict"`
	FaultKind string        `json:"fault_kind,omitempty"`
	Failures  int           `json:"failures"`
	Duration  time.Duration `json:"duration"`
}

// StepEvent is emitted when the cursor moves or the page completes.
type StepEvent struct {
	EventBase
	FromStepID string `json:"from_step_id"`
	ToStepID   string `json:"to_step_id,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnAttempt  func(context.Context, *AttemptEvent)
	OnAdvance  func(context.Context, *StepEvent)
	OnComplete func(context.Context, *StepEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnAttempt:  chain(h.OnAttempt, other.OnAttempt),
		OnAdvance:  chain(h.OnAdvance, other.OnAdvance),
		OnComplete: chain(h.OnComplete, other.OnComplete),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
