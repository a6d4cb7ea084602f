package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/evaluator"
	"github.com/aretw0/tutor/pkg/sandbox"
)

// Sequencer walks one learner session through the steps of a page.
//
// It owns the session namespace and state. It is not safe for concurrent
// use: the session manager serializes calls per session.
type Sequencer struct {
	page   *domain.Page
	eval   *evaluator.Evaluator
	state  *domain.SessionState
	ns     *sandbox.Namespace
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithHooks sets the lifecycle hooks fired on attempts and progression.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Sequencer) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// New creates a Sequencer positioned on the first step with an empty namespace.
func New(page *domain.Page, eval *evaluator.Evaluator, sessionID string, opts ...Option) *Sequencer {
	return newSequencer(page, eval, domain.NewSessionState(sessionID, page.ID), sandbox.NewNamespace(), opts)
}

// Restore rebuilds a Sequencer from a persisted state by replaying the
// sources recorded since the namespace was last cleared.
func Restore(ctx context.Context, page *domain.Page, eval *evaluator.Evaluator, state *domain.SessionState, opts ...Option) (*Sequencer, error) {
	if state.PageID != page.ID {
		return nil, fmt.Errorf("session %s belongs to page %q, not %q", state.SessionID, state.PageID, page.ID)
	}
	if state.Cursor < 0 || state.Cursor > page.Len() {
		return nil, fmt.Errorf("session %s: cursor %d out of range for page %q", state.SessionID, state.Cursor, page.ID)
	}
	ns := sandbox.NewNamespace()
	if err := eval.Sandbox().Replay(ctx, state.Replay, ns); err != nil {
		return nil, fmt.Errorf("failed to replay session %s: %w", state.SessionID, err)
	}
	st := state.Clone()
	if st.Failures == nil {
		st.Failures = make(map[string]int)
	}
	return newSequencer(page, eval, st, ns, opts), nil
}

func newSequencer(page *domain.Page, eval *evaluator.Evaluator, state *domain.SessionState, ns *sandbox.Namespace, opts []Option) *Sequencer {
	s := &Sequencer{
		page:   page,
		eval:   eval,
		state:  state,
		ns:     ns,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the session state.
func (s *Sequencer) State() *domain.SessionState {
	return s.state.Clone()
}

// Namespace returns the live session namespace.
func (s *Sequencer) Namespace() *sandbox.Namespace {
	return s.ns
}

// Page returns the page being walked.
func (s *Sequencer) Page() *domain.Page {
	return s.page
}

// Current returns the step awaiting input. It returns false once the page is complete.
func (s *Sequencer) Current() (*domain.Step, bool) {
	if s.state.Status == domain.StatusComplete {
		return nil, false
	}
	return s.page.Step(s.state.Cursor)
}

// Prompt returns the text of the step awaiting input, or the final text once
// the page is complete.
func (s *Sequencer) Prompt() string {
	step, ok := s.Current()
	if !ok {
		return s.page.FinalText
	}
	return step.Prompt()
}

// Submit runs one attempt against the current step.
func (s *Sequencer) Submit(ctx context.Context, source string) (*domain.Feedback, error) {
	step, ok := s.Current()
	if !ok {
		return nil, domain.ErrPageComplete
	}

	start := time.Now()
	out, err := s.eval.Evaluate(ctx, step, source, s.ns)
	if err != nil {
		return nil, err
	}

	if out.Executed() {
		if step.EffectiveMode() == domain.ModeEditor {
			s.state.Replay = []string{source}
		} else {
			s.state.Replay = append(s.state.Replay, source)
		}
	}

	fb := &domain.Feedback{
		SessionID: s.state.SessionID,
		StepID:    step.ID,
		Verdict:   out.Verdict,
	}
	var faultKind string
	if res := out.Result; res != nil {
		fb.Output = res.Stdout
		if res.Value != nil {
			fb.Value = res.Value.String()
		}
		if res.Fault != nil && !res.TimedOut() {
			fb.Fault = res.Fault.Error()
		}
		if res.Fault != nil {
			faultKind = res.Fault.Kind
		}
	}

	switch out.Verdict.Kind {
	case domain.VerdictPass:
		s.advance(ctx, step, fb)
	case domain.VerdictRetryNeeded:
		// Not a judged mistake: the hint ladder does not move.
		s.state.Status = domain.StatusFeedback
	default:
		s.state.Failures[step.ID]++
		s.state.Status = domain.StatusFeedback
		fb.Hint = hintFor(step, s.state.Failures[step.ID])
	}
	fb.Status = s.state.Status
	s.state.UpdatedAt = time.Now().UTC()

	if s.hooks.OnAttempt != nil {
		s.hooks.OnAttempt(ctx, &domain.AttemptEvent{
			EventBase: s.event(domain.EventAttempt),
			StepID:    step.ID,
			Verdict:   out.Verdict.Kind,
			FaultKind: faultKind,
			Failures:  s.state.Failures[step.ID],
			Duration:  time.Since(start),
		})
	}

	s.logger.Debug("Attempt processed",
		"session_id", s.state.SessionID,
		"step", step.ID,
		"verdict", out.Verdict.Kind,
		"cursor", s.state.Cursor,
	)
	return fb, nil
}

func (s *Sequencer) advance(ctx context.Context, step *domain.Step, fb *domain.Feedback) {
	delete(s.state.Failures, step.ID)
	s.state.Cursor++

	next, ok := s.page.Step(s.state.Cursor)
	if !ok {
		s.state.Status = domain.StatusComplete
		fb.Complete = true
		fb.FinalText = s.page.FinalText
		if s.hooks.OnComplete != nil {
			s.hooks.OnComplete(ctx, &domain.StepEvent{
				EventBase:  s.event(domain.EventComplete),
				FromStepID: step.ID,
			})
		}
		return
	}

	s.state.Status = domain.StatusAwaitingInput
	fb.NextStepID = next.ID
	fb.Prompt = next.Prompt()
	if s.hooks.OnAdvance != nil {
		s.hooks.OnAdvance(ctx, &domain.StepEvent{
			EventBase:  s.event(domain.EventAdvance),
			FromStepID: step.ID,
			ToStepID:   next.ID,
		})
	}
}

// hintFor returns the nth authored hint; past the last one the last repeats.
func hintFor(step *domain.Step, failures int) string {
	if len(step.Hints) == 0 || failures <= 0 {
		return ""
	}
	return step.Hints[min(failures, len(step.Hints))-1]
}

// Reset clears the namespace. The cursor stays where it is.
func (s *Sequencer) Reset() {
	s.ns.Clear()
	s.state.Replay = nil
	if s.state.Status == domain.StatusFeedback {
		s.state.Status = domain.StatusAwaitingInput
	}
	s.state.UpdatedAt = time.Now().UTC()
}

// Restart moves back to the first step with an empty namespace.
func (s *Sequencer) Restart() {
	s.ns.Clear()
	s.state.Replay = nil
	s.state.Cursor = 0
	s.state.Failures = make(map[string]int)
	s.state.Status = domain.StatusAwaitingInput
	s.state.UpdatedAt = time.Now().UTC()
}

func (s *Sequencer) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		SessionID: s.state.SessionID,
		PageID:    s.page.ID,
	}
}
