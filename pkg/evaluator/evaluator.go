package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"

	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/pattern"
	"github.com/aretw0/tutor/pkg/registry"
	"github.com/aretw0/tutor/pkg/sandbox"
)

// Learner-facing messages for verdicts the evaluator produces itself.
const (
	MsgTimeout = "That took too long to run. Look for a loop that never ends, then try again."
)

// Outcome is the result of evaluating one attempt.
type Outcome struct {
	Verdict domain.Verdict

	// Result is nil when a requirement blocked the attempt before it ran.
	Result *sandbox.Result
}

// Executed reports whether the attempt's source took effect in the namespace.
func (o *Outcome) Executed() bool {
	return o.Result != nil && o.Result.Executed()
}

// Evaluator judges attempts against steps. It is stateless and safe for
// concurrent use across sessions.
type Evaluator struct {
	sandbox  *sandbox.Sandbox
	registry *registry.Registry
	logger   *slog.Logger
	regexps  *regexpCache
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSandbox sets the sandbox used to execute attempts.
func WithSandbox(sb *sandbox.Sandbox) Option {
	return func(e *Evaluator) {
		e.sandbox = sb
	}
}

// WithRegistry sets the registry used to resolve named predicates and heuristics.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Evaluator) {
		e.registry = r
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger:  logging.NewNop(),
		regexps: newRegexpCache(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sandbox == nil {
		e.sandbox = sandbox.New(sandbox.WithLogger(e.logger))
	}
	if e.registry == nil {
		e.registry = registry.NewRegistry()
	}
	return e
}

// Sandbox returns the sandbox attempts run in.
func (e *Evaluator) Sandbox() *sandbox.Sandbox {
	return e.sandbox
}

// Evaluate runs source against ns and judges it for step.
//
// Learner mistakes of every kind come back as a Verdict. The error return is
// reserved for broken lesson definitions and wraps domain.ErrAuthoring.
func (e *Evaluator) Evaluate(ctx context.Context, step *domain.Step, source string, ns *sandbox.Namespace) (*Outcome, error) {
	if msg, blocked, err := e.checkRequirements(ctx, step, ns); err != nil {
		return nil, err
	} else if blocked {
		return &Outcome{Verdict: domain.RetryWith(msg)}, nil
	}

	var res *sandbox.Result
	if step.EffectiveMode() == domain.ModeEditor {
		res = e.sandbox.ExecuteProgram(ctx, source, ns)
	} else {
		res = e.sandbox.Execute(ctx, source, ns)
	}
	out := &Outcome{Result: res}

	v, err := e.judge(ctx, step, source, ns, res)
	if err != nil {
		return nil, err
	}
	out.Verdict = v
	e.logger.Debug("Attempt judged", "step", step.ID, "verdict", v.Kind)
	return out, nil
}

func (e *Evaluator) judge(ctx context.Context, step *domain.Step, source string, ns *sandbox.Namespace, res *sandbox.Result) (domain.Verdict, error) {
	if res.Parse != nil {
		return domain.FailWith(explainParseFault(res.Parse)), nil
	}
	if res.TimedOut() {
		return domain.RetryWith(MsgTimeout), nil
	}

	a := &registry.Attempt{
		Input:     source,
		Tree:      res.Tree,
		Namespace: ns,
		Value:     res.Value,
		Stdout:    res.Stdout,
		Fault:     res.Fault,
	}

	if res.Fault != nil && res.Fault.Kind != step.AllowFault {
		if msg, ok, err := e.runHeuristics(ctx, step, a); err != nil {
			return domain.Verdict{}, err
		} else if ok {
			return domain.FailWith(msg), nil
		}
		return domain.FailWith(res.Fault.Error()), nil
	}

	switch step.Strategy {
	case domain.StrategyVerbatim:
		canonical, err := canonicalOf(step)
		if err != nil {
			return domain.Verdict{}, err
		}
		if !pattern.Matches(res.Tree, canonical) {
			return e.fail(ctx, step, a, step.MismatchMessage)
		}
	case domain.StrategyStructural:
		if step.Shape == nil {
			return domain.Verdict{}, authoring(step, "structural step without a shape")
		}
	case domain.StrategyPredicate:
		if step.Predicate == nil {
			return domain.Verdict{}, authoring(step, "predicate step without a predicate")
		}
	default:
		return domain.Verdict{}, authoring(step, fmt.Sprintf("unknown strategy %q", step.Strategy))
	}

	if step.Shape != nil && !pattern.Matches(res.Tree, step.Shape) {
		return e.fail(ctx, step, a, "")
	}

	if step.Predicate != nil {
		d, err := e.decide(ctx, step, a)
		if err != nil {
			return domain.Verdict{}, err
		}
		switch d.Kind {
		case registry.Reject:
			if d.Message == "" {
				return domain.FailSilent(), nil
			}
			return domain.FailWith(d.Message), nil
		case registry.Undecided:
			return e.fail(ctx, step, a, "")
		}
	}

	return domain.Pass(), nil
}

// fail runs the heuristics and falls back to fallback, or to a silent failure.
func (e *Evaluator) fail(ctx context.Context, step *domain.Step, a *registry.Attempt, fallback string) (domain.Verdict, error) {
	msg, ok, err := e.runHeuristics(ctx, step, a)
	switch {
	case err != nil:
		return domain.Verdict{}, err
	case ok:
		return domain.FailWith(msg), nil
	case fallback != "":
		return domain.FailWith(fallback), nil
	}
	return domain.FailSilent(), nil
}

func canonicalOf(step *domain.Step) (*pattern.Descriptor, error) {
	if step.Canonical != nil {
		return step.Canonical, nil
	}
	if step.Program == "" {
		return nil, authoring(step, "verbatim step without a program")
	}
	tree, err := sandbox.Parse(step.Program)
	if err != nil {
		return nil, authoring(step, fmt.Sprintf("program does not parse: %v", err))
	}
	return pattern.Exact(tree), nil
}

func (e *Evaluator) checkRequirements(ctx context.Context, step *domain.Step, ns *sandbox.Namespace) (string, bool, error) {
	for _, req := range step.Requirements {
		v, err := e.sandbox.Eval(ctx, req.Condition, ns, nil)
		if err != nil {
			if _, ok := err.(*sandbox.ParseFault); ok {
				return "", false, authoring(step, fmt.Sprintf("requirement %q: %v", req.Condition, err))
			}
			return req.Message, true, nil
		}
		if !v.Truth() {
			return req.Message, true, nil
		}
	}
	return "", false, nil
}

// decide runs the step predicate. A script predicate is a Starlark
// expression over the namespace plus value, stdout and input; True accepts,
// a string rejects with that message, anything else is undecided.
func (e *Evaluator) decide(ctx context.Context, step *domain.Step, a *registry.Attempt) (registry.Decision, error) {
	p := step.Predicate
	if p.Name != "" {
		fn, err := e.registry.Predicate(p.Name)
		if err != nil {
			return registry.Decision{}, authoring(step, err.Error())
		}
		return fn(ctx, a), nil
	}

	value := a.Value
	if value == nil {
		value = starlark.None
	}
	v, err := e.sandbox.Eval(ctx, p.Script, a.Namespace, starlark.StringDict{
		"value":  value,
		"stdout": starlark.String(a.Stdout),
		"input":  starlark.String(a.Input),
	})
	if err != nil {
		if _, ok := err.(*sandbox.ParseFault); ok {
			return registry.Decision{}, authoring(step, fmt.Sprintf("predicate script: %v", err))
		}
		e.logger.Debug("Predicate script faulted", "step", step.ID, "err", err)
		return registry.Decision{Kind: registry.Undecided}, nil
	}

	switch v := v.(type) {
	case starlark.Bool:
		if v {
			return registry.Decision{Kind: registry.Accept}, nil
		}
	case starlark.String:
		return registry.Decision{Kind: registry.Reject, Message: string(v)}, nil
	}
	return registry.Decision{Kind: registry.Undecided}, nil
}

func authoring(step *domain.Step, msg string) error {
	return fmt.Errorf("%w: step %q: %s", domain.ErrAuthoring, step.ID, msg)
}
