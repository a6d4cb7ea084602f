package evaluator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/evaluator"
	"github.com/aretw0/tutor/pkg/pattern"
	"github.com/aretw0/tutor/pkg/registry"
	"github.com/aretw0/tutor/pkg/sandbox"
)

func nameAssignStep() *domain.Step {
	return &domain.Step{
		ID:       "name_assign",
		Strategy: domain.StrategyStructural,
		Shape: pattern.Statement(pattern.NodeOf(pattern.KindAssign,
			"target", pattern.NodeOf(pattern.KindName, "id", "name"),
			"value", pattern.NodeOf(pattern.KindConstant, "type", "string"),
		)),
		Heuristics: []domain.Heuristic{
			{Kind: domain.HeuristicAssignTarget, Target: "name", Message: "Put `name` before the `=`."},
			{Kind: domain.HeuristicInputMatches, Pattern: `name=[^'"].*`, Message: "Now put a string on the right of the `=`."},
		},
		Predicate: &domain.Predicate{
			Script: `"Choose a non-empty string" if name == "" else True`,
		},
	}
}

func evaluate(t *testing.T, e *evaluator.Evaluator, step *domain.Step, src string, ns *sandbox.Namespace) *evaluator.Outcome {
	t.Helper()
	out, err := e.Evaluate(context.Background(), step, src, ns)
	require.NoError(t, err)
	return out
}

func TestStructuralStep(t *testing.T) {
	e := evaluator.New()
	step := nameAssignStep()

	tests := []struct {
		name string
		src  string
		kind domain.VerdictKind
		msg  string
	}{
		{"String Value", "name = 'Ann'", domain.VerdictPass, ""},
		{"Extra Spaces", "name   =   \"Ann\"", domain.VerdictPass, ""},
		{"Int Value", "name = 5", domain.VerdictFailMessage, "Now put a string on the right of the `=`."},
		{"Wrong Target", "nam = 'Ann'", domain.VerdictFailMessage, "Put `name` before the `=`."},
		{"Missing Quotes", "name = Ann", domain.VerdictFailMessage, "Now put a string on the right of the `=`."},
		{"Empty String", "name = ''", domain.VerdictFailMessage, "Choose a non-empty string"},
		{"Unrelated", "print(1)", domain.VerdictFailSilent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := evaluate(t, e, step, tt.src, sandbox.NewNamespace())
			assert.Equal(t, tt.kind, out.Verdict.Kind)
			assert.Equal(t, tt.msg, out.Verdict.Message)
		})
	}
}

func TestVerbatimStep(t *testing.T) {
	e := evaluator.New()
	step := &domain.Step{ID: "word_plus_name", Strategy: domain.StrategyVerbatim, Program: "word + name"}
	ns := sandbox.NewNamespace()
	evaluate(t, e, &domain.Step{ID: "setup", Strategy: domain.StrategyVerbatim, Program: "word = 'Hello'\nname = 'Ann'"}, "word = 'Hello'\nname = 'Ann'", ns)

	out := evaluate(t, e, step, "word+name", ns)
	assert.Equal(t, domain.VerdictPass, out.Verdict.Kind)
	require.NotNil(t, out.Result.Value)
	assert.Equal(t, `"HelloAnn"`, out.Result.Value.String())

	out = evaluate(t, e, step, "name + word", ns)
	assert.Equal(t, domain.VerdictFailSilent, out.Verdict.Kind)
	assert.True(t, out.Executed(), "a failed attempt still ran")

	step.MismatchMessage = "Copy the example exactly."
	out = evaluate(t, e, step, "name + word", ns)
	assert.Equal(t, domain.FailWith("Copy the example exactly."), out.Verdict)
}

func TestUnboundNameFault(t *testing.T) {
	e := evaluator.New()
	step := &domain.Step{ID: "word_check", Strategy: domain.StrategyVerbatim, Program: "word"}
	ns := sandbox.NewNamespace()

	out := evaluate(t, e, step, "sunshine", ns)
	assert.Equal(t, domain.VerdictFailMessage, out.Verdict.Kind)
	assert.Equal(t, "NameError: name 'sunshine' is not defined", out.Verdict.Message)
	assert.Equal(t, 0, ns.Len())
}

func TestAllowFault(t *testing.T) {
	e := evaluator.New()
	step := &domain.Step{
		ID:         "sunshine_undefined_check",
		Strategy:   domain.StrategyVerbatim,
		Program:    "sunshine",
		AllowFault: sandbox.KindNameError,
	}

	out := evaluate(t, e, step, "sunshine", sandbox.NewNamespace())
	assert.Equal(t, domain.VerdictPass, out.Verdict.Kind)
	require.NotNil(t, out.Result.Fault)

	out = evaluate(t, e, step, "sunshine / 0", sandbox.NewNamespace())
	assert.Equal(t, domain.VerdictFailSilent, out.Verdict.Kind)
}

func TestParseFault(t *testing.T) {
	e := evaluator.New()
	step := &domain.Step{ID: "s", Strategy: domain.StrategyVerbatim, Program: "print('hi')"}
	ns := sandbox.NewNamespace()
	evaluate(t, e, step, "x = 1", ns)
	before := ns.Snapshot()

	out := evaluate(t, e, step, "x = 2\nprint('hi)", ns)
	assert.Equal(t, domain.VerdictFailMessage, out.Verdict.Kind)
	assert.Contains(t, out.Verdict.Message, "line 2")
	assert.NotContains(t, out.Verdict.Message, "unexpected")
	assert.False(t, out.Executed())
	assert.True(t, before.Equal(ns))
}

func TestStaticErrorIsParseFault(t *testing.T) {
	e := evaluator.New()
	step := &domain.Step{ID: "s", Strategy: domain.StrategyVerbatim, Program: "x = 1"}
	tests := []struct {
		src  string
		want string
	}{
		{"x = 1\nbreak", "only work inside a loop"},
		{"x = 1\nreturn 5", "only works inside a function"},
		{"x = 1\ndef f(a, a):\n  pass", "two parameters with the same name"},
	}
	for _, tt := range tests {
		ns := sandbox.NewNamespace()
		out := evaluate(t, e, step, tt.src, ns)
		assert.Equal(t, domain.VerdictFailMessage, out.Verdict.Kind, tt.src)
		assert.Contains(t, out.Verdict.Message, tt.want)
		assert.Contains(t, out.Verdict.Message, "line 2")
		assert.NotContains(t, out.Verdict.Message, "SyntaxError")
		assert.False(t, out.Executed())
		_, bound := ns.Get("x")
		assert.False(t, bound, tt.src)
	}
}

func TestTimeout(t *testing.T) {
	e := evaluator.New(evaluator.WithSandbox(sandbox.New(sandbox.WithTimeout(30 * time.Millisecond))))
	step := &domain.Step{ID: "loop", Strategy: domain.StrategyVerbatim, Program: "x = 1"}

	out := evaluate(t, e, step, "while True:\n    pass\n", sandbox.NewNamespace())
	assert.Equal(t, domain.RetryWith(evaluator.MsgTimeout), out.Verdict)
}

func TestRequirements(t *testing.T) {
	e := evaluator.New()
	step := &domain.Step{
		ID:       "word_plus_name",
		Strategy: domain.StrategyVerbatim,
		Program:  "word + name",
		Requirements: []domain.Requirement{
			{Condition: "word == 'Hello'", Message: "Oops, you need to set `word = 'Hello'` before we can continue."},
		},
	}
	ns := sandbox.NewNamespace()

	out := evaluate(t, e, step, "word + name", ns)
	assert.Equal(t, domain.VerdictRetryNeeded, out.Verdict.Kind)
	assert.Nil(t, out.Result, "blocked attempts do not run")
	assert.Equal(t, 0, ns.Len())

	evaluate(t, e, &domain.Step{ID: "setup", Strategy: domain.StrategyVerbatim, Program: "x"}, "word = 'Goodbye'\nname = 'Ann'", ns)
	out = evaluate(t, e, step, "word + name", ns)
	assert.Equal(t, domain.VerdictRetryNeeded, out.Verdict.Kind)

	evaluate(t, e, &domain.Step{ID: "setup", Strategy: domain.StrategyVerbatim, Program: "x"}, "word = 'Hello'", ns)
	out = evaluate(t, e, step, "word + name", ns)
	assert.Equal(t, domain.VerdictPass, out.Verdict.Kind)
}

func TestRegisteredChecks(t *testing.T) {
	reg := registry.NewRegistry()
	reg.RegisterPredicate("prints_two_lines", func(_ context.Context, a *registry.Attempt) registry.Decision {
		if a.Stdout == "Hello World\nGoodbye World\n" {
			return registry.Decision{Kind: registry.Accept}
		}
		return registry.Decision{Kind: registry.Undecided}
	})
	reg.RegisterHeuristic("forgot_print", func(_ context.Context, a *registry.Attempt) (string, bool) {
		return "Use print to show each line.", a.Stdout == ""
	})
	e := evaluator.New(evaluator.WithRegistry(reg))

	step := &domain.Step{
		ID:        "editor_hello_world",
		Strategy:  domain.StrategyPredicate,
		Mode:      domain.ModeEditor,
		Predicate: &domain.Predicate{Name: "prints_two_lines"},
		Heuristics: []domain.Heuristic{
			{Kind: domain.HeuristicRegistered, Name: "forgot_print"},
		},
	}
	ns := sandbox.NewNamespace()
	ns.Set("stale", starlark.MakeInt(1))

	prog := "word = 'Hello'\nname = 'World'\nprint(word + ' ' + name)\nword = 'Goodbye'\nprint(word + ' ' + name)\n"
	out := evaluate(t, e, step, prog, ns)
	assert.Equal(t, domain.VerdictPass, out.Verdict.Kind)
	assert.Equal(t, []string{"word", "name"}, ns.Names(), "editor programs run in isolation")

	out = evaluate(t, e, step, "word = 'Hello'\nword", ns)
	assert.Equal(t, domain.FailWith("Use print to show each line."), out.Verdict)
	assert.Nil(t, out.Result.Value, "editor programs do not echo")
}

func TestShapeHeuristic(t *testing.T) {
	e := evaluator.New()
	step := &domain.Step{
		ID:       "word_plus_name_with_space",
		Strategy: domain.StrategyVerbatim,
		Program:  "word + ' ' + name",
		Heuristics: []domain.Heuristic{{
			Kind:    domain.HeuristicShape,
			Shape:   pattern.Exact(mustParse(t, "word + name")),
			Message: "You need a space between the word and the name.",
		}},
	}
	ns := sandbox.NewNamespace()
	evaluate(t, e, &domain.Step{ID: "setup", Strategy: domain.StrategyVerbatim, Program: "x"}, "word = 'Hi'\nname = 'Ann'", ns)

	out := evaluate(t, e, step, "word + name", ns)
	assert.Equal(t, domain.FailWith("You need a space between the word and the name."), out.Verdict)

	out = evaluate(t, e, step, `word + " " + name`, ns)
	assert.Equal(t, domain.VerdictPass, out.Verdict.Kind)
}

func TestMissingQuotesHeuristic(t *testing.T) {
	e := evaluator.New()
	step := nameAssignStep()
	step.Heuristics = []domain.Heuristic{{Kind: domain.HeuristicMissingQuotes, Message: "Strings need quotes."}}

	out := evaluate(t, e, step, "name = Ann", sandbox.NewNamespace())
	assert.Equal(t, domain.FailWith("Strings need quotes."), out.Verdict)
}

func TestAuthoringErrors(t *testing.T) {
	e := evaluator.New()
	tests := []struct {
		name string
		step *domain.Step
	}{
		{"Structural Without Shape", &domain.Step{ID: "a", Strategy: domain.StrategyStructural}},
		{"Predicate Without Predicate", &domain.Step{ID: "b", Strategy: domain.StrategyPredicate}},
		{"Unknown Predicate", &domain.Step{ID: "c", Strategy: domain.StrategyPredicate, Predicate: &domain.Predicate{Name: "nope"}}},
		{"Broken Program", &domain.Step{ID: "d", Strategy: domain.StrategyVerbatim, Program: "x = ("}},
		{"Unknown Strategy", &domain.Step{ID: "e", Strategy: "guess"}},
		{"Bad Requirement", &domain.Step{ID: "f", Strategy: domain.StrategyVerbatim, Program: "x", Requirements: []domain.Requirement{{Condition: "x ==", Message: "m"}}}},
		{"Bad Regex", &domain.Step{ID: "g", Strategy: domain.StrategyVerbatim, Program: "x", Heuristics: []domain.Heuristic{{Kind: domain.HeuristicInputMatches, Pattern: "(", Message: "m"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(context.Background(), tt.step, "y = 1", sandbox.NewNamespace())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrAuthoring), "got %v", err)
		})
	}
}

func TestAssignTarget(t *testing.T) {
	tests := []struct {
		src    string
		target string
		ok     bool
	}{
		{"name = 'Ann'", "name", true},
		{"  nam='Ann'", "nam", true},
		{"x == 1", "", false},
		{"a <= b", "", false},
		{"print(1)", "", false},
		{"f(x == 1, y = 2)", "f(x == 1, y", true},
	}
	for _, tt := range tests {
		got, ok := evaluator.AssignTarget(tt.src)
		assert.Equal(t, tt.ok, ok, tt.src)
		assert.Equal(t, tt.target, got, tt.src)
	}
	assert.Equal(t, "name='Ann'", evaluator.StripSpace(" name = 'Ann' \n"))
}

func mustParse(t *testing.T, src string) *pattern.Node {
	t.Helper()
	n, err := sandbox.Parse(src)
	require.NoError(t, err)
	return n
}
