package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/pattern"
)

// DefaultTimeout bounds one attempt when no other budget is configured.
const DefaultTimeout = 2 * time.Second

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Result is the outcome of executing one source chunk.
// Exactly one of Tree and Parse is set.
type Result struct {
	Tree  *pattern.Node
	Parse *ParseFault

	// Value is the value of a trailing bare expression, or nil.
	Value  starlark.Value
	Stdout string
	Fault  *RuntimeFault
}

// TimedOut reports whether the attempt was aborted by the execution budget.
func (r *Result) TimedOut() bool {
	return r.Fault != nil && r.Fault.Kind == KindTimeout
}

// Executed reports whether the source ran to completion or to a runtime
// fault, i.e. its effects are part of the namespace.
func (r *Result) Executed() bool {
	return r.Parse == nil && !r.TimedOut()
}

// Sandbox executes learner source against a Namespace.
// A Sandbox holds no per-session state and may be shared.
type Sandbox struct {
	timeout  time.Duration
	maxSteps uint64
	logger   *slog.Logger
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithTimeout sets the wall-clock budget of one attempt. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Sandbox) {
		s.timeout = d
	}
}

// WithMaxSteps bounds the number of Starlark instructions of one attempt.
func WithMaxSteps(n uint64) Option {
	return func(s *Sandbox) {
		s.maxSteps = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sandbox) {
		s.logger = logger
	}
}

// New creates a Sandbox.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse parses src into a syntax tree without executing it. Errors the
// resolver reports regardless of bindings (a stray break, a duplicate
// parameter) are parse faults too.
func Parse(src string) (*pattern.Node, error) {
	f, err := fileOptions.Parse("<input>", src, 0)
	if err != nil {
		return nil, newParseFault(err)
	}
	if pf := staticFault(src); pf != nil {
		return nil, pf
	}
	return pattern.FromSyntax(f), nil
}

// staticFault resolves a fresh parse of src with every free name taken as
// bound, so only the errors that no namespace could fix remain.
func staticFault(src string) *ParseFault {
	f, err := fileOptions.Parse("<input>", src, 0)
	if err != nil {
		return newParseFault(err)
	}
	bound := func(string) bool { return true }
	none := func(string) bool { return false }
	if err := resolve.REPLChunk(f, bound, none, starlark.Universe.Has); err != nil {
		return newParseFault(err)
	}
	return nil
}

// ParseExpr checks that src is a single expression.
func ParseExpr(src string) error {
	if _, err := fileOptions.ParseExpr("<expr>", src, 0); err != nil {
		return newParseFault(err)
	}
	return nil
}

// Execute runs src against ns the way an interactive shell does: statements
// bind into ns and the value of a trailing bare expression is captured unless
// it is None. Statements before a runtime fault keep their effect. On timeout
// ns is restored to its state before the call.
func (s *Sandbox) Execute(ctx context.Context, src string, ns *Namespace) *Result {
	return s.execute(ctx, src, ns, true)
}

// ExecuteProgram runs src as a whole program: ns is cleared first and no
// value is echoed.
func (s *Sandbox) ExecuteProgram(ctx context.Context, src string, ns *Namespace) *Result {
	f, err := fileOptions.Parse("<input>", src, 0)
	if err != nil {
		return &Result{Parse: newParseFault(err)}
	}
	if pf := staticFault(src); pf != nil {
		return &Result{Parse: pf}
	}
	snap := ns.Snapshot()
	ns.Clear()
	res := s.run(ctx, src, f, ns, false)
	if res.TimedOut() {
		ns.Restore(snap)
	}
	return res
}

func (s *Sandbox) execute(ctx context.Context, src string, ns *Namespace, echo bool) *Result {
	f, err := fileOptions.Parse("<input>", src, 0)
	if err != nil {
		return &Result{Parse: newParseFault(err)}
	}
	if pf := staticFault(src); pf != nil {
		return &Result{Parse: pf}
	}
	snap := ns.Snapshot()
	res := s.run(ctx, src, f, ns, echo)
	if res.TimedOut() {
		ns.Restore(snap)
	}
	return res
}

func (s *Sandbox) run(ctx context.Context, src string, f *syntax.File, ns *Namespace, echo bool) *Result {
	res := &Result{Tree: pattern.FromSyntax(f)}
	bound := boundNames(res.Tree)

	var stdout strings.Builder
	thread, done := s.thread(ctx, &stdout)
	defer done()

	start := time.Now()
	value, err := execChunk(thread, f, ns, echo)
	var u *unresolved
	if errors.As(err, &u) {
		// The whole chunk failed to resolve and nothing ran. Run it statement
		// by statement so the statements before the faulty one take effect.
		fresh, perr := fileOptions.Parse("<input>", src, 0)
		if perr == nil {
			value, err = execEach(thread, fresh, ns, echo)
		}
	}
	ns.sync(bound)

	res.Stdout = stdout.String()
	if err != nil {
		res.Fault = classify(err)
		if ctx.Err() != nil {
			res.Fault = &RuntimeFault{Kind: KindTimeout, Msg: ctx.Err().Error()}
		}
		s.logger.Debug("Attempt faulted", "kind", res.Fault.Kind, "msg", res.Fault.Msg, "elapsed", time.Since(start))
		return res
	}
	if value != nil && value != starlark.None {
		res.Value = value
	}
	return res
}

// thread returns a thread wired to ctx and the configured budgets.
func (s *Sandbox) thread(ctx context.Context, stdout *strings.Builder) (*starlark.Thread, func()) {
	thread := &starlark.Thread{
		Name: "attempt",
		Print: func(_ *starlark.Thread, msg string) {
			stdout.WriteString(msg)
			stdout.WriteByte('\n')
		},
	}
	if s.maxSteps > 0 {
		thread.SetMaxExecutionSteps(s.maxSteps)
	}

	cancel := func() {}
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	return thread, func() {
		stop()
		cancel()
	}
}

// execChunk runs f against ns. A trailing expression statement is evaluated
// separately so its value can be returned.
func execChunk(thread *starlark.Thread, f *syntax.File, ns *Namespace, echo bool) (starlark.Value, error) {
	stmts := f.Stmts
	var last *syntax.ExprStmt
	if echo && len(stmts) > 0 {
		if e, ok := stmts[len(stmts)-1].(*syntax.ExprStmt); ok {
			last = e
			stmts = stmts[:len(stmts)-1]
		}
	}
	if len(stmts) > 0 {
		chunk := &syntax.File{Path: f.Path, Stmts: stmts, Options: f.Options}
		if err := starlark.ExecREPLChunk(chunk, thread, ns.globals); err != nil {
			var list resolve.ErrorList
			if errors.As(err, &list) {
				return nil, &unresolved{err: err}
			}
			return nil, err
		}
	}
	if last == nil {
		return nil, nil
	}
	return starlark.EvalExprOptions(f.Options, thread, last.X, ns.globals)
}

// unresolved marks a chunk rejected by the resolver before any statement ran.
type unresolved struct{ err error }

func (u *unresolved) Error() string { return u.err.Error() }
func (u *unresolved) Unwrap() error { return u.err }

func execEach(thread *starlark.Thread, f *syntax.File, ns *Namespace, echo bool) (starlark.Value, error) {
	var value starlark.Value
	for i, stmt := range f.Stmts {
		one := &syntax.File{Path: f.Path, Stmts: []syntax.Stmt{stmt}, Options: f.Options}
		v, err := execChunk(thread, one, ns, echo && i == len(f.Stmts)-1)
		if err != nil {
			return nil, err
		}
		value = v
	}
	return value, nil
}

// Eval evaluates expr against a copy of ns; extra bindings shadow ns.
// The namespace is never mutated.
func (s *Sandbox) Eval(ctx context.Context, expr string, ns *Namespace, extra starlark.StringDict) (starlark.Value, error) {
	env := ns.Snapshot().globals
	for k, v := range extra {
		env[k] = v
	}

	var stdout strings.Builder
	thread, done := s.thread(ctx, &stdout)
	defer done()

	v, err := starlark.EvalOptions(fileOptions, thread, "<expr>", expr, env)
	if err != nil {
		var se syntax.Error
		if errors.As(err, &se) {
			return nil, newParseFault(err)
		}
		return nil, classify(err)
	}
	return v, nil
}

// Replay executes sources in order against ns. It is used to rebuild a
// namespace from a session's replay log; values are not captured.
func (s *Sandbox) Replay(ctx context.Context, sources []string, ns *Namespace) error {
	for _, src := range sources {
		res := s.execute(ctx, src, ns, false)
		switch {
		case res.Parse != nil:
			return res.Parse
		case res.TimedOut():
			return res.Fault
		}
	}
	return nil
}

// boundNames lists identifiers bound by tree in order of first appearance.
func boundNames(tree *pattern.Node) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			names = append(names, id)
		}
	}

	var target func(n *pattern.Node)
	target = func(n *pattern.Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case pattern.KindName:
			id, _ := n.Field("id")
			s, _ := id.(string)
			add(s)
		case pattern.KindTuple, pattern.KindList:
			for _, c := range n.Children("elts") {
				target(c)
			}
		}
	}

	var walk func(list []*pattern.Node)
	walk = func(list []*pattern.Node) {
		for _, n := range list {
			switch n.Kind {
			case pattern.KindAssign:
				target(n.Child("target"))
			case pattern.KindDef:
				name, _ := n.Field("name")
				s, _ := name.(string)
				add(s)
			case pattern.KindFor:
				target(n.Child("target"))
				walk(n.Children("body"))
			case pattern.KindIf:
				walk(n.Children("body"))
				walk(n.Children("orelse"))
			case pattern.KindWhile:
				walk(n.Children("body"))
			case pattern.KindLoad:
				for _, c := range n.Children("names") {
					target(c)
				}
			}
		}
	}
	walk(tree.Children("body"))
	return names
}
