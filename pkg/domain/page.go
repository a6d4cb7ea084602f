package domain

import (
	"strings"

	"github.com/aretw0/tutor/pkg/pattern"
)

// Strategy selects how a Step judges an attempt.
type Strategy string

const (
	// StrategyVerbatim expects the learner to reproduce the canonical program.
	// Formatting is ignored: the submitted tree must match the program's tree.
	StrategyVerbatim Strategy = "verbatim"
	// StrategyStructural expects the submitted tree to match an Expected-Shape Descriptor.
	StrategyStructural Strategy = "structural"
	// StrategyPredicate delegates the decision to a custom predicate over the
	// post-execution namespace.
	StrategyPredicate Strategy = "predicate"
)

// Mode selects where the submitted source runs.
type Mode string

const (
	// ModeShell runs the source against the live namespace and echoes the value
	// of a trailing bare expression.
	ModeShell Mode = "shell"
	// ModeEditor runs the source as a whole program: the namespace is cleared
	// first and nothing is echoed.
	ModeEditor Mode = "editor"
)

// HeuristicKind names a built-in heuristic sub-check.
type HeuristicKind string

const (
	// HeuristicInputMatches fires when the whitespace-stripped input fully matches Pattern.
	HeuristicInputMatches HeuristicKind = "input_matches"
	// HeuristicAssignTarget fires when the text left of the first '=' is not Target.
	HeuristicAssignTarget HeuristicKind = "assign_target"
	// HeuristicShape fires when the submitted tree matches Shape (a known mistake).
	HeuristicShape HeuristicKind = "shape"
	// HeuristicMissingQuotes fires when an assignment's value is a bare, unbound name.
	HeuristicMissingQuotes HeuristicKind = "missing_quotes"
	// HeuristicRegistered delegates to a Go heuristic registered under Name.
	HeuristicRegistered HeuristicKind = "registered"
)

// Heuristic is an authored sub-check run after a failed match. The first one
// that fires supplies the failure message.
type Heuristic struct {
	Kind    HeuristicKind       `json:"kind" yaml:"kind"`
	Pattern string              `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Target  string              `json:"target,omitempty" yaml:"target,omitempty"`
	Name    string              `json:"name,omitempty" yaml:"name,omitempty"`
	Shape   *pattern.Descriptor `json:"-" yaml:"-"`
	Message string              `json:"message" yaml:"message"`
}

// Predicate is a custom check over the post-execution namespace.
// Exactly one of Name (a registered Go predicate) or Script (a Starlark
// expression) is set.
type Predicate struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

// Requirement is a precondition on the namespace checked before the attempt runs.
// Condition is a Starlark expression; when it is false the learner receives Message.
type Requirement struct {
	Condition string `json:"condition" yaml:"condition"`
	Message   string `json:"message" yaml:"message"`
}

// Step is one authored checkpoint of a Page. Steps are immutable once loaded.
type Step struct {
	ID       string   `json:"id" yaml:"id"`
	Text     string   `json:"text" yaml:"text"`
	Strategy Strategy `json:"strategy" yaml:"strategy"`
	Mode     Mode     `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Program is the canonical program for verbatim steps.
	Program string `json:"program,omitempty" yaml:"program,omitempty"`
	// Canonical is the exact descriptor derived from Program at load time.
	Canonical *pattern.Descriptor `json:"-" yaml:"-"`

	// Shape is the Expected-Shape Descriptor for structural steps.
	Shape *pattern.Descriptor `json:"-" yaml:"-"`

	Heuristics   []Heuristic   `json:"heuristics,omitempty" yaml:"heuristics,omitempty"`
	Predicate    *Predicate    `json:"predicate,omitempty" yaml:"predicate,omitempty"`
	Requirements []Requirement `json:"requires,omitempty" yaml:"requires,omitempty"`
	Hints        []string      `json:"hints,omitempty" yaml:"hints,omitempty"`

	// MismatchMessage replaces the silent failure of a verbatim mismatch.
	MismatchMessage string `json:"mismatch_message,omitempty" yaml:"mismatch_message,omitempty"`

	// AllowFault names a runtime fault kind (e.g. "NameError") that the step
	// expects the learner to trigger; such a fault does not fail the attempt.
	AllowFault string `json:"allow_fault,omitempty" yaml:"allow_fault,omitempty"`
}

// Prompt returns the step text with the program placeholders expanded.
func (s *Step) Prompt() string {
	text := s.Text
	if s.Program == "" {
		return text
	}
	indented := "    " + strings.ReplaceAll(strings.TrimRight(s.Program, "\n"), "\n", "\n    ")
	text = strings.ReplaceAll(text, "__program_indented__", indented)
	text = strings.ReplaceAll(text, "__program__", s.Program)
	return text
}

// EffectiveMode returns the step mode, defaulting to ModeShell.
func (s *Step) EffectiveMode() Mode {
	if s.Mode == "" {
		return ModeShell
	}
	return s.Mode
}

// Page is an ordered list of steps sharing one session namespace.
type Page struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Steps     []Step `json:"steps" yaml:"steps"`
	FinalText string `json:"final_text,omitempty" yaml:"final_text,omitempty"`
}

// Step returns the step at index i.
func (p *Page) Step(i int) (*Step, bool) {
	if i < 0 || i >= len(p.Steps) {
		return nil, false
	}
	return &p.Steps[i], true
}

// Len returns the number of steps in the page.
func (p *Page) Len() int {
	return len(p.Steps)
}

// PageSummary is the listing view of a Page.
type PageSummary struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Steps int    `json:"steps"`
}

// Summary returns the listing view of p.
func (p *Page) Summary() PageSummary {
	return PageSummary{ID: p.ID, Title: p.Title, Steps: len(p.Steps)}
}
