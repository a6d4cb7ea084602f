package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.starlark.net/starlark"

	"github.com/aretw0/tutor/pkg/pattern"
	"github.com/aretw0/tutor/pkg/sandbox"
)

// Attempt is the read-only view of one executed attempt handed to custom checks.
type Attempt struct {
	Input     string
	Tree      *pattern.Node
	Namespace *sandbox.Namespace
	Value     starlark.Value // nil when nothing was echoed
	Stdout    string
	Fault     *sandbox.RuntimeFault
}

// DecisionKind is the answer of a custom predicate.
type DecisionKind int

const (
	// Undecided means "not yet satisfied": the evaluator falls through to its
	// default failure.
	Undecided DecisionKind = iota
	Accept
	Reject
)

// Decision is returned by a Predicate. Message is shown on Reject.
type Decision struct {
	Kind    DecisionKind
	Message string
}

// Predicate decides whether an attempt satisfies a step.
type Predicate func(ctx context.Context, a *Attempt) Decision

// Heuristic inspects a failed attempt and returns a targeted message when it
// recognizes the mistake.
type Heuristic func(ctx context.Context, a *Attempt) (string, bool)

// Registry holds the predicates and heuristics lessons can refer to by name.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
	heuristics map[string]Heuristic
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		predicates: make(map[string]Predicate),
		heuristics: make(map[string]Heuristic),
	}
}

// RegisterPredicate adds a predicate to the registry.
// If a predicate with the same name exists, it is overwritten.
func (r *Registry) RegisterPredicate(name string, fn Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = fn
}

// RegisterHeuristic adds a heuristic to the registry.
// If a heuristic with the same name exists, it is overwritten.
func (r *Registry) RegisterHeuristic(name string, fn Heuristic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heuristics[name] = fn
}

// Predicate looks up a predicate by name.
func (r *Registry) Predicate(name string) (Predicate, error) {
	r.mu.RLock()
	fn, ok := r.predicates[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("predicate not found: %s", name)
	}
	return fn, nil
}

// Heuristic looks up a heuristic by name.
func (r *Registry) Heuristic(name string) (Heuristic, error) {
	r.mu.RLock()
	fn, ok := r.heuristics[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("heuristic not found: %s", name)
	}
	return fn, nil
}

// Names returns the registered predicate and heuristic names, sorted.
func (r *Registry) Names() (predicates, heuristics []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.predicates {
		predicates = append(predicates, name)
	}
	for name := range r.heuristics {
		heuristics = append(heuristics, name)
	}
	sort.Strings(predicates)
	sort.Strings(heuristics)
	return predicates, heuristics
}
