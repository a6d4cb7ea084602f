package dsl

import (
	"github.com/aretw0/tutor/internal/dto"
	"github.com/aretw0/tutor/pkg/domain"
)

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step dto.StepMetadata
}

// Text sets the instruction shown to the learner. The placeholders
// __program__ and __program_indented__ expand to the canonical program.
func (s *StepBuilder) Text(text string) *StepBuilder {
	s.step.Text = text
	return s
}

// Program sets the canonical program. Without a shape or predicate the step
// is checked verbatim against it.
func (s *StepBuilder) Program(src string) *StepBuilder {
	s.step.Program = src
	return s
}

// Shape checks the attempt structurally against a descriptor.
func (s *StepBuilder) Shape(descriptor map[string]any) *StepBuilder {
	s.step.Shape = descriptor
	return s
}

// Statement is Shape for a program holding exactly one statement.
func (s *StepBuilder) Statement(descriptor map[string]any) *StepBuilder {
	s.step.Statement = descriptor
	return s
}

// Predicate adds a condition evaluated against the namespace after the
// attempt runs. It yields True to pass or a string to fail with that message.
func (s *StepBuilder) Predicate(script string) *StepBuilder {
	s.step.Predicate = &dto.PredicateMetadata{Script: script}
	return s
}

// PredicateFunc refers to a predicate registered in the registry.
func (s *StepBuilder) PredicateFunc(name string) *StepBuilder {
	s.step.Predicate = &dto.PredicateMetadata{Name: name}
	return s
}

// Strategy forces the checking strategy (verbatim, structural, predicate).
func (s *StepBuilder) Strategy(strategy string) *StepBuilder {
	s.step.Strategy = strategy
	return s
}

// Editor makes the step take a whole program instead of a shell line.
func (s *StepBuilder) Editor() *StepBuilder {
	s.step.Mode = string(domain.ModeEditor)
	return s
}

// Heuristics adds targeted messages tried on failure, in order.
func (s *StepBuilder) Heuristics(hs ...dto.HeuristicMetadata) *StepBuilder {
	s.step.Heuristics = append(s.step.Heuristics, hs...)
	return s
}

// Requires adds a precondition on the namespace checked before the attempt runs.
func (s *StepBuilder) Requires(condition, message string) *StepBuilder {
	s.step.Requires = append(s.step.Requires, dto.RequirementMetadata{Condition: condition, Message: message})
	return s
}

// Hints sets the escalating hints revealed by repeated failures.
func (s *StepBuilder) Hints(hints ...string) *StepBuilder {
	s.step.Hints = hints
	return s
}

// Mismatch sets the message shown when the attempt does not match.
func (s *StepBuilder) Mismatch(message string) *StepBuilder {
	s.step.MismatchMessage = message
	return s
}

// AllowFault accepts an attempt raising the given fault kind (e.g. "TypeError").
func (s *StepBuilder) AllowFault(kind string) *StepBuilder {
	s.step.AllowFault = kind
	return s
}

// Build returns the authored step.
func (s *StepBuilder) Build() dto.StepMetadata {
	return s.step
}

// InputMatches fires when the whitespace-stripped attempt matches pattern.
func InputMatches(pattern, message string) dto.HeuristicMetadata {
	return dto.HeuristicMetadata{Kind: string(domain.HeuristicInputMatches), Pattern: pattern, Message: message}
}

// AssignTarget fires when the text left of the first '=' is not target.
func AssignTarget(target, message string) dto.HeuristicMetadata {
	return dto.HeuristicMetadata{Kind: string(domain.HeuristicAssignTarget), Target: target, Message: message}
}

// MissingQuotes fires when an assignment's value is a bare, unbound name.
func MissingQuotes(message string) dto.HeuristicMetadata {
	return dto.HeuristicMetadata{Kind: string(domain.HeuristicMissingQuotes), Message: message}
}

// ShapeMatches fires when the attempt matches descriptor.
func ShapeMatches(descriptor map[string]any, message string) dto.HeuristicMetadata {
	return dto.HeuristicMetadata{Kind: string(domain.HeuristicShape), Shape: descriptor, Message: message}
}

// Registered refers to a heuristic registered in the registry.
func Registered(name string) dto.HeuristicMetadata {
	return dto.HeuristicMetadata{Kind: string(domain.HeuristicRegistered), Name: name}
}
