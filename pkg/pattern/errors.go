package pattern

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedDescriptor is wrapped by every descriptor validation failure.
var ErrMalformedDescriptor = errors.New("malformed descriptor")

// ValidationError represents a single descriptor validation failure.
type ValidationError struct {
	Path   string // e.g. body[0].target
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", path, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %v)", path, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrMalformedDescriptor }

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d descriptor errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// Validate checks that d names known kinds and fields only and that no
// pattern is missing. A descriptor that fails validation never matches.
func (d *Descriptor) Validate() error {
	var errs []error
	validatePattern(d, "", &errs)
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return &AggregateError{Errors: errs}
}

func (d *Descriptor) validate(path string, errs *[]error) {
	if d.Kind == "" {
		*errs = append(*errs, &ValidationError{Path: path, Reason: "missing kind"})
		return
	}
	if !KnownKind(d.Kind) {
		*errs = append(*errs, &ValidationError{Path: path, Reason: "unknown kind", Value: d.Kind})
		return
	}
	for name, p := range d.Fields {
		fp := fieldPath(path, name)
		if !knownField(d.Kind, name) {
			*errs = append(*errs, &ValidationError{Path: fp, Reason: "unknown field for " + d.Kind})
			continue
		}
		validatePattern(p, fp, errs)
	}
}

func validatePattern(p Pattern, path string, errs *[]error) {
	if p == nil {
		*errs = append(*errs, &ValidationError{Path: path, Reason: "missing pattern"})
		return
	}
	if d, ok := p.(*Descriptor); ok && d == nil {
		*errs = append(*errs, &ValidationError{Path: path, Reason: "missing pattern"})
		return
	}
	p.validate(path, errs)
}

func fieldPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
