package sandbox

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Fault kinds reported in RuntimeFault.Kind.
const (
	KindNameError         = "NameError"
	KindTypeError         = "TypeError"
	KindValueError        = "ValueError"
	KindZeroDivisionError = "ZeroDivisionError"
	KindIndexError        = "IndexError"
	KindKeyError          = "KeyError"
	KindAttributeError    = "AttributeError"
	KindSyntaxError       = "SyntaxError"
	KindRuntimeError      = "RuntimeError"
	KindTimeout           = "Timeout"
)

// ParseFault describes source that could not be parsed. The namespace is
// never touched when it is set.
type ParseFault struct {
	Msg  string
	Line int
	Col  int
}

func (f *ParseFault) Error() string {
	return fmt.Sprintf("line %d:%d: %s", f.Line, f.Col, f.Msg)
}

// RuntimeFault is a fault raised while executing parsed source.
type RuntimeFault struct {
	Kind string
	Msg  string
}

func (f *RuntimeFault) Error() string {
	return f.Kind + ": " + f.Msg
}

func newParseFault(err error) *ParseFault {
	var se syntax.Error
	if errors.As(err, &se) {
		return &ParseFault{Msg: se.Msg, Line: int(se.Pos.Line), Col: int(se.Pos.Col)}
	}
	var list resolve.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return &ParseFault{Msg: list[0].Msg, Line: int(list[0].Pos.Line), Col: int(list[0].Pos.Col)}
	}
	return &ParseFault{Msg: err.Error(), Line: 1, Col: 1}
}

var (
	undefinedRe  = regexp.MustCompile(`^undefined: (\w+)$`)
	unassignedRe = regexp.MustCompile(`^(?:local|global|free) variable (\w+) referenced before assignment$`)
)

// classify turns an execution error into a RuntimeFault.
func classify(err error) *RuntimeFault {
	var list resolve.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		msg := list[0].Msg
		if m := undefinedRe.FindStringSubmatch(msg); m != nil {
			return nameNotDefined(m[1])
		}
		return &RuntimeFault{Kind: KindSyntaxError, Msg: msg}
	}

	msg := err.Error()
	var ee *starlark.EvalError
	if errors.As(err, &ee) {
		msg = ee.Msg
	}
	if strings.Contains(msg, "computation cancelled") {
		return &RuntimeFault{Kind: KindTimeout, Msg: msg}
	}
	if m := unassignedRe.FindStringSubmatch(msg); m != nil {
		return nameNotDefined(m[1])
	}
	return &RuntimeFault{Kind: kindOf(msg), Msg: msg}
}

func nameNotDefined(name string) *RuntimeFault {
	return &RuntimeFault{Kind: KindNameError, Msg: fmt.Sprintf("name '%s' is not defined", name)}
}

func kindOf(msg string) string {
	switch {
	case strings.Contains(msg, "division by zero"), strings.Contains(msg, "modulo by zero"):
		return KindZeroDivisionError
	case strings.Contains(msg, "out of range"):
		return KindIndexError
	case strings.HasPrefix(msg, "key ") && strings.Contains(msg, "not in"):
		return KindKeyError
	case strings.Contains(msg, "has no .") && strings.Contains(msg, "field or method"):
		return KindAttributeError
	case strings.Contains(msg, "invalid literal"),
		strings.Contains(msg, "invalid syntax"),
		strings.Contains(msg, "not found"):
		return KindValueError
	case strings.Contains(msg, "unknown binary op"),
		strings.Contains(msg, "unknown unary op"),
		strings.Contains(msg, "not callable"),
		strings.Contains(msg, "not iterable"),
		strings.Contains(msg, "not indexable"),
		strings.Contains(msg, "unhashable"),
		strings.Contains(msg, "missing argument"),
		strings.Contains(msg, "unexpected keyword"),
		strings.Contains(msg, "accepts no arguments"),
		strings.Contains(msg, "got "),
		strings.Contains(msg, "want "):
		return KindTypeError
	}
	return KindRuntimeError
}
