package evaluator

import (
	"fmt"
	"strings"

	"github.com/aretw0/tutor/pkg/sandbox"
)

// explainParseFault turns a parser message into a learner-facing explanation.
// The raw parser text is never shown.
func explainParseFault(f *sandbox.ParseFault) string {
	msg := f.Msg
	switch {
	case strings.Contains(msg, "in string"), strings.Contains(msg, "unterminated"):
		return fmt.Sprintf("It looks like a string on line %d is missing its closing quote.", f.Line)
	case strings.Contains(msg, "end of file"), strings.Contains(msg, "EOF"):
		return fmt.Sprintf("Your code on line %d looks unfinished. Check for a missing closing bracket.", f.Line)
	case strings.Contains(msg, "indent"):
		return fmt.Sprintf("The indentation on line %d does not line up with the lines around it.", f.Line)
	case strings.Contains(msg, "not in a loop"):
		return fmt.Sprintf("`break` and `continue` on line %d only work inside a loop.", f.Line)
	case strings.Contains(msg, "not within a function"):
		return fmt.Sprintf("`return` on line %d only works inside a function.", f.Line)
	case strings.Contains(msg, "duplicate parameter"):
		return fmt.Sprintf("The function on line %d has two parameters with the same name.", f.Line)
	}
	return fmt.Sprintf("There is a syntax error on line %d. Check the code carefully and try again.", f.Line)
}
