package runner

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxInputSize bounds one submission in bytes; a whole editor
	// program fits comfortably.
	DefaultMaxInputSize = 16 << 10
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "TUTOR_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// ansiSequence matches CSI escape sequences pasted from a coloured terminal.
var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// SanitizeInput prepares learner source for the sandbox. Oversized or
// malformed input is rejected outright. Otherwise terminal escapes and
// control characters are removed, line endings are normalized and the
// look-alike spaces that rich-text copies introduce become plain spaces.
// Newlines and tabs survive since indentation is part of the program.
func SanitizeInput(input string) (string, error) {
	if limit := MaxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	input = strings.TrimPrefix(input, "\uFEFF")
	input = strings.ReplaceAll(input, "\r\n", "\n")
	if strings.Contains(input, "\x1b[") {
		input = ansiSequence.ReplaceAllString(input, "")
	}
	return strings.Map(cleanRune, input), nil
}

func cleanRune(r rune) rune {
	switch {
	case r == '\n' || r == '\t':
		return r
	case r == '\u00A0' || r == '\u202F' || r == '\u2007':
		return ' '
	case unicode.IsControl(r):
		return -1
	}
	return r
}

// MaxInputSize returns the submission limit in bytes, honouring
// EnvMaxInputSize.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
