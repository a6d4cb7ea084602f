package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/tutor/pkg/domain"
)

const (
	prompt             = "> "
	continuationPrompt = "... "
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) render(markdown string) string {
	if h.Renderer == nil {
		return markdown
	}
	rendered, err := h.Renderer(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}

func (h *TextHandler) ShowStep(_ context.Context, view *domain.SessionView) error {
	if view.Prompt == "" {
		return nil
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(h.render(view.Prompt)))
	return err
}

func (h *TextHandler) ShowFeedback(_ context.Context, fb *domain.Feedback) error {
	if fb.Output != "" {
		fmt.Fprint(h.Writer, fb.Output)
		if !strings.HasSuffix(fb.Output, "\n") {
			fmt.Fprintln(h.Writer)
		}
	}
	if fb.Value != "" {
		fmt.Fprintln(h.Writer, fb.Value)
	}
	if fb.Fault != "" {
		fmt.Fprintln(h.Writer, fb.Fault)
	}

	switch fb.Verdict.Kind {
	case domain.VerdictPass:
	case domain.VerdictFailSilent:
		if fb.Fault == "" {
			fmt.Fprintln(h.Writer, strings.TrimSpace(h.render("That's not quite it. Try again.")))
		}
	default:
		if fb.Verdict.Message != "" && fb.Verdict.Message != fb.Fault {
			fmt.Fprintln(h.Writer, strings.TrimSpace(h.render(fb.Verdict.Message)))
		}
	}
	if fb.Hint != "" {
		fmt.Fprintln(h.Writer, strings.TrimSpace(h.render("**Hint:** "+fb.Hint)))
	}
	if fb.Complete && fb.FinalText != "" {
		fmt.Fprintln(h.Writer, strings.TrimSpace(h.render(fb.FinalText)))
	}
	return nil
}

// Input reads one attempt. In multiline mode lines are collected until an
// empty line; a command (":reset") on the first line is returned at once.
func (h *TextHandler) Input(ctx context.Context, multiline bool) (string, error) {
	h.initPump()

	var lines []string
	for {
		p := prompt
		if len(lines) > 0 {
			p = continuationPrompt
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, p)
		}

		var line string
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				if len(lines) > 0 {
					return h.finish(lines)
				}
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			line = strings.TrimRight(res.text, "\r\n")
		}

		if !multiline {
			text := strings.TrimSpace(line)
			clean, err := SanitizeInput(text)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}

		switch {
		case len(lines) == 0 && strings.TrimSpace(line) == "":
			continue
		case len(lines) == 0 && IsCommand(line):
			return strings.TrimSpace(line), nil
		case strings.TrimSpace(line) == "":
			clean, err := h.finish(lines)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				lines = nil
				continue
			}
			return clean, nil
		}
		lines = append(lines, line)
	}
}

func (h *TextHandler) finish(lines []string) (string, error) {
	return SanitizeInput(strings.Join(lines, "\n"))
}

func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}
