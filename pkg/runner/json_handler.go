package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/tutor/pkg/domain"
)

// Message is one JSON line written by JSONHandler.
type Message struct {
	Type     string              `json:"type"`
	View     *domain.SessionView `json:"view,omitempty"`
	Feedback *domain.Feedback    `json:"feedback,omitempty"`
	Text     string              `json:"text,omitempty"`
}

// Request is one JSON line read by JSONHandler. Plain text and JSON strings
// are accepted too and taken as the source.
type Request struct {
	Source  string `json:"source"`
	Command string `json:"command,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) ShowStep(_ context.Context, view *domain.SessionView) error {
	return h.Encoder.Encode(Message{Type: "step", View: view})
}

func (h *JSONHandler) ShowFeedback(_ context.Context, fb *domain.Feedback) error {
	return h.Encoder.Encode(Message{Type: "feedback", Feedback: fb})
}

func (h *JSONHandler) SystemOutput(_ context.Context, msg string) error {
	return h.Encoder.Encode(Message{Type: "system", Text: msg})
}

// Input reads one line. A request object with a command is returned as
// ":command"; multiline has no effect since JSON strings carry newlines.
func (h *JSONHandler) Input(ctx context.Context, _ bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var source string
	var req Request
	switch {
	case json.Unmarshal([]byte(text), &req) == nil && strings.HasPrefix(text, "{"):
		if req.Command != "" {
			return ":" + strings.TrimPrefix(req.Command, ":"), nil
		}
		source = req.Source
	case json.Unmarshal([]byte(text), &source) == nil:
	default:
		source = text
	}

	clean, err := SanitizeInput(source)
	if err != nil {
		return "", fmt.Errorf("input rejected: %w", err)
	}
	return clean, nil
}
