package domain

import "time"

// SessionStatus is the sequencer state of a session.
type SessionStatus string

const (
	StatusAwaitingInput SessionStatus = "awaiting_input" // Waiting for an attempt on the current step
	StatusFeedback      SessionStatus = "feedback"       // Last attempt failed; the same step is re-presented
	StatusComplete      SessionStatus = "complete"       // Every step passed
)

// SessionState is the durable snapshot of a learner session.
// The namespace is not part of it: it is rebuilt by replaying Replay in order.
type SessionState struct {
	SessionID string        `json:"session_id"`
	PageID    string        `json:"page_id"`
	Cursor    int           `json:"cursor"`
	Status    SessionStatus `json:"status"`

	// Failures counts consecutive failed attempts per step ID (hint ladder).
	Failures map[string]int `json:"failures,omitempty"`

	// Replay holds the sources executed since the namespace was last cleared.
	Replay []string `json:"replay,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionState creates a clean state positioned on the first step of pageID.
func NewSessionState(sessionID, pageID string) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		PageID:    pageID,
		Status:    StatusAwaitingInput,
		Failures:  make(map[string]int),
		UpdatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy so callers cannot mutate shared state by pointer.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.Failures = make(map[string]int, len(s.Failures))
	for k, v := range s.Failures {
		c.Failures[k] = v
	}
	if s.Replay != nil {
		c.Replay = append([]string(nil), s.Replay...)
	}
	return &c
}

// SessionView is what a client sees of a session between attempts.
type SessionView struct {
	State *SessionState `json:"state"`

	// StepID and Prompt describe the step awaiting input; once the page is
	// complete Prompt holds the final text.
	StepID string `json:"step_id,omitempty"`
	Prompt string `json:"prompt"`
}
