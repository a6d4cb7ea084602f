package domain

// VerdictKind classifies the outcome of one attempt.
type VerdictKind string

const (
	// VerdictPass means every configured check passed; the sequencer advances.
	VerdictPass VerdictKind = "pass"
	// VerdictFailMessage is a failure carrying a targeted message.
	VerdictFailMessage VerdictKind = "fail_message"
	// VerdictFailSilent is a generic "try again" failure.
	VerdictFailSilent VerdictKind = "fail_silent"
	// VerdictRetryNeeded means the attempt could not be judged (time budget
	// exceeded or a requirement of the step is not met).
	VerdictRetryNeeded VerdictKind = "retry_needed"
)

// Verdict is the outcome of one attempt. It is never persisted.
type Verdict struct {
	Kind    VerdictKind `json:"kind"`
	Message string      `json:"message,omitempty"`
}

// Pass returns a passing verdict.
func Pass() Verdict { return Verdict{Kind: VerdictPass} }

// FailWith returns a failing verdict carrying msg.
func FailWith(msg string) Verdict { return Verdict{Kind: VerdictFailMessage, Message: msg} }

// FailSilent returns a generic failing verdict.
func FailSilent() Verdict { return Verdict{Kind: VerdictFailSilent} }

// RetryWith returns a verdict asking the learner to try again for reason msg.
func RetryWith(msg string) Verdict { return Verdict{Kind: VerdictRetryNeeded, Message: msg} }

// Passed reports whether the verdict lets the learner progress.
func (v Verdict) Passed() bool { return v.Kind == VerdictPass }

// Feedback is what the presentation layer receives after an attempt.
type Feedback struct {
	SessionID string  `json:"session_id"`
	StepID    string  `json:"step_id"`
	Verdict   Verdict `json:"verdict"`

	// Hint is the escalating hint revealed by repeated failures on the same step.
	Hint string `json:"hint,omitempty"`

	// Output is the text printed by the attempt.
	Output string `json:"output,omitempty"`
	// Value is the representation of the trailing expression's value, if any.
	Value string `json:"value,omitempty"`
	// Fault is the "Kind: message" text of a runtime fault, if any.
	Fault string `json:"fault,omitempty"`

	Status SessionStatus `json:"status"`

	// NextStepID and Prompt describe the step now awaiting input after a Pass.
	NextStepID string `json:"next_step_id,omitempty"`
	Prompt     string `json:"prompt,omitempty"`

	// Complete is set once the last step passed; FinalText is then shown.
	Complete  bool   `json:"complete,omitempty"`
	FinalText string `json:"final_text,omitempty"`

	// Diff describes how the session state moved during the attempt.
	Diff *StateDiff `json:"diff,omitempty"`
}
