package domain

// StateDiff represents the changes between two session states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Cursor *int           `json:"cursor,omitempty"`
	Status *SessionStatus `json:"status,omitempty"`

	// Failures contains only changed counters. A cleared counter is reported as 0.
	Failures map[string]int `json:"failures,omitempty"`

	// Replay describes how the replay log moved.
	Replay *ReplayDelta `json:"replay,omitempty"`
}

// ReplayDelta represents changes to the replay log.
// Reset is set when the log was cleared (namespace reset or editor program)
// before Appended was added.
type ReplayDelta struct {
	Reset    bool     `json:"reset,omitempty"`
	Appended []string `json:"appended,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
// It returns nil when nothing changed.
func Diff(oldState, newState *SessionState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.Cursor != newState.Cursor {
		diff.Cursor = &newState.Cursor
	}
	if oldState == nil || oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}

	diff.Failures = diffFailures(oldState, newState)
	diff.Replay = diffReplay(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFailures(old, new *SessionState) map[string]int {
	delta := make(map[string]int)

	if old == nil {
		for k, v := range new.Failures {
			delta[k] = v
		}
	} else {
		for k, v := range new.Failures {
			if old.Failures[k] != v {
				delta[k] = v
			}
		}
		for k := range old.Failures {
			if _, ok := new.Failures[k]; !ok {
				delta[k] = 0
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffReplay assumes the log is append-only between resets.
func diffReplay(old, new *SessionState) *ReplayDelta {
	if old == nil {
		if len(new.Replay) == 0 {
			return nil
		}
		return &ReplayDelta{Appended: new.Replay}
	}

	oldLen, newLen := len(old.Replay), len(new.Replay)
	if newLen >= oldLen && hasPrefix(new.Replay, old.Replay) {
		if newLen == oldLen {
			return nil
		}
		return &ReplayDelta{Appended: new.Replay[oldLen:]}
	}

	// Prefix mismatch: the log was cleared and possibly refilled.
	return &ReplayDelta{Reset: true, Appended: new.Replay}
}

func hasPrefix(list, prefix []string) bool {
	for i := range prefix {
		if list[i] != prefix[i] {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Cursor == nil &&
		d.Status == nil &&
		len(d.Failures) == 0 &&
		d.Replay == nil
}
