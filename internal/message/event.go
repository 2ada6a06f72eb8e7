package message

import "time"

// EventType distinguishes the events published to status transports.
type EventType string

const (
	// EventState reports a controller state transition.
	EventState EventType = "state"

	// EventUtterance reports a completed utterance (the conversation log entry).
	EventUtterance EventType = "utterance"

	// EventSkipped reports an utterance that was dropped or abandoned.
	EventSkipped EventType = "skipped"
)

// Event is what the controller publishes for live observers.
type Event struct {
	Type      EventType             `json:"type"`
	SessionID string                `json:"session_id"`
	State     string                `json:"state,omitempty"`
	Entry     *ConversationLogEntry `json:"entry,omitempty"`
	Reason    string                `json:"reason,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// Counters summarizes a session's progress.
type Counters struct {
	Completed int64 `json:"completed"`
	Skipped   int64 `json:"skipped"`
	Abandoned int64 `json:"abandoned"`
}

// Status is a point-in-time view of a running session, served by the status transports.
type Status struct {
	SessionID      string    `json:"session_id"`
	Mode           string    `json:"mode"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	StartTime      time.Time `json:"start_time"`
	State          string    `json:"state"`
	Counters       Counters  `json:"counters"`
}
