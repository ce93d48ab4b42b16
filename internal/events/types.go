package events

import "errors"

// #region event-type

// Type is a member of the closed event taxonomy. Anything outside this set
// is rejected by NormalizeEvent.
type Type string

const (
	TypeMockAnalyzed       Type = "mock_analyzed"
	TypePlanGenerated      Type = "plan_generated"
	TypeActionStarted      Type = "action_started"
	TypeActionCompleted    Type = "action_completed"
	TypeActionSkipped      Type = "action_skipped"
	TypeUserFeedback       Type = "user_feedback"
	TypeChatMessage        Type = "chat_message"
	TypeIntakeUpdated      Type = "intake_updated"
	TypeInstrumentFinished Type = "instrument_finished"
	TypeInstrumentQuestion Type = "instrument_question_updated"
)

// knownTypes is the closed set accepted by the normalizer.
var knownTypes = map[Type]bool{
	TypeMockAnalyzed:       true,
	TypePlanGenerated:      true,
	TypeActionStarted:      true,
	TypeActionCompleted:    true,
	TypeActionSkipped:      true,
	TypeUserFeedback:       true,
	TypeChatMessage:        true,
	TypeIntakeUpdated:      true,
	TypeInstrumentFinished: true,
	TypeInstrumentQuestion: true,
}

// ErrUnknownEventType is returned for a type outside the closed taxonomy.
// This is an integration error: callers log it and drop the event.
var ErrUnknownEventType = errors.New("unknown event type")

// #endregion event-type

// #region records

// Input is the loosely-typed client/server event before normalization.
type Input struct {
	Type      string         `json:"type"`
	TS        string         `json:"ts,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// Record is an immutable normalized event. Records are append-only inputs to
// the reducer and are never mutated after creation.
type Record struct {
	EventID   string         `json:"eventId"`
	UserID    string         `json:"userId"`
	Type      Type           `json:"type"`
	TS        string         `json:"ts"`
	Payload   map[string]any `json:"payload"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// #endregion records
