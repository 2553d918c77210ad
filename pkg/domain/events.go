package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
	EventTurn         EventType = "turn"
	EventBackendError EventType = "backend_error"
	EventReprompt     EventType = "reprompt"
)

// EndReason explains why a session left the store.
type EndReason string

const (
	EndFarewell EndReason = "farewell"
	EndHangup   EndReason = "hangup"
	EndIdle     EndReason = "idle"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	CallID    string    `json:"call_id"`
	Language  LocaleKey `json:"language,omitempty"`
}

// SessionEvent is emitted when a session is created or removed.
type SessionEvent struct {
	EventBase
	Reason EndReason `json:"reason,omitempty"`
}

// TurnEvent is emitted after a dialogue turn, successful or not.
type TurnEvent struct {
	EventBase
	HistoryLen int              `json:"history_len"`
	Duration   time.Duration    `json:"duration"`
	ErrorKind  BackendErrorKind `json:"error_kind,omitempty"`
}

// LifecycleHooks defines callbacks for call flow observability.
// Nil hooks are skipped.
type LifecycleHooks struct {
	OnSessionStart func(context.Context, *SessionEvent)
	OnSessionEnd   func(context.Context, *SessionEvent)
	OnTurn         func(context.Context, *TurnEvent)
	OnBackendError func(context.Context, *TurnEvent)
	OnReprompt     func(context.Context, *EventBase)
}

// NewEventBase stamps an event with the current time.
func NewEventBase(t EventType, callID string, lang LocaleKey) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, CallID: callID, Language: lang}
}
