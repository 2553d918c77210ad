package domain

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is a single {role, content} pair. Content is the exact recognized or
// generated text.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LocaleKey identifies a supported spoken language.
type LocaleKey string

const (
	LocaleEnglish    LocaleKey = "en"
	LocaleSpanish    LocaleKey = "es"
	LocaleFrench     LocaleKey = "fr"
	LocalePortuguese LocaleKey = "pt"
)

// Session is the conversational state of one phone call.
type Session struct {
	// CallID is assigned by the gateway and stable for the call's lifetime.
	CallID string `json:"call_id"`

	// Language is the selected locale.
	Language LocaleKey `json:"language"`

	// History is in conversational order and bounded by MaxHistory.
	History []Turn `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session with an empty history.
func NewSession(callID string, lang LocaleKey) *Session {
	now := time.Now()
	return &Session{
		CallID:    callID,
		Language:  lang,
		History:   []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a turn at the end of the history.
func (s *Session) Append(role Role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	s.UpdatedAt = time.Now()
}

// TrimHistory keeps only the most recent max turns. The retained turns keep
// their relative order. It reports whether anything was dropped.
func (s *Session) TrimHistory(max int) bool {
	if max < 0 || len(s.History) <= max {
		return false
	}
	kept := make([]Turn, max)
	copy(kept, s.History[len(s.History)-max:])
	s.History = kept
	return true
}

// Snapshot returns a deep copy so stores never share history slices with callers.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.History = make([]Turn, len(s.History))
	copy(out.History, s.History)
	return &out
}
