package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// EventKind selects which handler and template apply to a notification.
type EventKind string

const (
	KindPasswordReset            EventKind = "PASSWORD_RESET"
	KindUserSettings             EventKind = "USER_SETTINGS"
	KindUserVerified             EventKind = "USER_VERIFIED"
	KindUserDelete               EventKind = "USER_DELETE"
	KindEventRSVP                EventKind = "EVENT_RSVP"
	KindEventUpcoming            EventKind = "EVENT_UPCOMING"
	KindEventStart               EventKind = "EVENT_START"
	KindEventCompleted           EventKind = "EVENT_COMPLETED"
	KindEventRegister            EventKind = "EVENT_REGISTER"
	KindEventUnregister          EventKind = "EVENT_UNREGISTER"
	KindEventLastMinRegistration EventKind = "EVENT_LAST_MIN_REGISTRATION"
	KindQuestionAsked            EventKind = "QUESTION_ASKED"
	KindQuizComplete             EventKind = "QUIZ_COMPLETE"
)

// Priority controls ordering when notifications are batched. High is processed first.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// Normalize upper-cases the priority and maps anything unknown to NORMAL.
func (p Priority) Normalize() Priority {
	switch Priority(strings.ToUpper(strings.TrimSpace(string(p)))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// rank orders priorities: HIGH (0) < everything else (1) < LOW (2).
func (p Priority) rank() int {
	switch p.Normalize() {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// ID is an opaque entity reference. The messages service emits numeric ids,
// other producers send strings; both decode to the same value.
type ID string

func (id ID) IsZero() bool { return id == "" }

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Notification is the record handed out by the upstream messages service.
// It is consumed once by the dispatcher and never mutated.
type Notification struct {
	Kind         EventKind `json:"eventKind"`
	EventID      ID        `json:"eventId,omitempty"`
	UserID       ID        `json:"userId,omitempty"`
	QuestionID   ID        `json:"questionId,omitempty"`
	QuizID       ID        `json:"quizId,omitempty"`
	Organization string    `json:"organization,omitempty"`
	Priority     Priority  `json:"priority,omitempty"`
	Payload      string    `json:"payload,omitempty"`
}

func (n *Notification) Validate() error {
	if strings.TrimSpace(string(n.Kind)) == "" {
		return ErrInvalidKind
	}
	return nil
}

// Compare orders notifications by priority: HIGH before anything else,
// anything else before LOW. Equal priorities compare as 0.
func Compare(a, b Notification) int {
	return a.Priority.rank() - b.Priority.rank()
}

// SortByPriority sorts in place, keeping arrival order among equal priorities.
func SortByPriority(ns []Notification) {
	slices.SortStableFunc(ns, Compare)
}
