package domain

import (
	"strings"
	"time"
)

// EventType is the category of a scheduled event.
type EventType string

const (
	EventTypeGroundSchool EventType = "GROUNDSCHOOL"
	EventTypeFlight       EventType = "FLIGHT"
	EventTypeMeeting      EventType = "MEETING"
)

// User is a request-scoped copy of a user from the system of record.
type User struct {
	ID           ID     `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	// ChatHandle addresses direct messages; on Telegram it is a numeric chat id.
	ChatHandle   string `json:"chatHandle"`
	ChatEnabled  bool   `json:"chatEnabled"`
	ChatVerified bool   `json:"chatVerified"`
}

// CanReceiveDirect reports whether the user opted in to chat delivery and
// has a confirmed handle to deliver to.
func (u *User) CanReceiveDirect() bool {
	return u != nil && u.ChatEnabled && u.ChatVerified && strings.TrimSpace(u.ChatHandle) != ""
}

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Event struct {
	ID                  ID         `json:"id"`
	Title               string     `json:"title"`
	EventType           EventType  `json:"eventType"`
	StartTime           *time.Time `json:"startTime,omitempty"`
	Started             bool       `json:"started"`
	Completed           bool       `json:"completed"`
	CalendarURL         string     `json:"calendarUrl,omitempty"`
	CheckinCode         string     `json:"checkinCode,omitempty"`
	CheckinCodeRequired bool       `json:"checkinCodeRequired"`
	PrivateEvent        bool       `json:"privateEvent"`
	LessonPlanID        ID         `json:"lessonPlanId,omitempty"`
}

type Answer struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type Question struct {
	ID          ID       `json:"id"`
	Text        string   `json:"text"`
	Course      string   `json:"course,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Answers     []Answer `json:"answers,omitempty"`
}

type Quiz struct {
	ID           ID     `json:"id"`
	Title        string `json:"title"`
	QuizType     string `json:"quizType,omitempty"`
	Started      bool   `json:"started"`
	Completed    bool   `json:"completed"`
	LessonPlanID ID     `json:"lessonPlanId,omitempty"`
}

// Route is the delivery path chosen for a rendered message.
type Route string

const (
	RouteDirect    Route = "direct"
	RouteBroadcast Route = "broadcast"
)
