package dispatch

import "github.com/notifyhub/chatbridge/internal/domain"

// handler describes how one event kind is turned into a message.
type handler struct {
	template      string
	needsEvent    bool
	needsQuestion bool
	noop          bool
}

var handlers = map[domain.EventKind]handler{
	domain.KindPasswordReset:            {template: "password_reset"},
	domain.KindUserSettings:             {template: "user_verify_settings"},
	domain.KindUserVerified:             {template: "user_settings_verified"},
	domain.KindUserDelete:               {template: "user_delete"},
	domain.KindEventRSVP:                {template: "gs_event_rsvp", needsEvent: true},
	domain.KindEventUpcoming:            {template: "gs_user_upcoming", needsEvent: true},
	domain.KindEventStart:               {template: "gs_event_start", needsEvent: true},
	domain.KindEventCompleted:           {noop: true},
	domain.KindEventRegister:            {template: "gs_event_register", needsEvent: true},
	domain.KindEventUnregister:          {template: "gs_event_unregister", needsEvent: true},
	domain.KindEventLastMinRegistration: {template: "gs_user_last_min_registration", needsEvent: true},
	domain.KindQuestionAsked:            {template: "question", needsQuestion: true},
	domain.KindQuizComplete:             {template: "quiz_complete"},
}

// Known reports whether kind has a registered handler.
func Known(kind domain.EventKind) bool {
	_, ok := handlers[kind]
	return ok
}
