package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/resolver"
)

// Outcome records what Dispatch did with a notification.
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeDisabled       Outcome = "disabled"
	OutcomeFiltered       Outcome = "filtered"
	OutcomeUnresolved     Outcome = "unresolved"
	OutcomeRenderFailed   Outcome = "render_failed"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeNoop           Outcome = "noop"
)

// Renderer produces message text from a named template.
type Renderer interface {
	Render(templateID string, model any) (string, error)
}

// Deliverer sends text to a user directly or to the broadcast channel.
type Deliverer interface {
	Deliver(ctx context.Context, user *domain.User, text string) (domain.Route, error)
}

type Options struct {
	// Enabled is the global kill-switch for outbound delivery.
	Enabled            bool
	SupportedEventType domain.EventType
	Organization       string
	SiteURL            string
}

// Links are the URLs exposed to templates as .links.
type Links struct {
	Site          string
	Settings      string
	PasswordReset string
	Event         string
	Calendar      string
	Question      string
	Quiz          string
}

// Dispatcher routes each notification to its handler, resolves the entities
// it references, renders the message and hands it to the chat channel.
type Dispatcher struct {
	resolver resolver.Resolver
	renderer Renderer
	channel  Deliverer
	opts     Options
	logger   *zap.Logger

	onOutcome func(kind domain.EventKind, outcome Outcome, elapsed time.Duration)
}

func New(r resolver.Resolver, renderer Renderer, channel Deliverer, opts Options, logger *zap.Logger) *Dispatcher {
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	return &Dispatcher{
		resolver: r,
		renderer: renderer,
		channel:  channel,
		opts:     opts,
		logger:   logger,
	}
}

// SetOutcomeHook installs a callback invoked after every Dispatch.
func (d *Dispatcher) SetOutcomeHook(fn func(kind domain.EventKind, outcome Outcome, elapsed time.Duration)) {
	d.onOutcome = fn
}

// Dispatch processes one notification. It never returns an error: every
// failure is logged and reported through the Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notification) Outcome {
	start := time.Now()
	outcome := d.dispatch(ctx, n)
	if d.onOutcome != nil {
		d.onOutcome(n.Kind, outcome, time.Since(start))
	}
	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, n domain.Notification) Outcome {
	log := d.logger.With(zap.String("kind", string(n.Kind)))

	h, ok := handlers[n.Kind]
	if !ok {
		log.Debug("no handler for notification kind")
		return OutcomeIgnored
	}
	if !d.opts.Enabled {
		return OutcomeDisabled
	}
	if h.noop {
		return OutcomeNoop
	}

	var (
		event    *domain.Event
		question *domain.Question
		err      error
	)
	if h.needsEvent {
		event, err = d.resolver.ResolveEvent(ctx, n.EventID)
		if err != nil {
			log.Warn("event not resolved", zap.String("event_id", n.EventID.String()), zap.Error(err))
			return OutcomeUnresolved
		}
		if !d.supported(event) {
			log.Debug("event type not supported",
				zap.String("event_id", n.EventID.String()),
				zap.String("event_type", string(event.EventType)))
			return OutcomeFiltered
		}
	}
	if h.needsQuestion {
		question, err = d.resolver.ResolveQuestion(ctx, n.QuestionID)
		if err != nil {
			log.Warn("question not resolved", zap.String("question_id", n.QuestionID.String()), zap.Error(err))
			return OutcomeUnresolved
		}
	}

	user, err := d.resolver.ResolveUser(ctx, n.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		user = nil
	case err != nil:
		log.Warn("user lookup failed", zap.String("user_id", n.UserID.String()), zap.Error(err))
		return OutcomeUnresolved
	}

	var quiz *domain.Quiz
	if !n.QuizID.IsZero() {
		quiz, err = d.resolver.ResolveQuiz(ctx, n.QuizID)
		if err != nil {
			log.Debug("quiz not resolved", zap.String("quiz_id", n.QuizID.String()), zap.Error(err))
			quiz = nil
		}
	}

	text, err := d.renderer.Render(h.template, d.model(n, user, event, question, quiz))
	if err != nil {
		log.Warn("render failed", zap.String("template", h.template), zap.Error(err))
		return OutcomeRenderFailed
	}

	route, err := d.channel.Deliver(ctx, user, text)
	if err != nil {
		log.Warn("delivery failed", zap.String("route", string(route)), zap.Error(err))
		return OutcomeDeliveryFailed
	}
	log.Info("notification delivered", zap.String("route", string(route)), zap.String("template", h.template))
	return OutcomeDelivered
}

// supported is the single gate shared by every event-scoped kind.
func (d *Dispatcher) supported(e *domain.Event) bool {
	return e != nil && e.EventType == d.opts.SupportedEventType
}

func (d *Dispatcher) model(n domain.Notification, user *domain.User, event *domain.Event, question *domain.Question, quiz *domain.Quiz) map[string]any {
	org := n.Organization
	if org == "" {
		org = d.opts.Organization
	}

	links := Links{
		Site:          d.opts.SiteURL,
		Settings:      d.opts.SiteURL + "/settings",
		PasswordReset: d.opts.SiteURL + "/password-reset",
	}
	if event != nil {
		links.Event = d.opts.SiteURL + "/events/" + event.ID.String()
		links.Calendar = event.CalendarURL
	}
	if question != nil {
		links.Question = d.opts.SiteURL + "/questions/" + question.ID.String()
	}
	if quiz != nil {
		links.Quiz = d.opts.SiteURL + "/quizzes/" + quiz.ID.String()
	} else if !n.QuizID.IsZero() {
		links.Quiz = d.opts.SiteURL + "/quizzes/" + n.QuizID.String()
	}

	return map[string]any{
		"user":         user,
		"event":        event,
		"question":     question,
		"quiz":         quiz,
		"links":        links,
		"organization": org,
	}
}
