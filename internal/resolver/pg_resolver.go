package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/chatbridge/internal/domain"
)

type pgResolver struct {
	pool *pgxpool.Pool
}

// NewPgResolver returns a Resolver backed by the PostgreSQL read model.
func NewPgResolver(pool *pgxpool.Pool) Resolver {
	return &pgResolver{pool: pool}
}

func (r *pgResolver) ResolveUser(ctx context.Context, id domain.ID) (*domain.User, error) {
	if id.IsZero() {
		return nil, domain.ErrNotFound
	}
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, chat_handle, chat_enabled, chat_verified
		FROM users WHERE id = $1`, id.String()).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.ChatHandle, &u.ChatEnabled, &u.ChatVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", id, err)
	}
	return &u, nil
}

func (r *pgResolver) ResolveEvent(ctx context.Context, id domain.ID) (*domain.Event, error) {
	if id.IsZero() {
		return nil, domain.ErrNotFound
	}
	var e domain.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, event_type, start_time, started, completed, calendar_url,
		       checkin_code, checkin_code_required, private_event, lesson_plan_id
		FROM events WHERE id = $1`, id.String()).
		Scan(&e.ID, &e.Title, &e.EventType, &e.StartTime, &e.Started, &e.Completed, &e.CalendarURL,
			&e.CheckinCode, &e.CheckinCodeRequired, &e.PrivateEvent, &e.LessonPlanID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve event %s: %w", id, err)
	}
	return &e, nil
}

func (r *pgResolver) ResolveQuestion(ctx context.Context, id domain.ID) (*domain.Question, error) {
	if id.IsZero() {
		return nil, domain.ErrNotFound
	}
	var q domain.Question
	err := r.pool.QueryRow(ctx, `
		SELECT id, text, course, unit, explanation
		FROM questions WHERE id = $1`, id.String()).
		Scan(&q.ID, &q.Text, &q.Course, &q.Unit, &q.Explanation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve question %s: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT text, correct FROM answers
		WHERE question_id = $1 ORDER BY position ASC`, id.String())
	if err != nil {
		return nil, fmt.Errorf("resolve answers %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.Text, &a.Correct); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		q.Answers = append(q.Answers, a)
	}
	return &q, rows.Err()
}

func (r *pgResolver) ResolveQuiz(ctx context.Context, id domain.ID) (*domain.Quiz, error) {
	if id.IsZero() {
		return nil, domain.ErrNotFound
	}
	var q domain.Quiz
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, quiz_type, started, completed, lesson_plan_id
		FROM quizzes WHERE id = $1`, id.String()).
		Scan(&q.ID, &q.Title, &q.QuizType, &q.Started, &q.Completed, &q.LessonPlanID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve quiz %s: %w", id, err)
	}
	return &q, nil
}
