package resolver

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/notifyhub/chatbridge/internal/domain"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteResolver reads entities from a local SQLite copy of the read model.
type SQLiteResolver struct {
	db *sql.DB
}

// SQLitePath extracts the file path from a sqlite:// or file: DATABASE_URL.
func SQLitePath(databaseURL string) (string, bool) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return strings.TrimPrefix(databaseURL, "sqlite://"), true
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return strings.TrimPrefix(databaseURL, "sqlite:"), true
	case strings.HasPrefix(databaseURL, "file:"):
		return databaseURL, true
	}
	return "", false
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// embedded schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteResolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteResolver{db: db}, nil
}

func (r *SQLiteResolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteResolver) ResolveUser(ctx context.Context, id domain.ID) (*domain.User, error) {
	if id.IsZero() {
		return nil, domain.ErrNotFound
	}
	var (
		u     domain.User
		rowID string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, chat_handle, chat_enabled, chat_verified
		FROM users WHERE id = ?`, id.String()).
		Scan(&rowID, &u.FirstName, &u.LastName, &u.Email, &u.ChatHandle, &u.ChatEnabled, &u.ChatVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", id, err)
	}
	u.ID = domain.ID(rowID)
	return &u, nil
}

func (r *SQLiteResolver) ResolveEvent(ctx context.Context, id domain.ID) (*domain.Event, error) {
	if id.IsZero() {
		return nil, domain.ErrNotFound
	}
	var (
		e                domain.Event
		rowID, eventType string
		startTime        sql.NullString
		lessonPlanID     string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, event_type, start_time, started, completed, calendar_url,
		       checkin_code, checkin_code_required, private_event, lesson_plan_id
		FROM events WHERE id = ?`, id.String()).
		Scan(&rowID, &e.Title, &eventType, &startTime, &e.Started, &e.Completed, &e.CalendarURL,
			&e.CheckinCode, &e.CheckinCodeRequired, &e.PrivateEvent, &lessonPlanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve event %s: %w", id, err)
	}
	e.ID = domain.ID(rowID)
	e.EventType = domain.EventType(eventType)
	e.LessonPlanID = domain.ID(lessonPlanID)
	if startTime.Valid && startTime.String != "" {
		t, err := time.Parse(time.RFC3339, startTime.String)
		if err != nil {
			return nil, fmt.Errorf("event %s start_time: %w", id, err)
		}
		e.StartTime = &t
	}
	return &e, nil
}

func (r *SQLiteResolver) ResolveQuestion(ctx context.Context, id domain.ID) (*domain.Question, error) {
	if id.IsZero() {
		return nil, domain.ErrNotFound
	}
	var (
		q     domain.Question
		rowID string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, text, course, unit, explanation
		FROM questions WHERE id = ?`, id.String()).
		Scan(&rowID, &q.Text, &q.Course, &q.Unit, &q.Explanation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve question %s: %w", id, err)
	}
	q.ID = domain.ID(rowID)

	rows, err := r.db.QueryContext(ctx, `
		SELECT text, correct FROM answers
		WHERE question_id = ? ORDER BY position ASC`, id.String())
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

func (r *SQLiteResolver) ResolveQuiz(ctx context.Context, id domain.ID) (*domain.Quiz, error) {
	if id.IsZero() {
		return nil, domain.ErrNotFound
	}
	var (
		q                   domain.Quiz
		rowID, lessonPlanID string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, quiz_type, started, completed, lesson_plan_id
		FROM quizzes WHERE id = ?`, id.String()).
		Scan(&rowID, &q.Title, &q.QuizType, &q.Started, &q.Completed, &lessonPlanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve quiz %s: %w", id, err)
	}
	q.ID = domain.ID(rowID)
	q.LessonPlanID = domain.ID(lessonPlanID)
	return &q, nil
}

var _ Resolver = (*SQLiteResolver)(nil)
