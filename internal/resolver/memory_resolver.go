package resolver

import (
	"context"
	"sync"

	"github.com/notifyhub/chatbridge/internal/domain"
)

// MemoryResolver is an in-memory Resolver. It backs unit tests and runs in
// place of a database when DATABASE_URL is empty (every lookup misses).
type MemoryResolver struct {
	mu        sync.RWMutex
	users     map[domain.ID]domain.User
	events    map[domain.ID]domain.Event
	questions map[domain.ID]domain.Question
	quizzes   map[domain.ID]domain.Quiz

	// Optional error overrides, set in tests to simulate transport failures.
	UserErr     error
	EventErr    error
	QuestionErr error
	QuizErr     error

	calls int
}

func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{
		users:     make(map[domain.ID]domain.User),
		events:    make(map[domain.ID]domain.Event),
		questions: make(map[domain.ID]domain.Question),
		quizzes:   make(map[domain.ID]domain.Quiz),
	}
}

func (m *MemoryResolver) PutUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryResolver) PutEvent(e domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
}

func (m *MemoryResolver) PutQuestion(q domain.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
}

func (m *MemoryResolver) PutQuiz(q domain.Quiz) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
}

// Calls reports how many lookups were made.
func (m *MemoryResolver) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

func (m *MemoryResolver) ResolveUser(_ context.Context, id domain.ID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	u, ok := m.users[id]
	if !ok || id.IsZero() {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryResolver) ResolveEvent(_ context.Context, id domain.ID) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.EventErr != nil {
		return nil, m.EventErr
	}
	e, ok := m.events[id]
	if !ok || id.IsZero() {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (m *MemoryResolver) ResolveQuestion(_ context.Context, id domain.ID) (*domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.QuestionErr != nil {
		return nil, m.QuestionErr
	}
	q, ok := m.questions[id]
	if !ok || id.IsZero() {
		return nil, domain.ErrNotFound
	}
	q.Answers = append([]domain.Answer(nil), q.Answers...)
	return &q, nil
}

func (m *MemoryResolver) ResolveQuiz(_ context.Context, id domain.ID) (*domain.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.QuizErr != nil {
		return nil, m.QuizErr
	}
	q, ok := m.quizzes[id]
	if !ok || id.IsZero() {
		return nil, domain.ErrNotFound
	}
	return &q, nil
}

var _ Resolver = (*MemoryResolver)(nil)
