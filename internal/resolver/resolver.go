package resolver

import (
	"context"

	"github.com/notifyhub/chatbridge/internal/domain"
)

// Resolver turns the opaque ids on a notification into domain entities.
// A missing entity (or an empty id) yields domain.ErrNotFound; any other
// error means the system of record could not be reached.
//
// The pgx implementation is in pg_resolver.go, the SQLite one in
// sqlite_resolver.go. Tests use the in-memory resolver (memory_resolver.go).
type Resolver interface {
	ResolveUser(ctx context.Context, id domain.ID) (*domain.User, error)
	ResolveEvent(ctx context.Context, id domain.ID) (*domain.Event, error)
	ResolveQuestion(ctx context.Context, id domain.ID) (*domain.Question, error)
	ResolveQuiz(ctx context.Context, id domain.ID) (*domain.Quiz, error)
}
