package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/chatbridge/internal/chat"
	"github.com/notifyhub/chatbridge/internal/dispatch"
	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/render"
	"github.com/notifyhub/chatbridge/internal/resolver"
)

type sent struct {
	direct bool
	to     string
	text   string
}

// recordingPlatform is a chat.Platform that keeps every post.
type recordingPlatform struct {
	mu    sync.Mutex
	posts []sent
}

func (p *recordingPlatform) Connect(context.Context) (chat.Identity, error) {
	return chat.Identity{ID: "1", Username: "bridge_bot"}, nil
}
func (p *recordingPlatform) Listen(func(chat.Inbound))        {}
func (p *recordingPlatform) Disconnect(context.Context) error { return nil }

func (p *recordingPlatform) PostDirect(_ context.Context, handle, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, sent{true, handle, text})
	return nil
}

func (p *recordingPlatform) PostChannel(_ context.Context, channel, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, sent{false, channel, text})
	return nil
}

func newPipeline(t *testing.T) (*dispatch.Dispatcher, *resolver.MemoryResolver, *recordingPlatform) {
	t.Helper()
	engine, err := render.New("", zap.NewNop())
	require.NoError(t, err)

	platform := &recordingPlatform{}
	channel := chat.New(platform, nil, nil, chat.Options{
		BroadcastChannel: "@groundschool",
		ConnectTimeout:   time.Second,
		SendTimeout:      time.Second,
	}, zap.NewNop())

	res := resolver.NewMemoryResolver()
	d := dispatch.New(res, engine, channel, dispatch.Options{
		Enabled:            true,
		SupportedEventType: domain.EventTypeGroundSchool,
		Organization:       "StarfireAviation",
		SiteURL:            "https://www.starfireaviation.com",
	}, zap.NewNop())
	return d, res, platform
}

func TestScenario_PasswordResetToVerifiedUser(t *testing.T) {
	d, res, platform := newPipeline(t)
	res.PutUser(domain.User{ID: "42", FirstName: "Amelia", ChatHandle: "amelia", ChatEnabled: true, ChatVerified: true})

	got := d.Dispatch(context.Background(), domain.Notification{Kind: domain.KindPasswordReset, UserID: "42"})
	require.Equal(t, dispatch.OutcomeDelivered, got)

	require.Len(t, platform.posts, 1)
	assert.True(t, platform.posts[0].direct)
	assert.Equal(t, "amelia", platform.posts[0].to)
	assert.Contains(t, platform.posts[0].text, "Hi Amelia,")
	assert.Contains(t, platform.posts[0].text, "https://www.starfireaviation.com/password-reset")
}

func TestScenario_UnverifiedUserGetsBroadcast(t *testing.T) {
	d, res, platform := newPipeline(t)
	res.PutUser(domain.User{ID: "42", FirstName: "Amelia", ChatHandle: "amelia", ChatEnabled: true})
	res.PutEvent(domain.Event{ID: "7", Title: "Weather", EventType: domain.EventTypeGroundSchool})

	got := d.Dispatch(context.Background(), domain.Notification{Kind: domain.KindEventRegister, UserID: "42", EventID: "7"})
	require.Equal(t, dispatch.OutcomeDelivered, got)

	require.Len(t, platform.posts, 1)
	assert.False(t, platform.posts[0].direct)
	assert.Equal(t, "@groundschool", platform.posts[0].to)
	assert.Contains(t, platform.posts[0].text, "Weather")
}

func TestScenario_RSVPForFlightIsDropped(t *testing.T) {
	d, res, platform := newPipeline(t)
	res.PutUser(domain.User{ID: "42", ChatHandle: "amelia", ChatEnabled: true, ChatVerified: true})
	res.PutEvent(domain.Event{ID: "8", Title: "Checkride", EventType: domain.EventTypeFlight})

	got := d.Dispatch(context.Background(), domain.Notification{Kind: domain.KindEventRSVP, UserID: "42", EventID: "8"})
	assert.Equal(t, dispatch.OutcomeFiltered, got)
	assert.Empty(t, platform.posts)
}

func TestScenario_EveryTemplatedKindRenders(t *testing.T) {
	d, res, platform := newPipeline(t)
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	res.PutUser(domain.User{ID: "42", FirstName: "Amelia", LastName: "Earhart"})
	res.PutEvent(domain.Event{ID: "7", Title: "Weather", EventType: domain.EventTypeGroundSchool, StartTime: &start})
	res.PutQuestion(domain.Question{ID: "q-1", Text: "Class B floor?", Answers: []domain.Answer{{Text: "surface"}}})
	res.PutQuiz(domain.Quiz{ID: "z-1", Title: "Airspace"})

	kinds := []domain.EventKind{
		domain.KindPasswordReset, domain.KindUserSettings, domain.KindUserVerified, domain.KindUserDelete,
		domain.KindEventRSVP, domain.KindEventUpcoming, domain.KindEventStart, domain.KindEventRegister,
		domain.KindEventUnregister, domain.KindEventLastMinRegistration, domain.KindQuestionAsked, domain.KindQuizComplete,
	}
	for _, kind := range kinds {
		n := domain.Notification{Kind: kind, UserID: "42", EventID: "7", QuestionID: "q-1", QuizID: "z-1"}
		assert.Equal(t, dispatch.OutcomeDelivered, d.Dispatch(context.Background(), n), kind)
	}
	assert.Len(t, platform.posts, len(kinds))
	for _, p := range platform.posts {
		assert.NotEmpty(t, p.text)
	}
}
