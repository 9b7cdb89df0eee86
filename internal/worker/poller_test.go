package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notifyhub/chatbridge/internal/dispatch"
	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/queue"
	"github.com/notifyhub/chatbridge/internal/worker"
)

type fetchResult struct {
	n   *domain.Notification
	err error
}

// scriptedFetcher returns queued results in order, then empty.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
}

func (f *scriptedFetcher) Fetch(context.Context) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return nil, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.n, r.err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingDispatcher struct {
	mu      sync.Mutex
	seen    []domain.EventKind
	block   chan struct{}
	entered chan struct{}
	// after runs once per dispatched item, outside the lock
	after func()
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n domain.Notification) dispatch.Outcome {
	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.block != nil {
		<-d.block
	}
	if d.after != nil {
		d.after()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, n.Kind)
	return dispatch.OutcomeDelivered
}

func (d *recordingDispatcher) Seen() []domain.EventKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.EventKind(nil), d.seen...)
}

func notification(kind domain.EventKind, p domain.Priority) *domain.Notification {
	return &domain.Notification{Kind: kind, Priority: p}
}

func TestPoller_FetchesAndDispatchesOne(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{{n: notification(domain.KindPasswordReset, "")}}}
	d := &recordingDispatcher{}
	p := worker.NewPoller(f, queue.New(10), d, time.Second, time.Second, zap.NewNop())

	assert.True(t, p.Tick(context.Background()))
	assert.Equal(t, []domain.EventKind{domain.KindPasswordReset}, d.Seen())

	// nothing pending: the next tick fetches but dispatches nothing
	assert.True(t, p.Tick(context.Background()))
	assert.Len(t, d.Seen(), 1)
	assert.Equal(t, 2, f.Calls())
}

func TestPoller_FetchErrorIsLoggedAndNextTickRuns(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := &scriptedFetcher{results: []fetchResult{
		{err: errors.New("connection refused")},
		{n: notification(domain.KindUserDelete, "")},
	}}
	d := &recordingDispatcher{}
	p := worker.NewPoller(f, queue.New(10), d, time.Second, time.Second, zap.New(core))

	var results []string
	p.SetHooks(worker.PollerHooks{OnFetch: func(r string) { results = append(results, r) }})

	p.Tick(context.Background())
	assert.Empty(t, d.Seen())
	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "fetch from messages service failed", errs[0].Message)

	p.Tick(context.Background())
	assert.Equal(t, []domain.EventKind{domain.KindUserDelete}, d.Seen())
	assert.Equal(t, []string{worker.FetchError, worker.FetchOK}, results)
}

func TestPoller_DrainsQueueInPriorityOrder(t *testing.T) {
	q := queue.New(10)
	require.NoError(t, q.Enqueue(*notification("low-1", domain.PriorityLow)))
	require.NoError(t, q.Enqueue(*notification("normal-1", domain.PriorityNormal)))
	require.NoError(t, q.Enqueue(*notification("low-2", domain.PriorityLow)))

	f := &scriptedFetcher{results: []fetchResult{{n: notification("fetched-high", domain.PriorityHigh)}}}
	d := &recordingDispatcher{}
	p := worker.NewPoller(f, q, d, time.Second, time.Second, zap.NewNop())

	p.Tick(context.Background())
	assert.Equal(t, []domain.EventKind{"fetched-high", "normal-1", "low-1", "low-2"}, d.Seen())
}

func TestPoller_FullQueueDispatchesFetchedDirectly(t *testing.T) {
	q := queue.New(1)
	require.NoError(t, q.Enqueue(*notification("queued", domain.PriorityNormal)))

	f := &scriptedFetcher{results: []fetchResult{{n: notification("fetched", domain.PriorityNormal)}}}
	d := &recordingDispatcher{}
	p := worker.NewPoller(f, q, d, time.Second, time.Second, zap.NewNop())

	p.Tick(context.Background())
	assert.Equal(t, []domain.EventKind{"fetched", "queued"}, d.Seen())
}

func TestPoller_DrainIsBoundedWhileIntakeKeepsPushing(t *testing.T) {
	q := queue.New(100)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(*notification(domain.KindUserDelete, domain.PriorityNormal)))
	}

	f := &scriptedFetcher{results: []fetchResult{
		{n: notification(domain.KindPasswordReset, domain.PriorityHigh)},
		{n: notification(domain.KindPasswordReset, domain.PriorityHigh)},
	}}
	// every dispatch is answered by a fresh push, so the queue never empties
	d := &recordingDispatcher{}
	d.after = func() { _ = q.Enqueue(*notification(domain.KindQuizComplete, domain.PriorityHigh)) }
	p := worker.NewPoller(f, q, d, time.Second, time.Second, zap.NewNop())

	done := make(chan bool, 1)
	go func() { done <- p.Tick(context.Background()) }()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not return while the intake queue was being refilled")
	}

	// fetched item plus the five queued before the drain started
	assert.Len(t, d.Seen(), 6)
	high, normal, low := q.Depths()
	assert.Equal(t, 6, high+normal+low, "items pushed during the drain wait for the next tick")

	// the next tick still reaches upstream
	assert.True(t, p.Tick(context.Background()))
	assert.Equal(t, 2, f.Calls())
	assert.Len(t, d.Seen(), 6+7)
}

func TestPoller_OverlappingTickIsSkipped(t *testing.T) {
	f := &scriptedFetcher{results: []fetchResult{{n: notification(domain.KindEventStart, "")}}}
	d := &recordingDispatcher{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	p := worker.NewPoller(f, queue.New(10), d, time.Second, time.Second, zap.NewNop())

	skipped := 0
	p.SetHooks(worker.PollerHooks{OnSkipped: func() { skipped++ }})

	done := make(chan bool)
	go func() { done <- p.Tick(context.Background()) }()
	<-d.entered

	assert.False(t, p.Tick(context.Background()), "tick while dispatching must be skipped")
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, f.Calls(), "skipped tick does not fetch")

	close(d.block)
	assert.True(t, <-done)
}

func TestPoller_RunTicksUntilCancelled(t *testing.T) {
	f := &scriptedFetcher{}
	p := worker.NewPoller(f, queue.New(10), &recordingDispatcher{}, time.Second, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return f.Calls() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
