package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/notifyhub/chatbridge/internal/dispatch"
	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/upstream"
)

// Dispatcher handles one notification synchronously.
type Dispatcher interface {
	Dispatch(ctx context.Context, n domain.Notification) dispatch.Outcome
}

// Queue buffers pushed notifications between ticks.
type Queue interface {
	Enqueue(n domain.Notification) error
	TryDequeue() (domain.Notification, bool)
	Depths() (high, normal, low int)
}

// Fetch results reported to OnFetch.
const (
	FetchOK    = "ok"
	FetchEmpty = "empty"
	FetchError = "error"
)

// PollerHooks are optional metric callbacks. Nil fields are skipped.
type PollerHooks struct {
	OnFetch   func(result string)
	OnSkipped func()
}

// Poller drives the bridge. Every interval it fetches at most one notification
// from the messages service, enqueues it behind anything pushed through the
// intake API, then drains the queue in priority order, dispatching each item
// before moving to the next. Ticks never overlap.
//
// A tick dispatches at most the number of items queued when its drain
// starts. Items pushed during the drain wait for the next tick, so a busy
// intake API cannot hold one tick open and starve the upstream fetch.
type Poller struct {
	fetcher      upstream.Fetcher
	q            Queue
	dispatcher   Dispatcher
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
	hooks        PollerHooks

	running sync.Mutex
}

func NewPoller(
	fetcher upstream.Fetcher,
	q Queue,
	dispatcher Dispatcher,
	interval time.Duration,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *Poller {
	return &Poller{
		fetcher:      fetcher,
		q:            q,
		dispatcher:   dispatcher,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

func (p *Poller) SetHooks(h PollerHooks) { p.hooks = h }

// Run schedules Tick every interval and blocks until ctx is cancelled, then
// waits for an in-flight tick to finish. cron.Every has one-second
// resolution; shorter intervals run once per second.
func (p *Poller) Run(ctx context.Context) error {
	clog := cronLogger{p.logger.Sugar()}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	c.Schedule(cron.Every(p.interval), cron.FuncJob(func() { p.Tick(ctx) }))

	p.logger.Info("poller started", zap.Duration("interval", p.interval))
	c.Start()

	<-ctx.Done()
	p.logger.Info("poller stopping")
	<-c.Stop().Done()
	return nil
}

// Tick runs one poll cycle. It reports false without doing anything when a
// previous tick is still running.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.running.TryLock() {
		p.logger.Debug("poll tick skipped, previous tick still running")
		if p.hooks.OnSkipped != nil {
			p.hooks.OnSkipped()
		}
		return false
	}
	defer p.running.Unlock()

	if n := p.fetch(ctx); n != nil {
		if err := p.q.Enqueue(*n); err != nil {
			p.logger.Warn("intake queue full, dispatching fetched notification directly",
				zap.String("kind", string(n.Kind)))
			p.dispatcher.Dispatch(ctx, *n)
		}
	}

	p.drain(ctx)
	return true
}

func (p *Poller) fetch(ctx context.Context) *domain.Notification {
	fctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	n, err := p.fetcher.Fetch(fctx)
	switch {
	case err != nil:
		p.logger.Error("fetch from messages service failed", zap.Error(err))
		p.reportFetch(FetchError)
		return nil
	case n == nil:
		p.reportFetch(FetchEmpty)
		return nil
	}
	p.reportFetch(FetchOK)
	return n
}

func (p *Poller) drain(ctx context.Context) {
	high, normal, low := p.q.Depths()
	budget := high + normal + low

	dispatched := 0
	for dispatched < budget && ctx.Err() == nil {
		n, ok := p.q.TryDequeue()
		if !ok {
			break
		}
		p.dispatcher.Dispatch(ctx, n)
		dispatched++
	}
	if dispatched > 1 {
		p.logger.Debug("drained intake queue", zap.Int("count", dispatched))
	}
}

func (p *Poller) reportFetch(result string) {
	if p.hooks.OnFetch != nil {
		p.hooks.OnFetch(result)
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
