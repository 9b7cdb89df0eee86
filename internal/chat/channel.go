package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/chatbridge/internal/domain"
)

// Limiter throttles outbound sends per route.
type Limiter interface {
	Wait(ctx context.Context, route domain.Route) error
}

type Options struct {
	BroadcastChannel string
	ConnectTimeout   time.Duration
	SendTimeout      time.Duration
	MaxReplyLength   int
}

// Hooks are optional callbacks used for metrics. Nil fields are skipped.
type Hooks struct {
	OnSend        func(route domain.Route, err error)
	OnStateChange func(s State)
	OnReply       func(accepted bool)
}

// Channel owns the chat session and applies the delivery routing rule.
// Session mutation is serialized by mu; State and the self identity can be
// read from any goroutine.
type Channel struct {
	platform Platform
	replies  ReplyProcessor
	limiter  Limiter
	opts     Options
	logger   *zap.Logger
	hooks    Hooks

	mu        sync.Mutex
	state     atomic.Int32
	listening bool
	self      atomic.Pointer[Identity]
}

func New(platform Platform, replies ReplyProcessor, limiter Limiter, opts Options, logger *zap.Logger) *Channel {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.MaxReplyLength <= 0 {
		opts.MaxReplyLength = 4096
	}
	return &Channel{
		platform: platform,
		replies:  replies,
		limiter:  limiter,
		opts:     opts,
		logger:   logger,
	}
}

// SetHooks installs metrics callbacks. Call before the first send.
func (c *Channel) SetHooks(h Hooks) { c.hooks = h }

func (c *Channel) State() State { return State(c.state.Load()) }

// Deliver sends text directly to user when the user opted in and verified a
// handle, and to the broadcast channel otherwise. It returns the route used.
func (c *Channel) Deliver(ctx context.Context, user *domain.User, text string) (domain.Route, error) {
	if user.CanReceiveDirect() {
		return domain.RouteDirect, c.SendDirect(ctx, user, text)
	}
	return domain.RouteBroadcast, c.SendBroadcast(ctx, text)
}

func (c *Channel) SendDirect(ctx context.Context, user *domain.User, text string) error {
	if !user.CanReceiveDirect() {
		return fmt.Errorf("user has no verified chat handle")
	}
	return c.send(ctx, domain.RouteDirect, strings.TrimSpace(user.ChatHandle), text)
}

func (c *Channel) SendBroadcast(ctx context.Context, text string) error {
	return c.send(ctx, domain.RouteBroadcast, c.opts.BroadcastChannel, text)
}

func (c *Channel) send(ctx context.Context, route domain.Route, target, text string) (err error) {
	defer func() {
		if c.hooks.OnSend != nil {
			c.hooks.OnSend(route, err)
		}
	}()

	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, route); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	sctx, cancel := context.WithTimeout(ctx, c.opts.SendTimeout)
	defer cancel()

	if route == domain.RouteDirect {
		err = c.platform.PostDirect(sctx, target, text)
	} else {
		err = c.platform.PostChannel(sctx, target, text)
	}
	if err != nil {
		if errors.Is(err, ErrSessionLost) {
			c.teardown(err)
		}
		return fmt.Errorf("post %s: %w", route, err)
	}
	return nil
}

// ensureConnected connects inline when the session is down. A failed attempt
// leaves the channel DISCONNECTED; the caller's send is aborted.
func (c *Channel) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateConnected {
		return nil
	}
	c.setState(StateConnecting)

	cctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	id, err := c.platform.Connect(cctx)
	cancel()
	if err != nil {
		c.setState(StateDisconnected)
		c.logger.Warn("chat connect failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	c.self.Store(&id)
	if !c.listening {
		c.platform.Listen(c.handleInbound)
		c.listening = true
	}
	c.setState(StateConnected)
	c.logger.Info("chat session connected", zap.String("self", id.Username))
	return nil
}

func (c *Channel) teardown(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateConnected {
		return
	}
	c.logger.Warn("chat session lost, will reconnect on next send", zap.Error(cause))
	c.disconnectLocked(context.Background())
}

// Close ends a connected session. Errors are logged only.
func (c *Channel) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateConnected {
		return
	}
	c.disconnectLocked(ctx)
	c.logger.Info("chat session closed")
}

func (c *Channel) disconnectLocked(ctx context.Context) {
	dctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()
	if err := c.platform.Disconnect(dctx); err != nil {
		c.logger.Warn("chat disconnect failed", zap.Error(err))
	}
	c.setState(StateDisconnected)
}

func (c *Channel) setState(s State) {
	c.state.Store(int32(s))
	if c.hooks.OnStateChange != nil {
		c.hooks.OnStateChange(s)
	}
}

// handleInbound runs on the platform's receive goroutine.
func (c *Channel) handleInbound(in Inbound) {
	if self := c.self.Load(); self != nil && in.SenderID == self.ID {
		return
	}
	if strings.TrimSpace(in.Text) == "" || len(in.Text) > c.opts.MaxReplyLength {
		c.logger.Debug("inbound message dropped", zap.String("sender", in.SenderID), zap.Int("length", len(in.Text)))
		if c.hooks.OnReply != nil {
			c.hooks.OnReply(false)
		}
		return
	}
	if c.hooks.OnReply != nil {
		c.hooks.OnReply(true)
	}
	if c.replies != nil {
		c.replies.Process(context.Background(), in)
	}
}
