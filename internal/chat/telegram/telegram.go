package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"

	"github.com/notifyhub/chatbridge/internal/chat"
)

type Config struct {
	Token string
	// APIURL overrides the Bot API endpoint (empty means api.telegram.org).
	APIURL      string
	PollTimeout time.Duration
	HTTPTimeout time.Duration
	// Poller replaces the long poller; used by tests.
	Poller tele.Poller
}

// Platform implements chat.Platform on the Telegram Bot API. Each Connect
// creates a fresh bot (performing the getMe handshake) and starts its
// update loop; Disconnect stops it.
type Platform struct {
	cfg    Config
	logger *zap.Logger

	handler atomic.Pointer[func(chat.Inbound)]

	mu   sync.Mutex
	bot  *tele.Bot
	done chan struct{}
	// stopping is the done channel of a bot whose Stop has not finished yet.
	// Connect waits on it so two long pollers never share the token.
	stopping chan struct{}
}

func New(cfg Config, logger *zap.Logger) (*Platform, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		// must outlast the long-poll timeout
		cfg.HTTPTimeout = cfg.PollTimeout + 10*time.Second
	}
	return &Platform{cfg: cfg, logger: logger}, nil
}

func (p *Platform) Connect(ctx context.Context) (chat.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bot != nil {
		return identity(p.bot), nil
	}
	if p.stopping != nil {
		select {
		case <-p.stopping:
			p.stopping = nil
		case <-ctx.Done():
			return chat.Identity{}, fmt.Errorf("previous telegram session still stopping: %w", ctx.Err())
		}
	}

	poller := p.cfg.Poller
	if poller == nil {
		poller = &tele.LongPoller{Timeout: p.cfg.PollTimeout}
	}
	settings := tele.Settings{
		URL:    p.cfg.APIURL,
		Token:  p.cfg.Token,
		Poller: poller,
		Client: &http.Client{Timeout: p.cfg.HTTPTimeout},
		OnError: func(err error, _ tele.Context) {
			p.logger.Warn("telegram update error", zap.Error(err))
		},
	}

	type result struct {
		bot *tele.Bot
		err error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := tele.NewBot(settings)
		ch <- result{b, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return chat.Identity{}, fmt.Errorf("telegram handshake: %w", ctx.Err())
	}
	if res.err != nil {
		return chat.Identity{}, fmt.Errorf("telegram handshake: %w", res.err)
	}

	b := res.bot
	b.Handle(tele.OnText, p.onText)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Start()
	}()
	p.bot, p.done = b, done

	return identity(b), nil
}

func (p *Platform) Listen(handler func(chat.Inbound)) {
	p.handler.Store(&handler)
}

func (p *Platform) onText(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Sender == nil {
		return nil
	}
	h := p.handler.Load()
	if h == nil {
		return nil
	}
	in := chat.Inbound{
		SenderID:   strconv.FormatInt(m.Sender.ID, 10),
		SenderName: m.Sender.Username,
		Text:       m.Text,
	}
	if m.Chat != nil {
		in.ChatID = strconv.FormatInt(m.Chat.ID, 10)
	}
	(*h)(in)
	return nil
}

// PostDirect sends to a user's private chat. The Bot API only reaches
// private chats by numeric chat id, so handle must be one.
func (p *Platform) PostDirect(ctx context.Context, handle, text string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(handle), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a telegram chat id", chat.ErrInvalidRecipient, handle)
	}
	return p.post(ctx, tele.ChatID(id), text)
}

func (p *Platform) PostChannel(ctx context.Context, channel, text string) error {
	return p.post(ctx, recipient(channel), text)
}

func (p *Platform) post(ctx context.Context, to tele.Recipient, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	b := p.bot
	p.mu.Unlock()
	if b == nil {
		return chat.ErrNotConnected
	}

	if _, err := b.Send(to, text); err != nil {
		return classify(err)
	}
	return nil
}

// Disconnect stops the update loop. telebot's Stop blocks until the poller
// returns, so it is bounded by ctx. If ctx expires first the stop keeps
// running and the next Connect waits for it.
func (p *Platform) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	b, done := p.bot, p.done
	if b != nil {
		p.bot, p.done, p.stopping = nil, nil, done
	}
	p.mu.Unlock()
	if b == nil {
		return nil
	}

	go b.Stop()
	select {
	case <-done:
		p.mu.Lock()
		if p.stopping == done {
			p.stopping = nil
		}
		p.mu.Unlock()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop telegram polling: %w", ctx.Err())
	}
}

func identity(b *tele.Bot) chat.Identity {
	if b.Me == nil {
		return chat.Identity{}
	}
	return chat.Identity{ID: strconv.FormatInt(b.Me.ID, 10), Username: b.Me.Username}
}

// username addresses a chat by its public @name.
type username string

func (u username) Recipient() string { return string(u) }

// recipient maps a channel name to a Telegram chat: numeric names are chat
// ids, anything else is a public @username.
func recipient(name string) tele.Recipient {
	name = strings.TrimSpace(name)
	if id, err := strconv.ParseInt(name, 10, 64); err == nil {
		return tele.ChatID(id)
	}
	return username("@" + strings.TrimPrefix(name, "@"))
}

// classify marks errors that invalidate the whole session.
func classify(err error) error {
	var apiErr *tele.Error
	if errors.Is(err, tele.ErrUnauthorized) || (errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized) {
		return fmt.Errorf("%w: %v", chat.ErrSessionLost, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", chat.ErrSessionLost, err)
	}
	return err
}

var _ chat.Platform = (*Platform)(nil)
