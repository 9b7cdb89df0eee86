package chat

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned when a send could not establish a session.
	ErrNotConnected     = errors.New("chat session not connected")
	// ErrSessionLost is returned by a Platform when the session itself is no
	// longer usable (revoked token, dropped connection). The Channel tears the
	// session down so the next send reconnects.
	ErrSessionLost      = errors.New("chat session lost")
	// ErrInvalidRecipient is returned when a handle cannot be addressed on
	// the platform. The session stays up.
	ErrInvalidRecipient = errors.New("chat recipient cannot be addressed")
)

// Identity is the bot account a session is authenticated as.
type Identity struct {
	ID       string
	Username string
}

// Inbound is a text message received from the platform.
type Inbound struct {
	SenderID   string
	SenderName string
	ChatID     string
	Text       string
}

// Platform is the boundary to a concrete chat service.
type Platform interface {
	// Connect authenticates and starts receiving messages.
	Connect(ctx context.Context) (Identity, error)
	// Listen sets the handler for inbound messages. It is called once.
	Listen(handler func(Inbound))
	// PostDirect sends text to a single user addressed by handle.
	PostDirect(ctx context.Context, handle, text string) error
	// PostChannel sends text to a named shared channel.
	PostChannel(ctx context.Context, channel, text string) error
	Disconnect(ctx context.Context) error
}

// ReplyProcessor receives validated inbound replies.
type ReplyProcessor interface {
	Process(ctx context.Context, in Inbound)
}
