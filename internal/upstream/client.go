package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/chatbridge/internal/domain"
)

// Fetcher pulls the next pending notification from the messages service.
// A nil notification with a nil error means there was nothing to fetch.
type Fetcher interface {
	Fetch(ctx context.Context) (*domain.Notification, error)
}

// Options identifies this bridge to the messages service.
type Options struct {
	BaseURL          string
	NotificationType string
	Organization     string
	ClientID         string
	Timeout          time.Duration
}

// Client fetches notifications over HTTP. The base URL is injected from
// config so tests can point it at a local server.
type Client struct {
	opts       Options
	httpClient *http.Client
}

func NewClient(opts Options) *Client {
	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// Fetch issues GET {base}/messages?notificationType=... with the organization,
// client-id and a fresh correlation-id header. 200 decodes a notification;
// 204, 404 and an empty 200 body mean no content; any other status is an error.
func (c *Client) Fetch(ctx context.Context) (*domain.Notification, error) {
	endpoint := c.opts.BaseURL + "/messages?notificationType=" + url.QueryEscape(c.opts.NotificationType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("organization", c.opts.Organization)
	req.Header.Set("client-id", c.opts.ClientID)
	req.Header.Set("correlation-id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected messages status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var n domain.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	return &n, nil
}

// compile-time check that Client implements Fetcher
var _ Fetcher = (*Client)(nil)
