package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/notifyhub/chatbridge/internal/domain"
)

// RouteLimiters holds one token bucket per delivery route so a burst of
// broadcasts cannot starve direct messages and vice versa.
// Burst is set equal to the rate; no tokens are saved up beyond one second.
type RouteLimiters struct {
	limiters map[domain.Route]*rate.Limiter
}

// New creates a RouteLimiters with ratePerSec tokens per second per route.
// A non-positive rate disables limiting.
func New(ratePerSec int) *RouteLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec
	if ratePerSec <= 0 {
		r, burst = rate.Inf, 1
	}

	return &RouteLimiters{
		limiters: map[domain.Route]*rate.Limiter{
			domain.RouteDirect:    rate.NewLimiter(r, burst),
			domain.RouteBroadcast: rate.NewLimiter(r, burst),
		},
	}
}

// Wait blocks until the route's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled (or its deadline is too
// close) while waiting. Unknown routes are not limited.
func (rl *RouteLimiters) Wait(ctx context.Context, route domain.Route) error {
	l, ok := rl.limiters[route]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
