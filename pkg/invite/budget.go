package invite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Endpoint names a rate-limited API method family.
type Endpoint string

const (
	EndpointJoin   Endpoint = "conversations.join"
	EndpointInvite Endpoint = "conversations.invite"
)

// Budget is the shared request allowance for every worker. Each endpoint
// family has its own token bucket and its own pause window, set when the
// remote side asks us to back off.
type Budget struct {
	mu       sync.Mutex
	limiters map[Endpoint]*rate.Limiter
	paused   map[Endpoint]time.Time
	now      func() time.Time
}

// NewBudget creates a budget allowing perMinute requests per endpoint with
// the given burst.
func NewBudget(perMinute map[Endpoint]int, burst int) *Budget {
	if burst < 1 {
		burst = 1
	}
	b := &Budget{
		limiters: make(map[Endpoint]*rate.Limiter, len(perMinute)),
		paused:   make(map[Endpoint]time.Time),
		now:      time.Now,
	}
	for ep, n := range perMinute {
		b.limiters[ep] = rate.NewLimiter(perMinuteLimit(n), burst)
	}
	return b
}

func perMinuteLimit(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

func (b *Budget) limiter(ep Endpoint) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.limiters[ep]
	if !ok {
		l = rate.NewLimiter(rate.Inf, 1)
		b.limiters[ep] = l
	}
	return l
}

// Wait blocks until ep may send one request: first for any pause window to
// end, then for a token. It returns the context error if ctx ends first.
func (b *Budget) Wait(ctx context.Context, ep Endpoint) error {
	for {
		remaining := b.PausedFor(ep)
		if remaining <= 0 {
			break
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := b.limiter(ep).Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("waiting for %s budget: %w", ep, err)
	}
	return nil
}

// Pause holds every request on ep for d. A shorter pause never shortens an
// existing one.
func (b *Budget) Pause(ep Endpoint, d time.Duration) {
	if d <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	until := b.now().Add(d)
	if until.After(b.paused[ep]) {
		b.paused[ep] = until
	}
}

// PausedFor returns how long ep stays paused.
func (b *Budget) PausedFor(ep Endpoint) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.paused[ep]
	if !ok {
		return 0
	}
	return until.Sub(b.now())
}
