package invite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"slackadder/pkg/logger"
)

// Transport performs single remote calls. Implementations return errors
// that Classify understands, ideally already an *APIError.
type Transport interface {
	JoinChannel(ctx context.Context, channel string) error
	InviteMember(ctx context.Context, channel, user string) error
}

// CallResult describes one logical operation after all its attempts.
type CallResult struct {
	Attempts int
	// Waits lists every delay taken between attempts, in order.
	Waits []time.Duration
	// RetryAfterHonored sums the server-advertised waits among Waits.
	RetryAfterHonored time.Duration
	Err               error
}

// ClientConfig tunes the retry loop.
type ClientConfig struct {
	MaxAttempts int
	Backoff     Backoff
	CallTimeout time.Duration
}

// DefaultClientConfig returns the stock retry policy.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxAttempts: 5,
		Backoff:     Backoff{Base: time.Second, Max: 8 * time.Second},
		CallTimeout: 15 * time.Second,
	}
}

// Client wraps a Transport with rate limiting and retries. It is safe for
// concurrent use; all workers share its Budget.
type Client struct {
	transport Transport
	budget    *Budget
	cfg       ClientConfig
	log       *logger.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client. A nil budget means no client-side limiting.
func NewClient(transport Transport, budget *Budget, cfg ClientConfig, log *logger.Logger) *Client {
	if budget == nil {
		budget = NewBudget(nil, 1)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		transport: transport,
		budget:    budget,
		cfg:       cfg,
		log:       log,
		sleep:     sleepContext,
	}
}

// Join joins the bot into channel.
func (c *Client) Join(ctx context.Context, channel string) CallResult {
	return c.do(ctx, EndpointJoin, channel, func(callCtx context.Context) error {
		return c.transport.JoinChannel(callCtx, channel)
	})
}

// Invite invites user into channel.
func (c *Client) Invite(ctx context.Context, channel, user string) CallResult {
	return c.do(ctx, EndpointInvite, channel, func(callCtx context.Context) error {
		return c.transport.InviteMember(callCtx, channel, user)
	})
}

func (c *Client) do(ctx context.Context, ep Endpoint, channel string, call func(context.Context) error) CallResult {
	var (
		res  CallResult
		last *APIError
	)

	for {
		if err := ctx.Err(); err != nil {
			res.Err = aborted(last)
			return res
		}
		if err := c.budget.Wait(ctx, ep); err != nil {
			res.Err = aborted(last)
			return res
		}

		res.Attempts++
		err := c.attempt(ctx, call)
		if err == nil {
			res.Err = nil
			return res
		}

		last = Classify(string(ep), channel, err)
		if !last.Retryable() {
			res.Err = last
			return res
		}
		if res.Attempts >= c.cfg.MaxAttempts {
			res.Err = &RetriesExhaustedError{Attempts: res.Attempts, Last: last}
			return res
		}

		if last.Kind == KindThrottled && last.RetryAfter > 0 {
			c.log.Debug("Rate limited, pausing endpoint",
				zap.String("endpoint", string(ep)),
				zap.String("channel", channel),
				zap.Duration("retry_after", last.RetryAfter),
				zap.Int("attempt", res.Attempts))
			c.budget.Pause(ep, last.RetryAfter)
			res.Waits = append(res.Waits, last.RetryAfter)
			res.RetryAfterHonored += last.RetryAfter
			continue
		}

		delay := c.cfg.Backoff.Delay(res.Attempts)
		c.log.Debug("Retrying after backoff",
			zap.String("endpoint", string(ep)),
			zap.String("channel", channel),
			zap.String("code", last.Code),
			zap.Duration("delay", delay),
			zap.Int("attempt", res.Attempts))
		res.Waits = append(res.Waits, delay)
		if err := c.sleep(ctx, delay); err != nil {
			res.Err = aborted(last)
			return res
		}
	}
}

// attempt runs one call. The call context is detached from ctx so an abort
// lets the in-flight attempt finish; only the per-call timeout bounds it.
func (c *Client) attempt(ctx context.Context, call func(context.Context) error) error {
	callCtx := context.WithoutCancel(ctx)
	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, c.cfg.CallTimeout)
		defer cancel()
	}
	return call(callCtx)
}

func aborted(last *APIError) error {
	if last == nil {
		return ErrAborted
	}
	return fmt.Errorf("%w: %w", ErrAborted, last)
}

// IsAborted reports whether err came from a cancelled run.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
