// Package slackapi is the boundary to the Slack Web API: joins, invites,
// channel name lookups and the requester checks.
package slackapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"slackadder/pkg/invite"
	"slackadder/pkg/logger"
	"slackadder/pkg/resolver"
	"slackadder/pkg/state"
)

const (
	methodJoin   = "conversations.join"
	methodInvite = "conversations.invite"
	methodList   = "conversations.list"
	methodInfo   = "conversations.info"
	methodUser   = "users.info"

	channelKeyPrefix = "channel:"
	listPageSize     = 1000
	maxLookupRetries = 5
)

// Options configures a Client.
type Options struct {
	BotToken string
	AppToken string
	// APIURL overrides the Slack endpoint; it must end with a slash.
	APIURL   string
	CacheTTL time.Duration
}

// Client wraps the slack-go client.
type Client struct {
	api   *slack.Client
	cache state.KV
	ttl   time.Duration
	log   *logger.Logger
	lists singleflight.Group
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client. cache may be nil to disable lookup caching.
func New(opts Options, cache state.KV, log *logger.Logger) *Client {
	var slackOpts []slack.Option
	if opts.AppToken != "" {
		slackOpts = append(slackOpts, slack.OptionAppLevelToken(opts.AppToken))
	}
	if opts.APIURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(opts.APIURL))
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cache == nil {
		cache = state.NewMemoryStore(log, opts.CacheTTL)
	}

	return &Client{
		api:   slack.New(opts.BotToken, slackOpts...),
		cache: cache,
		ttl:   opts.CacheTTL,
		log:   log,
		sleep: sleepContext,
	}
}

// API exposes the underlying client for Socket Mode.
func (c *Client) API() *slack.Client {
	return c.api
}

// JoinChannel calls conversations.join.
func (c *Client) JoinChannel(ctx context.Context, channel string) error {
	_, _, _, err := c.api.JoinConversationContext(ctx, channel)
	return asError(classify(methodJoin, channel, err))
}

// InviteMember calls conversations.invite.
func (c *Client) InviteMember(ctx context.Context, channel, user string) error {
	_, err := c.api.InviteUsersToConversationContext(ctx, channel, user)
	return asError(classify(methodInvite, channel, err))
}

// AuthTest identifies the bot and its installation.
func (c *Client) AuthTest(ctx context.Context) (*slack.AuthTestResponse, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("slack auth test failed: %w", err)
	}
	return resp, nil
}

// PostReply posts text, threaded under threadTS when it is set.
func (c *Client) PostReply(ctx context.Context, channel, threadTS, text string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if _, _, err := c.api.PostMessageContext(ctx, channel, opts...); err != nil {
		return fmt.Errorf("sending slack message: %w", err)
	}
	return nil
}

// PostEphemeral posts text visible only to user.
func (c *Client) PostEphemeral(ctx context.Context, channel, user, text string) error {
	if _, err := c.api.PostEphemeralContext(ctx, channel, user, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("sending ephemeral slack message: %w", err)
	}
	return nil
}

// ResolveChannelID returns the ID of the channel called name. Every page of
// conversations.list that is read is cached, so later lookups are free.
func (c *Client) ResolveChannelID(ctx context.Context, name string) (string, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	if name == "" {
		return "", resolver.ErrChannelNotFound
	}

	if id, ok, err := c.cache.GetString(ctx, channelKeyPrefix+name); err != nil {
		c.log.Warn("Channel cache read failed", zap.String("name", name), zap.Error(err))
	} else if ok {
		return id, nil
	}

	v, err, _ := c.lists.Do(name, func() (interface{}, error) {
		return c.scanChannels(ctx, name)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) scanChannels(ctx context.Context, want string) (string, error) {
	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           listPageSize,
		Types:           []string{"public_channel", "private_channel"},
	}

	for {
		var (
			page   []slack.Channel
			cursor string
		)
		err := c.withThrottleRetry(ctx, methodList, func() error {
			var err error
			page, cursor, err = c.api.GetConversationsContext(ctx, params)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("looking up channel %q: %w", want, err)
		}

		found := ""
		entries := make(map[string]interface{}, len(page))
		for _, ch := range page {
			lower := strings.ToLower(ch.Name)
			entries[channelKeyPrefix+lower] = ch.ID
			if lower == want {
				found = ch.ID
			}
		}
		if err := c.cache.SetMany(ctx, entries, c.ttl); err != nil {
			c.log.Warn("Channel cache write failed", zap.Error(err))
		}

		if found != "" {
			return found, nil
		}
		if cursor == "" {
			return "", resolver.ErrChannelNotFound
		}
		params.Cursor = cursor
	}
}

// withThrottleRetry retries fn while Slack rate limits it, waiting the
// advertised time (at least one second).
func (c *Client) withThrottleRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		apiErr := classify(op, "", err)
		if apiErr == nil {
			return nil
		}
		if apiErr.Kind != invite.KindThrottled || attempt >= maxLookupRetries {
			return apiErr
		}

		wait := apiErr.RetryAfter
		if wait < time.Second {
			wait = time.Second
		}
		c.log.Warn("Rate limit hit; retrying",
			zap.String("method", op),
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt))
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
