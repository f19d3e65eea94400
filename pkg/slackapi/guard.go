package slackapi

import (
	"context"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"slackadder/pkg/invite"
)

// Replies for refused requesters.
const (
	MsgGuestDenied         = "Sorry, SlackAdder can only be used by full workspace members."
	MsgUsersScopeMissing   = "SlackAdder is missing the users:read scope. An admin needs to reinstall the app with the latest manifest."
	MsgUserUnverified      = "Couldn't verify your account status."
	MsgExternalDenied      = "Sorry, SlackAdder cannot be used in shared or external channels."
	MsgChannelScopeMissing = "SlackAdder is missing channel read permissions. Ask an admin to reinstall with the latest manifest."
	MsgChannelUnverified   = "Couldn't verify this channel."
)

const (
	userKeyPrefix         = "user:"
	conversationKeyPrefix = "conversation:"
)

// Guard refuses guests and commands issued from shared or external
// conversations. Lookups are cached.
type Guard struct {
	client      *Client
	blockGuests bool
	blockShared bool
}

// NewGuard creates a guard. Either check can be switched off.
func NewGuard(client *Client, blockGuests, blockShared bool) *Guard {
	return &Guard{client: client, blockGuests: blockGuests, blockShared: blockShared}
}

// Check returns a non-empty reason when actor may not run commands from
// origin. err is set when a lookup failed; the reason then says so and the
// request must still be refused.
func (g *Guard) Check(ctx context.Context, actor, origin string) (string, error) {
	if g.blockGuests && actor != "" {
		guest, err := g.isGuest(ctx, actor)
		if err != nil {
			if invite.CodeOf(err) == invite.CodeMissingScope {
				g.client.log.Error("users:read scope missing; reinstall SlackAdder with updated manifest")
				return MsgUsersScopeMissing, err
			}
			return MsgUserUnverified, err
		}
		if guest {
			return MsgGuestDenied, nil
		}
	}

	if g.blockShared && origin != "" {
		external, err := g.isExternal(ctx, origin)
		if err != nil {
			if invite.CodeOf(err) == invite.CodeMissingScope {
				g.client.log.Error("channels:read scope missing; reinstall SlackAdder with updated manifest")
				return MsgChannelScopeMissing, err
			}
			return MsgChannelUnverified, err
		}
		if external {
			return MsgExternalDenied, nil
		}
	}

	return "", nil
}

func (g *Guard) isGuest(ctx context.Context, userID string) (bool, error) {
	key := userKeyPrefix + userID
	if flags, ok, _ := g.client.cache.GetMap(ctx, key); ok {
		guest, _ := flags["guest"].(bool)
		return guest, nil
	}

	var user *slack.User
	err := g.client.withThrottleRetry(ctx, methodUser, func() error {
		var err error
		user, err = g.client.api.GetUserInfoContext(ctx, userID)
		return err
	})
	if err != nil {
		return false, err
	}

	guest := user.IsRestricted || user.IsUltraRestricted || user.IsStranger
	g.store(ctx, key, map[string]interface{}{"guest": guest})
	return guest, nil
}

func (g *Guard) isExternal(ctx context.Context, channelID string) (bool, error) {
	if strings.HasPrefix(channelID, "D") {
		return true, nil
	}

	key := conversationKeyPrefix + channelID
	if flags, ok, _ := g.client.cache.GetMap(ctx, key); ok {
		external, _ := flags["external"].(bool)
		return external, nil
	}

	var ch *slack.Channel
	err := g.client.withThrottleRetry(ctx, methodInfo, func() error {
		var err error
		ch, err = g.client.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
			ChannelID: channelID,
		})
		return err
	})
	if err != nil {
		return false, err
	}

	external := ch.IsShared || ch.IsExtShared || ch.IsOrgShared
	g.store(ctx, key, map[string]interface{}{"external": external})
	return external, nil
}

func (g *Guard) store(ctx context.Context, key string, value map[string]interface{}) {
	if err := g.client.cache.Set(ctx, key, value, g.client.ttl); err != nil {
		g.client.log.Warn("Lookup cache write failed", zap.String("key", key), zap.Error(err))
	}
}
