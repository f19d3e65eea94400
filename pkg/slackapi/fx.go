package slackapi

import (
	"go.uber.org/fx"

	"slackadder/pkg/config"
	"slackadder/pkg/invite"
	"slackadder/pkg/logger"
	"slackadder/pkg/state"
)

// Module provides the Slack client, the invite transport and the guard.
var Module = fx.Module("slackapi",
	fx.Provide(ProvideClient),
	fx.Provide(ProvideTransport),
	fx.Provide(ProvideGuard),
)

// ProvideClient builds the Slack client from configuration.
func ProvideClient(cfg *config.Config, cache state.KV, log *logger.Logger) (*Client, error) {
	if err := config.ValidateCredentials(&cfg.Slack, false); err != nil {
		return nil, err
	}
	return New(Options{
		BotToken: cfg.Slack.BotToken,
		AppToken: cfg.Slack.AppToken,
		CacheTTL: cfg.Cache.TTL,
	}, cache, log.Named("slackapi")), nil
}

// ProvideTransport exposes the client to the invite engine.
func ProvideTransport(c *Client) invite.Transport {
	return c
}

// ProvideGuard builds the requester guard.
func ProvideGuard(cfg *config.Config, c *Client) *Guard {
	return NewGuard(c, cfg.Guard.BlockGuests, cfg.Guard.BlockSharedChannels)
}
