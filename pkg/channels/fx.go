package channels

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"slackadder/pkg/channels/slack"
	"slackadder/pkg/commands"
	"slackadder/pkg/config"
	"slackadder/pkg/gateway"
	"slackadder/pkg/logger"
	"slackadder/pkg/slackapi"
)

// Module is the fx module for the inbound transports.
var Module = fx.Module("channels",
	fx.Provide(NewChannelManager),
	fx.Provide(NewDispatcher),
	fx.Invoke(RegisterChannels),
)

// NewChannelManager creates a new channel manager for fx.
func NewChannelManager(lc fx.Lifecycle, log *logger.Logger) *Manager {
	manager := NewManager(log.Named("channels"))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return manager.Start()
		},
		OnStop: func(ctx context.Context) error {
			return manager.Stop()
		},
	})

	return manager
}

// NewDispatcher builds the dispatcher shared by the transports.
func NewDispatcher(cfg *config.Config, client *slackapi.Client, registry *commands.Registry, log *logger.Logger) *slack.Dispatcher {
	return slack.NewDispatcher(log.Named("dispatcher"), client, registry, slack.DispatcherConfig{
		CommandTimeout: cfg.Invite.CommandTimeout,
		MaxChars:       cfg.Reply.MaxChars,
		MaxLines:       cfg.Reply.MaxLines,
	})
}

// RegisterChannels registers Socket Mode when an app token is configured and
// the HTTP Events API otherwise.
func RegisterChannels(
	manager *Manager,
	log *logger.Logger,
	cfg *config.Config,
	client *slackapi.Client,
	dispatcher *slack.Dispatcher,
) error {
	if err := config.ValidateCredentials(&cfg.Slack, true); err != nil {
		return err
	}

	if cfg.Slack.SocketMode() {
		ch, err := slack.NewChannel(log.Named("slack"), cfg.Slack, client, dispatcher)
		if err != nil {
			log.Error("Failed to create Slack channel", zap.Error(err))
			return err
		}
		return manager.Register(ch)
	}

	return manager.Register(gateway.NewServer(cfg, client, dispatcher, log.Named("gateway")))
}
