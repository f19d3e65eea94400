package adder

import (
	"go.uber.org/fx"

	"slackadder/pkg/config"
	"slackadder/pkg/groups"
	"slackadder/pkg/invite"
	"slackadder/pkg/logger"
	"slackadder/pkg/slackapi"
)

// Module provides the add command service.
var Module = fx.Module("adder",
	fx.Provide(ProvideService),
)

// ProvideService wires the service to Slack and the invite engine.
func ProvideService(
	cfg *config.Config,
	store *groups.Store,
	client *slackapi.Client,
	guard *slackapi.Guard,
	orchestrator *invite.Orchestrator,
	log *logger.Logger,
) *Service {
	return New(Options{
		Groups:       store,
		Lookup:       client,
		Guard:        guard,
		Runner:       orchestrator,
		IsAllowed:    cfg.Slack.IsAllowed,
		DefaultGroup: cfg.Invite.DefaultGroup,
		Logger:       log.Named("adder"),
	})
}
