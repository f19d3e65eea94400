package invite

import (
	"go.uber.org/fx"

	"slackadder/pkg/config"
	"slackadder/pkg/logger"
)

// Module provides the shared budget, the retrying client and the
// orchestrator. A Transport must be supplied by another module.
var Module = fx.Module("invite",
	fx.Provide(ProvideBudget),
	fx.Provide(ProvideClient),
	fx.Provide(ProvideOrchestrator),
)

// ProvideBudget builds the process-wide rate budget.
func ProvideBudget(cfg *config.Config) *Budget {
	return NewBudget(map[Endpoint]int{
		EndpointJoin:   cfg.Invite.JoinRatePerMinute,
		EndpointInvite: cfg.Invite.InviteRatePerMinute,
	}, cfg.Invite.Burst)
}

// ProvideClient builds the retrying client.
func ProvideClient(transport Transport, budget *Budget, cfg *config.Config, log *logger.Logger) *Client {
	return NewClient(transport, budget, ClientConfig{
		MaxAttempts: cfg.Invite.MaxAttempts,
		Backoff:     Backoff{Base: cfg.Invite.BackoffBase, Max: cfg.Invite.BackoffMax},
		CallTimeout: cfg.Invite.CallTimeout,
	}, log.Named("invite"))
}

// ProvideOrchestrator builds the worker pool.
func ProvideOrchestrator(client *Client, cfg *config.Config, log *logger.Logger) *Orchestrator {
	return NewOrchestrator(client, cfg.Invite.Workers, log.Named("orchestrator"))
}
