package slack

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"slackadder/pkg/logger"
	"slackadder/pkg/slackapi"
)

// Identifier runs auth.test.
type Identifier interface {
	Identify(ctx context.Context) (slackapi.Identity, error)
}

// Bootstrap verifies the bot credentials, applies the installation rules and
// teaches the dispatcher its own user ID. Every transport calls it on start.
func Bootstrap(ctx context.Context, id Identifier, d *Dispatcher, allowFrom []string, log *logger.Logger) (slackapi.Identity, error) {
	identity, err := id.Identify(ctx)
	if err != nil {
		return slackapi.Identity{}, fmt.Errorf("failed to verify bot credentials: %w", err)
	}
	if err := slackapi.CheckInstallation(identity, allowFrom); err != nil {
		return identity, err
	}

	d.SetBotUserID(identity.UserID)

	if log != nil {
		log.Info("Slack bot connected",
			zap.String("bot_user_id", identity.UserID),
			zap.String("team_id", identity.TeamID),
			zap.String("enterprise_id", identity.EnterpriseID),
			zap.Bool("org_level", identity.OrgLevel()))
	}
	return identity, nil
}
