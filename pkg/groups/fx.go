package groups

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"slackadder/pkg/config"
	"slackadder/pkg/logger"
)

// Module provides the channel group store.
var Module = fx.Module("groups",
	fx.Provide(ProvideStore),
)

// ProvideStore loads the configured group file. Any problem stops startup.
func ProvideStore(cfg *config.Config, log *logger.Logger) (*Store, error) {
	store, err := Load(cfg.Groups.File, cfg.Groups.Required)
	if err != nil {
		return nil, err
	}

	if store.Len() == 0 {
		log.Info("No channel groups loaded; proceeding without groups",
			zap.String("file", cfg.Groups.File))
	} else {
		log.Info("Loaded channel groups",
			zap.String("file", cfg.Groups.File),
			zap.Int("count", store.Len()))
	}

	return store, nil
}
