package config

import (
	"go.uber.org/fx"

	"slackadder/pkg/logger"
)

// Module provides configuration from the default search paths.
var Module = NewModule("")

// NewModule provides configuration loaded from path (empty means search).
func NewModule(path string) fx.Option {
	return fx.Module("config",
		fx.Provide(ProvideLoader),
		fx.Provide(ProvideConfigWithPath(path)),
		fx.Provide(ProvideLoggerConfig),
	)
}

// ProvideLoader provides a configuration loader.
func ProvideLoader() *Loader {
	return NewLoader()
}

// ProvideConfigWithPath provides configuration from a specific path.
func ProvideConfigWithPath(path string) func(*Loader) (*Config, error) {
	return func(loader *Loader) (*Config, error) {
		cfg, err := loader.Load(path)
		if err != nil {
			return nil, err
		}

		if err := ValidateConfig(cfg); err != nil {
			return nil, err
		}

		return cfg, nil
	}
}

// ProvideLoggerConfig derives the logger configuration.
func ProvideLoggerConfig(cfg *Config) *logger.Config {
	return cfg.Logger.ToLoggerConfig()
}
