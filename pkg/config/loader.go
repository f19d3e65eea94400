package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigPathEnv overrides the config file location when --config is not given.
const ConfigPathEnv = "SLACKADDER_CONFIG_FILE"

// envAliases binds config keys to the environment variable names the bot
// has always understood, in addition to the SLACKADDER_ prefixed form.
var envAliases = map[string][]string{
	"slack.bot_token":      {"SLACK_BOT_TOKEN"},
	"slack.app_token":      {"SLACK_APP_TOKEN"},
	"slack.signing_secret": {"SLACK_SIGNING_SECRET"},
	"slack.allow_from":     {"ALLOWED_USERS"},
	"groups.file":          {"CHANNEL_GROUPS_FILE"},
	"server.port":          {"PORT"},
	"redis.addr":           {"REDIS_ADDR"},
}

// Loader handles configuration loading with Viper.
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetConfigName("config")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".slackadder"))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("SLACKADDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	for key, aliases := range envAliases {
		prefixed := "SLACKADDER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, prefixed}, aliases...)...)
	}

	return &Loader{viper: v}
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("slack.bot_token", cfg.Slack.BotToken)
	v.SetDefault("slack.app_token", cfg.Slack.AppToken)
	v.SetDefault("slack.signing_secret", cfg.Slack.SigningSecret)
	v.SetDefault("slack.allow_from", cfg.Slack.AllowFrom)

	v.SetDefault("groups.file", cfg.Groups.File)
	v.SetDefault("groups.required", cfg.Groups.Required)

	v.SetDefault("invite.default_group", cfg.Invite.DefaultGroup)
	v.SetDefault("invite.max_attempts", cfg.Invite.MaxAttempts)
	v.SetDefault("invite.workers", cfg.Invite.Workers)
	v.SetDefault("invite.join_rate_per_minute", cfg.Invite.JoinRatePerMinute)
	v.SetDefault("invite.invite_rate_per_minute", cfg.Invite.InviteRatePerMinute)
	v.SetDefault("invite.burst", cfg.Invite.Burst)
	v.SetDefault("invite.backoff_base", cfg.Invite.BackoffBase)
	v.SetDefault("invite.backoff_max", cfg.Invite.BackoffMax)
	v.SetDefault("invite.call_timeout", cfg.Invite.CallTimeout)
	v.SetDefault("invite.command_timeout", cfg.Invite.CommandTimeout)

	v.SetDefault("guard.block_guests", cfg.Guard.BlockGuests)
	v.SetDefault("guard.block_shared_channels", cfg.Guard.BlockSharedChannels)

	v.SetDefault("reply.max_chars", cfg.Reply.MaxChars)
	v.SetDefault("reply.max_lines", cfg.Reply.MaxLines)

	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.prefix", cfg.Cache.Prefix)

	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)

	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.events_path", cfg.Server.EventsPath)
	v.SetDefault("server.commands_path", cfg.Server.CommandsPath)

	v.SetDefault("logger.level", cfg.Logger.Level)
	v.SetDefault("logger.output_path", cfg.Logger.OutputPath)
	v.SetDefault("logger.max_size", cfg.Logger.MaxSize)
	v.SetDefault("logger.max_backups", cfg.Logger.MaxBackups)
	v.SetDefault("logger.max_age", cfg.Logger.MaxAge)
	v.SetDefault("logger.compress", cfg.Logger.Compress)
	v.SetDefault("logger.development", cfg.Logger.Development)
}

// Load loads the configuration from file and environment variables.
// If configPath is empty, SLACKADDER_CONFIG_FILE and then the default
// search paths are consulted. A missing file in the search paths is fine;
// a missing explicit file is an error.
func (l *Loader) Load(configPath string) (*Config, error) {
	if strings.TrimSpace(configPath) == "" {
		configPath = strings.TrimSpace(os.Getenv(ConfigPathEnv))
	}
	explicitPath := strings.TrimSpace(configPath) != ""

	if explicitPath {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		l.viper.SetConfigFile(abs)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Slack.AllowFrom = normalizeAllowList(cfg.Slack.AllowFrom)
	if strings.TrimSpace(cfg.Groups.File) != DefaultGroupsFile {
		cfg.Groups.Required = true
	}
	cfg.Groups.File = l.resolveRelative(cfg.Groups.File)

	return cfg, nil
}

// resolveRelative anchors a relative path next to the config file in use.
func (l *Loader) resolveRelative(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	used := l.viper.ConfigFileUsed()
	if used == "" {
		return path
	}
	return filepath.Join(filepath.Dir(used), path)
}

// normalizeAllowList splits comma-joined entries and drops blanks.
func normalizeAllowList(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		for _, part := range strings.Split(entry, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// GetConfigPath returns the path of the loaded config file.
func (l *Loader) GetConfigPath() string {
	return l.viper.ConfigFileUsed()
}

// IsSet checks if a key is set in the configuration.
func (l *Loader) IsSet(key string) bool {
	return l.viper.IsSet(key)
}
