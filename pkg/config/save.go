package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"slackadder/pkg/fileutil"
)

// GetConfigHome returns the default config directory.
func GetConfigHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".slackadder"), nil
}

// Encode renders cfg using the keys Load reads, as YAML or JSON depending on
// the extension of path. Durations are written as strings.
func Encode(cfg *Config, path string) ([]byte, error) {
	doc := document(cfg)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding config: %w", err)
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml", "":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding config: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// SaveToFile writes cfg to path. An existing file is only replaced when
// overwrite is set. The file holds secrets and is written owner-only.
func SaveToFile(cfg *Config, path string, overwrite bool) error {
	data, err := Encode(cfg, path)
	if err != nil {
		return err
	}
	return fileutil.WriteFileIfMissing(path, data, 0o600, overwrite)
}

func document(cfg *Config) map[string]any {
	return map[string]any{
		"slack": map[string]any{
			"bot_token":      cfg.Slack.BotToken,
			"app_token":      cfg.Slack.AppToken,
			"signing_secret": cfg.Slack.SigningSecret,
			"allow_from":     cfg.Slack.AllowFrom,
		},
		"groups": map[string]any{
			"file":     cfg.Groups.File,
			"required": cfg.Groups.Required,
		},
		"invite": map[string]any{
			"default_group":          cfg.Invite.DefaultGroup,
			"max_attempts":           cfg.Invite.MaxAttempts,
			"workers":                cfg.Invite.Workers,
			"join_rate_per_minute":   cfg.Invite.JoinRatePerMinute,
			"invite_rate_per_minute": cfg.Invite.InviteRatePerMinute,
			"burst":                  cfg.Invite.Burst,
			"backoff_base":           cfg.Invite.BackoffBase.String(),
			"backoff_max":            cfg.Invite.BackoffMax.String(),
			"call_timeout":           cfg.Invite.CallTimeout.String(),
			"command_timeout":        cfg.Invite.CommandTimeout.String(),
		},
		"guard": map[string]any{
			"block_guests":          cfg.Guard.BlockGuests,
			"block_shared_channels": cfg.Guard.BlockSharedChannels,
		},
		"reply": map[string]any{
			"max_chars": cfg.Reply.MaxChars,
			"max_lines": cfg.Reply.MaxLines,
		},
		"cache": map[string]any{
			"backend": cfg.Cache.Backend,
			"ttl":     cfg.Cache.TTL.String(),
			"prefix":  cfg.Cache.Prefix,
		},
		"redis": map[string]any{
			"addr":     cfg.Redis.Addr,
			"password": cfg.Redis.Password,
			"db":       cfg.Redis.DB,
		},
		"server": map[string]any{
			"host":          cfg.Server.Host,
			"port":          cfg.Server.Port,
			"events_path":   cfg.Server.EventsPath,
			"commands_path": cfg.Server.CommandsPath,
		},
		"logger": map[string]any{
			"level":       cfg.Logger.Level,
			"output_path": cfg.Logger.OutputPath,
			"max_size":    cfg.Logger.MaxSize,
			"max_backups": cfg.Logger.MaxBackups,
			"max_age":     cfg.Logger.MaxAge,
			"compress":    cfg.Logger.Compress,
			"development": cfg.Logger.Development,
		},
	}
}
