// Package config provides configuration management for slackadder.
// It uses Viper for configuration loading with support for:
// - Multiple formats (JSON, YAML, TOML)
// - Environment variables (SLACKADDER_* plus the classic SLACK_* names)
// - Default values
package config

import (
	"strings"
	"time"
)

// Config represents the complete slackadder configuration.
type Config struct {
	Slack  SlackConfig  `mapstructure:"slack" json:"slack"`
	Groups GroupsConfig `mapstructure:"groups" json:"groups"`
	Invite InviteConfig `mapstructure:"invite" json:"invite"`
	Guard  GuardConfig  `mapstructure:"guard" json:"guard"`
	Reply  ReplyConfig  `mapstructure:"reply" json:"reply"`
	Cache  CacheConfig  `mapstructure:"cache" json:"cache"`
	Redis  RedisConfig  `mapstructure:"redis" json:"redis"`
	Server ServerConfig `mapstructure:"server" json:"server"`
	Logger LoggerConfig `mapstructure:"logger" json:"logger"`
}

// SlackConfig holds workspace credentials and who may drive the bot.
type SlackConfig struct {
	BotToken      string   `mapstructure:"bot_token" json:"bot_token"`
	AppToken      string   `mapstructure:"app_token" json:"app_token"`
	SigningSecret string   `mapstructure:"signing_secret" json:"signing_secret"`
	AllowFrom     []string `mapstructure:"allow_from" json:"allow_from"`
}

// SocketMode reports whether the bot should connect over Socket Mode
// rather than serve the HTTP Events API.
func (s SlackConfig) SocketMode() bool {
	return strings.TrimSpace(s.AppToken) != ""
}

// GroupsConfig points at the channel group document.
type GroupsConfig struct {
	File string `mapstructure:"file" json:"file"`
	// Required makes a missing file fatal. It is implied whenever File
	// differs from DefaultGroupsFile.
	Required bool `mapstructure:"required" json:"required"`
}

// InviteConfig tunes the join/invite engine.
type InviteConfig struct {
	DefaultGroup        string        `mapstructure:"default_group" json:"default_group"`
	MaxAttempts         int           `mapstructure:"max_attempts" json:"max_attempts"`
	Workers             int           `mapstructure:"workers" json:"workers"`
	JoinRatePerMinute   int           `mapstructure:"join_rate_per_minute" json:"join_rate_per_minute"`
	InviteRatePerMinute int           `mapstructure:"invite_rate_per_minute" json:"invite_rate_per_minute"`
	Burst               int           `mapstructure:"burst" json:"burst"`
	BackoffBase         time.Duration `mapstructure:"backoff_base" json:"backoff_base"`
	BackoffMax          time.Duration `mapstructure:"backoff_max" json:"backoff_max"`
	CallTimeout         time.Duration `mapstructure:"call_timeout" json:"call_timeout"`
	CommandTimeout      time.Duration `mapstructure:"command_timeout" json:"command_timeout"`
}

// GuardConfig controls the workspace-membership checks run before a command.
type GuardConfig struct {
	BlockGuests         bool `mapstructure:"block_guests" json:"block_guests"`
	BlockSharedChannels bool `mapstructure:"block_shared_channels" json:"block_shared_channels"`
}

// ReplyConfig caps the size of each posted reply message.
type ReplyConfig struct {
	MaxChars int `mapstructure:"max_chars" json:"max_chars"`
	MaxLines int `mapstructure:"max_lines" json:"max_lines"`
}

// CacheConfig selects the lookup cache backend.
type CacheConfig struct {
	Backend string        `mapstructure:"backend" json:"backend"` // memory, redis
	TTL     time.Duration `mapstructure:"ttl" json:"ttl"`
	Prefix  string        `mapstructure:"prefix" json:"prefix"`
}

// RedisConfig is the shared Redis connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

// ServerConfig is the HTTP Events API listener.
type ServerConfig struct {
	Host         string `mapstructure:"host" json:"host"`
	Port         int    `mapstructure:"port" json:"port"`
	EventsPath   string `mapstructure:"events_path" json:"events_path"`
	CommandsPath string `mapstructure:"commands_path" json:"commands_path"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	OutputPath  string `mapstructure:"output_path" json:"output_path"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress"`
	Development bool   `mapstructure:"development" json:"development"`
}

// DefaultGroupsFile is used when no group file is configured.
const DefaultGroupsFile = "channel_groups.json"

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Slack: SlackConfig{
			AllowFrom: []string{},
		},
		Groups: GroupsConfig{
			File: DefaultGroupsFile,
		},
		Invite: InviteConfig{
			DefaultGroup:        "default",
			MaxAttempts:         5,
			Workers:             4,
			JoinRatePerMinute:   50,
			InviteRatePerMinute: 50,
			Burst:               5,
			BackoffBase:         time.Second,
			BackoffMax:          8 * time.Second,
			CallTimeout:         15 * time.Second,
			CommandTimeout:      30 * time.Minute,
		},
		Guard: GuardConfig{
			BlockGuests:         true,
			BlockSharedChannels: true,
		},
		Reply: ReplyConfig{
			MaxChars: 3500,
			MaxLines: 40,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     time.Hour,
			Prefix:  "slackadder:",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			EventsPath:   "/slack/events",
			CommandsPath: "/slack/commands",
		},
		Logger: LoggerConfig{
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		},
	}
}

// IsAllowed reports whether userID may drive the bot. An empty allow list
// admits everyone; "*" admits everyone explicitly.
func (s SlackConfig) IsAllowed(userID string) bool {
	if len(s.AllowFrom) == 0 {
		return true
	}
	userID = strings.ToUpper(strings.TrimSpace(userID))
	for _, allowed := range s.AllowFrom {
		allowed = strings.ToUpper(strings.TrimSpace(allowed))
		if allowed == "*" || (allowed != "" && allowed == userID) {
			return true
		}
	}
	return false
}
