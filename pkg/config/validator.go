package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateGroups(&cfg.Groups)
	v.validateInvite(&cfg.Invite)
	v.validateReply(&cfg.Reply)
	v.validateCache(&cfg.Cache, &cfg.Redis)
	v.validateServer(&cfg.Server)
	v.validateLogger(&cfg.Logger)

	if len(v.errors) > 0 {
		return v.errors
	}

	return nil
}

// ValidateCredentials checks the tokens needed to talk to Slack. It is kept
// apart from Validate so offline commands (groups validate) work without them.
func (v *Validator) ValidateCredentials(cfg *SlackConfig, listening bool) error {
	v.errors = make(ValidationErrors, 0)

	if strings.TrimSpace(cfg.BotToken) == "" {
		v.addError("slack.bot_token", "bot_token is required (SLACK_BOT_TOKEN)")
	}
	if listening && !cfg.SocketMode() && strings.TrimSpace(cfg.SigningSecret) == "" {
		v.addError("slack.signing_secret", "signing_secret is required when app_token is not set (Socket Mode disabled)")
	}

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) validateGroups(cfg *GroupsConfig) {
	if strings.TrimSpace(cfg.File) == "" {
		v.addError("groups.file", "file path is required")
	}
}

func (v *Validator) validateInvite(cfg *InviteConfig) {
	if cfg.MaxAttempts < 1 {
		v.addError("invite.max_attempts", "max_attempts must be at least 1")
	}
	if cfg.Workers < 1 {
		v.addError("invite.workers", "workers must be at least 1")
	}
	if cfg.JoinRatePerMinute < 1 {
		v.addError("invite.join_rate_per_minute", "join_rate_per_minute must be at least 1")
	}
	if cfg.InviteRatePerMinute < 1 {
		v.addError("invite.invite_rate_per_minute", "invite_rate_per_minute must be at least 1")
	}
	if cfg.Burst < 1 {
		v.addError("invite.burst", "burst must be at least 1")
	}
	if cfg.BackoffBase <= 0 {
		v.addError("invite.backoff_base", "backoff_base must be positive")
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		v.addError("invite.backoff_max", "backoff_max must be greater than or equal to backoff_base")
	}
	if cfg.CallTimeout <= 0 {
		v.addError("invite.call_timeout", "call_timeout must be positive")
	}
	if cfg.CommandTimeout <= 0 {
		v.addError("invite.command_timeout", "command_timeout must be positive")
	}
}

func (v *Validator) validateReply(cfg *ReplyConfig) {
	if cfg.MaxChars < 100 {
		v.addError("reply.max_chars", "max_chars must be at least 100")
	}
	if cfg.MaxLines < 1 {
		v.addError("reply.max_lines", "max_lines must be at least 1")
	}
}

func (v *Validator) validateCache(cfg *CacheConfig, redis *RedisConfig) {
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	switch backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(redis.Addr) == "" {
			v.addError("redis.addr", "addr is required when cache.backend is redis")
		}
	default:
		v.addError("cache.backend", "backend must be one of: memory, redis")
	}

	if cfg.TTL < 0 {
		v.addError("cache.ttl", "ttl must be non-negative")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", "port must be between 1 and 65535")
	}
	if !strings.HasPrefix(cfg.EventsPath, "/") {
		v.addError("server.events_path", "events_path must start with /")
	}
	if !strings.HasPrefix(cfg.CommandsPath, "/") {
		v.addError("server.commands_path", "commands_path must start with /")
	}
	if cfg.CommandsPath == cfg.EventsPath {
		v.addError("server.commands_path", "commands_path must differ from events_path")
	}
}

func (v *Validator) validateLogger(cfg *LoggerConfig) {
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		v.addError("logger.level", "level must be one of: debug, info, warn, error")
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidateConfig is a convenience function to validate a configuration.
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.Validate(cfg)
}

// ValidateCredentials is a convenience function to validate Slack credentials.
func ValidateCredentials(cfg *SlackConfig, listening bool) error {
	return NewValidator().ValidateCredentials(cfg, listening)
}
