package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Auth.AdminSecret) < 32 {
		errs = append(errs, "AUTH_ADMIN_SECRET must be at least 32 characters")
	}

	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	if c.XMPP.Enabled && c.XMPP.ComponentSecret == "" {
		errs = append(errs, "XMPP_COMPONENT_SECRET is required when XMPP_ENABLED=true")
	}

	if c.Conversation.HandoverTurns < 1 {
		errs = append(errs, fmt.Sprintf("CONVERSATION_HANDOVER_TURNS must be positive, got %d", c.Conversation.HandoverTurns))
	}
	if c.Conversation.MaxMessageLen < 1 {
		errs = append(errs, fmt.Sprintf("CONVERSATION_MAX_MESSAGE_LEN must be positive, got %d", c.Conversation.MaxMessageLen))
	}

	// LLM endpoint: warn only - the rule-based path covers an absent service
	if c.LLM.Endpoint == "" {
		slog.Warn("LLM_ENDPOINT is empty - classification and replies use the rule-based fallback only")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
