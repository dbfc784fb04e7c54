package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "salesagent",
			Password: "secret", Name: "salesagent", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		LLM: LLMConfig{
			Endpoint: "http://localhost:9000/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  10 * time.Second,
		},
		Catalog: CatalogConfig{RefreshInterval: 5 * time.Minute, TopMatches: 7},
		Conversation: ConversationConfig{
			MaxHistory:    50,
			MaxMessageLen: 2000,
			HandoverTurns: 8,
			NegativeTurns: 4,
			TurnLockTTL:   30 * time.Second,
		},
		Auth: AuthConfig{AdminSecret: "admin-secret-that-is-at-least-32-chars!"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_AdminSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.AdminSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AUTH_ADMIN_SECRET") {
		t.Fatalf("expected AUTH_ADMIN_SECRET error, got: %v", err)
	}
}

func TestValidate_MissingDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_BadServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got: %v", err)
	}
}

func TestValidate_XMPPRequiresSecret(t *testing.T) {
	cfg := validConfig()
	cfg.XMPP.Enabled = true
	cfg.XMPP.ComponentSecret = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "XMPP_COMPONENT_SECRET") {
		t.Fatalf("expected XMPP_COMPONENT_SECRET error, got: %v", err)
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.AdminSecret = ""
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "AUTH_ADMIN_SECRET") || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected both errors, got: %v", err)
	}
}
