package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server       ServerConfig
	DB           DBConfig
	Redis        RedisConfig
	NATS         NATSConfig
	XMPP         XMPPConfig
	LLM          LLMConfig
	Catalog      CatalogConfig
	Conversation ConversationConfig
	Auth         AuthConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type XMPPConfig struct {
	Enabled         bool
	ComponentHost   string
	ComponentPort   int
	ComponentName   string
	ComponentSecret string
}

func (c XMPPConfig) ComponentAddr() string {
	return fmt.Sprintf("%s:%d", c.ComponentHost, c.ComponentPort)
}

// LLMConfig configures the external text-completion service used for
// classification fallback and reply generation.
type LLMConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

type CatalogConfig struct {
	RefreshInterval time.Duration
	TopMatches      int
}

// ConversationConfig holds the tunables of the decision layer.
type ConversationConfig struct {
	MaxHistory           int
	MaxMessageLen        int
	HandoverTurns        int
	NegativeTurns        int
	TurnLockTTL          time.Duration
	WebhookRateLimit     int
	WebhookRateWindowSec int
}

type AuthConfig struct {
	AdminSecret string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        k.String("server.host"),
			Port:        k.Int("server.port"),
			CORSOrigins: k.Strings("server.cors.origins"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		XMPP: XMPPConfig{
			Enabled:         k.Bool("xmpp.enabled"),
			ComponentHost:   k.String("xmpp.component.host"),
			ComponentPort:   k.Int("xmpp.component.port"),
			ComponentName:   k.String("xmpp.component.name"),
			ComponentSecret: k.String("xmpp.component.secret"),
		},
		LLM: LLMConfig{
			Endpoint:    k.String("llm.endpoint"),
			APIKey:      k.String("llm.api.key"),
			Model:       k.String("llm.model"),
			MaxTokens:   k.Int("llm.max.tokens"),
			Temperature: k.Float64("llm.temperature"),
		},
		Catalog: CatalogConfig{
			TopMatches: k.Int("catalog.top.matches"),
		},
		Conversation: ConversationConfig{
			MaxHistory:           k.Int("conversation.max.history"),
			MaxMessageLen:        k.Int("conversation.max.message.len"),
			HandoverTurns:        k.Int("conversation.handover.turns"),
			NegativeTurns:        k.Int("conversation.negative.turns"),
			WebhookRateLimit:     k.Int("conversation.webhook.rate.limit"),
			WebhookRateWindowSec: k.Int("conversation.webhook.rate.window.sec"),
		},
		Auth: AuthConfig{
			AdminSecret: k.String("auth.admin.secret"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "salesagent"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "salesagent"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.XMPP.ComponentHost == "" {
		cfg.XMPP.ComponentHost = "localhost"
	}
	if cfg.XMPP.ComponentPort == 0 {
		cfg.XMPP.ComponentPort = 5347
	}
	if cfg.XMPP.ComponentName == "" {
		cfg.XMPP.ComponentName = "sales.glowcart.local"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 800
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.Catalog.TopMatches == 0 {
		cfg.Catalog.TopMatches = 7
	}
	if cfg.Conversation.MaxHistory == 0 {
		cfg.Conversation.MaxHistory = 50
	}
	if cfg.Conversation.MaxMessageLen == 0 {
		cfg.Conversation.MaxMessageLen = 2000
	}
	if cfg.Conversation.HandoverTurns == 0 {
		cfg.Conversation.HandoverTurns = 8
	}
	if cfg.Conversation.NegativeTurns == 0 {
		cfg.Conversation.NegativeTurns = 4
	}
	if cfg.Conversation.WebhookRateLimit == 0 {
		cfg.Conversation.WebhookRateLimit = 30
	}
	if cfg.Conversation.WebhookRateWindowSec == 0 {
		cfg.Conversation.WebhookRateWindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	llmTimeoutStr := k.String("llm.timeout")
	if llmTimeoutStr == "" {
		llmTimeoutStr = "10s"
	}
	cfg.LLM.Timeout, err = time.ParseDuration(llmTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing llm timeout: %w", err)
	}

	refreshStr := k.String("catalog.refresh.interval")
	if refreshStr == "" {
		refreshStr = "5m"
	}
	cfg.Catalog.RefreshInterval, err = time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog refresh interval: %w", err)
	}

	lockTTLStr := k.String("conversation.turn.lock.ttl")
	if lockTTLStr == "" {
		lockTTLStr = "30s"
	}
	cfg.Conversation.TurnLockTTL, err = time.ParseDuration(lockTTLStr)
	if err != nil {
		return nil, fmt.Errorf("parsing turn lock ttl: %w", err)
	}

	return cfg, nil
}
