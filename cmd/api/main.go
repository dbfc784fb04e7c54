package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/glowcart/salesagent/internal/api"
	"github.com/glowcart/salesagent/internal/auth"
	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/config"
	"github.com/glowcart/salesagent/internal/conversation"
	"github.com/glowcart/salesagent/internal/database"
	"github.com/glowcart/salesagent/internal/funnel"
	"github.com/glowcart/salesagent/internal/llm"
	"github.com/glowcart/salesagent/internal/matching"
	"github.com/glowcart/salesagent/internal/middleware"
	inats "github.com/glowcart/salesagent/internal/nats"
	"github.com/glowcart/salesagent/internal/orchestrator"
	iredis "github.com/glowcart/salesagent/internal/redis"
	"github.com/glowcart/salesagent/internal/server"
	"github.com/glowcart/salesagent/internal/webhook"
	"github.com/glowcart/salesagent/internal/xmpp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)
	logger := slog.Default()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var natsClient *inats.Client
	var events orchestrator.EventSink
	if cfg.NATS.Enabled {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		events = orchestrator.NewSink(inats.NewPublisher(natsClient.JetStream()), logger)
	}

	// Catalog
	catalogRepo := catalog.NewRepository(pool)
	refresher := catalog.NewRefresher(catalogRepo, cfg.Catalog.RefreshInterval, logger)
	if err := refresher.Start(ctx); err != nil {
		slog.Error("loading catalog", "error", err)
		os.Exit(1)
	}
	catalogHandler := catalog.NewHandler(refresher, logger)

	// Conversation decision layer
	llmClient := llm.NewClient(cfg.LLM, logger)
	var fallback funnel.FallbackClassifier
	var replies orchestrator.ReplyGenerator
	if llmClient.Enabled() {
		fallback = llmClient
		replies = llmClient
	}
	store := conversation.NewStore(pool)
	orch := orchestrator.New(
		store,
		funnel.NewClassifier(fallback, logger),
		matching.NewMatcher(cfg.Catalog.TopMatches),
		refresher,
		replies,
		events,
		cfg.Conversation,
		logger,
	)
	conversationHandler := conversation.NewHandler(store)

	// Inbound channels
	turnLock := iredis.NewTurnLock(redisClient, cfg.Conversation.TurnLockTTL)
	webhookHandler := webhook.NewHandler(orch, turnLock, logger)
	if cfg.XMPP.Enabled {
		if natsClient == nil {
			slog.Error("XMPP channel requires NATS to be enabled")
			os.Exit(1)
		}
		startXMPP(ctx, cfg, natsClient, orch)
	}

	// Auth
	verifier := auth.NewTokenVerifier(cfg.Auth.AdminSecret)

	// Router
	rateLimiter := middleware.NewRateLimiter(redisClient,
		cfg.Conversation.WebhookRateLimit, cfg.Conversation.WebhookRateWindowSec)
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		WebhookRateLimiter: rateLimiter.Middleware,
	}, api.HandlerSet{
		Webhook: webhookHandler.Receive,

		GetConversation:   conversationHandler.Get,
		ClearConversation: conversationHandler.Clear,

		ReloadCatalog: catalogHandler.Reload,

		AdminAuthMiddleware: auth.Middleware(verifier),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// startXMPP connects the chat channel: inbound stanzas go to NATS, a worker
// turns them into replies, and the outbound relay delivers them.
func startXMPP(ctx context.Context, cfg *config.Config, natsClient *inats.Client, orch *orchestrator.Orchestrator) {
	publisher := inats.NewPublisher(natsClient.JetStream())
	consumerMgr := inats.NewConsumerManager(natsClient.JetStream())

	handler := xmpp.NewHandler(publisher)
	component, err := xmpp.NewComponent(cfg.XMPP, handler)
	if err != nil {
		slog.Error("creating XMPP component", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := component.Start(ctx); err != nil {
			slog.Error("XMPP component stopped", "error", err)
		}
	}()
	go func() {
		relay := xmpp.NewInboundRelay(orch, publisher, consumerMgr)
		if err := relay.Start(ctx); err != nil {
			slog.Error("inbound relay stopped", "error", err)
		}
	}()
	go func() {
		relay := xmpp.NewOutboundRelay(handler, component.Sender(), consumerMgr)
		if err := relay.Start(ctx); err != nil {
			slog.Error("outbound relay stopped", "error", err)
		}
	}()
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
