//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/glowcart/salesagent/internal/api"
	"github.com/glowcart/salesagent/internal/auth"
	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/config"
	"github.com/glowcart/salesagent/internal/conversation"
	"github.com/glowcart/salesagent/internal/funnel"
	"github.com/glowcart/salesagent/internal/matching"
	"github.com/glowcart/salesagent/internal/orchestrator"
	iredis "github.com/glowcart/salesagent/internal/redis"
	"github.com/glowcart/salesagent/internal/webhook"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Refresher   *catalog.Refresher
	Store       conversation.Store
	Verifier    *auth.TokenVerifier
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "salesagent_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/salesagent_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	migrationsPath := getMigrationsPath()
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Setup services
	logger := slog.Default()

	catalogRepo := catalog.NewRepository(pool)
	refresher := catalog.NewRefresher(catalogRepo, time.Hour, logger)
	if err := refresher.Start(ctx); err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	catalogHandler := catalog.NewHandler(refresher, logger)

	store := conversation.NewStore(pool)
	orch := orchestrator.New(
		store,
		funnel.NewClassifier(nil, logger),
		matching.NewMatcher(7),
		refresher,
		nil,
		nil,
		config.ConversationConfig{
			MaxHistory:    50,
			MaxMessageLen: 2000,
			HandoverTurns: 8,
			NegativeTurns: 4,
		},
		logger,
	)
	conversationHandler := conversation.NewHandler(store)

	turnLock := iredis.NewTurnLock(redisClient, 30*time.Second)
	webhookHandler := webhook.NewHandler(orch, turnLock, logger)

	verifier := auth.NewTokenVerifier("test-admin-secret-32-chars-long!!!")

	router := api.NewRouter(pool, nil, api.RouterConfig{}, api.HandlerSet{
		Webhook: webhookHandler.Receive,

		GetConversation:   conversationHandler.Get,
		ClearConversation: conversationHandler.Clear,

		ReloadCatalog: catalogHandler.Reload,

		AdminAuthMiddleware: auth.Middleware(verifier),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Refresher:   refresher,
		Store:       store,
		Verifier:    verifier,
	}

	return testEnv
}

func getMigrationsPath() string {
	// Try relative paths from test directory
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func AdminToken(t *testing.T, env *TestEnv) string {
	t.Helper()
	token, err := env.Verifier.GenerateToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("generating admin token: %v", err)
	}
	return token
}

func InsertProduct(t *testing.T, env *TestEnv, p catalog.Product) {
	t.Helper()
	_, err := env.Pool.Exec(context.Background(), `
		INSERT INTO products (id, name, description, category, brand, tags, ingredients, price, sale_price, rating, stock_count, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Name, p.Description, p.Category, p.Brand, p.Tags, p.Ingredients,
		p.Price, p.SalePrice, p.Rating, p.StockCount, p.IsActive)
	if err != nil {
		t.Fatalf("inserting product: %v", err)
	}
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
