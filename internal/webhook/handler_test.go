package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/salesagent/internal/api"
	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/config"
	"github.com/glowcart/salesagent/internal/conversation"
	"github.com/glowcart/salesagent/internal/funnel"
	"github.com/glowcart/salesagent/internal/matching"
	"github.com/glowcart/salesagent/internal/orchestrator"
	"github.com/glowcart/salesagent/internal/redis"
)

type memStore struct {
	states map[string]*conversation.State
}

func (m *memStore) Get(ctx context.Context, customerID string) (*conversation.State, error) {
	return m.states[customerID], nil
}

func (m *memStore) Save(ctx context.Context, state *conversation.State) error {
	m.states[state.CustomerID] = state
	return nil
}

func (m *memStore) Delete(ctx context.Context, customerID string) (bool, error) {
	_, ok := m.states[customerID]
	delete(m.states, customerID)
	return ok, nil
}

type fixedCatalog struct{ idx *catalog.Index }

func (f fixedCatalog) Index() *catalog.Index { return f.idx }

func newTestHandler(t *testing.T) (*Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.Default()
	orch := orchestrator.New(
		&memStore{states: make(map[string]*conversation.State)},
		funnel.NewClassifier(nil, logger),
		matching.NewMatcher(7),
		fixedCatalog{idx: catalog.NewIndex([]catalog.Product{{
			ID: "p1", Name: "Hydrating Shampoo", Category: "shampoo",
			Description: "Shampoo for oily hair", Price: 34.99, StockCount: 10, IsActive: true,
		}})},
		nil,
		nil,
		config.ConversationConfig{MaxHistory: 50, MaxMessageLen: 2000, HandoverTurns: 8, NegativeTurns: 4},
		logger,
	)
	lock := redis.NewTurnLock(client, 30*time.Second)
	return NewHandler(orch, lock, logger), mr
}

func postWebhook(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

func TestReceive_ProcessesTurn(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postWebhook(t, h, `{"sender_id": "cust-1", "recipient_id": "store", "text": "I need a shampoo"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data orchestrator.TurnResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cust-1", resp.Data.Sender)
	assert.Equal(t, funnel.StageInitialInterest, resp.Data.Stage)
	assert.Contains(t, resp.Data.InterestedProductIDs, "p1")
	assert.NotEmpty(t, resp.Data.ResponseText)
}

func TestReceive_RejectsInvalidPayload(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing sender", `{"recipient_id": "store", "text": "hi"}`},
		{"missing text", `{"sender_id": "cust-1", "recipient_id": "store"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestReceive_ConflictWhileTurnInFlight(t *testing.T) {
	h, _ := newTestHandler(t)

	// Simulate an in-flight turn by holding the lock.
	acquired, err := h.lock.Acquire(context.Background(), "cust-1")
	require.NoError(t, err)
	require.True(t, acquired)

	rec := postWebhook(t, h, `{"sender_id": "cust-1", "recipient_id": "store", "text": "hello"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp api.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "already being processed")

	// Other customers are unaffected.
	rec = postWebhook(t, h, `{"sender_id": "cust-2", "recipient_id": "store", "text": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReceive_ReleasesLockAfterTurn(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postWebhook(t, h, `{"sender_id": "cust-1", "recipient_id": "store", "text": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postWebhook(t, h, `{"sender_id": "cust-1", "recipient_id": "store", "text": "hello again"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReceive_FailsOpenWhenRedisDown(t *testing.T) {
	h, mr := newTestHandler(t)
	mr.Close()

	rec := postWebhook(t, h, `{"sender_id": "cust-1", "recipient_id": "store", "text": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
