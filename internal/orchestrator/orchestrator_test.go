package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/config"
	"github.com/glowcart/salesagent/internal/conversation"
	"github.com/glowcart/salesagent/internal/funnel"
	"github.com/glowcart/salesagent/internal/llm"
	"github.com/glowcart/salesagent/internal/matching"
)

type memStore struct {
	states    map[string]*conversation.State
	getErr    error
	saveErr   error
	malformed bool
	saves     int
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]*conversation.State)}
}

func (m *memStore) Get(ctx context.Context, customerID string) (*conversation.State, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.malformed {
		return nil, fmt.Errorf("%w: unexpected token", conversation.ErrMalformedState)
	}
	return m.states[customerID], nil
}

func (m *memStore) Save(ctx context.Context, state *conversation.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
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

type stubReplies struct {
	reply   string
	err     error
	enabled bool
	calls   int
}

func (s *stubReplies) Enabled() bool { return s.enabled }

func (s *stubReplies) GenerateReply(ctx context.Context, stage funnel.Stage, products []catalog.Product, history []llm.Turn, message string) (string, error) {
	s.calls++
	return s.reply, s.err
}

type recordingSink struct {
	turns     []*TurnResult
	handovers []string
}

func (r *recordingSink) TurnProcessed(ctx context.Context, result *TurnResult) {
	r.turns = append(r.turns, result)
}

func (r *recordingSink) HandoverRequested(ctx context.Context, reason string, result *TurnResult) {
	r.handovers = append(r.handovers, reason)
}

func testCatalog() fixedCatalog {
	sale := 19.99
	return fixedCatalog{idx: catalog.NewIndex([]catalog.Product{
		{
			ID:          "p1",
			Name:        "Hydrating Shampoo",
			Description: "Shampoo for dry and oily hair",
			Category:    "shampoo",
			Brand:       "Olay",
			Price:       34.99,
			SalePrice:   &sale,
			Rating:      4.2,
			StockCount:  30,
			IsActive:    true,
		},
		{
			ID:          "p2",
			Name:        "Gentle Foam Cleanser",
			Description: "A gentle face wash for sensitive skin",
			Category:    "cleanser",
			Brand:       "CeraVe",
			Price:       24.99,
			Rating:      4.7,
			StockCount:  12,
			IsActive:    true,
		},
	})}
}

func testConfig() config.ConversationConfig {
	return config.ConversationConfig{
		MaxHistory:    50,
		MaxMessageLen: 2000,
		HandoverTurns: 8,
		NegativeTurns: 4,
	}
}

func newTestOrchestrator(store conversation.Store, replies ReplyGenerator, events EventSink) *Orchestrator {
	logger := slog.Default()
	return New(
		store,
		funnel.NewClassifier(nil, logger),
		matching.NewMatcher(7),
		testCatalog(),
		replies,
		events,
		testConfig(),
		logger,
	)
}

func TestProcessTurn_FullFunnel(t *testing.T) {
	store := newMemStore()
	sink := &recordingSink{}
	o := newTestOrchestrator(store, nil, sink)
	ctx := context.Background()

	// Turn 1: first contact.
	r1 := o.ProcessTurn(ctx, "cust-1", "Hi, I need a good shampoo for oily hair")
	assert.Equal(t, funnel.StageInitialInterest, r1.Stage)
	assert.False(t, r1.IsReadyToBuy)
	assert.False(t, r1.ShouldHandover)
	assert.Contains(t, r1.InterestedProductIDs, "p1")
	require.NotNil(t, r1.ProductInterested)
	assert.Equal(t, "Hydrating Shampoo", *r1.ProductInterested)

	// Turn 2: price question latches the price flag.
	r2 := o.ProcessTurn(ctx, "cust-1", "How much does it cost? I want something under $50")
	assert.Equal(t, funnel.StagePriceEvaluation, r2.Stage)
	assert.False(t, r2.IsReadyToBuy)
	assert.True(t, store.states["cust-1"].PriceShown)

	// Turn 3: explicit confirmation completes the funnel.
	r3 := o.ProcessTurn(ctx, "cust-1", "Perfect! I'll take it. How do I buy it?")
	assert.Equal(t, funnel.StagePurchaseConfirmation, r3.Stage)
	assert.True(t, r3.IsReadyToBuy)
	assert.True(t, r3.ShouldHandover)
	assert.Equal(t, HandoverPurchaseReady, r3.HandoverReason)

	assert.Len(t, sink.turns, 3)
	assert.Equal(t, []string{HandoverPurchaseReady}, sink.handovers)
}

func TestProcessTurn_AccumulatesAcrossTurns(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, nil, nil)
	ctx := context.Background()

	o.ProcessTurn(ctx, "cust-1", "I need a shampoo for oily hair")
	r := o.ProcessTurn(ctx, "cust-1", "and also a gentle cleanser")

	assert.ElementsMatch(t, []string{"p1", "p2"}, r.InterestedProductIDs)
	require.NotNil(t, r.ProductInterested)
	assert.Contains(t, *r.ProductInterested, "Multiple products: ")
}

func TestProcessTurn_StoreUnavailable(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	o := newTestOrchestrator(store, nil, nil)

	r := o.ProcessTurn(context.Background(), "cust-1", "hello")

	assert.Equal(t, technicalDifficultyReply, r.ResponseText)
	assert.False(t, r.ShouldHandover)
	assert.Empty(t, r.InterestedProductIDs)
}

func TestProcessTurn_SaveFailure(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("connection reset")
	o := newTestOrchestrator(store, nil, nil)

	r := o.ProcessTurn(context.Background(), "cust-1", "hello")

	assert.Equal(t, technicalDifficultyReply, r.ResponseText)
}

func TestProcessTurn_MalformedStateStartsOver(t *testing.T) {
	store := newMemStore()
	store.malformed = true
	o := newTestOrchestrator(store, nil, nil)

	r := o.ProcessTurn(context.Background(), "cust-1", "Hi, I need a shampoo")

	assert.Equal(t, funnel.StageInitialInterest, r.Stage)
	assert.NotEqual(t, technicalDifficultyReply, r.ResponseText)
	assert.Equal(t, 1, store.saves)
}

func TestProcessTurn_TruncatesLongMessages(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, nil, nil)

	o.ProcessTurn(context.Background(), "cust-1", strings.Repeat("a", 3000))

	state := store.states["cust-1"]
	require.NotNil(t, state)
	require.NotEmpty(t, state.MessageHistory)
	assert.Len(t, state.MessageHistory[0].Text, 2000)
}

func TestProcessTurn_LongConversationHandover(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, nil, nil)
	ctx := context.Background()

	var last *TurnResult
	for i := 0; i < 8; i++ {
		last = o.ProcessTurn(ctx, "cust-1", "tell me about the ingredients")
	}

	require.NotNil(t, last)
	assert.True(t, last.ShouldHandover)
	assert.Equal(t, HandoverLongConversation, last.HandoverReason)
}

func TestProcessTurn_NegativeSentimentHandover(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, nil, nil)
	ctx := context.Background()

	var last *TurnResult
	for i := 0; i < 4; i++ {
		last = o.ProcessTurn(ctx, "cust-1", "I'm worried this is a problem")
	}

	require.NotNil(t, last)
	assert.True(t, last.ShouldHandover)
	assert.Equal(t, HandoverNegativeSentiment, last.HandoverReason)
}

func TestProcessTurn_UsesReplyGenerator(t *testing.T) {
	store := newMemStore()
	replies := &stubReplies{enabled: true, reply: "Our Hydrating Shampoo would suit you well!"}
	o := newTestOrchestrator(store, replies, nil)

	r := o.ProcessTurn(context.Background(), "cust-1", "I need a shampoo")

	assert.Equal(t, 1, replies.calls)
	assert.Equal(t, "Our Hydrating Shampoo would suit you well!", r.ResponseText)
}

func TestProcessTurn_ReplyGeneratorFailureFallsBack(t *testing.T) {
	store := newMemStore()
	replies := &stubReplies{enabled: true, err: errors.New("timeout")}
	o := newTestOrchestrator(store, replies, nil)

	r := o.ProcessTurn(context.Background(), "cust-1", "I need a shampoo")

	assert.Equal(t, 1, replies.calls)
	assert.NotEmpty(t, r.ResponseText)
	assert.NotEqual(t, technicalDifficultyReply, r.ResponseText)
}

func TestProcessTurn_LLMPriceReplyLatchesPriceShown(t *testing.T) {
	store := newMemStore()
	replies := &stubReplies{enabled: true, reply: "It costs $24.99 right now."}
	o := newTestOrchestrator(store, replies, nil)

	o.ProcessTurn(context.Background(), "cust-1", "I need a shampoo")

	assert.True(t, store.states["cust-1"].PriceShown)
}

func TestProcessTurn_AppendsBothRolesToHistory(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, nil, nil)

	o.ProcessTurn(context.Background(), "cust-1", "Hi, I need a shampoo")

	state := store.states["cust-1"]
	require.NotNil(t, state)
	require.Len(t, state.MessageHistory, 2)
	assert.Equal(t, conversation.RoleUser, state.MessageHistory[0].Role)
	assert.Equal(t, conversation.RoleAssistant, state.MessageHistory[1].Role)
}

func TestClearAndStatus(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, nil, nil)
	ctx := context.Background()

	o.ProcessTurn(ctx, "cust-1", "Hi, I need a shampoo")

	state, err := o.Status(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, state)

	found, err := o.Clear(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, found)

	state, err = o.Status(ctx, "cust-1")
	require.NoError(t, err)
	assert.Nil(t, state)
}
