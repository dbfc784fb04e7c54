package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/config"
	"github.com/glowcart/salesagent/internal/funnel"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.LLMConfig{
		Endpoint:  srv.URL,
		APIKey:    "test-key",
		Model:     "gpt-4o-mini",
		Timeout:   2 * time.Second,
		MaxTokens: 100,
	}, slog.Default())
	return c, srv
}

func completionResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestClassifyStage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)

		w.Write([]byte(completionResponse(`{"stage": "PRICE_EVALUATION", "confidence": 0.85}`)))
	})

	stage, confidence, err := c.ClassifyStage(context.Background(), "is it expensive?", funnel.StageProductDiscovery)
	require.NoError(t, err)
	assert.Equal(t, funnel.StagePriceEvaluation, stage)
	assert.Equal(t, 0.85, confidence)
}

func TestClassifyStage_FailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "the stage is PRICE_EVALUATION, confidence high"},
		{"unknown field", `{"stage": "PRICE_EVALUATION", "confidence": 0.8, "reason": "x"}`},
		{"unknown stage", `{"stage": "CHECKOUT", "confidence": 0.8}`},
		{"confidence out of range", `{"stage": "PRICE_EVALUATION", "confidence": 1.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(completionResponse(tt.content)))
			})

			_, _, err := c.ClassifyStage(context.Background(), "hmm", funnel.StageInitialInterest)
			assert.Error(t, err)
		})
	}
}

func TestClassifyStage_ServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, _, err := c.ClassifyStage(context.Background(), "hmm", funnel.StageInitialInterest)
	assert.Error(t, err)
}

func TestClassifyStage_Disabled(t *testing.T) {
	c := NewClient(config.LLMConfig{Timeout: time.Second}, slog.Default())

	_, _, err := c.ClassifyStage(context.Background(), "hmm", funnel.StageInitialInterest)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, c.Enabled())
}

func TestGenerateReply(t *testing.T) {
	var captured chatRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionResponse("The Foam Cleanser is $24.99 and great for oily skin.")))
	})

	reply, err := c.GenerateReply(context.Background(),
		funnel.StagePriceEvaluation,
		[]catalog.Product{{Name: "Foam Cleanser", Brand: "CeraVe", Price: 24.99}},
		[]Turn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello!"}},
		"how much is the cleanser?")

	require.NoError(t, err)
	assert.Contains(t, reply, "24.99")

	// System prompt carries stage and product context; history plus the
	// current message follow it.
	require.NotEmpty(t, captured.Messages)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "PRICE_EVALUATION")
	assert.Contains(t, captured.Messages[0].Content, "Foam Cleanser")
	assert.Equal(t, "how much is the cleanser?", captured.Messages[len(captured.Messages)-1].Content)
}

func TestGenerateReply_EmptyReplyIsError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("   ")))
	})

	_, err := c.GenerateReply(context.Background(), funnel.StageInitialInterest, nil, nil, "hi")
	assert.Error(t, err)
}

func TestGenerateReply_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(completionResponse("too late")))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.LLMConfig{
		Endpoint: srv.URL,
		Model:    "gpt-4o-mini",
		Timeout:  50 * time.Millisecond,
	}, slog.Default())

	_, err := c.GenerateReply(context.Background(), funnel.StageInitialInterest, nil, nil, "hi")
	assert.Error(t, err)
}
