package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/config"
	"github.com/glowcart/salesagent/internal/funnel"
)

// ErrDisabled is returned when no endpoint is configured; callers fall back
// to the deterministic path.
var ErrDisabled = errors.New("llm: no endpoint configured")

// Turn is one prior exchange passed as reply context.
type Turn struct {
	Role    string
	Content string
}

// Client talks to an OpenAI-compatible chat-completions endpoint. Both
// operations are best-effort and time-bounded; every error path has a
// deterministic fallback upstream.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

func (c *Client) Enabled() bool { return c.endpoint != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// stageVerdict is the strict schema the classification prompt demands. The
// decode fails closed: anything that is not exactly this shape keeps the
// rule-based result.
type stageVerdict struct {
	Stage      string  `json:"stage"`
	Confidence float64 `json:"confidence"`
}

const classifySystemPrompt = `You classify the stage of a sales conversation.
The five stages in order are: INITIAL_INTEREST, PRODUCT_DISCOVERY, PRICE_EVALUATION, PURCHASE_INTENT, PURCHASE_CONFIRMATION.
Answer with a single JSON object and nothing else: {"stage": "<one of the five stages>", "confidence": <number between 0 and 1>}`

// ClassifyStage asks the model for a stage verdict. Implements
// funnel.FallbackClassifier.
func (c *Client) ClassifyStage(ctx context.Context, message string, previousStage funnel.Stage) (funnel.Stage, float64, error) {
	if !c.Enabled() {
		return "", 0, ErrDisabled
	}

	user := fmt.Sprintf("Previous stage: %s\nCustomer message: %q", previousStage, message)
	content, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: classifySystemPrompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		return "", 0, err
	}

	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(content)))
	dec.DisallowUnknownFields()
	var verdict stageVerdict
	if err := dec.Decode(&verdict); err != nil {
		return "", 0, fmt.Errorf("decoding stage verdict: %w", err)
	}

	stage := funnel.Stage(verdict.Stage)
	if !stage.Valid() {
		return "", 0, fmt.Errorf("unknown stage %q in verdict", verdict.Stage)
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return "", 0, fmt.Errorf("confidence %v out of range", verdict.Confidence)
	}
	return stage, verdict.Confidence, nil
}

const replySystemPrompt = `You are a friendly beauty-store sales assistant.
Answer the customer in at most three short sentences. Mention at most the two
most relevant products by name and price. Never invent products or prices.`

// GenerateReply asks the model for the natural-language reply of one turn.
func (c *Client) GenerateReply(ctx context.Context, stage funnel.Stage, products []catalog.Product, history []Turn, message string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation stage: %s\n", stage)
	if len(products) > 0 {
		b.WriteString("Relevant products:\n")
		for i, p := range products {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "- %s (%s) $%.2f\n", p.Name, p.Brand, p.EffectivePrice())
		}
	}

	messages := []chatMessage{{Role: "system", Content: replySystemPrompt + "\n" + b.String()}}
	start := 0
	if len(history) > 6 {
		start = len(history) - 6
	}
	for _, t := range history[start:] {
		role := t.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	content, err := c.complete(ctx, messages)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(content)
	if reply == "" {
		return "", errors.New("empty reply from model")
	}
	return reply, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	c.logger.Debug("llm call completed", "duration", time.Since(start))
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
