package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/config"
	"github.com/glowcart/salesagent/internal/conversation"
	"github.com/glowcart/salesagent/internal/funnel"
	"github.com/glowcart/salesagent/internal/llm"
	"github.com/glowcart/salesagent/internal/matching"
	"github.com/glowcart/salesagent/internal/metrics"
)

// Handover reasons, used as event payloads and metric labels.
const (
	HandoverPurchaseReady     = "purchase_ready"
	HandoverLongConversation  = "long_conversation"
	HandoverNegativeSentiment = "negative_sentiment"
)

// TurnResult is the structured outcome of one conversation turn.
type TurnResult struct {
	Sender               string       `json:"sender"`
	Stage                funnel.Stage `json:"sales_stage"`
	IsReadyToBuy         bool         `json:"is_ready"`
	InterestedProductIDs []string     `json:"interested_product_ids"`
	ProductInterested    *string      `json:"product_interested"`
	ResponseText         string       `json:"response_text"`
	Confidence           float64      `json:"confidence"`
	ShouldHandover       bool         `json:"handover"`
	HandoverReason       string       `json:"handover_reason,omitempty"`
}

// CatalogSource yields the current catalog index. Satisfied by
// catalog.Refresher.
type CatalogSource interface {
	Index() *catalog.Index
}

// ReplyGenerator produces the natural-language reply text. Satisfied by
// llm.Client; may be nil, in which case every reply is templated.
type ReplyGenerator interface {
	Enabled() bool
	GenerateReply(ctx context.Context, stage funnel.Stage, products []catalog.Product, history []llm.Turn, message string) (string, error)
}

// EventSink receives turn and handover events. Best-effort; implementations
// must never fail the turn. May be nil.
type EventSink interface {
	TurnProcessed(ctx context.Context, result *TurnResult)
	HandoverRequested(ctx context.Context, reason string, result *TurnResult)
}

// Orchestrator sequences one conversation turn: load state, classify, match,
// merge, decide handover, generate the reply, persist. Every external failure
// has a defined fallback so a reply is always produced.
type Orchestrator struct {
	store       conversation.Store
	accumulator *conversation.Accumulator
	classifier  *funnel.Classifier
	matcher     *matching.Matcher
	catalog     CatalogSource
	replies     ReplyGenerator
	events      EventSink
	cfg         config.ConversationConfig
	logger      *slog.Logger
}

func New(
	store conversation.Store,
	classifier *funnel.Classifier,
	matcher *matching.Matcher,
	catalogSource CatalogSource,
	replies ReplyGenerator,
	events EventSink,
	cfg config.ConversationConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:       store,
		accumulator: conversation.NewAccumulator(),
		classifier:  classifier,
		matcher:     matcher,
		catalog:     catalogSource,
		replies:     replies,
		events:      events,
		cfg:         cfg,
		logger:      logger,
	}
}

// ProcessTurn runs one turn for a customer message. It always returns a
// usable result; infrastructure failures degrade to a generic reply rather
// than an error the caller has to translate.
func (o *Orchestrator) ProcessTurn(ctx context.Context, customerID, text string) *TurnResult {
	if o.cfg.MaxMessageLen > 0 && len(text) > o.cfg.MaxMessageLen {
		text = text[:o.cfg.MaxMessageLen]
	}

	state, err := o.loadState(ctx, customerID)
	if err != nil {
		o.logger.Error("conversation store unavailable", "customer_id", customerID, "error", err)
		return o.technicalDifficulty(customerID)
	}

	state.AppendMessage(conversation.RoleUser, text, o.cfg.MaxHistory)

	ext := matching.Extract(text)
	stageResult := o.classifier.Classify(ctx, text, state.CurrentStage, state.PriceShown)

	matches := o.matcher.Match(ext, o.catalog.Index())
	metrics.ProductMatchesReturned.Observe(float64(len(matches)))

	o.accumulator.Merge(state, text, matches, stageResult)

	shouldHandover, reason := o.handoverDecision(state)

	reply := o.generateReply(ctx, state, matches, stageResult, text, shouldHandover)
	if strings.Contains(reply, "$") {
		o.accumulator.MarkPriceShown(state)
	}
	state.AppendMessage(conversation.RoleAssistant, reply, o.cfg.MaxHistory)

	if err := o.store.Save(ctx, state); err != nil {
		o.logger.Error("saving conversation failed", "customer_id", customerID, "error", err)
		return o.technicalDifficulty(customerID)
	}

	result := &TurnResult{
		Sender:               customerID,
		Stage:                state.CurrentStage,
		IsReadyToBuy:         state.IsReadyToBuy,
		InterestedProductIDs: state.ProductIDs(),
		ProductInterested:    labelOrNil(state),
		ResponseText:         reply,
		Confidence:           stageResult.Confidence,
		ShouldHandover:       shouldHandover,
		HandoverReason:       reason,
	}

	metrics.TurnsProcessedTotal.WithLabelValues(string(result.Stage)).Inc()
	if o.events != nil {
		o.events.TurnProcessed(ctx, result)
		if shouldHandover {
			o.events.HandoverRequested(ctx, reason, result)
		}
	}
	return result
}

// Status returns the admin view of a conversation, or nil when none exists.
func (o *Orchestrator) Status(ctx context.Context, customerID string) (*conversation.State, error) {
	return o.store.Get(ctx, customerID)
}

// Clear deletes a conversation. Returns false when none existed.
func (o *Orchestrator) Clear(ctx context.Context, customerID string) (bool, error) {
	return o.store.Delete(ctx, customerID)
}

// loadState fetches the persisted state, creating a fresh one on first
// contact and recovering with a fresh one when the document is malformed.
func (o *Orchestrator) loadState(ctx context.Context, customerID string) (*conversation.State, error) {
	state, err := o.store.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, conversation.ErrMalformedState) {
			o.logger.Warn("malformed conversation state, starting over", "customer_id", customerID)
			return conversation.NewState(customerID), nil
		}
		return nil, err
	}
	if state == nil {
		return conversation.NewState(customerID), nil
	}
	return state, nil
}

func (o *Orchestrator) handoverDecision(state *conversation.State) (bool, string) {
	switch {
	case state.IsReadyToBuy && state.CurrentStage == funnel.StagePurchaseConfirmation:
		metrics.HandoversTotal.WithLabelValues(HandoverPurchaseReady).Inc()
		return true, HandoverPurchaseReady
	case state.Turns() >= o.cfg.HandoverTurns:
		metrics.HandoversTotal.WithLabelValues(HandoverLongConversation).Inc()
		return true, HandoverLongConversation
	case state.NegativeTurns >= o.cfg.NegativeTurns:
		metrics.HandoversTotal.WithLabelValues(HandoverNegativeSentiment).Inc()
		return true, HandoverNegativeSentiment
	default:
		return false, ""
	}
}

// generateReply tries the external generator first and falls back to the
// stage templates on any failure.
func (o *Orchestrator) generateReply(ctx context.Context, state *conversation.State, matches []matching.ProductMatch, stageResult funnel.StageResult, text string, handover bool) string {
	if o.replies != nil && o.replies.Enabled() {
		history := make([]llm.Turn, 0, len(state.MessageHistory))
		for _, m := range state.MessageHistory {
			history = append(history, llm.Turn{Role: string(m.Role), Content: m.Text})
		}
		reply, err := o.replies.GenerateReply(ctx, state.CurrentStage, state.InterestedProducts, history, text)
		if err == nil {
			return reply
		}
		metrics.LLMFallbacksTotal.WithLabelValues("reply").Inc()
		o.logger.Warn("reply generation failed, using template", "error", err)
	}
	return templateReply(state.CurrentStage, matches, state, stageResult, handover)
}

func (o *Orchestrator) technicalDifficulty(customerID string) *TurnResult {
	return &TurnResult{
		Sender:               customerID,
		Stage:                funnel.StageInitialInterest,
		InterestedProductIDs: []string{},
		ResponseText:         technicalDifficultyReply,
		Confidence:           0,
	}
}

func labelOrNil(state *conversation.State) *string {
	label := state.ProductLabel()
	if label == "" {
		return nil
	}
	return &label
}
