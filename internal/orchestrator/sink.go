package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glowcart/salesagent/internal/nats"
)

// Sink adapts the Publisher to the orchestrator's event interface.
// Publishing is best-effort: failures are logged and never fail the turn.
type Sink struct {
	publisher *nats.Publisher
	logger    *slog.Logger
}

// NewSink creates a Sink around the given publisher.
func NewSink(publisher *nats.Publisher, logger *slog.Logger) *Sink {
	return &Sink{publisher: publisher, logger: logger}
}

// TurnProcessed publishes the audit event for a completed turn.
func (s *Sink) TurnProcessed(ctx context.Context, result *TurnResult) {
	event := nats.TurnEvent{
		ID:                   uuid.New().String(),
		CustomerID:           result.Sender,
		Stage:                string(result.Stage),
		IsReadyToBuy:         result.IsReadyToBuy,
		Confidence:           result.Confidence,
		InterestedProductIDs: result.InterestedProductIDs,
		Handover:             result.ShouldHandover,
		HandoverReason:       result.HandoverReason,
		Timestamp:            time.Now().UTC(),
	}
	if err := s.publisher.PublishTurnEvent(ctx, event); err != nil {
		s.logger.Warn("publishing turn event failed", "customer_id", result.Sender, "error", err)
	}
}

// HandoverRequested publishes a handover event for downstream consumers.
func (s *Sink) HandoverRequested(ctx context.Context, reason string, result *TurnResult) {
	event := nats.HandoverEvent{
		ID:                   uuid.New().String(),
		CustomerID:           result.Sender,
		Reason:               reason,
		Stage:                string(result.Stage),
		InterestedProductIDs: result.InterestedProductIDs,
		LastReply:            result.ResponseText,
		Timestamp:            time.Now().UTC(),
	}
	if err := s.publisher.PublishHandoverEvent(ctx, event); err != nil {
		s.logger.Warn("publishing handover event failed", "customer_id", result.Sender, "error", err)
	}
}
