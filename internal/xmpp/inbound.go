package xmpp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/glowcart/salesagent/internal/nats"
	"github.com/glowcart/salesagent/internal/orchestrator"
)

// InboundRelay consumes inbound chat messages from NATS, runs them through the
// orchestrator and publishes the reply for outbound delivery. A single durable
// consumer keeps turns for the same customer ordered.
type InboundRelay struct {
	orch        *orchestrator.Orchestrator
	publisher   *inats.Publisher
	consumerMgr *inats.ConsumerManager
}

// NewInboundRelay creates a new InboundRelay.
func NewInboundRelay(orch *orchestrator.Orchestrator, publisher *inats.Publisher, consumerMgr *inats.ConsumerManager) *InboundRelay {
	return &InboundRelay{
		orch:        orch,
		publisher:   publisher,
		consumerMgr: consumerMgr,
	}
}

// Start begins consuming inbound messages. It blocks until the context is cancelled.
func (r *InboundRelay) Start(ctx context.Context) error {
	consumer, err := r.consumerMgr.EnsureConsumer(ctx, inats.StreamMessages, "inbound-turns", inats.SubjectInboundMessage)
	if err != nil {
		return err
	}

	slog.Info("inbound relay started", "consumer", "inbound-turns")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching inbound messages", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			r.handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *InboundRelay) handle(ctx context.Context, msg jetstream.Msg) {
	var inbound inats.InboundMessage
	if err := json.Unmarshal(msg.Data(), &inbound); err != nil {
		slog.Error("unmarshaling inbound message", "error", err)
		_ = msg.Term()
		return
	}

	customerID := BareJID(inbound.FromJID)
	result := r.orch.ProcessTurn(ctx, customerID, inbound.Body)

	outbound := inats.OutboundMessage{
		ID:        uuid.New().String(),
		ToJID:     inbound.FromJID,
		FromJID:   inbound.ToJID,
		Body:      result.ResponseText,
		InReplyTo: inbound.ID,
	}
	if err := r.publisher.PublishOutboundMessage(ctx, outbound); err != nil {
		slog.Error("publishing outbound reply", "error", err, "to", inbound.FromJID)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}
