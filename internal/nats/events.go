package nats

import (
	"time"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamMessages = "SALES_MESSAGES"
	StreamEvents   = "SALES_EVENTS"
)

// Subject constants.
const (
	SubjectInboundMessage  = "sales.messages.inbound"
	SubjectOutboundMessage = "sales.messages.outbound"
	SubjectTurnEvent       = "sales.events.turn"
	SubjectHandoverEvent   = "sales.events.handover"
)

// InboundMessage is published when an XMPP chat message arrives at the component.
type InboundMessage struct {
	ID         string    `json:"id"`
	FromJID    string    `json:"from_jid"`
	ToJID      string    `json:"to_jid"`
	Body       string    `json:"body"`
	StanzaType string    `json:"stanza_type"`
	ReceivedAt time.Time `json:"received_at"`
}

// OutboundMessage is published to send a reply back via XMPP.
type OutboundMessage struct {
	ID        string `json:"id"`
	ToJID     string `json:"to_jid"`
	FromJID   string `json:"from_jid"`
	Body      string `json:"body"`
	InReplyTo string `json:"in_reply_to,omitempty"`
}

// TurnEvent is the audit record published after every processed turn.
type TurnEvent struct {
	ID                   string    `json:"id"`
	CustomerID           string    `json:"customer_id"`
	Stage                string    `json:"stage"`
	IsReadyToBuy         bool      `json:"is_ready_to_buy"`
	Confidence           float64   `json:"confidence"`
	InterestedProductIDs []string  `json:"interested_product_ids"`
	Handover             bool      `json:"handover"`
	HandoverReason       string    `json:"handover_reason,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

// HandoverEvent is published when a conversation should move to a human agent.
// Downstream consumers (CRM, notification services) subscribe to it.
type HandoverEvent struct {
	ID                   string    `json:"id"`
	CustomerID           string    `json:"customer_id"`
	Reason               string    `json:"reason"`
	Stage                string    `json:"stage"`
	InterestedProductIDs []string  `json:"interested_product_ids"`
	LastReply            string    `json:"last_reply"`
	Timestamp            time.Time `json:"timestamp"`
}
