package conversation

import (
	"strings"
	"time"

	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/funnel"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the per-customer conversation document. Owned by the accumulator;
// everything else reads it. Invariants:
//   - InterestedProducts are unique by id, in insertion (relevance) order.
//   - PriceShown never reverts to false once set.
//   - IsReadyToBuy is true only at PURCHASE_CONFIRMATION with PriceShown set.
type State struct {
	CustomerID         string            `json:"customer_id"`
	CurrentStage       funnel.Stage      `json:"current_stage"`
	InterestedProducts []catalog.Product `json:"interested_products"`
	PriceShown         bool              `json:"price_shown"`
	IsReadyToBuy       bool              `json:"is_ready_to_buy"`
	NegativeTurns      int               `json:"negative_turns"`
	LastMergedMessage  string            `json:"last_merged_message,omitempty"`
	MessageHistory     []Message         `json:"message_history"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func NewState(customerID string) *State {
	now := time.Now().UTC()
	return &State{
		CustomerID:   customerID,
		CurrentStage: funnel.StageInitialInterest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Normalize repairs a state loaded from storage so the invariants hold even
// when the persisted document predates them or was written by hand.
func (s *State) Normalize() {
	if !s.CurrentStage.Valid() {
		s.CurrentStage = funnel.StageInitialInterest
	}

	seen := make(map[string]bool, len(s.InterestedProducts))
	unique := s.InterestedProducts[:0]
	for _, p := range s.InterestedProducts {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		unique = append(unique, p)
	}
	s.InterestedProducts = unique

	if s.CurrentStage != funnel.StagePurchaseConfirmation || !s.PriceShown {
		s.IsReadyToBuy = false
	}
}

// ProductIDs returns the ids of tracked products in insertion order.
func (s *State) ProductIDs() []string {
	ids := make([]string, 0, len(s.InterestedProducts))
	for _, p := range s.InterestedProducts {
		ids = append(ids, p.ID)
	}
	return ids
}

// ProductLabel renders the tracked products for the turn result: a single
// name, or "Multiple products: A, B" when more than one is tracked.
func (s *State) ProductLabel() string {
	switch len(s.InterestedProducts) {
	case 0:
		return ""
	case 1:
		return s.InterestedProducts[0].Name
	default:
		names := make([]string, len(s.InterestedProducts))
		for i, p := range s.InterestedProducts {
			names[i] = p.Name
		}
		return "Multiple products: " + strings.Join(names, ", ")
	}
}

// AppendMessage adds a turn to the history, dropping the oldest entries past
// maxHistory.
func (s *State) AppendMessage(role Role, text string, maxHistory int) {
	s.MessageHistory = append(s.MessageHistory, Message{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	if maxHistory > 0 && len(s.MessageHistory) > maxHistory {
		s.MessageHistory = s.MessageHistory[len(s.MessageHistory)-maxHistory:]
	}
}

// Turns counts customer messages in the history.
func (s *State) Turns() int {
	n := 0
	for _, m := range s.MessageHistory {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}
