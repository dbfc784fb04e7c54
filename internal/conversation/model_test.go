package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glowcart/salesagent/internal/catalog"
	"github.com/glowcart/salesagent/internal/funnel"
)

func TestNewState(t *testing.T) {
	s := NewState("cust-1")

	assert.Equal(t, "cust-1", s.CustomerID)
	assert.Equal(t, funnel.StageInitialInterest, s.CurrentStage)
	assert.False(t, s.IsReadyToBuy)
	assert.False(t, s.PriceShown)
	assert.Empty(t, s.InterestedProducts)
}

func TestState_Normalize(t *testing.T) {
	s := &State{
		CustomerID:   "cust-1",
		CurrentStage: funnel.Stage("GARBAGE"),
		IsReadyToBuy: true,
		InterestedProducts: []catalog.Product{
			{ID: "p1", Name: "A"},
			{ID: "p1", Name: "A again"},
			{ID: "", Name: "no id"},
			{ID: "p2", Name: "B"},
		},
	}

	s.Normalize()

	assert.Equal(t, funnel.StageInitialInterest, s.CurrentStage)
	assert.Equal(t, []string{"p1", "p2"}, s.ProductIDs())
	// Ready flag cannot survive outside PURCHASE_CONFIRMATION with price shown.
	assert.False(t, s.IsReadyToBuy)
}

func TestState_NormalizeKeepsValidReady(t *testing.T) {
	s := &State{
		CustomerID:   "cust-1",
		CurrentStage: funnel.StagePurchaseConfirmation,
		PriceShown:   true,
		IsReadyToBuy: true,
	}

	s.Normalize()

	assert.True(t, s.IsReadyToBuy)
}

func TestState_ProductLabel(t *testing.T) {
	s := NewState("cust-1")
	assert.Equal(t, "", s.ProductLabel())

	s.InterestedProducts = []catalog.Product{{ID: "p1", Name: "Foam Cleanser"}}
	assert.Equal(t, "Foam Cleanser", s.ProductLabel())

	s.InterestedProducts = append(s.InterestedProducts, catalog.Product{ID: "p2", Name: "Night Serum"})
	assert.Equal(t, "Multiple products: Foam Cleanser, Night Serum", s.ProductLabel())
}

func TestState_AppendMessageCapsHistory(t *testing.T) {
	s := NewState("cust-1")

	for i := 0; i < 60; i++ {
		s.AppendMessage(RoleUser, "msg", 50)
	}

	assert.Len(t, s.MessageHistory, 50)
}

func TestState_Turns(t *testing.T) {
	s := NewState("cust-1")
	s.AppendMessage(RoleUser, "hi", 50)
	s.AppendMessage(RoleAssistant, "hello", 50)
	s.AppendMessage(RoleUser, "price?", 50)

	assert.Equal(t, 2, s.Turns())
}
