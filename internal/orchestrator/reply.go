package orchestrator

import (
	"fmt"

	"github.com/glowcart/salesagent/internal/conversation"
	"github.com/glowcart/salesagent/internal/funnel"
	"github.com/glowcart/salesagent/internal/matching"
)

const technicalDifficultyReply = "I'm sorry, we're having a technical difficulty on our side. Please try again in a moment."

// templateReply is the deterministic reply path: one template per stage,
// filled with the best match of the turn. Used whenever the external
// generator is disabled or fails.
func templateReply(stage funnel.Stage, matches []matching.ProductMatch, state *conversation.State, stageResult funnel.StageResult, handover bool) string {
	var name, category string
	var price float64
	if len(matches) > 0 {
		name = matches[0].Product.Name
		category = matches[0].Product.Category
		price = matches[0].Product.EffectivePrice()
	} else if len(state.InterestedProducts) > 0 {
		p := state.InterestedProducts[len(state.InterestedProducts)-1]
		name = p.Name
		category = p.Category
		price = p.EffectivePrice()
	}
	if category == "" {
		category = "beauty"
	}

	if stageResult.ShowPriceFirst && name != "" {
		return fmt.Sprintf("Before we complete anything, let me share the price: %s is $%.2f. Shall we proceed?", name, price)
	}

	switch stage {
	case funnel.StageInitialInterest:
		if name != "" {
			return fmt.Sprintf("Hi there! I'm excited to help you find the perfect %s products. %s is a great place to start.", category, name)
		}
		return "Hi there! I'm excited to help you find the perfect products. What are you looking for today?"

	case funnel.StageProductDiscovery:
		if name != "" {
			reason := "your needs"
			if len(matches) > 0 && len(matches[0].Reasons) > 0 {
				reason = matches[0].Reasons[0]
			}
			return fmt.Sprintf("Great question! Let me tell you about %s - it stands out because of %s.", name, reason)
		}
		return "I'd be happy to tell you more about our products! What would you like to know?"

	case funnel.StagePriceEvaluation:
		if name != "" {
			return fmt.Sprintf("Great news! %s is currently $%.2f, and here's what makes it worth every penny.", name, price)
		}
		return "I understand budget is important! Tell me which product you have in mind and I'll share the price."

	case funnel.StagePurchaseIntent:
		if name != "" {
			return fmt.Sprintf("That's a fantastic choice! %s is going to work wonderfully for you.", name)
		}
		return "That's a fantastic choice! Let me confirm the details for you."

	case funnel.StagePurchaseConfirmation:
		if handover {
			return "I'll connect you with our purchase specialist to complete your order."
		}
		if label := state.ProductLabel(); label != "" {
			return fmt.Sprintf("Perfect! I'll help you complete your order for %s.", label)
		}
		return "Perfect! I'll guide you through completing your order."

	default:
		return "I'm here to help you find the perfect beauty products!"
	}
}
