package conversation

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/glowcart/salesagent/internal/funnel"
	"github.com/glowcart/salesagent/internal/matching"
)

var removalIntentRe = regexp.MustCompile(`\b(don't need|dont need|remove|cancel|skip)\b`)

// Words that appear in removal phrasing itself and must not be treated as
// product-name tokens.
var removalNoise = map[string]bool{
	"don't": true, "dont": true, "need": true, "remove": true, "cancel": true,
	"skip": true, "the": true, "that": true, "this": true, "anymore": true,
	"actually": true, "please": true, "one": true, "product": true,
}

// Accumulator owns the merge and invariant logic of the conversation state.
// Purely in-process; persistence is the store's job. Merge is idempotent:
// replaying the same turn against the resulting state changes nothing.
type Accumulator struct{}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Merge folds one turn's matches and stage verdict into the state.
//
// Product accumulation is monotonic: new matches are appended only when their
// id is not yet tracked, and nothing is dropped unless the message carries a
// removal intent naming the product. PriceShown latches permanently once the
// conversation reaches price territory. IsReadyToBuy is recomputed every turn
// and never carried over stale.
func (a *Accumulator) Merge(state *State, message string, matches []matching.ProductMatch, result funnel.StageResult) {
	a.applyRemovals(state, message)

	tracked := make(map[string]bool, len(state.InterestedProducts))
	for _, p := range state.InterestedProducts {
		tracked[p.ID] = true
	}
	for _, m := range matches {
		if m.Product == nil || tracked[m.Product.ID] {
			continue
		}
		tracked[m.Product.ID] = true
		state.InterestedProducts = append(state.InterestedProducts, *m.Product)
	}

	state.CurrentStage = result.Stage
	if result.Stage == funnel.StagePriceEvaluation || result.ShowPriceFirst {
		state.PriceShown = true
	}
	state.IsReadyToBuy = result.IsReadyToBuy && state.CurrentStage == funnel.StagePurchaseConfirmation && state.PriceShown

	// The sentiment counter is the one non-monotonic effect; a replayed turn
	// (duplicate webhook delivery) must not move it again.
	if message != state.LastMergedMessage {
		if result.Sentiment == funnel.SentimentNegative {
			state.NegativeTurns++
		} else {
			state.NegativeTurns = 0
		}
		state.LastMergedMessage = message
	}
	state.UpdatedAt = time.Now().UTC()
}

// MarkPriceShown latches the price flag after a reply actually displayed a
// price.
func (a *Accumulator) MarkPriceShown(state *State) {
	state.PriceShown = true
}

// applyRemovals drops tracked products named by a removal-intent message.
// The message must combine a removal phrase with a token from the product's
// name or category.
func (a *Accumulator) applyRemovals(state *State, message string) {
	msg := strings.ToLower(message)
	if !removalIntentRe.MatchString(msg) || len(state.InterestedProducts) == 0 {
		return
	}

	var tokens []string
	for _, tok := range strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	}) {
		if len(tok) >= 3 && !removalNoise[tok] {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return
	}

	kept := state.InterestedProducts[:0]
	for _, p := range state.InterestedProducts {
		name := strings.ToLower(p.Name)
		category := strings.ToLower(p.Category)
		removed := false
		for _, tok := range tokens {
			if strings.Contains(name, tok) || category == tok {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, p)
		}
	}
	state.InterestedProducts = kept
}
