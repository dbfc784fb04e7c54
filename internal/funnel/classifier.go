package funnel

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/glowcart/salesagent/internal/metrics"
)

// StageResult is the classifier's verdict on a single customer message.
type StageResult struct {
	Stage        Stage     `json:"stage"`
	IsReadyToBuy bool      `json:"is_ready_to_buy"`
	Confidence   float64   `json:"confidence"`
	Reasoning    string    `json:"reasoning"`
	Sentiment    Sentiment `json:"sentiment"`
	NextSteps    []string  `json:"next_steps,omitempty"`

	// ShowPriceFirst is set when confirmation language arrived before any
	// price was shown; the reply should present pricing before closing.
	ShowPriceFirst bool `json:"show_price_first,omitempty"`
}

// FallbackClassifier is the external text-understanding service consulted
// when rule confidence is low. Best-effort: any error keeps the rule result.
type FallbackClassifier interface {
	ClassifyStage(ctx context.Context, message string, previousStage Stage) (Stage, float64, error)
}

// Ordered pattern groups, one per stage. Scoring counts matching patterns per
// group and picks the arg-max stage.
var stagePatterns = map[Stage][]*regexp.Regexp{
	StageInitialInterest: compileAll(
		`\b(hi|hello|hey|looking for|need|want|help|interested)\b`,
		`\b(upgrade|improve|find|recommend|suggest)\b`,
		`\b(routine|products|skincare|beauty|makeup|hair)\b`,
	),
	StageProductDiscovery: compileAll(
		`\b(tell me|what|features|benefits|ingredients|recommend|compare)\b`,
		`\b(options|choices|alternatives|types|kinds)\b`,
		`\b(best for|suitable|right for|good for)\b`,
		`\b(clean|natural|organic|sulfate-free|paraben-free)\b`,
		`\b(do you have|carry|sell|stock|brand|brands)\b`,
	),
	StagePriceEvaluation: compileAll(
		`\b(how much|what's the price|price|price range|cost|budget)\b`,
		`\b(under \$|over \$|within|affordable|expensive)\b`,
		`\b(discount|sale|deal|offer|promotion|cheaper)\b`,
		`\b(worth it|value for money|reasonable price)\b`,
	),
	StagePurchaseIntent: compileAll(
		`\b(i'd like to get|i want to get|i want the|interested in buying|thinking of getting)\b`,
		`\b(that looks perfect|sounds great|i like that|looks good|sounds perfect)\b`,
		`\b(i'll take the|let me get the|i need that|i'll get)\b`,
		`\b(ready to buy|want to purchase|i'll go with)\b`,
	),
	StagePurchaseConfirmation: compileAll(
		`\b(i'll take it|confirm|proceed|finalize)\b`,
		`\b(complete|purchase|order|buy it|take it)\b`,
		`\b(how do i buy|help me complete|let's do this)\b`,
		`\b(convinced|take my money)\b`,
	),
}

// Explicit confirmation phrases override the stage jump guard and are a hard
// precondition for purchase readiness.
var confirmationPatterns = compileAll(
	`\b(i'll take it|yes,?\s*i'll buy|i'll buy it|let me buy|how do i buy)\b`,
	`\b(confirm purchase|proceed with|complete the order|ready to order)\b`,
)

// Readiness buckets weighted +3 / +2 / -1; the sum must reach 2.
var (
	highReadinessPatterns = compileAll(
		`\b(i'll take|i want to buy|ready to purchase|let me get|let me buy)\b`,
		`\b(how do i|help me buy|complete order|proceed)\b`,
		`\b(convinced|take my money|let's do this)\b`,
	)
	moderateReadinessPatterns = compileAll(
		`\b(interested in|thinking of|considering)\b`,
		`\b(sounds good|looks great|seems perfect|sounds perfect)\b`,
		`\b(i'd like|i think|probably)\b`,
	)
	lowReadinessPatterns = compileAll(
		`\b(not sure|worried|concerned|hesitant)\b`,
		`\b(still thinking|need time|maybe later)\b`,
		`\b(what if|but|however|although)\b`,
	)
)

const (
	readinessThreshold  = 2
	fallbackThreshold   = 0.5
	maxStageJump        = 2
	highReadinessWeight = 3
	moderateReadyWeight = 2
	lowReadinessPenalty = 1
)

var (
	positiveWords = []string{"great", "perfect", "love", "excellent", "amazing", "wonderful"}
	negativeWords = []string{"worried", "concerned", "unsure", "hesitant", "doubt", "problem"}
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func anyMatch(patterns []*regexp.Regexp, msg string) bool {
	for _, re := range patterns {
		if re.MatchString(msg) {
			return true
		}
	}
	return false
}

// Classifier maps a customer message plus the previous stage to a funnel
// stage and a purchase-readiness verdict. Deterministic pattern matching
// first; the external fallback is consulted only below the confidence
// threshold and never decides readiness on its own.
type Classifier struct {
	fallback FallbackClassifier
	logger   *slog.Logger
}

func NewClassifier(fallback FallbackClassifier, logger *slog.Logger) *Classifier {
	return &Classifier{fallback: fallback, logger: logger}
}

// Classify runs one classification turn. priceShown is the conversation's
// price latch; confirmation language before any price was shown downgrades
// to PRICE_EVALUATION rather than completing the funnel.
func (c *Classifier) Classify(ctx context.Context, message string, previousStage Stage, priceShown bool) StageResult {
	msg := strings.ToLower(strings.TrimSpace(message))
	if !previousStage.Valid() {
		previousStage = StageInitialInterest
	}

	if msg == "" {
		return StageResult{
			Stage:      previousStage,
			Confidence: 0,
			Reasoning:  "empty message, staying at previous stage",
			Sentiment:  SentimentNeutral,
			NextSteps:  nextSteps(previousStage),
		}
	}

	stage, confidence, matched := c.scoreStages(msg)
	if !matched {
		stage, confidence = inferFromContext(msg, previousStage)
	}

	explicitConfirm := anyMatch(confirmationPatterns, msg)

	// Guard rail: one ambiguous message must not skip most of the funnel.
	if stage.Index()-previousStage.Index() > maxStageJump && !explicitConfirm {
		stage = previousStage.Next()
		confidence *= 0.8
	}

	readinessScore := readiness(msg)
	ready := readinessScore >= readinessThreshold && explicitConfirm

	result := StageResult{
		Stage:      stage,
		Confidence: confidence,
		Sentiment:  sentiment(msg),
	}

	// Readiness requires the price to have been shown; otherwise the right
	// move is to show it, not to close.
	if ready && !priceShown {
		result.Stage = StagePriceEvaluation
		result.ShowPriceFirst = true
		ready = false
	}
	result.IsReadyToBuy = ready && result.Stage == StagePurchaseConfirmation

	if (!matched || confidence < fallbackThreshold) && c.fallback != nil {
		c.mergeFallback(ctx, msg, previousStage, priceShown, explicitConfirm, readinessScore, &result)
	}

	result.Reasoning = fmt.Sprintf("matched %s with confidence %.2f, readiness score %d", result.Stage, result.Confidence, readinessScore)
	result.NextSteps = nextSteps(result.Stage)
	return result
}

// scoreStages counts pattern hits per stage and returns the arg-max. The
// reported confidence is hits over the size of the winning pattern group.
func (c *Classifier) scoreStages(msg string) (Stage, float64, bool) {
	best := StageInitialInterest
	bestHits := 0
	for _, stage := range stageOrder {
		hits := 0
		for _, re := range stagePatterns[stage] {
			if re.MatchString(msg) {
				hits++
			}
		}
		if hits > bestHits {
			best = stage
			bestHits = hits
		}
	}
	if bestHits == 0 {
		return best, 0, false
	}
	confidence := float64(bestHits) / float64(len(stagePatterns[best]))
	if confidence > 1 {
		confidence = 1
	}
	return best, confidence, true
}

// inferFromContext handles messages with no pattern hits by staying at or
// advancing one step from the previous stage.
func inferFromContext(msg string, previousStage Stage) (Stage, float64) {
	if anyMatch(confirmationPatterns, msg) {
		return StagePurchaseConfirmation, 0.8
	}
	return previousStage.Next(), 0.5
}

func readiness(msg string) int {
	score := 0
	for _, re := range highReadinessPatterns {
		score += len(re.FindAllString(msg, -1)) * highReadinessWeight
	}
	for _, re := range moderateReadinessPatterns {
		score += len(re.FindAllString(msg, -1)) * moderateReadyWeight
	}
	for _, re := range lowReadinessPatterns {
		score -= len(re.FindAllString(msg, -1)) * lowReadinessPenalty
	}
	return score
}

func (c *Classifier) mergeFallback(ctx context.Context, msg string, previousStage Stage, priceShown, explicitConfirm bool, readinessScore int, result *StageResult) {
	llmStage, llmConfidence, err := c.fallback.ClassifyStage(ctx, msg, previousStage)
	if err != nil {
		metrics.LLMFallbacksTotal.WithLabelValues("classify").Inc()
		c.logger.Warn("stage fallback failed, keeping rule result", "error", err)
		return
	}
	if !llmStage.Valid() || llmConfidence <= result.Confidence {
		return
	}

	// The fallback may pick the stage but the readiness invariant still
	// applies in full.
	if llmStage.Index()-previousStage.Index() > maxStageJump && !explicitConfirm {
		llmStage = previousStage.Next()
	}
	result.Stage = llmStage
	result.Confidence = llmConfidence
	ready := readinessScore >= readinessThreshold && explicitConfirm
	if ready && !priceShown {
		result.Stage = StagePriceEvaluation
		result.ShowPriceFirst = true
		ready = false
	}
	result.IsReadyToBuy = ready && result.Stage == StagePurchaseConfirmation
}

func sentiment(msg string) Sentiment {
	positive, negative := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(msg, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(msg, w) {
			negative++
		}
	}
	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func nextSteps(stage Stage) []string {
	switch stage {
	case StageInitialInterest:
		return []string{"ask about specific needs", "recommend relevant products"}
	case StageProductDiscovery:
		return []string{"provide product details", "compare options"}
	case StagePriceEvaluation:
		return []string{"share pricing", "highlight value"}
	case StagePurchaseIntent:
		return []string{"confirm product selection", "address concerns"}
	case StagePurchaseConfirmation:
		return []string{"assist with checkout", "confirm purchase"}
	default:
		return []string{"engage customer"}
	}
}
