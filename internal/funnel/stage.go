package funnel

// Stage is one of the five ordered phases a sales conversation moves through.
type Stage string

const (
	StageInitialInterest      Stage = "INITIAL_INTEREST"
	StageProductDiscovery     Stage = "PRODUCT_DISCOVERY"
	StagePriceEvaluation      Stage = "PRICE_EVALUATION"
	StagePurchaseIntent       Stage = "PURCHASE_INTENT"
	StagePurchaseConfirmation Stage = "PURCHASE_CONFIRMATION"
)

var stageOrder = []Stage{
	StageInitialInterest,
	StageProductDiscovery,
	StagePriceEvaluation,
	StagePurchaseIntent,
	StagePurchaseConfirmation,
}

// Index returns the position of the stage in funnel order, or 0 for unknown
// stages so corrupt input degrades to the start of the funnel.
func (s Stage) Index() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return 0
}

func (s Stage) Valid() bool {
	for _, stage := range stageOrder {
		if stage == s {
			return true
		}
	}
	return false
}

// Next returns the following stage, or the stage itself at the end of the funnel.
func (s Stage) Next() Stage {
	i := s.Index()
	if i+1 < len(stageOrder) {
		return stageOrder[i+1]
	}
	return stageOrder[len(stageOrder)-1]
}

// Stages returns the canonical funnel order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Sentiment is the coarse emotional read of a single customer message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)
