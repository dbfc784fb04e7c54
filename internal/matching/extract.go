package matching

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/glowcart/salesagent/internal/catalog"
)

type Intent string

const (
	IntentInquire   Intent = "inquire"
	IntentBuy       Intent = "buy"
	IntentCompare   Intent = "compare"
	IntentRecommend Intent = "recommend"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Extraction is everything the matcher needs from one customer message.
// Derived deterministically; never persisted.
type Extraction struct {
	Keywords    []string
	Categories  []string
	Concerns    []string
	Brands      []string
	Ingredients []string
	Preferences []string
	Intent      Intent
	Urgency     Urgency
	PriceRange  *catalog.PriceRange
	PriceBucket string
}

var (
	triggerWords = map[string]bool{"need": true, "want": true, "looking": true, "for": true}

	stopwords = map[string]bool{
		"the": true, "and": true, "with": true, "that": true, "this": true,
		"have": true, "some": true, "what": true, "about": true, "something": true,
		"good": true, "does": true, "much": true, "please": true, "your": true,
		"under": true, "over": true, "between": true, "around": true,
	}

	// Intent and filler verbs carry no product signal; keeping them out of
	// the keyword list stops them diluting the direct-match score.
	intentWords = map[string]bool{
		"buy": true, "purchase": true, "order": true, "checkout": true,
		"compare": true, "versus": true, "recommend": true, "suggest": true,
	}

	underRe   = regexp.MustCompile(`(?:under|below|less than|max)\s*\$?\s*(\d+(?:\.\d+)?)`)
	overRe    = regexp.MustCompile(`(?:over|above|more than|at least)\s*\$?\s*(\d+(?:\.\d+)?)`)
	betweenRe = regexp.MustCompile(`between\s*\$?\s*(\d+(?:\.\d+)?)\s*(?:and|-)\s*\$?\s*(\d+(?:\.\d+)?)`)
	aroundRe  = regexp.MustCompile(`(?:around|about|roughly)\s*\$\s*(\d+(?:\.\d+)?)`)
)

// Extract derives keywords, intent, urgency and price constraints from a raw
// customer message. Purely rule-based; the external language service is never
// consulted here.
func Extract(message string) Extraction {
	msg := strings.ToLower(strings.TrimSpace(message))
	words := tokenize(msg)

	ext := Extraction{
		Keywords:    extractKeywords(msg, words),
		Categories:  catalog.DetectCategories(msg),
		Concerns:    catalog.DetectConcerns(msg),
		Brands:      catalog.DetectBrands(msg),
		Ingredients: catalog.DetectIngredients(msg),
		Intent:      detectIntent(msg),
		Urgency:     detectUrgency(msg),
	}
	ext.Preferences = ext.Ingredients
	ext.PriceRange, ext.PriceBucket = detectPrice(msg)
	return ext
}

// extractKeywords takes the content words following each need/want/looking/for
// trigger plus every remaining content token of four or more characters.
func extractKeywords(msg string, words []string) []string {
	var keywords []string
	seen := make(map[string]bool)
	add := func(w string) {
		if len(w) < 3 || stopwords[w] || triggerWords[w] || intentWords[w] || seen[w] {
			return
		}
		seen[w] = true
		keywords = append(keywords, w)
	}

	for i, w := range words {
		if !triggerWords[w] {
			continue
		}
		taken := 0
		for j := i + 1; j < len(words) && taken < 2; j++ {
			next := words[j]
			if len(next) < 3 || stopwords[next] || triggerWords[next] || intentWords[next] {
				continue
			}
			add(next)
			taken++
		}
	}
	for _, w := range words {
		if len(w) >= 4 {
			add(w)
		}
	}
	return keywords
}

func detectIntent(msg string) Intent {
	switch {
	case containsAny(msg, "buy", "purchase", "take it", "order", "checkout"):
		return IntentBuy
	case containsAny(msg, "compare", "versus", " vs ", "difference between"):
		return IntentCompare
	case containsAny(msg, "recommend", "suggest", "best for", "which one"):
		return IntentRecommend
	default:
		return IntentInquire
	}
}

func detectUrgency(msg string) Urgency {
	switch {
	case containsAny(msg, "asap", "urgent", "urgently", "today", "right now", "immediately"):
		return UrgencyHigh
	case containsAny(msg, "soon", "this week", "quickly"):
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// detectPrice resolves an explicit dollar constraint first, then a named
// bucket word. Explicit numbers win over vague bucket language.
func detectPrice(msg string) (*catalog.PriceRange, string) {
	if m := betweenRe.FindStringSubmatch(msg); m != nil {
		return &catalog.PriceRange{Min: parseFloat(m[1]), Max: parseFloat(m[2])}, ""
	}
	if m := underRe.FindStringSubmatch(msg); m != nil {
		return &catalog.PriceRange{Min: 0, Max: parseFloat(m[1])}, ""
	}
	if m := overRe.FindStringSubmatch(msg); m != nil {
		return &catalog.PriceRange{Min: parseFloat(m[1]), Max: 10000}, ""
	}
	if m := aroundRe.FindStringSubmatch(msg); m != nil {
		v := parseFloat(m[1])
		return &catalog.PriceRange{Min: v * 0.8, Max: v * 1.2}, ""
	}

	var bucket string
	switch {
	case containsAny(msg, "budget", "cheap", "inexpensive"):
		bucket = "budget"
	case containsAny(msg, "luxury", "premium", "high-end"):
		bucket = "luxury"
	case containsAny(msg, "mid-range", "moderate"):
		bucket = "mid_range"
	case containsAny(msg, "affordable"):
		bucket = "affordable"
	}
	if bucket != "" {
		r := catalog.PriceBuckets[bucket]
		return &r, bucket
	}
	return nil, ""
}

func containsAny(msg string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(msg, t) {
			return true
		}
	}
	return false
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
