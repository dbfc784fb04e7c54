package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/glowcart/salesagent/internal/catalog"
)

type MatchType string

const (
	MatchDirect     MatchType = "direct"
	MatchCategory   MatchType = "category"
	MatchConcern    MatchType = "concern"
	MatchBrand      MatchType = "brand"
	MatchIngredient MatchType = "ingredient"
	MatchPrice      MatchType = "price"
)

// ProductMatch is one scored candidate. The product pointer is shared with
// the index; matches are recomputed every turn and never persisted.
type ProductMatch struct {
	Product    *catalog.Product
	Score      float64
	Reasons    []string
	MatchTypes []MatchType
}

// Factor weights. Brand is not a weighted factor: an exact brand token is a
// high-confidence signal and contributes a flat 0.8.
const (
	weightDirect     = 0.35
	weightConcern    = 0.20
	weightTagOverlap = 0.15
	weightCategory   = 0.10
	weightPrice      = 0.10
	weightIngredient = 0.10
	brandScore       = 0.80

	priceInRange    = 1.0
	priceBelowRange = 0.3
	priceAboveRange = 0.5

	buyMultiplier     = 1.2
	compareMultiplier = 0.9
	urgencyMultiplier = 1.1

	minScore = 0.1
)

// Matcher scores catalog entries against an extraction. Stateless apart from
// the result cap; safe for concurrent use.
type Matcher struct {
	topN int
}

func NewMatcher(topN int) *Matcher {
	if topN <= 0 {
		topN = 7
	}
	return &Matcher{topN: topN}
}

// Match returns the top-N products ranked by weighted score, deduplicated by
// id with summed scores capped at 1.0 and unioned reasons. An empty index
// yields an empty result.
func (m *Matcher) Match(ext Extraction, idx *catalog.Index) []ProductMatch {
	if idx == nil || idx.Size() == 0 {
		return nil
	}

	var candidates []ProductMatch
	candidates = append(candidates, m.matchDirect(ext, idx)...)
	candidates = append(candidates, m.matchCategories(ext, idx)...)
	candidates = append(candidates, m.matchConcerns(ext, idx)...)
	candidates = append(candidates, m.matchBrands(ext, idx)...)
	candidates = append(candidates, m.matchIngredients(ext, idx)...)
	candidates = append(candidates, m.matchBucket(ext, idx)...)

	merged := m.dedupe(candidates, ext)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > m.topN {
		merged = merged[:m.topN]
	}
	return merged
}

// matchDirect scores keyword hits against product name and description,
// normalized by the number of extracted keywords. Name hits come from the
// index's n-gram table; only descriptions are scanned directly.
func (m *Matcher) matchDirect(ext Extraction, idx *catalog.Index) []ProductMatch {
	if len(ext.Keywords) == 0 {
		return nil
	}

	perProduct := make(map[string]*ProductMatch)
	var order []string
	hit := func(p *catalog.Product, kw string) {
		match, ok := perProduct[p.ID]
		if !ok {
			match = &ProductMatch{Product: p, MatchTypes: []MatchType{MatchDirect}}
			perProduct[p.ID] = match
			order = append(order, p.ID)
		}
		match.Score += weightDirect / float64(len(ext.Keywords))
		match.Reasons = append(match.Reasons, fmt.Sprintf("contains %q", kw))
	}

	products := idx.Products()
	for _, kw := range ext.Keywords {
		counted := make(map[string]bool)
		for _, p := range idx.MatchName(kw) {
			counted[p.ID] = true
			hit(p, kw)
		}
		for i := range products {
			p := &products[i]
			if counted[p.ID] {
				continue
			}
			if strings.Contains(strings.ToLower(p.Description), kw) {
				hit(p, kw)
			}
		}
	}

	matches := make([]ProductMatch, 0, len(order))
	for _, id := range order {
		matches = append(matches, *perProduct[id])
	}
	return matches
}

// matchCategories awards the category weight for an index category hit and
// the tag-overlap weight when extracted keywords intersect product tags.
func (m *Matcher) matchCategories(ext Extraction, idx *catalog.Index) []ProductMatch {
	var matches []ProductMatch
	for _, category := range ext.Categories {
		for _, p := range idx.ByCategory(category) {
			match := ProductMatch{
				Product:    p,
				Score:      weightCategory,
				Reasons:    []string{fmt.Sprintf("category match: %s", category)},
				MatchTypes: []MatchType{MatchCategory},
			}
			if overlap := tagOverlap(ext.Keywords, p.Tags); overlap > 0 {
				match.Score += weightTagOverlap * overlap
				match.Reasons = append(match.Reasons, "tag overlap")
			}
			matches = append(matches, match)
		}
	}
	return matches
}

func (m *Matcher) matchConcerns(ext Extraction, idx *catalog.Index) []ProductMatch {
	if len(ext.Concerns) == 0 {
		return nil
	}

	perProduct := make(map[string]*ProductMatch)
	var order []string
	for _, concern := range ext.Concerns {
		for _, p := range idx.ByConcern(concern) {
			match, ok := perProduct[p.ID]
			if !ok {
				match = &ProductMatch{Product: p, MatchTypes: []MatchType{MatchConcern}}
				perProduct[p.ID] = match
				order = append(order, p.ID)
			}
			match.Score += weightConcern / float64(len(ext.Concerns))
			match.Reasons = append(match.Reasons, fmt.Sprintf("addresses %s", concern))
		}
	}

	matches := make([]ProductMatch, 0, len(order))
	for _, id := range order {
		matches = append(matches, *perProduct[id])
	}
	return matches
}

func (m *Matcher) matchBrands(ext Extraction, idx *catalog.Index) []ProductMatch {
	var matches []ProductMatch
	for _, brand := range ext.Brands {
		for _, p := range idx.ByBrand(brand) {
			matches = append(matches, ProductMatch{
				Product:    p,
				Score:      brandScore,
				Reasons:    []string{fmt.Sprintf("brand match: %s", brand)},
				MatchTypes: []MatchType{MatchBrand},
			})
		}
	}
	return matches
}

func (m *Matcher) matchIngredients(ext Extraction, idx *catalog.Index) []ProductMatch {
	if len(ext.Ingredients) == 0 {
		return nil
	}

	var matches []ProductMatch
	for _, ingredient := range ext.Ingredients {
		for _, p := range idx.ByIngredient(ingredient) {
			matches = append(matches, ProductMatch{
				Product:    p,
				Score:      weightIngredient / float64(len(ext.Ingredients)),
				Reasons:    []string{fmt.Sprintf("contains %s", ingredient)},
				MatchTypes: []MatchType{MatchIngredient},
			})
		}
	}
	return matches
}

// matchBucket credits products whose effective price sits in the named
// bucket when the message used vague price words instead of numbers.
func (m *Matcher) matchBucket(ext Extraction, idx *catalog.Index) []ProductMatch {
	if ext.PriceBucket == "" {
		return nil
	}

	var matches []ProductMatch
	for _, p := range idx.InBucket(ext.PriceBucket) {
		matches = append(matches, ProductMatch{
			Product:    p,
			Score:      weightPrice,
			Reasons:    []string{fmt.Sprintf("fits %s pricing", ext.PriceBucket)},
			MatchTypes: []MatchType{MatchPrice},
		})
	}
	return matches
}

// dedupe merges candidates by product id, summing scores capped at 1.0 and
// unioning reasons and match types, then applies the price factor and intent
// and urgency multipliers and drops anything below the score floor.
func (m *Matcher) dedupe(candidates []ProductMatch, ext Extraction) []ProductMatch {
	perProduct := make(map[string]*ProductMatch)
	var order []string

	for i := range candidates {
		c := &candidates[i]
		merged, ok := perProduct[c.Product.ID]
		if !ok {
			copied := ProductMatch{Product: c.Product}
			perProduct[c.Product.ID] = &copied
			order = append(order, c.Product.ID)
			merged = &copied
		}
		merged.Score += c.Score
		merged.Reasons = appendUnique(merged.Reasons, c.Reasons)
		merged.MatchTypes = unionTypes(merged.MatchTypes, c.MatchTypes)
	}

	out := make([]ProductMatch, 0, len(order))
	for _, id := range order {
		match := perProduct[id]
		if match.Score > 1.0 {
			match.Score = 1.0
		}

		// Bucket credit already entered the sum; the compatibility factor
		// applies to explicit numeric constraints only.
		if ext.PriceRange != nil && ext.PriceBucket == "" {
			compat := priceCompatibility(match.Product.EffectivePrice(), *ext.PriceRange)
			match.Score += weightPrice * compat
			if compat == priceInRange {
				match.Reasons = append(match.Reasons, "within price range")
			}
		}

		switch ext.Intent {
		case IntentBuy:
			match.Score *= buyMultiplier
		case IntentCompare:
			match.Score *= compareMultiplier
		}
		if ext.Urgency == UrgencyHigh {
			match.Score *= urgencyMultiplier
		}

		if match.Score > 1.0 {
			match.Score = 1.0
		}
		if match.Score < minScore {
			continue
		}
		out = append(out, *match)
	}
	return out
}

func priceCompatibility(price float64, r catalog.PriceRange) float64 {
	switch {
	case price >= r.Min && price <= r.Max:
		return priceInRange
	case price < r.Min:
		return priceBelowRange
	default:
		return priceAboveRange
	}
}

func tagOverlap(keywords, tags []string) float64 {
	if len(keywords) == 0 || len(tags) == 0 {
		return 0
	}
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[strings.ToLower(t)] = true
	}
	hits := 0
	for _, kw := range keywords {
		if tagSet[kw] {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func appendUnique(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}

func unionTypes(dst, src []MatchType) []MatchType {
	seen := make(map[MatchType]bool, len(dst))
	for _, t := range dst {
		seen[t] = true
	}
	for _, t := range src {
		if !seen[t] {
			seen[t] = true
			dst = append(dst, t)
		}
	}
	return dst
}
