package catalog

import (
	"sort"
	"strings"
)

// Static synonym dictionaries for the beauty catalog. Keys are canonical
// labels; values are the surface forms customers actually type. Shared by the
// index builder and the keyword extractor so both sides resolve to the same
// canonical labels.

var CategorySynonyms = map[string][]string{
	"cleanser":    {"cleanser", "cleansing", "face wash", "foam", "gel", "micellar", "oil cleanser"},
	"moisturizer": {"moisturizer", "cream", "lotion", "hydrating", "hydration", "moisture", "hydrator"},
	"serum":       {"serum", "essence", "treatment", "concentrate", "ampoule"},
	"sunscreen":   {"sunscreen", "spf", "sun protection", "uv protection", "sunblock"},
	"toner":       {"toner", "astringent", "facial water", "refreshing", "balancing"},
	"mask":        {"mask", "masque", "sheet mask", "clay mask", "treatment mask"},
	"eye_cream":   {"eye cream", "eye serum", "eye gel", "under eye", "eye care"},
	"exfoliant":   {"exfoliant", "scrub", "peeling", "aha", "bha", "salicylic", "glycolic"},
	"oil":         {"face oil", "facial oil", "argan", "jojoba", "rosehip"},
	"shampoo":     {"shampoo", "hair wash", "conditioner", "hair care"},
	"makeup":      {"foundation", "concealer", "lipstick", "eyeshadow", "mascara", "blush"},
}

var ConcernSynonyms = map[string][]string{
	"acne":         {"acne", "breakout", "pimple", "blemish", "blackhead", "whitehead", "oily"},
	"aging":        {"aging", "anti-aging", "wrinkle", "fine lines", "mature skin", "firmness"},
	"dry_skin":     {"dry", "dehydrated", "flaky", "tight", "rough", "parched"},
	"sensitive":    {"sensitive", "irritated", "reactive", "gentle", "soothing", "calming"},
	"pigmentation": {"dark spots", "hyperpigmentation", "melasma", "uneven tone"},
	"dullness":     {"dull", "lackluster", "radiance", "glow", "brightening", "luminous"},
	"large_pores":  {"pores", "enlarged pores", "minimizing", "refining"},
	"redness":      {"redness", "rosacea", "inflammation", "irritation"},
}

var IngredientSynonyms = map[string][]string{
	"hyaluronic_acid": {"hyaluronic acid", "hyaluronic"},
	"vitamin_c":       {"vitamin c", "ascorbic acid", "l-ascorbic"},
	"retinol":         {"retinol", "retinoid", "vitamin a", "tretinoin"},
	"niacinamide":     {"niacinamide", "vitamin b3", "nicotinamide"},
	"salicylic_acid":  {"salicylic acid", "beta hydroxy"},
	"glycolic_acid":   {"glycolic acid", "alpha hydroxy"},
	"peptides":        {"peptides", "matrixyl", "argireline"},
	"ceramides":       {"ceramides", "barrier repair", "moisture barrier"},
	"natural":         {"natural", "organic", "plant-based", "botanical", "herbal"},
	"sulfate_free":    {"sulfate-free", "sls-free", "no sulfates"},
}

// KnownBrands are brand tokens recognized during extraction. Brand names in
// the catalog itself are indexed regardless of this list.
var KnownBrands = []string{
	"cetaphil", "neutrogena", "cerave", "olay", "l'oreal", "maybelline",
	"clinique", "estee lauder", "the ordinary", "paula's choice",
}

// PriceRange is an inclusive [Min, Max] bucket in the catalog currency.
type PriceRange struct {
	Min float64
	Max float64
}

// Bucket boundaries overlap on purpose: "affordable" straddles budget and
// mid_range so a vague constraint still admits nearby products.
var PriceBuckets = map[string]PriceRange{
	"budget":     {Min: 0, Max: 25},
	"affordable": {Min: 10, Max: 50},
	"mid_range":  {Min: 25, Max: 100},
	"luxury":     {Min: 75, Max: 200},
	"premium":    {Min: 150, Max: 500},
}

// detectAll walks the table in sorted key order so extracted labels, and the
// match reasons built from them, come out in a stable order.
func detectAll(text string, table map[string][]string) []string {
	keys := make([]string, 0, len(table))
	for canonical := range table {
		keys = append(keys, canonical)
	}
	sort.Strings(keys)

	var found []string
	for _, canonical := range keys {
		for _, form := range table[canonical] {
			if strings.Contains(text, form) {
				found = append(found, canonical)
				break
			}
		}
	}
	return found
}

// DetectCategories returns canonical category labels whose synonyms appear in
// the lowercased text.
func DetectCategories(text string) []string { return detectAll(text, CategorySynonyms) }

// DetectConcerns returns canonical concern labels found in the lowercased text.
func DetectConcerns(text string) []string { return detectAll(text, ConcernSynonyms) }

// DetectIngredients returns canonical ingredient labels found in the lowercased text.
func DetectIngredients(text string) []string { return detectAll(text, IngredientSynonyms) }

// DetectBrands returns known brand tokens found in the lowercased text.
func DetectBrands(text string) []string {
	var found []string
	for _, brand := range KnownBrands {
		if strings.Contains(text, brand) {
			found = append(found, brand)
		}
	}
	return found
}
