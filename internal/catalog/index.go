package catalog

import (
	"strings"
	"unicode"
)

// minNameGram is the shortest name substring worth indexing. Shorter grams
// produce too many accidental hits ("gel" is inside "angelica").
const minNameGram = 4

// Index is the read-only lookup structure the matcher works against. Built
// once per catalog load and swapped atomically by the refresher; never
// mutated after Build returns. An empty catalog yields a usable index that
// answers every lookup with nothing.
type Index struct {
	products []Product

	byID         map[string]*Product
	byNameGram   map[string][]*Product
	byCategory   map[string][]*Product
	byConcern    map[string][]*Product
	byBrand      map[string][]*Product
	byIngredient map[string][]*Product
	byBucket     map[string][]*Product
}

func NewIndex(products []Product) *Index {
	idx := &Index{
		products:     products,
		byID:         make(map[string]*Product, len(products)),
		byNameGram:   make(map[string][]*Product),
		byCategory:   make(map[string][]*Product),
		byConcern:    make(map[string][]*Product),
		byBrand:      make(map[string][]*Product),
		byIngredient: make(map[string][]*Product),
		byBucket:     make(map[string][]*Product),
	}

	for i := range idx.products {
		p := &idx.products[i]
		idx.byID[p.ID] = p
		idx.indexName(p)
		idx.indexKeywordTables(p)
		idx.indexPrice(p)
	}
	return idx
}

func (idx *Index) indexName(p *Product) {
	seen := make(map[string]bool)
	add := func(gram string) {
		if seen[gram] {
			return
		}
		seen[gram] = true
		idx.byNameGram[gram] = append(idx.byNameGram[gram], p)
	}

	name := strings.ToLower(p.Name)
	add(name)
	for _, word := range tokenize(name) {
		if len(word) < minNameGram {
			add(word)
			continue
		}
		for start := 0; start+minNameGram <= len(word); start++ {
			for end := start + minNameGram; end <= len(word); end++ {
				add(word[start:end])
			}
		}
	}
}

func (idx *Index) indexKeywordTables(p *Product) {
	text := strings.ToLower(p.Name + " " + p.Description + " " + p.Category + " " + strings.Join(p.Tags, " "))

	for _, category := range DetectCategories(text) {
		idx.byCategory[category] = append(idx.byCategory[category], p)
	}
	for _, concern := range DetectConcerns(text) {
		idx.byConcern[concern] = append(idx.byConcern[concern], p)
	}

	ingredientText := text + " " + strings.ToLower(strings.Join(p.Ingredients, " "))
	for _, ingredient := range DetectIngredients(ingredientText) {
		idx.byIngredient[ingredient] = append(idx.byIngredient[ingredient], p)
	}

	if brand := strings.ToLower(strings.TrimSpace(p.Brand)); brand != "" {
		idx.byBrand[brand] = append(idx.byBrand[brand], p)
	}
}

func (idx *Index) indexPrice(p *Product) {
	price := p.EffectivePrice()
	for bucket, r := range PriceBuckets {
		if price >= r.Min && price <= r.Max {
			idx.byBucket[bucket] = append(idx.byBucket[bucket], p)
		}
	}
}

// Size returns the number of indexed products.
func (idx *Index) Size() int { return len(idx.products) }

// Products returns every indexed product. Callers must treat the slice as
// read-only.
func (idx *Index) Products() []Product { return idx.products }

// ByID returns the indexed product with the given id, or nil.
func (idx *Index) ByID(id string) *Product { return idx.byID[id] }

// MatchName returns products whose name contains the given lowercase token
// or a word substring of it.
func (idx *Index) MatchName(token string) []*Product { return idx.byNameGram[token] }

// ByCategory returns products indexed under a canonical category label.
func (idx *Index) ByCategory(category string) []*Product { return idx.byCategory[category] }

// ByConcern returns products indexed under a canonical concern label.
func (idx *Index) ByConcern(concern string) []*Product { return idx.byConcern[concern] }

// ByBrand returns products of the given lowercase brand.
func (idx *Index) ByBrand(brand string) []*Product { return idx.byBrand[brand] }

// ByIngredient returns products indexed under a canonical ingredient label.
func (idx *Index) ByIngredient(ingredient string) []*Product { return idx.byIngredient[ingredient] }

// InBucket returns products whose effective price falls inside a named bucket.
func (idx *Index) InBucket(bucket string) []*Product { return idx.byBucket[bucket] }

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
