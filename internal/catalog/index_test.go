package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProducts() []Product {
	sale := 19.99
	return []Product{
		{
			ID:          "p1",
			Name:        "Gentle Foam Cleanser",
			Description: "A gentle face wash for sensitive, acne-prone skin",
			Category:    "cleanser",
			Brand:       "CeraVe",
			Tags:        []string{"gentle", "sensitive"},
			Ingredients: []string{"ceramides", "niacinamide"},
			Price:       24.99,
			Rating:      4.7,
			StockCount:  12,
			IsActive:    true,
		},
		{
			ID:          "p2",
			Name:        "Retinol Night Serum",
			Description: "Anti-aging serum with retinol for fine lines",
			Category:    "serum",
			Brand:       "The Ordinary",
			Price:       89.00,
			Rating:      4.5,
			StockCount:  5,
			IsActive:    true,
		},
		{
			ID:          "p3",
			Name:        "Hydrating Shampoo",
			Description: "Shampoo for dry and oily hair",
			Category:    "shampoo",
			Brand:       "Olay",
			Price:       34.99,
			SalePrice:   &sale,
			Rating:      4.2,
			StockCount:  30,
			IsActive:    true,
		},
	}
}

func TestIndex_ByID(t *testing.T) {
	idx := NewIndex(testProducts())

	p := idx.ByID("p2")
	require.NotNil(t, p)
	assert.Equal(t, "Retinol Night Serum", p.Name)

	assert.Nil(t, idx.ByID("missing"))
}

func TestIndex_MatchName(t *testing.T) {
	idx := NewIndex(testProducts())

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"full word", "cleanser", "p1"},
		{"word substring", "clean", "p1"},
		{"inner substring", "ampoo", "p3"},
		{"full name", "retinol night serum", "p2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := idx.MatchName(tt.token)
			require.NotEmpty(t, matches)
			assert.Equal(t, tt.want, matches[0].ID)
		})
	}

	assert.Empty(t, idx.MatchName("xyz"))
}

func TestIndex_SynonymTables(t *testing.T) {
	idx := NewIndex(testProducts())

	// "face wash" in p1's description maps to the cleanser category.
	cleansers := idx.ByCategory("cleanser")
	require.Len(t, cleansers, 1)
	assert.Equal(t, "p1", cleansers[0].ID)

	// p1 mentions "acne-prone" and "sensitive", p3 mentions "oily".
	acne := idx.ByConcern("acne")
	ids := make([]string, 0, len(acne))
	for _, p := range acne {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"p1", "p3"}, ids)

	ceramides := idx.ByIngredient("ceramides")
	require.Len(t, ceramides, 1)
	assert.Equal(t, "p1", ceramides[0].ID)
}

func TestIndex_ByBrand(t *testing.T) {
	idx := NewIndex(testProducts())

	matches := idx.ByBrand("the ordinary")
	require.Len(t, matches, 1)
	assert.Equal(t, "p2", matches[0].ID)
}

func TestIndex_PriceBuckets(t *testing.T) {
	idx := NewIndex(testProducts())

	// p1 at 24.99 and p3 at its 19.99 sale price both land in budget.
	budget := idx.InBucket("budget")
	ids := make([]string, 0, len(budget))
	for _, p := range budget {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"p1", "p3"}, ids)

	// p2 at 89.00 sits in mid_range and luxury.
	mid := idx.InBucket("mid_range")
	require.Len(t, mid, 1)
	assert.Equal(t, "p2", mid[0].ID)

	luxury := idx.InBucket("luxury")
	require.Len(t, luxury, 1)
	assert.Equal(t, "p2", luxury[0].ID)
}

func TestIndex_EmptyCatalog(t *testing.T) {
	idx := NewIndex(nil)

	assert.Equal(t, 0, idx.Size())
	assert.Empty(t, idx.MatchName("cleanser"))
	assert.Empty(t, idx.ByCategory("cleanser"))
	assert.Empty(t, idx.InBucket("budget"))
	assert.Nil(t, idx.ByID("p1"))
}

func TestEffectivePrice(t *testing.T) {
	sale := 19.99
	p := Product{Price: 34.99, SalePrice: &sale}
	assert.Equal(t, 19.99, p.EffectivePrice())

	p.SalePrice = nil
	assert.Equal(t, 34.99, p.EffectivePrice())

	higher := 40.0
	p.SalePrice = &higher
	assert.Equal(t, 34.99, p.EffectivePrice())
}

func TestDetectCategories_StableOrder(t *testing.T) {
	text := "a hydrating serum and a shampoo"

	first := DetectCategories(text)
	assert.Equal(t, []string{"moisturizer", "serum", "shampoo"}, first)

	// Detection order never varies between calls.
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DetectCategories(text))
	}
}

func TestDetectBrands(t *testing.T) {
	brands := DetectBrands("i prefer cerave or the ordinary")
	assert.ElementsMatch(t, []string{"cerave", "the ordinary"}, brands)
}
