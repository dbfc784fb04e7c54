package catalog

import "time"

// Product is a single catalog entry. Products are immutable once loaded into
// an index; the refresher replaces the whole index instead of mutating rows.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Tags        []string  `json:"tags,omitempty"`
	Ingredients []string  `json:"ingredients,omitempty"`
	Price       float64   `json:"price"`
	SalePrice   *float64  `json:"sale_price,omitempty"`
	Rating      float64   `json:"rating"`
	StockCount  int       `json:"stock_count"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EffectivePrice returns the sale price when one is set, the list price otherwise.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice != nil && *p.SalePrice > 0 && *p.SalePrice < p.Price {
		return *p.SalePrice
	}
	return p.Price
}
