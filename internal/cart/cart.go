package cart

import (
	"github.com/shopspring/decimal"
)

// Line is one distinct purchasable selection in the cart. Identity is the
// (ProductID, VariantKey) pair; everything else is display metadata or
// derived.
type Line struct {
	ProductID   string          `json:"product_id"`
	VariantKey  string          `json:"variant_key,omitempty"`
	VariantName string          `json:"variant_name,omitempty"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// matches reports whether the line carries the given identity key.
func (l Line) matches(productID, variantKey string) bool {
	return l.ProductID == productID && l.VariantKey == variantKey
}

// recompute refreshes LineTotal from its inputs. LineTotal is never trusted
// independently of UnitPrice and Quantity.
func (l *Line) recompute() {
	l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is the cart contents at a point in time, with derived aggregates.
type Snapshot struct {
	Lines      []Line          `json:"lines"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func totalItems(lines []Line) int {
	var n int
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func totalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total
}
