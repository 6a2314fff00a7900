package catalog

import "github.com/shopspring/decimal"

// Product is a storefront product record. The cart/checkout core only
// consumes id, slug, name, unit price, optional per-variant price/stock and
// image reference; the rest is carried for the browsing pages.
type Product struct {
	ID          string           `json:"id"`
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	ImageURL    string           `json:"image_url,omitempty"`
	CategoryID  string           `json:"category_id,omitempty"`
	BrandID     string           `json:"brand_id,omitempty"`
	Variants    []ProductVariant `json:"variants,omitempty"`
}

// ProductVariant is a specific option of a product. Price and Stock are
// optional overrides of the product-level values.
type ProductVariant struct {
	Key   string           `json:"key"`
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock,omitempty"`
}

// UnitPrice resolves the effective price for a variant selection. An empty
// key or an unknown variant falls back to the product price.
func (p Product) UnitPrice(variantKey string) decimal.Decimal {
	if variantKey == "" {
		return p.Price
	}
	for _, v := range p.Variants {
		if v.Key == variantKey && v.Price != nil {
			return *v.Price
		}
	}
	return p.Price
}

type Category struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Brand struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
