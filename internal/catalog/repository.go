package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog record not found")

// Repository is the content read interface: product, category and brand
// records by slug or listing. The backing content store is opaque to the
// cart/checkout core.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProductsByCategory(ctx context.Context, categorySlug string) ([]Product, error)
	ListProductsByBrand(ctx context.Context, brandSlug string) ([]Product, error)

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)

	ListBrands(ctx context.Context) ([]Brand, error)
	GetBrandBySlug(ctx context.Context, slug string) (*Brand, error)
}
