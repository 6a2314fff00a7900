package catalog

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory catalog used in tests and local
// development when no database is configured.
type MemoryRepository struct {
	mu         sync.RWMutex
	products   []Product
	categories []Category
	brands     []Brand
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) AddProduct(p Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = append(r.products, p)
}

func (r *MemoryRepository) AddCategory(c Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = append(r.categories, c)
}

func (r *MemoryRepository) AddBrand(b Brand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brands = append(r.brands, b)
}

func (r *MemoryRepository) ListProducts(ctx context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Product(nil), r.products...), nil
}

func (r *MemoryRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.Slug == slug {
			product := p
			return &product, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListProductsByCategory(ctx context.Context, categorySlug string) ([]Product, error) {
	category, err := r.GetCategoryBySlug(ctx, categorySlug)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	products := make([]Product, 0)
	for _, p := range r.products {
		if p.CategoryID == category.ID {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r *MemoryRepository) ListProductsByBrand(ctx context.Context, brandSlug string) ([]Product, error) {
	brand, err := r.GetBrandBySlug(ctx, brandSlug)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	products := make([]Product, 0)
	for _, p := range r.products {
		if p.BrandID == brand.ID {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r *MemoryRepository) ListCategories(ctx context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Category(nil), r.categories...), nil
}

func (r *MemoryRepository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.categories {
		if c.Slug == slug {
			category := c
			return &category, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListBrands(ctx context.Context) ([]Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Brand(nil), r.brands...), nil
}

func (r *MemoryRepository) GetBrandBySlug(ctx context.Context, slug string) (*Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.brands {
		if b.Slug == slug {
			brand := b
			return &brand, nil
		}
	}
	return nil, ErrNotFound
}
