package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ConnectPostgres opens and pings a PostgreSQL connection.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// PostgresRepository reads catalog records from PostgreSQL.
//
// Expected tables:
//
//	products(id, slug, name, description, price, image_url, category_id, brand_id)
//	product_variants(product_id, variant_key, name, price, stock)
//	categories(id, slug, name, description)
//	brands(id, slug, name, description)
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `id, slug, name, COALESCE(description, ''), price::text, COALESCE(image_url, ''), COALESCE(category_id, ''), COALESCE(brand_id, '')`

func (r *PostgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY name`)
}

func (r *PostgresRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadVariants(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) ListProductsByCategory(ctx context.Context, categorySlug string) ([]Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE category_id = (SELECT id FROM categories WHERE slug = $1)
		 ORDER BY name`, categorySlug)
}

func (r *PostgresRepository) ListProductsByBrand(ctx context.Context, brandSlug string) ([]Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE brand_id = (SELECT id FROM brands WHERE slug = $1)
		 ORDER BY name`, brandSlug)
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, name, COALESCE(description, '') FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PostgresRepository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name, COALESCE(description, '') FROM categories WHERE slug = $1`, slug).
		Scan(&c.ID, &c.Slug, &c.Name, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, name, COALESCE(description, '') FROM brands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []Brand
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Slug, &b.Name, &b.Description); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (r *PostgresRepository) GetBrandBySlug(ctx context.Context, slug string) (*Brand, error) {
	var b Brand
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name, COALESCE(description, '') FROM brands WHERE slug = $1`, slug).
		Scan(&b.ID, &b.Slug, &b.Name, &b.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// loadVariants attaches per-variant price/stock overrides to a product.
func (r *PostgresRepository) loadVariants(ctx context.Context, p *Product) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT variant_key, name, price::text, stock
		 FROM product_variants WHERE product_id = $1 ORDER BY variant_key`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var v ProductVariant
		var price sql.NullString
		var stock sql.NullInt64
		if err := rows.Scan(&v.Key, &v.Name, &price, &stock); err != nil {
			return err
		}
		if price.Valid {
			d, err := decimal.NewFromString(price.String)
			if err != nil {
				return fmt.Errorf("invalid variant price for product %s: %w", p.ID, err)
			}
			v.Price = &d
		}
		if stock.Valid {
			n := int(stock.Int64)
			v.Stock = &n
		}
		p.Variants = append(p.Variants, v)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &price, &p.ImageURL, &p.CategoryID, &p.BrandID); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price for product %s: %w", p.ID, err)
	}
	p.Price = d
	return &p, nil
}
