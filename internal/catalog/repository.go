package catalog

import (
	"context"
	"database/sql"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

// ProductRepository reads the catalog from the products table. The storefront
// loads it once at startup; nothing writes through it.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, image, category
		FROM products
		ORDER BY position, id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Category); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// Load builds a Catalog from the table contents.
func (r *ProductRepository) Load(ctx context.Context) (*Catalog, error) {
	products, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return New(products)
}
