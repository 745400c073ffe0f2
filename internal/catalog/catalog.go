package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

//go:embed products.json
var defaultProducts []byte

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

// Catalog is the read-only product list loaded once at startup.
type Catalog struct {
	products []domain.Product
	byID     map[string]int
}

func New(products []domain.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: missing id", ErrInvalidProduct)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidProduct, p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("%w: %s has negative price", ErrInvalidProduct, p.ID)
		}
		if !p.Category.Valid() {
			return nil, fmt.Errorf("%w: %s has unknown category %q", ErrInvalidProduct, p.ID, p.Category)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// ParseJSON builds a catalog from a products.json document.
func ParseJSON(data []byte) (*Catalog, error) {
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return New(products)
}

// Default is the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return ParseJSON(defaultProducts)
}

func (c *Catalog) Get(id string) (domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}

type Filter struct {
	Category domain.Category
	Query    string
}

// List returns products matching the category (empty means all) whose name
// or description contains the query, case-insensitively.
func (c *Catalog) List(f Filter) []domain.Product {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Counts returns the number of products per category plus the overall total
// under the "all" key.
func (c *Catalog) Counts() map[string]int {
	counts := map[string]int{"all": len(c.products)}
	for _, p := range c.products {
		counts[string(p.Category)]++
	}
	return counts
}
