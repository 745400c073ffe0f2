package domain

import "github.com/shopspring/decimal"

type Category string

const (
	CategoryNoodles Category = "noodles"
	CategorySauces  Category = "sauces"
)

func (c Category) Valid() bool {
	return c == CategoryNoodles || c == CategorySauces
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    Category        `json:"category"`
}
