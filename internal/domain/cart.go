package domain

import "github.com/shopspring/decimal"

// CartLine is one product in the cart. A cart holds at most one line per product ID.
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal is price times quantity for the line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartState keeps Total and ItemCount consistent with Items after every transition.
type CartState struct {
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func EmptyCart() CartState {
	return CartState{Items: []CartLine{}, Total: decimal.Zero}
}

func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// Clone returns a copy that shares no backing array with s.
func (s CartState) Clone() CartState {
	items := make([]CartLine, len(s.Items))
	copy(items, s.Items)
	return CartState{Items: items, Total: s.Total, ItemCount: s.ItemCount}
}

func (s CartState) Find(productID string) (CartLine, int, bool) {
	for i, line := range s.Items {
		if line.ID == productID {
			return line, i, true
		}
	}
	return CartLine{}, -1, false
}
