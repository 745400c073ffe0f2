package cart

import (
	"github.com/shopspring/decimal"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

// Action is one of the four cart transitions.
type Action interface {
	apply(state domain.CartState) domain.CartState
}

type AddToCart struct {
	Product domain.Product
}

type RemoveFromCart struct {
	ProductID string
}

type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

type ClearCart struct{}

// Reduce returns the state after applying action. The input state is never
// modified; unknown product IDs leave the state unchanged.
func Reduce(state domain.CartState, action Action) domain.CartState {
	return action.apply(state)
}

func (a AddToCart) apply(state domain.CartState) domain.CartState {
	next := state.Clone()
	if _, i, ok := state.Find(a.Product.ID); ok {
		next.Items[i].Quantity++
	} else {
		next.Items = append(next.Items, domain.CartLine{Product: a.Product, Quantity: 1})
	}
	next.Total = state.Total.Add(a.Product.Price)
	next.ItemCount = state.ItemCount + 1
	return next
}

func (a RemoveFromCart) apply(state domain.CartState) domain.CartState {
	line, i, ok := state.Find(a.ProductID)
	if !ok {
		return state
	}

	items := make([]domain.CartLine, 0, len(state.Items)-1)
	items = append(items, state.Items[:i]...)
	items = append(items, state.Items[i+1:]...)

	return domain.CartState{
		Items:     items,
		Total:     state.Total.Sub(line.Subtotal()),
		ItemCount: state.ItemCount - line.Quantity,
	}
}

func (a UpdateQuantity) apply(state domain.CartState) domain.CartState {
	line, i, ok := state.Find(a.ProductID)
	if !ok {
		return state
	}
	if a.Quantity <= 0 {
		return RemoveFromCart{ProductID: a.ProductID}.apply(state)
	}

	delta := a.Quantity - line.Quantity
	next := state.Clone()
	next.Items[i].Quantity = a.Quantity
	next.Total = state.Total.Add(line.Price.Mul(decimal.NewFromInt(int64(delta))))
	next.ItemCount = state.ItemCount + delta
	return next
}

func (ClearCart) apply(domain.CartState) domain.CartState {
	return domain.EmptyCart()
}
