package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

var ErrInconsistentState = errors.New("cart totals do not match its lines")

// Store holds one session's cart. Mutations are serialised and readers only
// ever receive copies, so no caller observes a half-applied transition.
type Store struct {
	mu    sync.RWMutex
	state domain.CartState
}

func NewStore() *Store {
	return &Store{state: domain.EmptyCart()}
}

// Restore rebuilds a store from a persisted snapshot after checking that the
// derived fields still agree with the lines.
func Restore(state domain.CartState) (*Store, error) {
	if err := Verify(state); err != nil {
		return nil, err
	}
	s := state.Clone()
	if s.Items == nil {
		s.Items = []domain.CartLine{}
	}
	return &Store{state: s}, nil
}

// Verify recomputes total and item count from the lines and compares them
// with the incrementally maintained values.
func Verify(state domain.CartState) error {
	total := decimal.Zero
	count := 0
	seen := make(map[string]struct{}, len(state.Items))
	for _, line := range state.Items {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %s has quantity %d", ErrInconsistentState, line.ID, line.Quantity)
		}
		if _, dup := seen[line.ID]; dup {
			return fmt.Errorf("%w: duplicate line %s", ErrInconsistentState, line.ID)
		}
		seen[line.ID] = struct{}{}
		total = total.Add(line.Subtotal())
		count += line.Quantity
	}
	if !total.Equal(state.Total) || count != state.ItemCount {
		return fmt.Errorf("%w: want total=%s count=%d, have total=%s count=%d",
			ErrInconsistentState, total, count, state.Total, state.ItemCount)
	}
	return nil
}

func (s *Store) Dispatch(action Action) domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	return s.state.Clone()
}

func (s *Store) AddToCart(product domain.Product) domain.CartState {
	return s.Dispatch(AddToCart{Product: product})
}

func (s *Store) RemoveFromCart(productID string) domain.CartState {
	return s.Dispatch(RemoveFromCart{ProductID: productID})
}

func (s *Store) UpdateQuantity(productID string, quantity int) domain.CartState {
	return s.Dispatch(UpdateQuantity{ProductID: productID, Quantity: quantity})
}

func (s *Store) ClearCart() domain.CartState {
	return s.Dispatch(ClearCart{})
}

// Settle takes paid quantities out of the cart in one transition. Lines
// added or raised while the payment was in flight keep the unpaid remainder.
func (s *Store) Settle(paid []domain.OrderItem) domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range paid {
		line, _, ok := s.state.Find(item.ProductID)
		if !ok {
			continue
		}
		s.state = Reduce(s.state, UpdateQuantity{ProductID: item.ProductID, Quantity: line.Quantity - item.Quantity})
	}
	return s.state.Clone()
}

func (s *Store) Snapshot() domain.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}
