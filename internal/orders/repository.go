package orders

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.OrderSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	c := order.Customer

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, user_id,
			first_name, last_name, email, phone, address, city, state, zip_code,
			subtotal, shipping, tax, total,
			payment_method, payment_id, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, order.ID, order.OrderNumber, order.UserID,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode,
		order.Subtotal, order.Shipping, order.Tax, order.Total,
		order.PaymentMethod, order.PaymentID, order.Status, order.CreatedAt)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, name, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), order.ID, i, item.ProductID, item.Name, item.Quantity, item.Price)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const selectOrder = `
	SELECT id, order_number, user_id,
		first_name, last_name, email, phone, address, city, state, zip_code,
		subtotal, shipping, tax, total,
		payment_method, payment_id, status, created_at
	FROM orders
`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (domain.OrderSnapshot, error) {
	var o domain.OrderSnapshot
	c := &o.Customer
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID,
		&c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.ZipCode,
		&o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&o.PaymentMethod, &o.PaymentID, &o.Status, &o.CreatedAt)
	return o, err
}

// GetByID returns nil and no error when the order does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.OrderSnapshot, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &order, nil
}

// ListByUser returns the user's orders newest first, loading all items in
// one query.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.OrderSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, selectOrder+`
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.OrderSnapshot)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.OrderSnapshot{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.OrderSnapshot, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// MemoryRepository keeps order history in process when no database is
// configured.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.OrderSnapshot
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]domain.OrderSnapshot)}
}

func (r *MemoryRepository) Create(_ context.Context, order *domain.OrderSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	stored := *order
	stored.Items = append([]domain.OrderItem(nil), order.Items...)
	r.orders[order.ID] = stored
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.OrderSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]domain.OrderSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []domain.OrderSnapshot{}
	for _, o := range r.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}
