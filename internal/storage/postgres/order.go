package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderlab/order-intake/internal/domain/order"
)

const saveOrderSQL = `INSERT INTO orders (order_id, bar_code, quantity, unit_price, total_value, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (order_id) DO UPDATE SET
		bar_code    = EXCLUDED.bar_code,
		quantity    = EXCLUDED.quantity,
		unit_price  = EXCLUDED.unit_price,
		total_value = EXCLUDED.total_value,
		status      = EXCLUDED.status,
		created_at  = EXCLUDED.created_at
	RETURNING order_id, bar_code, quantity, unit_price, total_value, status, created_at`

const findOrderSQL = `SELECT order_id, bar_code, quantity, unit_price, total_value, status, created_at
	FROM orders WHERE order_id = $1`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save upserts the order keyed by order_id and returns the persisted row.
// Replaying the same order_id overwrites the existing row; the table never
// holds more than one record per identifier.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, saveOrderSQL,
		o.ID, o.BarCode, o.Quantity, o.UnitPrice, o.TotalValue, string(o.Status), o.CreatedAt,
	)

	saved, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("saving order %q: %w", o.ID, err)
	}
	return saved, nil
}

// FindByID returns the order or a *order.NotFoundError when no row exists.
func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, findOrderSQL, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &order.NotFoundError{OrderID: id}
		}
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var status string
	if err := row.Scan(&o.ID, &o.BarCode, &o.Quantity, &o.UnitPrice, &o.TotalValue, &status, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	return &o, nil
}
