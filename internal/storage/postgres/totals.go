package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/orderlab/order-intake/internal/domain/order"
)

// globalTotalID is the fixed key of the singleton counter row.
const globalTotalID = "GLOBAL_TOTAL"

const incrementTotalSQL = `INSERT INTO order_totals (id, total_value) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET total_value = order_totals.total_value + EXCLUDED.total_value`

const readTotalSQL = `SELECT total_value FROM order_totals WHERE id = $1`

var _ order.TotalsRepository = (*TotalsRepository)(nil)

// TotalsRepository implements order.TotalsRepository backed by PostgreSQL.
// The upsert-increment statement relies on the row lock taken by the UPDATE,
// so concurrent deltas are serialized by the database and none are lost.
type TotalsRepository struct {
	pool *pgxpool.Pool
}

// NewTotalsRepository returns a TotalsRepository that uses the given pool.
func NewTotalsRepository(pool *pgxpool.Pool) *TotalsRepository {
	return &TotalsRepository{pool: pool}
}

// IncrementTotal atomically adds delta to the singleton counter, creating the
// row with value delta when it does not exist yet.
func (r *TotalsRepository) IncrementTotal(ctx context.Context, delta decimal.Decimal) error {
	if _, err := r.pool.Exec(ctx, incrementTotalSQL, globalTotalID, delta); err != nil {
		return fmt.Errorf("incrementing global total: %w", err)
	}
	return nil
}

// ReadTotal returns the current counter value. A missing counter row reads as
// zero, not as an error.
func (r *TotalsRepository) ReadTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, readTotalSQL, globalTotalID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("reading global total: %w", err)
	}
	return total, nil
}
