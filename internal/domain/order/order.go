package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status tags the accounting state of an order. Every order is created as
// NOT_ACCOUNTED; this service never transitions it further.
type Status string

// StatusNotAccounted is the initial (and only reachable) order status.
const StatusNotAccounted Status = "NOT_ACCOUNTED"

// Order represents one accepted order with its derived total value.
// TotalValue is computed once at creation (unit price times quantity) and
// persisted; it is never recomputed on the read path.
type Order struct {
	ID         uuid.UUID
	BarCode    string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalValue decimal.Decimal
	CreatedAt  time.Time
	Status     Status
}

// NotFoundError indicates no order exists for the requested identifier.
type NotFoundError struct {
	OrderID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order not found with ID: %s", e.OrderID)
}

// PersistenceError wraps a storage-layer failure. The underlying cause is
// preserved for diagnostics; Message is safe to surface to clients.
type PersistenceError struct {
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Repository defines persistence operations for orders.
type Repository interface {
	// Save upserts the order keyed by its ID and returns the persisted row.
	Save(ctx context.Context, o *Order) (*Order, error)
	// FindByID returns the order or a *NotFoundError.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
}

// TotalsRepository maintains the global running sum of order total values.
type TotalsRepository interface {
	// IncrementTotal atomically adds delta to the singleton counter, creating
	// it with value delta when absent. Concurrent deltas must all be applied.
	IncrementTotal(ctx context.Context, delta decimal.Decimal) error
	// ReadTotal returns the current counter value, or zero when the counter
	// record does not exist yet.
	ReadTotal(ctx context.Context) (decimal.Decimal, error)
}
