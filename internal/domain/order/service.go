package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateOrderRequest holds the input for creating an order. The HTTP boundary
// validates shape before the service is invoked: the ID is set, BarCode is
// non-empty, Quantity >= 1 and UnitPrice > 0.
type CreateOrderRequest struct {
	OrderID   uuid.UUID
	BarCode   string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Service sequences the order store and the totals store and translates
// storage failures into domain error kinds.
type Service struct {
	orders Repository
	totals TotalsRepository
	now    func() time.Time
}

// NewService creates an order Service with the required store dependencies.
func NewService(orders Repository, totals TotalsRepository) *Service {
	return &Service{
		orders: orders,
		totals: totals,
		now:    time.Now,
	}
}

// CreateOrder computes the derived total value, persists the order, and folds
// that value into the global running counter.
//
// The increment for an order is never issued before its save is acknowledged.
// When the save fails the flow terminates with a *PersistenceError and the
// counter is left untouched. When the increment fails after a durable save the
// request still succeeds: the order is already recorded, so the discrepancy is
// logged instead of rolled back. There is no retry and no compensation.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	lg := zctx.From(ctx)
	lg.Info("Creating order", zap.String("bar_code", req.BarCode))

	totalValue := req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))

	o := &Order{
		ID:         req.OrderID,
		BarCode:    req.BarCode,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		TotalValue: totalValue,
		CreatedAt:  s.now(),
		Status:     StatusNotAccounted,
	}

	saved, err := s.orders.Save(ctx, o)
	if err != nil {
		return nil, &PersistenceError{
			Message: fmt.Sprintf("failed to save order with barCode %s", req.BarCode),
			Err:     err,
		}
	}

	lg.Info("Order saved, updating global total",
		zap.String("order_id", saved.ID.String()),
		zap.String("total_value", saved.TotalValue.String()),
	)

	// Increment with the persisted row's total, not the locally computed one,
	// in case the storage layer normalized the value.
	if err := s.totals.IncrementTotal(ctx, saved.TotalValue); err != nil {
		lg.Warn("Order saved but total increment failed; global total under-counts this order",
			zap.String("order_id", saved.ID.String()),
			zap.String("delta", saved.TotalValue.String()),
			zap.Error(err),
		)
	}

	return saved, nil
}

// GetOrder returns the order for the given identifier, or a *NotFoundError.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.FindByID(ctx, id)
}

// TotalOrderValue returns the global running sum of all order total values.
// Before any order exists it returns exactly zero.
func (s *Service) TotalOrderValue(ctx context.Context) (decimal.Decimal, error) {
	return s.totals.ReadTotal(ctx)
}
