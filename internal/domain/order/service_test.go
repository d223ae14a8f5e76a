package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	mu        sync.Mutex
	saved     map[uuid.UUID]*Order
	saveErr   error
	saveHook  func(o *Order) *Order // optional transform simulating storage normalization
	saveCalls int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{saved: make(map[uuid.UUID]*Order)}
}

func (m *mockOrderRepo) Save(_ context.Context, o *Order) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	persisted := *o
	if m.saveHook != nil {
		persisted = *m.saveHook(o)
	}
	m.saved[persisted.ID] = &persisted
	return &persisted, nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.saved[id]
	if !ok {
		return nil, &NotFoundError{OrderID: id}
	}
	return o, nil
}

type mockTotalsRepo struct {
	mu             sync.Mutex
	total          decimal.Decimal
	incrementErr   error
	incrementCalls int
	deltas         []decimal.Decimal
}

func (m *mockTotalsRepo) IncrementTotal(_ context.Context, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrementCalls++
	if m.incrementErr != nil {
		return m.incrementErr
	}
	m.total = m.total.Add(delta)
	m.deltas = append(m.deltas, delta)
	return nil
}

func (m *mockTotalsRepo) ReadTotal(_ context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

// --- Helpers ---

func newCreateRequest(barCode string, quantity int, price string) CreateOrderRequest {
	return CreateOrderRequest{
		OrderID:   uuid.New(),
		BarCode:   barCode,
		Quantity:  quantity,
		UnitPrice: decimal.RequireFromString(price),
	}
}

// --- Tests ---

func TestCreateOrder_ComputesExactTotal(t *testing.T) {
	orders := newMockOrderRepo()
	totals := &mockTotalsRepo{}
	svc := NewService(orders, totals)

	o, err := svc.CreateOrder(context.Background(), newCreateRequest("7891000100103", 2, "10.50"))
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("21.00").Equal(o.TotalValue), "got %s", o.TotalValue)
}

func TestCreateOrder_SetsStatusAndCreatedAt(t *testing.T) {
	orders := newMockOrderRepo()
	svc := NewService(orders, &mockTotalsRepo{})

	before := time.Now()
	o, err := svc.CreateOrder(context.Background(), newCreateRequest("123", 1, "0.01"))
	require.NoError(t, err)

	assert.Equal(t, StatusNotAccounted, o.Status)
	assert.False(t, o.CreatedAt.Before(before), "createdAt should not predate the request")
}

func TestCreateOrder_IncrementsGlobalTotal(t *testing.T) {
	orders := newMockOrderRepo()
	totals := &mockTotalsRepo{}
	svc := NewService(orders, totals)

	_, err := svc.CreateOrder(context.Background(), newCreateRequest("123", 3, "5.00"))
	require.NoError(t, err)

	total, err := svc.TotalOrderValue(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("15.00").Equal(total))
}

func TestCreateOrder_SaveFails_IncrementNeverIssued(t *testing.T) {
	orders := newMockOrderRepo()
	orders.saveErr = errors.New("connection refused")
	totals := &mockTotalsRepo{}
	svc := NewService(orders, totals)

	_, err := svc.CreateOrder(context.Background(), newCreateRequest("7891000100103", 1, "9.99"))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "7891000100103")
	assert.Contains(t, perr.Error(), "failed to save order")
	assert.ErrorIs(t, err, orders.saveErr)
	assert.Zero(t, totals.incrementCalls, "increment must not run after a failed save")
}

func TestCreateOrder_IncrementFails_StillSucceeds(t *testing.T) {
	orders := newMockOrderRepo()
	totals := &mockTotalsRepo{incrementErr: errors.New("counter unavailable")}
	svc := NewService(orders, totals)

	o, err := svc.CreateOrder(context.Background(), newCreateRequest("123", 2, "4.00"))

	// The order is durably saved, so the creation reports success and the
	// under-count is left to observability. No rollback, no retry.
	require.NoError(t, err)
	assert.Equal(t, 1, orders.saveCalls)
	assert.Equal(t, 1, totals.incrementCalls)

	fetched, err := svc.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, o.TotalValue.Equal(fetched.TotalValue))
}

func TestCreateOrder_IncrementUsesPersistedTotal(t *testing.T) {
	orders := newMockOrderRepo()
	// Simulate a storage layer that normalizes the scale of NUMERIC values.
	orders.saveHook = func(o *Order) *Order {
		persisted := *o
		persisted.TotalValue = o.TotalValue.Round(4)
		return &persisted
	}
	totals := &mockTotalsRepo{}
	svc := NewService(orders, totals)

	_, err := svc.CreateOrder(context.Background(), newCreateRequest("123", 3, "0.333"))
	require.NoError(t, err)

	require.Len(t, totals.deltas, 1)
	assert.Equal(t, "0.999", totals.deltas[0].String())
}

func TestCreateOrder_ReplayedIDKeepsSingleRecord(t *testing.T) {
	orders := newMockOrderRepo()
	totals := &mockTotalsRepo{}
	svc := NewService(orders, totals)

	req := newCreateRequest("7891000100103", 2, "3.00")
	_, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	replay := req
	replay.Quantity = 1
	replay.UnitPrice = decimal.RequireFromString("5.00")
	_, err = svc.CreateOrder(context.Background(), replay)
	require.NoError(t, err)

	// The store holds one record per id, carrying the last write.
	require.Len(t, orders.saved, 1)
	fetched, err := svc.GetOrder(context.Background(), req.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.Quantity)
	assert.True(t, decimal.RequireFromString("5.00").Equal(fetched.TotalValue))

	// Both accepted creates incremented the counter.
	assert.Equal(t, 2, totals.incrementCalls)
	total, err := svc.TotalOrderValue(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("11.00").Equal(total), "got %s", total)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := NewService(newMockOrderRepo(), &mockTotalsRepo{})

	id := uuid.New()
	_, err := svc.GetOrder(context.Background(), id)

	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, id, nfErr.OrderID)
	assert.Contains(t, nfErr.Error(), id.String())
}

func TestGetOrder_RoundTrip(t *testing.T) {
	orders := newMockOrderRepo()
	svc := NewService(orders, &mockTotalsRepo{})

	req := newCreateRequest("7891000100103", 4, "2.25")
	created, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	fetched, err := svc.GetOrder(context.Background(), req.OrderID)
	require.NoError(t, err)

	assert.Equal(t, created.BarCode, fetched.BarCode)
	assert.Equal(t, created.Quantity, fetched.Quantity)
	assert.True(t, created.UnitPrice.Equal(fetched.UnitPrice))
	assert.True(t, created.TotalValue.Equal(fetched.TotalValue))
	assert.Equal(t, created.Status, fetched.Status)
	assert.Equal(t, created.CreatedAt, fetched.CreatedAt)
}

func TestTotalOrderValue_ZeroBeforeAnyOrder(t *testing.T) {
	svc := NewService(newMockOrderRepo(), &mockTotalsRepo{})

	total, err := svc.TotalOrderValue(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(total))
}

func TestCreateOrder_ConcurrentCreationsSumExactly(t *testing.T) {
	orders := newMockOrderRepo()
	totals := &mockTotalsRepo{}
	svc := NewService(orders, totals)

	const n = 50
	want := decimal.Zero
	reqs := make([]CreateOrderRequest, n)
	for i := range reqs {
		reqs[i] = newCreateRequest("123", i+1, "1.01")
		want = want.Add(reqs[i].UnitPrice.Mul(decimal.NewFromInt(int64(i + 1))))
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, req := range reqs {
		g.Go(func() error {
			_, err := svc.CreateOrder(ctx, req)
			return err
		})
	}
	require.NoError(t, g.Wait())

	total, err := svc.TotalOrderValue(context.Background())
	require.NoError(t, err)
	assert.True(t, want.Equal(total), "got %s, want %s", total, want)
}
