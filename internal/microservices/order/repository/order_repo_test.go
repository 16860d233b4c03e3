package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/domain"
	dispatchrepo "print-dispatcher/internal/microservices/dispatcher/repository"
	dao "print-dispatcher/internal/microservices/order/domain/dao"
)

func TestOrderRepository_AddOrderRoundTrip(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	repo := New(db, "sqlite").OrderRepo
	count, err := repo.GetOrderCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	items := []dao.OrderItem{
		{Name: "Ramen", Quantity: 2, Price: decimal.RequireFromString("12.50"), Options: []string{"extra egg"}},
		{Name: "Gyoza", Quantity: 1, Price: decimal.NewFromInt(6), Note: "no garlic"},
	}
	id, err := repo.AddOrder(ctx, dao.Order{
		OrderNumber:   "T-7",
		Items:         items,
		Customer:      dao.Customer{Name: "Aiko", Phone: "0600000000"},
		TotalPrice:    dao.Total(items),
		PaymentMethod: "CB",
		PrintStatus:   domain.StatusPendingPrint,
		CreatedAt:     time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	count, err = repo.GetOrderCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The dispatcher sees exactly what the intake wrote.
	o, err := dispatchrepo.New(db, "sqlite").OrderRepo.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "T-7", o.OrderNumber)
	assert.Equal(t, domain.StatusPendingPrint, o.PrintStatus)
	assert.Equal(t, "Aiko", o.Customer.Name)
	assert.Equal(t, "CB", o.PaymentMethod)
	require.NotNil(t, o.TotalPrice)
	assert.InDelta(t, 31.0, *o.TotalPrice, 0.001)
	require.Len(t, o.Items, 2)
	assert.Equal(t, []string{"extra egg"}, o.Items[0].Options)
	assert.Equal(t, "no garlic", o.Items[1].Note)
}

func TestOrderRepository_AddNumberedOrderIsUnique(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	repo := New(db, "sqlite").OrderRepo

	order := dao.Order{
		Items:       []dao.OrderItem{{Name: "Tea", Quantity: 1, Price: decimal.NewFromInt(3)}},
		PrintStatus: domain.StatusPendingPrint,
		CreatedAt:   time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}
	// Other days and hand-numbered orders do not advance the sequence.
	other := order
	other.OrderNumber = "ORD_20261018_001"
	_, err = repo.AddOrder(ctx, other)
	require.NoError(t, err)
	other.OrderNumber = "ORDX20261019Y001"
	_, err = repo.AddOrder(ctx, other)
	require.NoError(t, err)

	_, first, err := repo.AddNumberedOrder(ctx, order, "ORD_20261019_")
	require.NoError(t, err)
	assert.Equal(t, "ORD_20261019_001", first)

	const n = 12
	var (
		mu      sync.Mutex
		numbers = map[string]bool{first: true}
		wg      sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, num, err := repo.AddNumberedOrder(ctx, order, "ORD_20261019_")
			assert.NoError(t, err)
			mu.Lock()
			numbers[num] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, n+1, "every order gets its own number")
	assert.True(t, numbers["ORD_20261019_013"])
}
