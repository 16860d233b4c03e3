package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/domain"
)

func openStore(t *testing.T) (*sql.DB, OrderRepositoryInterface) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, New(db, "sqlite").OrderRepo
}

func insertOrder(t *testing.T, db *sql.DB, number, items string, status domain.PrintStatus, created time.Time) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO orders (order_number, items, customer_info, total_price, payment_method, print_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		number, items, `{"name":"Aiko","phone":"0600000000"}`, 24.5, "CB", string(status), created)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestOrderRepository_ListByStatus(t *testing.T) {
	db, repo := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	a := insertOrder(t, db, "A-1", `[{"name":"Ramen","quantity":2}]`, domain.StatusPendingPrint, base.Add(2*time.Minute))
	b := insertOrder(t, db, "A-2", `"[{\"name\":\"Gyoza\"}]"`, domain.StatusPendingPrint, base)
	insertOrder(t, db, "A-3", `[]`, domain.StatusPrinted, base)
	c := insertOrder(t, db, "A-4", `[]`, domain.StatusReprintKitchen, base.Add(time.Minute))

	pending, err := repo.ListByStatus(ctx, domain.StatusPendingPrint)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, b, pending[0].ID, "oldest first")
	assert.Equal(t, a, pending[1].ID)
	require.Len(t, pending[0].Items, 1)
	assert.Equal(t, "Gyoza", pending[0].Items[0].Name)
	assert.Equal(t, 1, pending[0].Items[0].Quantity)
	assert.Equal(t, 2, pending[1].Items[0].Quantity)
	assert.Equal(t, "Aiko", pending[1].Customer.Name)
	require.NotNil(t, pending[1].TotalPrice)
	assert.InDelta(t, 24.5, *pending[1].TotalPrice, 0.001)
	assert.True(t, pending[0].CreatedAt.Equal(base))

	reprints, err := repo.ListByStatus(ctx, domain.ReprintStatuses...)
	require.NoError(t, err)
	require.Len(t, reprints, 1)
	assert.Equal(t, c, reprints[0].ID)
	assert.Equal(t, domain.StatusReprintKitchen, reprints[0].PrintStatus)

	none, err := repo.ListByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrderRepository_GetOrder(t *testing.T) {
	db, repo := openStore(t)
	ctx := context.Background()

	id := insertOrder(t, db, "B-9", `not json`, domain.StatusPendingPrint, time.Now().UTC())
	o, err := repo.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "B-9", o.OrderNumber)
	assert.Empty(t, o.Items)
	assert.NotNil(t, o.Items)

	_, err = repo.GetOrder(ctx, id+100)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOrderRepository_NullColumns(t *testing.T) {
	db, repo := openStore(t)
	res, err := db.Exec(`INSERT INTO orders (print_status) VALUES ('pending_print')`)
	require.NoError(t, err)
	id, _ := res.LastInsertId()

	o, err := repo.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "", o.OrderNumber)
	assert.Nil(t, o.TotalPrice)
	assert.True(t, o.Customer.Empty())
	assert.Empty(t, o.Items)
}

func TestOrderRepository_TryClaim(t *testing.T) {
	db, repo := openStore(t)
	ctx := context.Background()
	id := insertOrder(t, db, "C-1", `[]`, domain.StatusPendingPrint, time.Now().UTC())

	ok, err := repo.TryClaim(ctx, id, domain.StatusReprintKitchen)
	require.NoError(t, err)
	assert.False(t, ok, "expected status does not match")

	ok, err = repo.TryClaim(ctx, id, domain.StatusPendingPrint)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryClaim(ctx, id, domain.StatusPendingPrint)
	require.NoError(t, err)
	assert.False(t, ok, "second claim loses")

	v, err := repo.GetPrintStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPrinting, v.PrintStatus)
	assert.Equal(t, "C-1", v.OrderNumber)

	ok, err = repo.TryClaim(ctx, id+1, domain.StatusPendingPrint)
	require.NoError(t, err)
	assert.False(t, ok, "missing row is not claimable")
}

func TestOrderRepository_TryClaimConcurrent(t *testing.T) {
	db, repo := openStore(t)
	ctx := context.Background()
	id := insertOrder(t, db, "C-2", `[]`, domain.StatusPendingPrint, time.Now().UTC())

	const claimers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryClaim(ctx, id, domain.StatusPendingPrint)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestOrderRepository_SetStatus(t *testing.T) {
	db, repo := openStore(t)
	ctx := context.Background()
	id := insertOrder(t, db, "D-1", `[]`, domain.StatusPrinting, time.Now().UTC())

	require.NoError(t, repo.SetStatus(ctx, id, domain.StatusPrinted))
	v, err := repo.GetPrintStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPrinted, v.PrintStatus)
	assert.False(t, v.UpdatedAt.IsZero())

	err = repo.SetStatus(ctx, id+1, domain.StatusPrinted)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetPrintStatus(ctx, id+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderRepository_MalformedMoneyAndTimeDoNotAbortList(t *testing.T) {
	db, repo := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	good := insertOrder(t, db, "GOOD", `[{"name":"Ramen","quantity":2}]`, domain.StatusPendingPrint, base)
	res, err := db.Exec(`INSERT INTO orders (order_number, items, customer_info, total_price, payment_method, print_status, created_at)
		VALUES ('BAD', '[{"name":"Gyoza"}]', '{}', 'dix-neuf', 'CB', 'pending_print', 'not a date')`)
	require.NoError(t, err)
	bad, err := res.LastInsertId()
	require.NoError(t, err)

	pending, err := repo.ListByStatus(ctx, domain.StatusPendingPrint)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	byID := map[int64]domain.Order{}
	for _, o := range pending {
		byID[o.ID] = o
	}
	require.Contains(t, byID, good)
	require.Contains(t, byID, bad)
	require.NotNil(t, byID[good].TotalPrice)
	assert.InDelta(t, 24.5, *byID[good].TotalPrice, 0.001)
	assert.Nil(t, byID[bad].TotalPrice, "unparseable total renders as zero")
	assert.True(t, byID[bad].CreatedAt.IsZero())
	assert.Equal(t, "Gyoza", byID[bad].Items[0].Name)

	o, err := repo.GetOrder(ctx, bad)
	require.NoError(t, err)
	assert.Equal(t, "BAD", o.OrderNumber)
}
