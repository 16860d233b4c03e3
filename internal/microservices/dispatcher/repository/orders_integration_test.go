//go:build integration

package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/domain"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("restaurant_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, "postgres"))
	return db
}

func TestPostgresOrderRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupPostgres(t)
	repo := NewOrderRepository(db, database.Postgres)
	ctx := context.Background()

	var once, twice int64
	require.NoError(t, db.QueryRowContext(ctx, `INSERT INTO orders (order_number, items, customer_info, total_price, payment_method)
		VALUES ('P-1', '[{"name":"Ramen","quantity":2,"price":12.5}]'::jsonb, '{"name":"Aiko"}'::jsonb, 25.00, 'CB') RETURNING id`).Scan(&once))
	require.NoError(t, db.QueryRowContext(ctx, `INSERT INTO orders (order_number, items)
		VALUES ('P-2', to_jsonb('[{"name":"Gyoza"}]'::text)) RETURNING id`).Scan(&twice))

	pending, err := repo.ListByStatus(ctx, domain.StatusPendingPrint)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, once, pending[0].ID)
	assert.Equal(t, "Ramen", pending[0].Items[0].Name)
	assert.Equal(t, 2, pending[0].Items[0].Quantity)
	assert.Equal(t, "Aiko", pending[0].Customer.Name)
	require.NotNil(t, pending[0].TotalPrice)
	assert.InDelta(t, 25.0, *pending[0].TotalPrice, 0.001)
	require.Len(t, pending[1].Items, 1)
	assert.Equal(t, "Gyoza", pending[1].Items[0].Name)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryClaim(ctx, once, domain.StatusPendingPrint)
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

	require.NoError(t, repo.SetStatus(ctx, once, domain.StatusPrinted))
	v, err := repo.GetPrintStatus(ctx, once)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPrinted, v.PrintStatus)

	_, err = repo.GetOrder(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)
}
