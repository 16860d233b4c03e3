package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/microservices/order/domain/dao"
)

// numberLockKey serializes order number allocation across processes on
// Postgres.
const numberLockKey = 7291001

type OrderRepositoryInterface interface {
	AddOrder(ctx context.Context, order dao.Order) (int64, error)
	AddNumberedOrder(ctx context.Context, order dao.Order, prefix string) (int64, string, error)
	GetOrderCount(ctx context.Context) (int, error)
}

type OrderRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewOrderRepository(db *sql.DB, dialect database.Dialect) OrderRepositoryInterface {
	return &OrderRepository{db: db, dialect: dialect}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (or *OrderRepository) GetOrderCount(ctx context.Context) (int, error) {
	var count int
	err := or.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get order count: %w", err)
	}
	return count, nil
}

// AddOrder inserts one row with the number it already carries. On Postgres
// the insert trigger announces it on the change feed.
func (or *OrderRepository) AddOrder(ctx context.Context, order dao.Order) (int64, error) {
	return or.insert(ctx, or.db, order)
}

// AddNumberedOrder allocates prefix+NNN, NNN being one more than the orders
// already numbered with prefix, and inserts the row in the same transaction.
// Concurrent callers are serialized, so numbers never repeat.
func (or *OrderRepository) AddNumberedOrder(ctx context.Context, order dao.Order, prefix string) (int64, string, error) {
	tx, err := or.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to begin order insert: %w", err)
	}
	defer tx.Rollback()

	if or.dialect == database.Postgres {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", numberLockKey); err != nil {
			return 0, "", fmt.Errorf("failed to lock order numbers: %w", err)
		}
	}

	var count int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM orders WHERE order_number LIKE %s ESCAPE '\'`, or.dialect.Arg(1))
	if err := tx.QueryRowContext(ctx, q, likePrefix(prefix)).Scan(&count); err != nil {
		return 0, "", fmt.Errorf("failed to count orders: %w", err)
	}
	order.OrderNumber = fmt.Sprintf("%s%03d", prefix, count+1)

	id, err := or.insert(ctx, tx, order)
	if err != nil {
		return 0, "", err
	}
	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("failed to commit order insert: %w", err)
	}
	return id, order.OrderNumber, nil
}

func likePrefix(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s) + "%"
}

func (or *OrderRepository) insert(ctx context.Context, db querier, order dao.Order) (int64, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to encode items: %w", err)
	}
	customer, err := json.Marshal(order.Customer)
	if err != nil {
		return 0, fmt.Errorf("failed to encode customer: %w", err)
	}

	d := or.dialect
	q := fmt.Sprintf(`
		INSERT INTO orders
		    (order_number, items, customer_info, total_price, payment_method, print_status, created_at, updated_at)
		VALUES
		    (%s, %s, %s, %s, %s, %s, %s, %s)
		RETURNING id`,
		d.Arg(1), d.JSONArg(2), d.JSONArg(3), d.Arg(4), d.Arg(5), d.Arg(6), d.Arg(7), d.Arg(8))

	var id int64
	err = db.QueryRowContext(ctx, q,
		order.OrderNumber,
		string(items),
		string(customer),
		order.TotalPrice.String(),
		order.PaymentMethod,
		string(order.PrintStatus),
		order.CreatedAt,
		order.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}
	return id, nil
}
