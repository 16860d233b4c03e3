package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"print-dispatcher/internal/common/logger"
	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/domain"
)

func columns(d database.Dialect) string {
	if d == database.SQLite {
		return `id, order_number, items, customer_info, total_price, payment_method, print_status, created_at`
	}
	return `id, order_number, items::text, customer_info::text, total_price::float8, payment_method, print_status, created_at`
}

var log = logger.New("order-store")

type OrderRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewOrderRepository(db *sql.DB, dialect database.Dialect) OrderRepositoryInterface {
	return &OrderRepository{db: db, dialect: dialect}
}

func (r *OrderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, statuses ...domain.PrintStatus) ([]domain.Order, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	marks := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		marks[i] = r.dialect.Arg(i + 1)
		args[i] = string(s)
	}
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE print_status IN (%s) ORDER BY created_at, id`,
		columns(r.dialect), strings.Join(marks, ", "))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders by status: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			// One unreadable row must not hide the others from the sweep.
			log.Error("order_row_skipped", err, map[string]any{"order_id": o.ID})
			continue
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders by status: %w", err)
	}
	return out, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE id = %s`, columns(r.dialect), r.dialect.Arg(1))
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// TryClaim is a single conditional UPDATE, so the store's row locking
// decides the winner between concurrent claimers.
func (r *OrderRepository) TryClaim(ctx context.Context, id int64, expected domain.PrintStatus) (bool, error) {
	q := fmt.Sprintf(`UPDATE orders SET print_status = %s, updated_at = %s WHERE id = %s AND print_status = %s`,
		r.dialect.Arg(1), r.dialect.Now(), r.dialect.Arg(2), r.dialect.Arg(3))
	res, err := r.db.ExecContext(ctx, q, string(domain.StatusPrinting), id, string(expected))
	if err != nil {
		return false, fmt.Errorf("claim order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim order %d: %w", id, err)
	}
	return n == 1, nil
}

func (r *OrderRepository) SetStatus(ctx context.Context, id int64, status domain.PrintStatus) error {
	q := fmt.Sprintf(`UPDATE orders SET print_status = %s, updated_at = %s WHERE id = %s`,
		r.dialect.Arg(1), r.dialect.Now(), r.dialect.Arg(2))
	res, err := r.db.ExecContext(ctx, q, string(status), id)
	if err != nil {
		return fmt.Errorf("set order %d status %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set order %d status %s: %w", id, status, err)
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *OrderRepository) GetPrintStatus(ctx context.Context, id int64) (StatusView, error) {
	q := fmt.Sprintf(`SELECT id, order_number, print_status, updated_at FROM orders WHERE id = %s`, r.dialect.Arg(1))
	var (
		v      StatusView
		number sql.NullString
		status string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&v.OrderID, &number, &status, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StatusView{}, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return StatusView{}, fmt.Errorf("get order %d status: %w", id, err)
	}
	v.OrderNumber = number.String
	v.PrintStatus = domain.PrintStatus(status)
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (domain.Order, error) {
	var (
		o        domain.Order
		number   sql.NullString
		items    sql.NullString
		customer sql.NullString
		total    any
		payment  sql.NullString
		status   sql.NullString
		created  any
	)
	if err := s.Scan(&o.ID, &number, &items, &customer, &total, &payment, &status, &created); err != nil {
		return domain.Order{ID: o.ID}, err
	}
	o.OrderNumber = strings.TrimSpace(number.String)
	o.Items = domain.DecodeItems([]byte(items.String))
	o.Customer = domain.DecodeCustomer([]byte(customer.String))
	o.TotalPrice = domain.LenientFloat(total)
	o.PaymentMethod = strings.TrimSpace(payment.String)
	o.PrintStatus = domain.PrintStatus(status.String)
	o.CreatedAt = domain.LenientTime(created)
	return o, nil
}
