package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/domain"
)

var ErrNotFound = errors.New("order not found")

// OrderRepositoryInterface is the order store as the dispatcher sees it.
type OrderRepositoryInterface interface {
	ListByStatus(ctx context.Context, statuses ...domain.PrintStatus) ([]domain.Order, error)
	GetOrder(ctx context.Context, id int64) (domain.Order, error)
	// TryClaim moves id from expected to printing. It reports true only for
	// the single caller whose update matched.
	TryClaim(ctx context.Context, id int64, expected domain.PrintStatus) (bool, error)
	SetStatus(ctx context.Context, id int64, status domain.PrintStatus) error
	GetPrintStatus(ctx context.Context, id int64) (StatusView, error)
	Ping(ctx context.Context) error
}

type StatusView struct {
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number,omitempty"`
	PrintStatus domain.PrintStatus `json:"print_status"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type Repository struct {
	OrderRepo OrderRepositoryInterface
}

func New(db *sql.DB, driver string) *Repository {
	return &Repository{
		OrderRepo: NewOrderRepository(db, database.DialectFor(driver)),
	}
}
