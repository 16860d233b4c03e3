package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/domain"
	"print-dispatcher/internal/microservices/tracker/models"
)

type TrackerRepoInterface interface {
	AppendAttempt(ctx context.Context, a models.PrintAttempt) error
	GetOrderTimeline(ctx context.Context, orderID int64, limit, offset int) ([]models.PrintAttempt, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type TrackerRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewTrackerRepo(db *sql.DB, driver string) TrackerRepoInterface {
	return &TrackerRepo{db: db, dialect: database.DialectFor(driver)}
}

func (r *TrackerRepo) AppendAttempt(ctx context.Context, a models.PrintAttempt) error {
	deliveries := a.Deliveries
	if deliveries == nil {
		deliveries = []models.Delivery{}
	}
	b, err := json.Marshal(deliveries)
	if err != nil {
		return err
	}
	d := r.dialect
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO print_attempts (event_id, order_id, order_number, source, old_status, new_status, deliveries, instance, occurred_at)
VALUES (%s,%s,%s,%s,%s,%s,%s,%s,%s)
`, d.Arg(1), d.Arg(2), d.Arg(3), d.Arg(4), d.Arg(5), d.Arg(6), d.JSONArg(7), d.Arg(8), d.Arg(9)),
		a.EventID, a.OrderID, nullIfEmpty(a.OrderNumber), a.Source,
		string(a.OldStatus), string(a.NewStatus), string(b), nullIfEmpty(a.Instance), a.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append print attempt: %w", err)
	}
	return nil
}

func (r *TrackerRepo) GetOrderTimeline(ctx context.Context, orderID int64, limit, offset int) ([]models.PrintAttempt, error) {
	d := r.dialect
	deliveries := "deliveries"
	if d == database.Postgres {
		deliveries = "deliveries::text"
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT event_id, COALESCE(order_number,''), source, old_status, new_status, %s, COALESCE(instance,''), occurred_at
FROM print_attempts WHERE order_id=%s
ORDER BY occurred_at ASC, id ASC
LIMIT %s OFFSET %s
`, deliveries, d.Arg(1), d.Arg(2), d.Arg(3)), orderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PrintAttempt{}
	for rows.Next() {
		var (
			a              models.PrintAttempt
			oldSt, newSt   string
			deliveriesText string
		)
		if err := rows.Scan(&a.EventID, &a.OrderNumber, &a.Source, &oldSt, &newSt, &deliveriesText, &a.Instance, &a.OccurredAt); err != nil {
			return nil, err
		}
		a.OrderID = orderID
		a.OldStatus = domain.PrintStatus(oldSt)
		a.NewStatus = domain.PrintStatus(newSt)
		_ = json.Unmarshal([]byte(deliveriesText), &a.Deliveries)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune drops attempts older than before.
func (r *TrackerRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM print_attempts WHERE occurred_at < %s`, r.dialect.Arg(1)), before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
