package service

import (
	"context"
	"time"

	"print-dispatcher/internal/common/logger"
	dispatch "print-dispatcher/internal/microservices/dispatcher/service"
	"print-dispatcher/internal/microservices/tracker/models"
	"print-dispatcher/internal/microservices/tracker/repository"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type TrackerServiceInterface interface {
	Notify(ctx context.Context, ev dispatch.PrintEvent) error
	GetHistory(ctx context.Context, orderID int64, limit, offset int) (models.HistoryView, error)
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// TrackerService keeps the print attempt log. It is a dispatcher Notifier.
type TrackerService struct {
	repo repository.TrackerRepoInterface
	log  *logger.Logger
	now  func() time.Time
}

func NewTrackerService(repo repository.TrackerRepoInterface) *TrackerService {
	return &TrackerService{repo: repo, log: logger.New("tracker"), now: time.Now}
}

func (s *TrackerService) Notify(ctx context.Context, ev dispatch.PrintEvent) error {
	a := models.PrintAttempt{
		EventID:     ev.EventID,
		OrderID:     ev.OrderID,
		OrderNumber: ev.OrderNumber,
		Source:      string(ev.Source),
		OldStatus:   ev.OldStatus,
		NewStatus:   ev.NewStatus,
		Instance:    ev.Instance,
		OccurredAt:  ev.Timestamp,
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = s.now().UTC()
	}
	for _, d := range ev.Deliveries {
		a.Deliveries = append(a.Deliveries, models.Delivery{
			Role:    d.Role,
			Printer: d.Printer,
			Result:  models.DeliveryResult(d.Result),
			Error:   d.Error,
		})
	}
	return s.repo.AppendAttempt(ctx, a)
}

func (s *TrackerService) GetHistory(ctx context.Context, orderID int64, limit, offset int) (models.HistoryView, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	attempts, err := s.repo.GetOrderTimeline(ctx, orderID, limit, offset)
	if err != nil {
		return models.HistoryView{}, err
	}
	v := models.HistoryView{OrderID: orderID, Attempts: attempts}
	for _, a := range attempts {
		if a.Failed() {
			v.Failures++
		}
	}
	return v, nil
}

// Prune deletes attempts older than retention. Zero keeps everything.
func (s *TrackerService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := s.repo.Prune(ctx, s.now().Add(-retention))
	if err != nil {
		s.log.Error("history_prune_failed", err, nil)
		return 0, err
	}
	if n > 0 {
		s.log.Info("history_pruned", map[string]any{"deleted": n, "retention": retention.String()})
	}
	return n, nil
}
