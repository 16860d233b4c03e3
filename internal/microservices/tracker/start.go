package tracker

import (
	"context"
	"database/sql"
	"time"

	"print-dispatcher/internal/microservices/tracker/handler"
	"print-dispatcher/internal/microservices/tracker/repository"
	"print-dispatcher/internal/microservices/tracker/service"
)

const pruneInterval = time.Hour

type Tracker struct {
	Service *service.TrackerService
	Handler *handler.TrackerHandler
}

func New(db *sql.DB, driver string) *Tracker {
	svc := service.NewTrackerService(repository.NewTrackerRepo(db, driver))
	return &Tracker{Service: svc, Handler: handler.NewTrackerHandler(svc)}
}

// RunPruner trims the attempt log every hour until ctx is done.
func (t *Tracker) RunPruner(ctx context.Context, retention time.Duration) {
	if retention <= 0 {
		return
	}
	_, _ = t.Service.Prune(ctx, retention)
	tick := time.NewTicker(pruneInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_, _ = t.Service.Prune(ctx, retention)
		}
	}
}
