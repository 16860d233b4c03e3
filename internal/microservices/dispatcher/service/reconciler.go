package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"print-dispatcher/internal/common/logger"
	"print-dispatcher/internal/common/metrics"
	"print-dispatcher/internal/domain"
	"print-dispatcher/internal/microservices/dispatcher/feed"
	"print-dispatcher/internal/microservices/dispatcher/repository"
	"print-dispatcher/internal/printing/sink"
	"print-dispatcher/internal/printing/ticket"
)

var ErrNoRepository = errors.New("dispatcher: order repository is required")

const notifyTimeout = 2 * time.Second

type Deps struct {
	Repo     repository.OrderRepositoryInterface
	Renderer *ticket.Renderer
	Sink     sink.Sink
	Feed     feed.Source
	Notifier Notifier
	Metrics  *metrics.Metrics
}

type inflightKey struct {
	id     int64
	status domain.PrintStatus
}

// Reconciler merges the live feed and the poll sweep into one work queue.
// Every job goes through claimAndProcess, which is the only place an order
// is claimed, printed and finalized.
type Reconciler struct {
	repo     repository.OrderRepositoryInterface
	renderer *ticket.Renderer
	sink     sink.Sink
	feed     feed.Source
	notifier Notifier
	metrics  *metrics.Metrics
	cfg      Config
	lg       *logger.Logger
	instance string

	jobs     chan Job
	bindings BindingsProvider

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
	unbound  map[domain.Role]bool
}

func NewReconciler(d Deps, cfg Config) *Reconciler {
	cfg = cfg.withDefaults()
	if d.Renderer == nil {
		d.Renderer = ticket.NewRenderer(ticket.DefaultOptions(), nil)
	}
	if d.Feed == nil {
		d.Feed = feed.None{}
	}
	if d.Notifier == nil {
		d.Notifier = NopNotifier{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	return &Reconciler{
		repo:     d.Repo,
		renderer: d.Renderer,
		sink:     d.Sink,
		feed:     d.Feed,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		cfg:      cfg,
		lg:       logger.New("dispatcher"),
		instance: uuid.NewString(),
		jobs:     make(chan Job, cfg.QueueSize),
		bindings: StaticBindings{},
		inflight: make(map[inflightKey]struct{}),
		unbound:  make(map[domain.Role]bool),
	}
}

func (r *Reconciler) Instance() string { return r.instance }

// Run starts the feed, the sweep ticker and the worker pool, and blocks
// until ctx is cancelled. Queued jobs that no worker picked up are dropped
// on shutdown; the next start finds them again through the sweep.
func (r *Reconciler) Run(ctx context.Context, bindings BindingsProvider) error {
	if r.repo == nil {
		return ErrNoRepository
	}
	if r.sink == nil {
		return errors.New("dispatcher: printer sink is required")
	}
	if bindings != nil {
		r.bindings = bindings
	}

	r.lg.Info("dispatcher_started", map[string]any{
		"instance":         r.instance,
		"feed":             r.feed.Name(),
		"poll_interval":    r.cfg.PollInterval.String(),
		"delivery_timeout": r.cfg.DeliveryTimeout.String(),
		"workers":          r.cfg.Workers,
	})

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.feed.Run(ctx, r.OnLiveInsert); err != nil {
			r.lg.Error("feed_stopped", err, map[string]any{"feed": r.feed.Name()})
		}
	}()

	_ = r.RunPollSweep(ctx)
	t := time.NewTicker(r.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			r.lg.Info("graceful_shutdown", map[string]any{"instance": r.instance, "dropped_jobs": len(r.jobs)})
			return nil
		case <-t.C:
			_ = r.RunPollSweep(ctx)
		}
	}
}

// A dequeued job runs to completion even during shutdown so a claimed order
// is still finalized. Deliveries stay bounded by the delivery timeout.
func (r *Reconciler) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.jobs:
			r.metrics.QueueDepth.Dec()
			r.claimAndProcess(context.WithoutCancel(ctx), job)
		}
	}
}

// OnLiveInsert enqueues an order announced by the change feed. Partial
// events are re-read from the store first.
func (r *Reconciler) OnLiveInsert(ctx context.Context, ev domain.InsertEvent) {
	o := ev.Order
	if ev.Partial {
		full, err := r.repo.GetOrder(ctx, o.ID)
		if err != nil {
			r.lg.Warn("live_reread_failed", map[string]any{"order_id": o.ID, "error": err.Error()})
			return
		}
		o = full
	}
	if o.PrintStatus == "" {
		o.PrintStatus = domain.StatusPendingPrint
	}
	if !o.PrintStatus.Dispatchable() {
		r.lg.Debug("live_insert_ignored", map[string]any{"order_id": o.ID, "print_status": o.PrintStatus})
		return
	}
	r.enqueue(ctx, Job{Order: o, Source: SourceLive})
}

// RunPollSweep reads every pending and reprint row and enqueues it. A failed
// read is logged and returned; the next tick tries again.
func (r *Reconciler) RunPollSweep(ctx context.Context) error {
	var errs []error
	enqueued := 0

	pending, err := r.repo.ListByStatus(ctx, domain.StatusPendingPrint)
	if err != nil {
		errs = append(errs, fmt.Errorf("read pending orders: %w", err))
	}
	for _, o := range pending {
		if r.enqueue(ctx, Job{Order: o, Source: SourcePoll}) {
			enqueued++
		}
	}

	reprints, err := r.repo.ListByStatus(ctx, domain.ReprintStatuses...)
	if err != nil {
		errs = append(errs, fmt.Errorf("read reprint orders: %w", err))
	}
	for _, o := range reprints {
		if r.enqueue(ctx, Job{Order: o, Source: SourcePoll}) {
			enqueued++
		}
	}

	if err := errors.Join(errs...); err != nil {
		r.metrics.Sweeps.WithLabelValues("error").Inc()
		r.lg.Error("poll_sweep_failed", err, map[string]any{"enqueued": enqueued})
		return err
	}
	r.metrics.Sweeps.WithLabelValues("ok").Inc()
	if enqueued > 0 {
		r.lg.Debug("poll_sweep", map[string]any{"pending": len(pending), "reprints": len(reprints), "enqueued": enqueued})
	}
	return nil
}

// RequestReprint sets an operator reprint status on an order and queues it
// right away instead of waiting for the next sweep.
func (r *Reconciler) RequestReprint(ctx context.Context, id int64, target string) (domain.PrintStatus, error) {
	status, ok := domain.ReprintFor(target)
	if !ok {
		return "", fmt.Errorf("unknown reprint target %q", target)
	}
	o, err := r.repo.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	if err := r.repo.SetStatus(ctx, id, status); err != nil {
		return "", err
	}
	o.PrintStatus = status
	r.lg.Info("reprint_requested", map[string]any{"order_id": id, "order_number": o.OrderNumber, "print_status": status})
	r.enqueue(ctx, Job{Order: o, Source: SourceOperator})
	return status, nil
}

// enqueue blocks while the queue is full. A reprint already queued or in
// progress for the same status is not queued twice.
func (r *Reconciler) enqueue(ctx context.Context, job Job) bool {
	key := inflightKey{id: job.Order.ID, status: job.Order.PrintStatus}
	if job.Order.PrintStatus.IsReprint() {
		r.mu.Lock()
		if _, busy := r.inflight[key]; busy {
			r.mu.Unlock()
			return false
		}
		r.inflight[key] = struct{}{}
		r.mu.Unlock()
	}

	select {
	case r.jobs <- job:
		r.metrics.QueueDepth.Inc()
		return true
	case <-ctx.Done():
		r.release(key)
		return false
	}
}

func (r *Reconciler) release(key inflightKey) {
	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
}

func (r *Reconciler) claimAndProcess(ctx context.Context, job Job) {
	o := job.Order
	status := o.PrintStatus
	fields := map[string]any{"order_id": o.ID, "order_number": o.OrderNumber, "print_status": status, "source": job.Source}

	switch {
	case status == domain.StatusPendingPrint:
		ok, err := r.repo.TryClaim(ctx, o.ID, domain.StatusPendingPrint)
		if err != nil {
			r.metrics.Claims.WithLabelValues("error").Inc()
			r.lg.Error("claim_failed", err, fields)
			return
		}
		if !ok {
			r.metrics.Claims.WithLabelValues("lost").Inc()
			r.lg.Debug("claim_lost", fields)
			return
		}
		r.metrics.Claims.WithLabelValues("won").Inc()

	case status.IsReprint():
		defer r.release(inflightKey{id: o.ID, status: status})
		cur, err := r.repo.GetOrder(ctx, o.ID)
		if err != nil {
			r.lg.Error("reprint_read_failed", err, fields)
			return
		}
		if cur.PrintStatus != status {
			r.lg.Debug("reprint_superseded", map[string]any{"order_id": o.ID, "queued": status, "current": cur.PrintStatus})
			return
		}
		o = cur

	default:
		r.lg.Debug("job_ignored", fields)
		return
	}

	r.lg.Info("order_processing_started", fields)
	deliveries := r.deliver(ctx, o, status.Roles())

	kind := "print"
	if status.IsReprint() {
		kind = "reprint"
	}
	if err := r.repo.SetStatus(ctx, o.ID, domain.StatusPrinted); err != nil {
		r.lg.Error("finalize_failed", err, fields)
	} else {
		r.metrics.Finalized.WithLabelValues(kind).Inc()
		r.lg.Info("order_printed", map[string]any{"order_id": o.ID, "order_number": o.OrderNumber, "kind": kind, "deliveries": deliveries})
	}

	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := r.notifier.Notify(nctx, PrintEvent{
		EventID:     uuid.NewString(),
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		OldStatus:   status,
		NewStatus:   domain.StatusPrinted,
		Source:      job.Source,
		Deliveries:  deliveries,
		Instance:    r.instance,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		r.lg.Warn("print_event_publish_failed", map[string]any{"order_id": o.ID, "error": err.Error()})
	}
}

// deliver renders and sends one ticket per bound role. A failure at one
// printer never stops the other.
func (r *Reconciler) deliver(ctx context.Context, o domain.Order, roles []domain.Role) []Delivery {
	b := r.bindings.Current(ctx)
	out := make([]Delivery, 0, len(roles))

	for _, role := range roles {
		printer := b.Printer(role)
		if printer == "" {
			r.logUnbound(role)
			r.metrics.Deliveries.WithLabelValues(string(role), string(DeliverySkipped)).Inc()
			out = append(out, Delivery{Role: role, Result: DeliverySkipped})
			continue
		}

		d := Delivery{Role: role, Printer: printer, Result: DeliveryOK}
		t, err := r.renderer.Render(role, o)
		if err == nil {
			start := time.Now()
			dctx, cancel := context.WithTimeout(ctx, r.cfg.DeliveryTimeout)
			err = r.sink.Send(dctx, printer, t.Bytes)
			cancel()
			r.metrics.DeliveryDuration.WithLabelValues(string(role)).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			d.Result, d.Error = DeliveryFailed, err.Error()
			r.lg.Error("print_failed", err, map[string]any{"order_id": o.ID, "role": role, "printer": printer})
		} else {
			r.lg.Debug("ticket_sent", map[string]any{"order_id": o.ID, "role": role, "printer": printer, "bytes": len(t.Bytes)})
		}
		r.metrics.Deliveries.WithLabelValues(string(role), string(d.Result)).Inc()
		out = append(out, d)
	}
	return out
}

func (r *Reconciler) logUnbound(role domain.Role) {
	r.mu.Lock()
	seen := r.unbound[role]
	r.unbound[role] = true
	r.mu.Unlock()
	if !seen {
		r.lg.Warn("role_unbound", map[string]any{"role": role})
	}
}
