package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"print-dispatcher/internal/common/config"
	"print-dispatcher/internal/common/httpx"
	"print-dispatcher/internal/common/logger"
	"print-dispatcher/internal/common/metrics"
	"print-dispatcher/internal/connections/database"
	"print-dispatcher/internal/connections/rabbitmq"
	"print-dispatcher/internal/domain"
	"print-dispatcher/internal/microservices/dispatcher/feed"
	"print-dispatcher/internal/microservices/dispatcher/handler"
	"print-dispatcher/internal/microservices/dispatcher/repository"
	"print-dispatcher/internal/microservices/dispatcher/service"
	"print-dispatcher/internal/microservices/order"
	ordersvc "print-dispatcher/internal/microservices/order/service"
	"print-dispatcher/internal/microservices/tracker"
	"print-dispatcher/internal/printing/resolver"
	"print-dispatcher/internal/printing/sink"
	"print-dispatcher/internal/printing/ticket"
)

// Run wires the order store, printers, change feed and ops server, then
// blocks in the reconciler until ctx is cancelled.
func Run(ctx context.Context, cfg config.App) error {
	lg := logger.New("dispatcher")

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open order store: %w", err)
	}
	defer db.Close()
	repo := repository.New(db, cfg.Database.Driver).OrderRepo

	m := metrics.New()
	res := NewResolver(cfg.Printers)
	bindings, report := res.Refresh(ctx)
	recordBindings(m, bindings, report)

	snk := sink.NewDefault(cfg.Dispatcher.DeliveryTimeout)
	renderer := ticket.NewRenderer(TicketOptions(cfg.Ticket), nil)
	if cfg.Printers.SelfTest {
		SelfTest(ctx, snk, renderer, bindings, cfg.Dispatcher.DeliveryTimeout)
	}

	var rmq *rabbitmq.Client
	if cfg.Rabbit.Enabled {
		rmq, err = rabbitmq.Dial(cfg.Rabbit)
		if err != nil {
			if cfg.Feed.Source == "amqp" {
				return err
			}
			lg.Error("rabbitmq_unavailable", err, map[string]any{"print_events": "disabled"})
		} else {
			defer rmq.Close()
			if err := rmq.DeclareTopology(""); err != nil {
				return fmt.Errorf("declare rabbitmq topology: %w", err)
			}
		}
	}

	history := tracker.New(db, cfg.Database.Driver)
	go history.RunPruner(ctx, cfg.Dispatcher.HistoryRetention)

	notifier := service.Notifiers{history.Service}
	if rmq != nil {
		notifier = append(notifier, service.NewAMQPNotifier(rmq))
	}

	src, err := newFeed(cfg, rmq)
	if err != nil {
		return err
	}

	rec := service.NewReconciler(service.Deps{
		Repo:     repo,
		Renderer: renderer,
		Sink:     snk,
		Feed:     src,
		Notifier: notifier,
		Metrics:  m,
	}, service.Config{
		PollInterval:    cfg.Dispatcher.PollInterval,
		DeliveryTimeout: cfg.Dispatcher.DeliveryTimeout,
		Workers:         cfg.Dispatcher.Workers,
		QueueSize:       cfg.Dispatcher.QueueSize,
	})

	if cfg.HTTP.Addr != "" {
		h := handler.New(repo, rec, res, m.Handler())
		h.History = history.Handler.GetHistory
		if cfg.HTTP.Intake {
			var pub ordersvc.Publisher
			if cfg.Feed.Source == "amqp" && rmq != nil {
				pub = rmq
			}
			h.Intake = order.NewHandler(db, cfg.Database.Driver, pub).OrderHandler.AddOrder
		}
		srv := httpx.New(cfg.HTTP.Addr, handler.Router(h))
		go func() {
			lg.Info("http_listening", map[string]any{"addr": cfg.HTTP.Addr})
			if err := srv.Run(ctx); err != nil {
				lg.Error("http_server_failed", err, map[string]any{"addr": cfg.HTTP.Addr})
			}
		}()
	}

	return rec.Run(ctx, &meteredBindings{res: res, m: m})
}

func newFeed(cfg config.App, rmq *rabbitmq.Client) (feed.Source, error) {
	switch cfg.Feed.Source {
	case "postgres":
		return feed.NewListener(cfg.Database.DSN(), cfg.Feed.Channel), nil
	case "amqp":
		if rmq == nil {
			return nil, errors.New("feed source amqp needs rabbitmq.enabled")
		}
		return feed.NewConsumer(rmq, cfg.Feed.Queue), nil
	default:
		return feed.None{}, nil
	}
}

// NewResolver builds the printer resolver with the configured enumerator.
func NewResolver(cfg config.Printers) *resolver.Resolver {
	return resolver.New(resolver.Config{
		Kitchen:      cfg.Kitchen,
		Cashier:      cfg.Cashier,
		Target:       cfg.Target,
		Vendor:       cfg.Vendor,
		PortPriority: cfg.PortPriority,
	}, Enumerator(cfg), cfg.RefreshInterval)
}

func Enumerator(cfg config.Printers) sink.Enumerator {
	if cfg.Discovery == "static" {
		devices := make(sink.Static, 0, len(cfg.Devices))
		for _, d := range cfg.Devices {
			devices = append(devices, sink.Device{Name: d.Name, Port: d.Port, Status: d.Status})
		}
		return devices
	}
	return sink.NewCUPS()
}

func TicketOptions(cfg config.Ticket) ticket.Options {
	opts := ticket.DefaultOptions()
	if len(cfg.Brand) > 0 {
		opts.Brand = cfg.Brand
	}
	if cfg.Footer != "" {
		opts.Footer = cfg.Footer
	}
	if cfg.Currency != "" {
		opts.Currency = cfg.Currency
	}
	if cfg.DefaultPayment != "" {
		opts.DefaultPayment = cfg.DefaultPayment
	}
	return opts
}

type TestResult struct {
	Role    domain.Role
	Printer string
	Err     error
}

// SelfTest sends the test ticket once to every distinct bound printer.
// Failures are logged and returned, never fatal.
func SelfTest(ctx context.Context, s sink.Sink, r *ticket.Renderer, b domain.Bindings, timeout time.Duration) []TestResult {
	lg := logger.New("dispatcher")
	data := r.Test()
	seen := map[string]bool{}
	var out []TestResult
	for _, role := range []domain.Role{domain.RoleKitchen, domain.RoleCashier} {
		printer := b.Printer(role)
		if printer == "" || seen[printer] {
			continue
		}
		seen[printer] = true
		tctx, cancel := context.WithTimeout(ctx, timeout)
		err := s.Send(tctx, printer, data)
		cancel()
		if err != nil {
			lg.Error("printer_self_test_failed", err, map[string]any{"role": role, "printer": printer})
		} else {
			lg.Info("printer_self_test", map[string]any{"role": role, "printer": printer})
		}
		out = append(out, TestResult{Role: role, Printer: printer, Err: err})
	}
	return out
}

// meteredBindings republishes the role gauges whenever the resolver is
// consulted.
type meteredBindings struct {
	res *resolver.Resolver
	m   *metrics.Metrics
}

func (mb *meteredBindings) Current(ctx context.Context) domain.Bindings {
	b := mb.res.Current(ctx)
	_, rep, _ := mb.res.Snapshot()
	recordBindings(mb.m, b, rep)
	return b
}

func recordBindings(m *metrics.Metrics, b domain.Bindings, rep resolver.Report) {
	m.Printers.Reset()
	for _, role := range []domain.Role{domain.RoleKitchen, domain.RoleCashier} {
		src := rep.Kitchen
		if role == domain.RoleCashier {
			src = rep.Cashier
		}
		v := 0.0
		if b.Printer(role) != "" {
			v = 1
		}
		m.Printers.WithLabelValues(string(role), string(src)).Set(v)
	}
}
