package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dispatcher's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Claims           *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec
	Sweeps           *prometheus.CounterVec
	Finalized        *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	Printers         *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "print_claims_total",
			Help: "Claim attempts by outcome (won, lost, error).",
		}, []string{"result"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "print_deliveries_total",
			Help: "Ticket deliveries by role and outcome.",
		}, []string{"role", "result"}),
		DeliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "print_delivery_duration_seconds",
			Help:    "Time spent handing a ticket to its printer.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"role"}),
		Sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "print_sweeps_total",
			Help: "Poll sweeps by outcome.",
		}, []string{"result"}),
		Finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "print_orders_finalized_total",
			Help: "Orders moved to printed, by first print or reprint.",
		}, []string{"kind"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "print_queue_depth",
			Help: "Orders waiting for a dispatch worker.",
		}),
		Printers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "print_role_bound",
			Help: "1 when a role has a resolved printer.",
		}, []string{"role", "source"}),
	}
	m.registry.MustRegister(
		m.Claims, m.Deliveries, m.DeliveryDuration, m.Sweeps, m.Finalized, m.QueueDepth, m.Printers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
