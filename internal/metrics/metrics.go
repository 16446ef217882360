package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dashboard's Prometheus collectors.
type Metrics struct {
	projectsCreated   *prometheus.CounterVec
	projectsCompleted *prometheus.CounterVec
	invoicesExported  *prometheus.CounterVec
	counterFallbacks  *prometheus.CounterVec
	reorderFailures   prometheus.Counter
	invoiceAmount     *prometheus.HistogramVec
	pendingItems      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		projectsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_projects_created_total",
				Help: "Total number of projects created",
			},
			[]string{"brand"},
		),
		projectsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_projects_completed_total",
				Help: "Total number of projects completed with an invoice price",
			},
			[]string{"brand"},
		),
		invoicesExported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_invoices_exported_total",
				Help: "Total number of invoices exported",
			},
			[]string{"brand"},
		),
		counterFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_invoice_counter_fallbacks_total",
				Help: "Invoice numbers taken from the local cache because the database counter failed",
			},
			[]string{"brand"},
		),
		reorderFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dashboard_reorder_failures_total",
				Help: "Reorders that failed to persist and were reloaded",
			},
		),
		invoiceAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_invoice_amount_dollars",
				Help:    "Total amount of exported invoices",
				Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3200},
			},
			[]string{"brand"},
		),
		pendingItems: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dashboard_pending_invoice_items",
				Help: "Completed projects waiting to be invoiced",
			},
			[]string{"brand"},
		),
	}
}

func (m *Metrics) IncProjectsCreated(brand string) {
	m.projectsCreated.WithLabelValues(brand).Inc()
}

func (m *Metrics) IncProjectsCompleted(brand string) {
	m.projectsCompleted.WithLabelValues(brand).Inc()
}

// RecordExport counts an exported invoice and observes its total.
func (m *Metrics) RecordExport(brand string, amount float64) {
	m.invoicesExported.WithLabelValues(brand).Inc()
	m.invoiceAmount.WithLabelValues(brand).Observe(amount)
}

func (m *Metrics) IncCounterFallback(brand string) {
	m.counterFallbacks.WithLabelValues(brand).Inc()
}

func (m *Metrics) IncReorderFailures() {
	m.reorderFailures.Inc()
}

func (m *Metrics) SetPendingItems(brand string, n int) {
	m.pendingItems.WithLabelValues(brand).Set(float64(n))
}
