package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricItemUpdatesTotal      = "etracker_item_updates_total"
	MetricReportCompileDuration = "etracker_report_compile_duration_seconds"
	MetricReportDocuments       = "etracker_report_documents_scanned"
	MetricActiveExceptions      = "etracker_active_exceptions"
)

// Update outcomes.
const (
	OutcomeUpdated = "updated"
	OutcomeNoop    = "noop"
	OutcomeError   = "error"
)

// Metrics holds the engine and report collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	itemUpdates      *prometheus.CounterVec
	compileDuration  prometheus.Histogram
	documentsScanned prometheus.Gauge
	activeExceptions *prometheus.GaugeVec
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		itemUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricItemUpdatesTotal,
			Help: "Enforcement item update calls by outcome",
		}, []string{"outcome"}),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricReportCompileDuration,
			Help:    "Duration of report compilation in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		documentsScanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricReportDocuments,
			Help: "Inventory documents scanned by the last report compilation",
		}),
		activeExceptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricActiveExceptions,
			Help: "Active exceptions per group as of the last report compilation",
		}, []string{"group"}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.itemUpdates, m.compileDuration, m.documentsScanned, m.activeExceptions}
}

func (m *Metrics) incUpdate(outcome string) {
	if m == nil {
		return
	}
	m.itemUpdates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeCompile(seconds float64, documents int, byGroup []GroupCount) {
	if m == nil {
		return
	}
	m.compileDuration.Observe(seconds)
	m.documentsScanned.Set(float64(documents))
	m.activeExceptions.Reset()
	for _, g := range byGroup {
		m.activeExceptions.WithLabelValues(g.Group).Set(float64(g.Count))
	}
}
