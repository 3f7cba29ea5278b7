// Package metrics содержит метрики Prometheus сервиса проверки ИНН.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmeshcher/inn-checker/internal/validation"
)

// Metrics собирает счётчики проверок и работы журнала.
type Metrics struct {
	Checks               *prometheus.CounterVec
	JournalSaved         prometheus.Counter
	JournalDropped       prometheus.Counter
	JournalFlushDuration prometheus.Histogram
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inn_checks_total",
			Help: "Total number of INN checks by result and requested payer type",
		}, []string{"result", "payer_type"}),
		JournalSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "inn_journal_saved_total",
			Help: "Total number of checks written to the journal",
		}),
		JournalDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "inn_journal_dropped_total",
			Help: "Total number of checks dropped because the journal queue was full",
		}),
		JournalFlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inn_journal_flush_duration_seconds",
			Help:    "Duration of journal batch writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}),
	}
}

// ObserveCheck учитывает результат одной проверки.
func (m *Metrics) ObserveCheck(result validation.Result, payerType validation.PayerType) {
	label := string(payerType)
	if label == "" {
		label = "unspecified"
	}
	m.Checks.WithLabelValues(string(result), label).Inc()
}

// ObserveFlush учитывает запись пачки в журнал. Вызывается с time.Now() на момент начала записи.
func (m *Metrics) ObserveFlush(start time.Time, saved int) {
	m.JournalFlushDuration.Observe(time.Since(start).Seconds())
	m.JournalSaved.Add(float64(saved))
}

// IncrementDropped учитывает проверку, не попавшую в очередь журнала.
func (m *Metrics) IncrementDropped() {
	m.JournalDropped.Inc()
}
