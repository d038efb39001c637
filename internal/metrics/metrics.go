// Package metrics exposes Prometheus instruments for the record log and advisor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters and histograms the service records.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RecordsAppended  *prometheus.CounterVec
	AppendFailures   *prometheus.CounterVec
	CorruptRows      *prometheus.CounterVec
	ReadDuration     *prometheus.HistogramVec
	AdvisorAttempts  prometheus.Counter
	AdvisorRetries   prometheus.Counter
	AdvisorFallbacks prometheus.Counter
}

// New registers all instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonlog_records_appended_total",
			Help: "Total number of records appended",
		}, []string{"backend"}),
		AppendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonlog_append_failures_total",
			Help: "Total number of appends that failed and were rolled back",
		}, []string{"backend"}),
		CorruptRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonlog_corrupt_rows_total",
			Help: "Total number of stored rows skipped because their payload did not parse",
		}, []string{"backend"}),
		ReadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carbonlog_read_duration_seconds",
			Help:    "Duration of full-history reads",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"backend"}),
		AdvisorAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "carbonlog_advisor_attempts_total",
			Help: "Total number of advisor requests sent",
		}),
		AdvisorRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "carbonlog_advisor_retries_total",
			Help: "Total number of advisor requests retried after a transient failure",
		}),
		AdvisorFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "carbonlog_advisor_fallbacks_total",
			Help: "Total number of advisor calls answered with the fallback message",
		}),
	}
}

// IncrementAppended records a successful append.
func (m *Metrics) IncrementAppended(backend string) {
	if m == nil {
		return
	}
	m.RecordsAppended.WithLabelValues(backend).Inc()
}

// IncrementAppendFailure records a failed append.
func (m *Metrics) IncrementAppendFailure(backend string) {
	if m == nil {
		return
	}
	m.AppendFailures.WithLabelValues(backend).Inc()
}

// IncrementCorruptRow records a skipped row.
func (m *Metrics) IncrementCorruptRow(backend string) {
	if m == nil {
		return
	}
	m.CorruptRows.WithLabelValues(backend).Inc()
}

// ObserveRead records the duration of a ReadAll call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRead(backend string, start time.Time) {
	if m == nil {
		return
	}
	m.ReadDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementAdvisorAttempt() {
	if m == nil {
		return
	}
	m.AdvisorAttempts.Inc()
}

func (m *Metrics) IncrementAdvisorRetry() {
	if m == nil {
		return
	}
	m.AdvisorRetries.Inc()
}

func (m *Metrics) IncrementAdvisorFallback() {
	if m == nil {
		return
	}
	m.AdvisorFallbacks.Inc()
}
