package metrics

import (
	"AleoRisk/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analyses       *prometheus.CounterVec
	transactions   *prometheus.CounterVec
	reportsStored  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastVolatility prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a Prometheus recorder registered on reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aleorisk_analyses_total",
				Help: "Completed analyses by risk level",
			},
			[]string{"risk_level"},
		),
		transactions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aleorisk_transactions_total",
				Help: "Transactions handed off, by function and status",
			},
			[]string{"function", "status"},
		),
		reportsStored: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aleorisk_reports_stored_total",
				Help: "Risk reports routed to a backend",
			},
			[]string{"backend"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aleorisk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastVolatility: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "aleorisk_last_volatility_percent",
				Help: "Annualized volatility of the most recent analysis",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aleorisk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAnalysis counts an analysis and remembers its volatility.
func (r *Recorder) RecordAnalysis(level models.RiskLevel, volatility float64) {
	r.analyses.WithLabelValues(string(level)).Inc()
	r.lastVolatility.Set(volatility)
}

// RecordTransaction counts a handed-off transaction.
func (r *Recorder) RecordTransaction(function string, status models.TxState) {
	r.transactions.WithLabelValues(function, string(status)).Inc()
}

// RecordReportStored counts a report routed to backend.
func (r *Recorder) RecordReportStored(backend string) {
	r.reportsStored.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
