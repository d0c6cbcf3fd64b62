// Package metrics defines the Prometheus collectors for the vocabulary and
// cooccurrence stages and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Merge scopes and directions used as label values.
const (
	ScopeWorker = "worker"
	ScopeFinal  = "final"
	ScopeShards = "shards"

	DirectionIn  = "in"
	DirectionOut = "out"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	TokensScannedTotal  *prometheus.CounterVec
	UnknownTokensTotal  prometheus.Counter
	TableShrinksTotal   prometheus.Counter
	RecordsEmittedTotal prometheus.Counter
	SpillsTotal         prometheus.Counter
	RunFileRecords      prometheus.Histogram
	MergeRecordsTotal   *prometheus.CounterVec
	ActiveWorkers       *prometheus.GaugeVec
	StageDuration       *prometheus.HistogramVec
	handler             http.Handler
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which suits tests and library callers that do not
// scrape.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TokensScannedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hpca_tokens_scanned_total",
				Help: "Corpus tokens read, by stage (vocab, count).",
			},
			[]string{"stage"},
		),
		UnknownTokensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hpca_unknown_tokens_total",
				Help: "Corpus tokens missing from the frozen vocabulary.",
			},
		),
		TableShrinksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hpca_table_shrinks_total",
				Help: "Lossy hash-table shrinks performed by vocabulary workers.",
			},
		),
		RecordsEmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hpca_records_emitted_total",
				Help: "Cooccurrence observations emitted by the window scan.",
			},
		),
		SpillsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hpca_spills_total",
				Help: "Run files written by counting workers.",
			},
		),
		RunFileRecords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hpca_run_file_records",
				Help:    "Records per run file after coalescing.",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		MergeRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hpca_merge_records_total",
				Help: "Records read and written by merges, by scope and direction.",
			},
			[]string{"scope", "direction"},
		),
		ActiveWorkers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hpca_active_workers",
				Help: "Workers currently processing a corpus range, by stage.",
			},
			[]string{"stage"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hpca_stage_duration_seconds",
				Help:    "Wall-clock duration of pipeline stages.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"stage"},
		),
		handler: promhttp.Handler(),
	}

	if reg != nil {
		reg.MustRegister(
			m.TokensScannedTotal,
			m.UnknownTokensTotal,
			m.TableShrinksTotal,
			m.RecordsEmittedTotal,
			m.SpillsTotal,
			m.RunFileRecords,
			m.MergeRecordsTotal,
			m.ActiveWorkers,
			m.StageDuration,
		)
		if g, ok := reg.(prometheus.Gatherer); ok {
			m.handler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
	}
	return m
}

// ObserveStage records the duration of one stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveMerge records the record counts of one merge.
func (m *Metrics) ObserveMerge(scope string, in, out int64) {
	m.MergeRecordsTotal.WithLabelValues(scope, DirectionIn).Add(float64(in))
	m.MergeRecordsTotal.WithLabelValues(scope, DirectionOut).Add(float64(out))
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}
