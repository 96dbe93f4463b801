// Package observability exposes Prometheus metrics of the index.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IndexedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phpsymbols_indexed_files",
		Help: "Number of files with a registered symbol table.",
	})

	IndexedSymbols = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phpsymbols_indexed_symbols",
		Help: "Number of symbols in the name index.",
	})

	OpenReferenceTables = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phpsymbols_open_reference_tables",
		Help: "Number of reference tables held in memory.",
	})

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "phpsymbols_parse_seconds",
		Help:    "Time spent parsing and reading one file.",
		Buckets: prometheus.DefBuckets,
	})

	IndexDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phpsymbols_index_seconds",
		Help:    "Time spent on whole-workspace operations.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"task"})

	ReindexTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phpsymbols_reindex_total",
		Help: "Number of files reindexed, by trigger.",
	}, []string{"trigger"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phpsymbols_watcher_events_total",
		Help: "Number of file system events received by the watcher.",
	})

	CacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phpsymbols_cache_errors_total",
		Help: "Number of absorbed cache failures, by operation.",
	}, []string{"op"})
)

// UpdateIndexGauges refreshes the gauges describing the index size.
func UpdateIndexGauges(files, symbols, openReferences int) {
	IndexedFiles.Set(float64(files))
	IndexedSymbols.Set(float64(symbols))
	OpenReferenceTables.Set(float64(openReferences))
}
