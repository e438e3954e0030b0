// Package metrics provides optional Prometheus instrumentation for a
// cif.Reader. A Reader that is never passed to Instrument never touches
// this package's dependency; wiring it in is entirely opt-in, since the
// core reader's callback contract has no observability hooks of its own.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ciflib/cif/cif"
)

// Collector wraps the Prometheus counters and histogram for a Reader:
// rows delivered per category (ObserveRow), blocks decoded and
// block-decode latency (TimeBlock), and the unknown-category/keyword
// counters that Instrument attaches to the Reader's callbacks.
type Collector struct {
	rowsTotal     *prometheus.CounterVec
	blocksTotal   prometheus.Counter
	blockDuration prometheus.Histogram
	unknownCats   prometheus.Counter
	unknownKeys   prometheus.Counter
}

// NewCollector registers a fresh set of metrics under reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cif",
			Name:      "rows_total",
			Help:      "Rows delivered to a registered category's row callback.",
		}, []string{"category"}),
		blocksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cif",
			Name:      "blocks_total",
			Help:      "Data blocks fully read.",
		}),
		blockDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cif",
			Name:      "block_decode_seconds",
			Help:      "Wall-clock time spent inside a single ReadBlock call.",
			Buckets:   prometheus.DefBuckets,
		}),
		unknownCats: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cif",
			Name:      "unknown_categories_total",
			Help:      "Category references that matched no registered category.",
		}),
		unknownKeys: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cif",
			Name:      "unknown_keywords_total",
			Help:      "Keyword references that matched no registered keyword.",
		}),
	}
}

// Instrument installs c's unknown-category/keyword counters on r. Call
// it before setting any callback of your own via
// SetUnknownCategoryCallback/SetUnknownKeywordCallback, and call yours
// from inside the replacement if you need both.
func Instrument(r *cif.Reader, c *Collector) {
	r.SetUnknownCategoryCallback(func(category string, line int) {
		c.unknownCats.Inc()
	})
	r.SetUnknownKeywordCallback(func(category, keyword string, line int) {
		c.unknownKeys.Inc()
	})
}

// TimeBlock wraps a single ReadBlock call, recording its latency and,
// when it ran to completion without error, incrementing blocksTotal.
func (c *Collector) TimeBlock(fn func() (bool, error)) (bool, error) {
	start := time.Now()
	more, err := fn()
	c.blockDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		c.blocksTotal.Inc()
	}
	return more, err
}

// ObserveRow records one row delivered to category. Callers wire this
// into their own row callback, since the dispatcher has no generic
// per-row hook independent of a specific category registration.
func (c *Collector) ObserveRow(category string) {
	c.rowsTotal.WithLabelValues(category).Inc()
}
