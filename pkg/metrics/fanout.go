package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FanoutMetrics records outcomes of chat notification fan-out events.
type FanoutMetrics struct {
	processed  prometheus.Counter
	suppressed prometheus.Counter
	duplicates prometheus.Counter
	failures   prometheus.Counter
	dispatch   prometheus.Histogram
}

// NewFanoutMetrics registers the fan-out metrics on the provided registerer.
func NewFanoutMetrics(reg prometheus.Registerer) *FanoutMetrics {
	if reg == nil {
		return &FanoutMetrics{}
	}
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fanout_events_processed",
		Help: "Channel update events that produced a push dispatch.",
	})
	suppressed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fanout_events_suppressed",
		Help: "Channel update events skipped because the message list did not grow.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fanout_events_duplicate",
		Help: "Events skipped by the sent-notification ledger.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fanout_events_failed",
		Help: "Events whose handling errored and became a silent miss.",
	})
	dispatch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanout_dispatch_seconds",
		Help:    "Duration of push provider dispatch calls in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(processed, suppressed, duplicates, failures, dispatch)
	return &FanoutMetrics{
		processed:  processed,
		suppressed: suppressed,
		duplicates: duplicates,
		failures:   failures,
		dispatch:   dispatch,
	}
}

// IncProcessed counts a successfully dispatched event.
func (m *FanoutMetrics) IncProcessed() {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.Inc()
}

// IncSuppressed counts an event skipped for lack of message growth.
func (m *FanoutMetrics) IncSuppressed() {
	if m == nil || m.suppressed == nil {
		return
	}
	m.suppressed.Inc()
}

// IncDuplicate counts an event skipped by the ledger.
func (m *FanoutMetrics) IncDuplicate() {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.Inc()
}

// IncFailure counts an event that errored.
func (m *FanoutMetrics) IncFailure() {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Inc()
}

// ObserveDispatch records the duration of a push dispatch.
func (m *FanoutMetrics) ObserveDispatch(d time.Duration) {
	if m == nil || m.dispatch == nil {
		return
	}
	m.dispatch.Observe(d.Seconds())
}
