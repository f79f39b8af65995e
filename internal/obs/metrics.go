package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors a Matcher records against. A nil
// *Metrics is valid and every method on it is a no-op, so an uninstrumented
// Matcher pays only a nil check per call.
type Metrics struct {
	matchTotal *prometheus.CounterVec
	processDur prometheus.Histogram
}

// NewMetrics registers the moqtail collectors against reg and returns a
// Metrics ready to pass to a Matcher's WithMetrics option.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		matchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moqtail",
			Name:      "matches_total",
			Help:      "Count of Matcher.Matches evaluations by outcome.",
		}, []string{"matched"}),
		processDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "moqtail",
			Name:      "process_duration_seconds",
			Help:      "Latency of Matcher.Process calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.matchTotal, m.processDur)
	return m
}

// ObserveMatch records a Matches outcome.
func (m *Metrics) ObserveMatch(matched bool) {
	if m == nil {
		return
	}
	label := "false"
	if matched {
		label = "true"
	}
	m.matchTotal.WithLabelValues(label).Inc()
}

// ObserveProcess records how long a Process call took.
func (m *Metrics) ObserveProcess(d time.Duration) {
	if m == nil {
		return
	}
	m.processDur.Observe(d.Seconds())
}
