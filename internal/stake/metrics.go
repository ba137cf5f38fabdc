package stake

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultConfirmed = "confirmed"
	resultReverted  = "reverted"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

// Metrics counts unstake submissions and their outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	submissions prometheus.Counter
	results     *prometheus.CounterVec
	settle      prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stake",
			Name:      "unstake_submissions_total",
			Help:      "Unstake submissions that passed preconditions.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stake",
			Name:      "unstake_results_total",
			Help:      "Unstake outcomes by result.",
		}, []string{"result"}),
		settle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stake",
			Name:      "unstake_settle_seconds",
			Help:      "Time from submission until the staked balance changed.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.submissions, m.results, m.settle} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) submitted() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

func (m *Metrics) result(result string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(result).Inc()
}

func (m *Metrics) settled(d time.Duration) {
	if m == nil {
		return
	}
	m.settle.Observe(d.Seconds())
}
