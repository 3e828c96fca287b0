package mountstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the store collectors. A nil *metrics records nothing.
type metrics struct {
	dispatches *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	mounted    prometheus.Gauge
	recomputes prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, storeID string) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	labels := prometheus.Labels{"store": storeID}
	m := &metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mountstore_dispatch_total",
			Help:        "Dispatched actions by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mountstore_dispatch_failures_total",
			Help:        "Rejected dispatches by kind and reason",
			ConstLabels: labels,
		}, []string{"kind", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "mountstore_dispatch_duration_seconds",
			Help:        "Dispatch duration in seconds",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"kind"}),
		mounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mountstore_mounted_stores",
			Help:        "Registered mount points",
			ConstLabels: labels,
		}),
		recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mountstore_cache_recompute_total",
			Help:        "Node cache recomputations",
			ConstLabels: labels,
		}),
	}
	for _, collector := range []prometheus.Collector{m.dispatches, m.failures, m.duration, m.mounted, m.recomputes} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("%w: register metrics: %w", ErrConfiguration, err)
		}
	}
	return m, nil
}

func (m *metrics) observeDispatch(kind Kind, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	label := kind.String()
	m.dispatches.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(label, failureReason(err)).Inc()
	}
}

func (m *metrics) setMounted(count int) {
	if m == nil {
		return
	}
	m.mounted.Set(float64(count))
}

func (m *metrics) recomputed() {
	if m == nil {
		return
	}
	m.recomputes.Inc()
}

func failureReason(err error) string {
	switch {
	case isResolveFailure(err):
		return "resolve"
	case errors.Is(err, ErrData):
		return "data"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrUsage):
		return "usage"
	default:
		return "other"
	}
}
