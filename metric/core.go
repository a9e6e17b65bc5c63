package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core harness metrics recorded by the invocation engine.
type Metrics struct {
	TriggersTotal        prometheus.Counter
	TriggerFailuresTotal prometheus.Counter
	TriggerDuration      prometheus.Histogram
	LifecycleFailures    *prometheus.CounterVec
	RunsTotal            prometheus.Counter
	QueueDepth           prometheus.Gauge
}

// NewMetrics creates the core harness metrics. Call register (via NewRegistry)
// before recording.
func NewMetrics() *Metrics {
	return &Metrics{
		TriggersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowtest",
			Subsystem: "trigger",
			Name:      "invocations_total",
			Help:      "Total number of trigger invocations (successful or failed)",
		}),

		TriggerFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowtest",
			Subsystem: "trigger",
			Name:      "failures_total",
			Help:      "Total number of trigger invocations that returned an error",
		}),

		TriggerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flowtest",
			Subsystem: "trigger",
			Name:      "duration_seconds",
			Help:      "Trigger invocation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		LifecycleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowtest",
			Subsystem: "lifecycle",
			Name:      "failures_total",
			Help:      "Total number of lifecycle hook failures",
		}, []string{"phase"}),

		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowtest",
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of run calls",
		}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowtest",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current number of flow files in the input queue",
		}),
	}
}

func (m *Metrics) register(registry *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		m.TriggersTotal,
		m.TriggerFailuresTotal,
		m.TriggerDuration,
		m.LifecycleFailures,
		m.RunsTotal,
		m.QueueDepth,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// ObserveTrigger records one completed trigger attempt.
func (m *Metrics) ObserveTrigger(duration time.Duration, failed bool) {
	m.TriggersTotal.Inc()
	if failed {
		m.TriggerFailuresTotal.Inc()
	}
	m.TriggerDuration.Observe(duration.Seconds())
}

// ObserveLifecycleFailure records a failed lifecycle hook invocation.
func (m *Metrics) ObserveLifecycleFailure(phase string) {
	m.LifecycleFailures.WithLabelValues(phase).Inc()
}
