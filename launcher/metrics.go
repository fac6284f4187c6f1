package launcher

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Launch outcomes recorded by Metrics.
const (
	outcomeDispatched = "dispatched"
	outcomeFailed     = "failed"
	outcomeNotReady   = "not_ready"
)

// Metrics holds the launcher's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	launches   *prometheus.CounterVec
	duplicates prometheus.Counter
	suppressed prometheus.Counter
	notFound   prometheus.Counter
	inFlight   prometheus.Gauge
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corevalid_adapter",
			Name:      "launches_total",
			Help:      "Launch attempts that reached dispatch, by launch type and outcome.",
		}, []string{"launch_type", "outcome"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corevalid_adapter",
			Name:      "duplicate_launches_total",
			Help:      "Manual launches dropped because the timestamp was already in flight.",
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corevalid_adapter",
			Name:      "suppressed_auto_launches_total",
			Help:      "Task updates skipped because every trigger file was already used.",
		}),
		notFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corevalid_adapter",
			Name:      "task_not_found_total",
			Help:      "Manual launches whose task could not be retrieved.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "corevalid_adapter",
			Name:      "manual_launches_in_flight",
			Help:      "Manual launches currently holding a timestamp marker.",
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.launches, m.duplicates, m.suppressed, m.notFound, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) launch(t LaunchType, outcome string) {
	if m == nil {
		return
	}
	m.launches.WithLabelValues(string(t), outcome).Inc()
}

func (m *Metrics) duplicate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

func (m *Metrics) suppressedAuto() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *Metrics) taskNotFound() {
	if m == nil {
		return
	}
	m.notFound.Inc()
}

func (m *Metrics) acquired() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) released() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
