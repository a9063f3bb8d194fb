package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the landing-target estimator's Prometheus instruments.
// Built against a caller-supplied Registerer rather than the global
// default, so a single process can run more than one estimator instance
// (e.g. under test) without colliding metric names.
type Metrics struct {
	Resets          *prometheus.CounterVec
	GateRejections  *prometheus.CounterVec
	UpdatesFused    *prometheus.CounterVec
	NumericFaults   prometheus.Counter
	CovarianceTrace prometheus.Gauge
	ActiveVariant   *prometheus.GaugeVec
}

// NewMetrics registers the estimator's instruments against reg. Pass
// prometheus.NewRegistry() for an isolated registry, or the default
// DefaultRegisterer to expose them on a shared /metrics endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		Resets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "landing_estimator",
				Name:      "resets_total",
				Help:      "Total number of filter-bank resets, by reason.",
			},
			[]string{"reason"},
		),
		GateRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "landing_estimator",
				Name:      "gate_rejections_total",
				Help:      "Total number of observations rejected by the innovation gate, by sensor.",
			},
			[]string{"sensor"},
		),
		UpdatesFused: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "landing_estimator",
				Name:      "updates_fused_total",
				Help:      "Total number of observations fused into the filter bank, by sensor.",
			},
			[]string{"sensor"},
		),
		NumericFaults: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "landing_estimator",
				Name:      "numeric_faults_total",
				Help:      "Total number of NaN/Inf faults detected in the filter state or covariance.",
			},
		),
		CovarianceTrace: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "landing_estimator",
				Name:      "covariance_trace",
				Help:      "Trace of the current filter-bank covariance diagonal.",
			},
		),
		ActiveVariant: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "landing_estimator",
				Name:      "active_variant",
				Help:      "1 for the currently active filter variant, 0 otherwise.",
			},
			[]string{"variant"},
		),
	}
	return m
}

// RecordReset increments the reset counter for the given reason.
func (m *Metrics) RecordReset(reason string) {
	if m == nil || reason == "" {
		return
	}
	m.Resets.WithLabelValues(reason).Inc()
}

// RecordGateRejection increments the gate-rejection counter for a sensor.
func (m *Metrics) RecordGateRejection(sensor string) {
	if m == nil {
		return
	}
	m.GateRejections.WithLabelValues(sensor).Inc()
}

// RecordUpdate increments the fused-update counter for a sensor.
func (m *Metrics) RecordUpdate(sensor string) {
	if m == nil {
		return
	}
	m.UpdatesFused.WithLabelValues(sensor).Inc()
}

// RecordNumericFault increments the numeric-fault counter.
func (m *Metrics) RecordNumericFault() {
	if m == nil {
		return
	}
	m.NumericFaults.Inc()
}

// SetCovarianceTrace sets the covariance-trace gauge.
func (m *Metrics) SetCovarianceTrace(trace float64) {
	if m == nil {
		return
	}
	m.CovarianceTrace.Set(trace)
}

// SetActiveVariant zeroes every known variant gauge and sets the active
// one to 1, so the exposition always shows exactly one variant lit.
func (m *Metrics) SetActiveVariant(active string, known []string) {
	if m == nil {
		return
	}
	for _, v := range known {
		val := 0.0
		if v == active {
			val = 1.0
		}
		m.ActiveVariant.WithLabelValues(v).Set(val)
	}
}
