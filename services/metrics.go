package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "robotsim"

// Move results recorded on robotsim_moves_total.
const (
	moveResultMoved      = "moved"
	moveResultOccupied   = "occupied"
	moveResultObstructed = "obstructed"
)

// Metrics - prometheus instruments for the simulation. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Moves              *prometheus.CounterVec
	Livelocks          prometheus.Counter
	StepAsides         prometheus.Counter
	UnreachableTargets prometheus.Counter
	TargetsReached     prometheus.Counter
	BehaviorPanics     prometheus.Counter
	PathCompute        prometheus.Histogram
	RunningSimulations prometheus.Gauge
}

// NewMetrics creates the instruments and registers them with reg. Collectors
// that are already registered are reused, so several factories can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error
	m := &Metrics{}

	if m.Moves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "moves_total",
		Help:      "Movement requests by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if m.Livelocks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "livelocks_total",
		Help:      "Detected mutual-wait livelocks between robots.",
	})); err != nil {
		return nil, err
	}
	if m.StepAsides, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "step_asides_total",
		Help:      "Successful step-aside maneuvers.",
	})); err != nil {
		return nil, err
	}
	if m.UnreachableTargets, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "unreachable_targets_total",
		Help:      "Targets skipped because no path exists.",
	})); err != nil {
		return nil, err
	}
	if m.TargetsReached, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "targets_reached_total",
		Help:      "Targets reached by robots.",
	})); err != nil {
		return nil, err
	}
	if m.BehaviorPanics, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "behavior_panics_total",
		Help:      "Behavior steps that panicked and were recovered.",
	})); err != nil {
		return nil, err
	}
	if m.PathCompute, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "path_compute_seconds",
		Help:      "Time spent computing one path.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})); err != nil {
		return nil, err
	}
	if m.RunningSimulations, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "running_simulations",
		Help:      "Factories whose simulation is currently running.",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) move(result string) {
	if m == nil {
		return
	}
	m.Moves.WithLabelValues(result).Inc()
}

func (m *Metrics) livelock() {
	if m != nil {
		m.Livelocks.Inc()
	}
}

func (m *Metrics) stepAside() {
	if m != nil {
		m.StepAsides.Inc()
	}
}

func (m *Metrics) unreachable() {
	if m != nil {
		m.UnreachableTargets.Inc()
	}
}

func (m *Metrics) targetReached() {
	if m != nil {
		m.TargetsReached.Inc()
	}
}

func (m *Metrics) behaviorPanic() {
	if m != nil {
		m.BehaviorPanics.Inc()
	}
}

func (m *Metrics) observePath(seconds float64) {
	if m == nil {
		return
	}
	m.PathCompute.Observe(seconds)
}

func (m *Metrics) running(delta float64) {
	if m == nil {
		return
	}
	m.RunningSimulations.Add(delta)
}
