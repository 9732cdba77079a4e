package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Commands      *prometheus.CounterVec
	ExpiringSoon  prometheus.Gauge
	EventFailures prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_commands_total",
			Help:      "Contract and renewal commands by action and result",
		}, []string{"action", "result"}),
		ExpiringSoon: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contracts_expiring_soon",
			Help:      "Contracts in the expiring-soon feed at the last query",
		}),
		EventFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_event_record_failures_total",
			Help:      "Lifecycle events that could not be recorded",
		}),
	}
	reg.MustRegister(m.Commands, m.ExpiringSoon, m.EventFailures)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// resultLabel maps a command error onto a bounded label set.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflictingRenewal):
		return "conflicting_renewal"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (m *Metrics) observeCommand(action string, err error) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(action, resultLabel(err)).Inc()
}

func (m *Metrics) setExpiringSoon(n int) {
	if m == nil {
		return
	}
	m.ExpiringSoon.Set(float64(n))
}

func (m *Metrics) eventFailed() {
	if m == nil {
		return
	}
	m.EventFailures.Inc()
}
