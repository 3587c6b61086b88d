// Package metrics holds the Prometheus collectors for the session client.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Renewal outcomes.
const (
	RenewalSuccess    = "success"
	RenewalFailure    = "failure"
	RenewalSuperseded = "superseded"
)

// Metrics contains the client's counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
	RenewalsTotal *prometheus.CounterVec
	GuardTotal    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidops_client_requests_total",
				Help: "Total number of HTTP attempts by method and status",
			},
			[]string{"method", "status"},
		),
		RenewalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidops_client_renewals_total",
				Help: "Total number of bearer renewals by outcome",
			},
			[]string{"outcome"},
		),
		GuardTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidops_guard_outcomes_total",
				Help: "Total number of route guard outcomes by state and reason",
			},
			[]string{"state", "reason"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RenewalsTotal, m.GuardTotal)
	}
	return m
}

func (m *Metrics) Request(method string, status int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Renewal(outcome string) {
	if m == nil {
		return
	}
	m.RenewalsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Guard(state, reason string) {
	if m == nil {
		return
	}
	m.GuardTotal.WithLabelValues(state, reason).Inc()
}
