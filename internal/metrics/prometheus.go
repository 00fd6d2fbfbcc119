// Package metrics provides Prometheus metrics for the subscription fleet.
package metrics

import (
	"github.com/MacJediWizard/gatekeep/internal/billing"
	"github.com/MacJediWizard/gatekeep/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments exposed by the server.
type Metrics struct {
	SubscriptionsTotal  prometheus.Gauge
	SubscriptionsActive prometheus.Gauge
	SubscriptionsTrial  prometheus.Gauge
	SubscriptionsPaid   prometheus.Gauge
	EstimatedRevenue    prometheus.Gauge
	ChurnRatePercent    prometheus.Gauge

	AccessChecks *prometheus.CounterVec
	Transitions  *prometheus.CounterVec
}

// New creates the metrics and registers them with the given registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SubscriptionsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeep_subscriptions_total",
			Help: "Total number of subscription records, history included.",
		}),
		SubscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeep_subscriptions_active",
			Help: "Number of subscriptions in active status.",
		}),
		SubscriptionsTrial: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeep_subscriptions_trial",
			Help: "Number of trial-plan subscriptions.",
		}),
		SubscriptionsPaid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeep_subscriptions_paid",
			Help: "Number of paid-plan subscriptions.",
		}),
		EstimatedRevenue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeep_estimated_revenue",
			Help: "Flat-price revenue estimate over all subscription rows.",
		}),
		ChurnRatePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeep_churn_rate_percent",
			Help: "Cancelled subscriptions as a percentage of all rows.",
		}),
		AccessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeep_access_checks_total",
			Help: "Access evaluations by outcome.",
		}, []string{"result"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeep_status_transitions_total",
			Help: "Subscription status transitions by target status.",
		}, []string{"to"}),
	}

	collectors := []prometheus.Collector{
		m.SubscriptionsTotal,
		m.SubscriptionsActive,
		m.SubscriptionsTrial,
		m.SubscriptionsPaid,
		m.EstimatedRevenue,
		m.ChurnRatePercent,
		m.AccessChecks,
		m.Transitions,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// UpdateFleet refreshes the fleet gauges from a stats snapshot.
func (m *Metrics) UpdateFleet(stats billing.Stats) {
	m.SubscriptionsTotal.Set(float64(stats.Total))
	m.SubscriptionsActive.Set(float64(stats.Active))
	m.SubscriptionsTrial.Set(float64(stats.Trial))
	m.SubscriptionsPaid.Set(float64(stats.Paid))
	m.EstimatedRevenue.Set(stats.EstimatedRevenue)
	m.ChurnRatePercent.Set(stats.ChurnRatePercent)
}

// RecordAccessCheck counts one access evaluation.
func (m *Metrics) RecordAccessCheck(granted bool) {
	result := "denied"
	if granted {
		result = "granted"
	}
	m.AccessChecks.WithLabelValues(result).Inc()
}

// RecordTransition counts one status transition.
func (m *Metrics) RecordTransition(to models.SubscriptionStatus) {
	m.Transitions.WithLabelValues(string(to)).Inc()
}
