// Package billing derives population-level statistics from the
// subscription fleet.
package billing

import (
	"context"

	"github.com/MacJediWizard/gatekeep/internal/models"
	"github.com/MacJediWizard/gatekeep/internal/plan"
	"github.com/rs/zerolog"
)

// Store defines the database operations needed by the aggregator.
type Store interface {
	GetAllSubscriptions(ctx context.Context) ([]*models.Subscription, error)
}

// Stats summarizes the subscription population. EstimatedRevenue sums
// flat per-plan list prices over every row, historical rows included;
// it is advisory, not financial-grade.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Trial  int `json:"trial"`
	Paid   int `json:"paid"`
	// EstimatedRevenue is the flat-price sum across all rows.
	EstimatedRevenue float64 `json:"estimated_revenue"`
	// ChurnRatePercent is 100 * cancelled / total. Cancellation is the
	// churn signal; a lapsed period alone does not count a tenant as lost.
	ChurnRatePercent float64 `json:"churn_rate_percent"`
}

// Aggregator computes fleet statistics with a single bulk read.
type Aggregator struct {
	store  Store
	logger zerolog.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(store Store, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logger.With().Str("component", "billing").Logger(),
	}
}

// ComputeStats scans the full subscription population. Stats are
// best-effort: a store failure is logged and yields zeroed stats rather
// than an error.
func (a *Aggregator) ComputeStats(ctx context.Context) Stats {
	subs, err := a.store.GetAllSubscriptions(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("fleet scan failed, returning zeroed stats")
		return Stats{}
	}
	return Tally(subs)
}

// Tally computes statistics over an in-memory subscription slice.
func Tally(subs []*models.Subscription) Stats {
	var stats Stats
	var cancelled int

	for _, sub := range subs {
		stats.Total++
		if sub.Status == models.StatusActive {
			stats.Active++
		}
		if sub.Status == models.StatusCancelled {
			cancelled++
		}
		if sub.PlanType == models.PlanTrial {
			stats.Trial++
		} else {
			stats.Paid++
		}
		stats.EstimatedRevenue += plan.PriceFor(sub.PlanType)
	}

	if stats.Total > 0 {
		stats.ChurnRatePercent = 100 * float64(cancelled) / float64(stats.Total)
	}

	return stats
}
