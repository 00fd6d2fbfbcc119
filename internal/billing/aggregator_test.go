package billing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/MacJediWizard/gatekeep/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fleetStore struct {
	subs []*models.Subscription
	err  error
}

func (f *fleetStore) GetAllSubscriptions(context.Context) ([]*models.Subscription, error) {
	return f.subs, f.err
}

func sub(planType models.PlanType, status models.SubscriptionStatus) *models.Subscription {
	s := models.NewSubscription(uuid.New(), planType, 30*24*time.Hour)
	s.Status = status
	return s
}

func TestComputeStats(t *testing.T) {
	ctx := context.Background()

	t.Run("empty population is all zeros", func(t *testing.T) {
		agg := NewAggregator(&fleetStore{}, zerolog.Nop())

		stats := agg.ComputeStats(ctx)

		if stats != (Stats{}) {
			t.Errorf("stats = %+v, want zero value", stats)
		}
	})

	t.Run("counts by status and plan", func(t *testing.T) {
		store := &fleetStore{subs: []*models.Subscription{
			sub(models.PlanTrial, models.StatusActive),
			sub(models.PlanMonthly, models.StatusActive),
			sub(models.PlanAnnual, models.StatusExpired),
			sub(models.PlanSemiannual, models.StatusPastDue),
		}}
		agg := NewAggregator(store, zerolog.Nop())

		stats := agg.ComputeStats(ctx)

		if stats.Total != 4 {
			t.Errorf("Total = %d, want 4", stats.Total)
		}
		if stats.Active != 2 {
			t.Errorf("Active = %d, want 2", stats.Active)
		}
		if stats.Trial != 1 {
			t.Errorf("Trial = %d, want 1", stats.Trial)
		}
		if stats.Paid != 3 {
			t.Errorf("Paid = %d, want 3", stats.Paid)
		}
	})

	t.Run("revenue sums flat prices over every row", func(t *testing.T) {
		store := &fleetStore{subs: []*models.Subscription{
			sub(models.PlanTrial, models.StatusActive),
			sub(models.PlanMonthly, models.StatusActive),
			sub(models.PlanSemiannual, models.StatusCancelled),
			sub(models.PlanAnnual, models.StatusExpired),
		}}
		agg := NewAggregator(store, zerolog.Nop())

		stats := agg.ComputeStats(ctx)

		want := 0 + 2.99 + 9.99 + 19.99
		if math.Abs(stats.EstimatedRevenue-want) > 1e-9 {
			t.Errorf("EstimatedRevenue = %v, want %v", stats.EstimatedRevenue, want)
		}
	})

	t.Run("churn is cancelled over total", func(t *testing.T) {
		subs := make([]*models.Subscription, 0, 10)
		for i := 0; i < 2; i++ {
			subs = append(subs, sub(models.PlanMonthly, models.StatusCancelled))
		}
		for i := 0; i < 8; i++ {
			subs = append(subs, sub(models.PlanMonthly, models.StatusActive))
		}
		agg := NewAggregator(&fleetStore{subs: subs}, zerolog.Nop())

		stats := agg.ComputeStats(ctx)

		if stats.ChurnRatePercent != 20.0 {
			t.Errorf("ChurnRatePercent = %v, want 20.0", stats.ChurnRatePercent)
		}
	})

	t.Run("store failure yields zeroed stats", func(t *testing.T) {
		agg := NewAggregator(&fleetStore{err: errors.New("timeout")}, zerolog.Nop())

		stats := agg.ComputeStats(ctx)

		if stats != (Stats{}) {
			t.Errorf("stats = %+v, want zero value on failure", stats)
		}
	})
}
