// Package entitlement implements the subscription lifecycle: creation,
// current-subscription resolution, access evaluation, and status transitions.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MacJediWizard/gatekeep/internal/models"
	"github.com/MacJediWizard/gatekeep/internal/plan"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Store implementations when a lookup matches
// no record. It is distinct from infrastructure failures.
var ErrNotFound = errors.New("not found")

// Store defines the database operations needed by the engine.
type Store interface {
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	// GetLatestSubscriptionByTenant returns the most recently created
	// subscription for a tenant, or ErrNotFound.
	GetLatestSubscriptionByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)
	GetSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status models.SubscriptionStatus, updatedAt time.Time) error
}

// AccessDecision is the result of evaluating a tenant's entitlement.
// It is ephemeral and never persisted.
type AccessDecision struct {
	HasAccess bool `json:"has_access"`
	// Subscription is the resolved current subscription, nil if the
	// tenant has none.
	Subscription *models.Subscription `json:"subscription,omitempty"`
	// Features is resolved from the subscription's plan regardless of
	// HasAccess; callers decide whether to honor it.
	Features plan.Features `json:"features"`
	// DaysRemaining is the whole days left in the period, never negative.
	DaysRemaining int `json:"days_remaining"`
}

// Engine drives subscription lifecycle operations against a Store.
type Engine struct {
	store  Store
	logger zerolog.Logger
}

// NewEngine creates a new lifecycle Engine.
func NewEngine(store Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger.With().Str("component", "entitlement").Logger(),
	}
}

// Create opens a new active subscription for the tenant with a period
// computed from the plan catalog. It does not check for an existing
// active subscription; a tenant may accumulate rows, and the newest one
// wins on lookup. Store failures propagate to the caller.
func (e *Engine) Create(ctx context.Context, tenantID uuid.UUID, planType models.PlanType, providerSubID, providerCustID string) (*models.Subscription, error) {
	sub := models.NewSubscription(tenantID, planType, plan.DurationFor(planType))
	sub.ProviderSubscriptionID = providerSubID
	sub.ProviderCustomerID = providerCustID

	if err := e.store.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	e.logger.Info().
		Str("subscription_id", sub.ID.String()).
		Str("tenant_id", tenantID.String()).
		Str("plan", string(planType)).
		Time("period_end", sub.PeriodEnd).
		Msg("subscription created")

	return sub, nil
}

// CurrentSubscription returns the tenant's most recently created
// subscription, or (nil, nil) if the tenant has none. Infrastructure
// failures propagate; callers on hot paths that must stay total should
// use EvaluateAccess instead.
func (e *Engine) CurrentSubscription(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	sub, err := e.store.GetLatestSubscriptionByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve current subscription: %w", err)
	}
	return sub, nil
}

// EvaluateAccess decides whether the tenant has paid access right now.
// It is read-only, idempotent, and total: any store failure is logged
// and degrades to the no-subscription decision (no access, trial-tier
// feature visibility) rather than propagating.
func (e *Engine) EvaluateAccess(ctx context.Context, tenantID uuid.UUID) AccessDecision {
	sub, err := e.CurrentSubscription(ctx, tenantID)
	if err != nil {
		e.logger.Error().Err(err).
			Str("tenant_id", tenantID.String()).
			Msg("subscription lookup failed, denying access")
		return noSubscriptionDecision()
	}
	if sub == nil {
		return noSubscriptionDecision()
	}

	now := time.Now()
	return AccessDecision{
		HasAccess:     sub.IsActive() && sub.InPeriod(now),
		Subscription:  sub,
		Features:      plan.FeaturesFor(sub.PlanType),
		DaysRemaining: daysRemaining(sub.PeriodEnd, now),
	}
}

// noSubscriptionDecision is the decision for unknown tenants and for
// degraded lookups: no access, trial-tier feature visibility.
func noSubscriptionDecision() AccessDecision {
	return AccessDecision{
		HasAccess: false,
		Features:  plan.TrialFeatures(),
	}
}

// daysRemaining returns the whole days from now until end, rounded up
// and floored at zero.
func daysRemaining(end, now time.Time) int {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// TransitionStatus moves a subscription to a new status, refreshing
// updated_at. The move must be allowed by the transition table; illegal
// moves are rejected with an IllegalTransitionError and nothing is
// written. Store failures propagate.
func (e *Engine) TransitionStatus(ctx context.Context, id uuid.UUID, newStatus models.SubscriptionStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("invalid status %q", newStatus)
	}

	sub, err := e.store.GetSubscriptionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}

	if sub.Status == newStatus {
		// Idempotent no-op.
		return nil
	}
	if !CanTransition(sub.Status, newStatus) {
		return &IllegalTransitionError{From: sub.Status, To: newStatus}
	}

	if err := e.store.UpdateSubscriptionStatus(ctx, id, newStatus, time.Now()); err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}

	e.logger.Info().
		Str("subscription_id", id.String()).
		Str("from", string(sub.Status)).
		Str("to", string(newStatus)).
		Msg("subscription status transitioned")

	return nil
}

// ForceTransition writes a status unconditionally, bypassing the
// transition table. Operator use only.
func (e *Engine) ForceTransition(ctx context.Context, id uuid.UUID, newStatus models.SubscriptionStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("invalid status %q", newStatus)
	}

	if err := e.store.UpdateSubscriptionStatus(ctx, id, newStatus, time.Now()); err != nil {
		return fmt.Errorf("force subscription status: %w", err)
	}

	e.logger.Warn().
		Str("subscription_id", id.String()).
		Str("to", string(newStatus)).
		Msg("subscription status forced")

	return nil
}
