package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanType defines the billing tier of a subscription.
type PlanType string

const (
	// PlanTrial is the free evaluation tier.
	PlanTrial PlanType = "trial"
	// PlanMonthly is the 30-day paid tier.
	PlanMonthly PlanType = "monthly"
	// PlanSemiannual is the 180-day paid tier.
	PlanSemiannual PlanType = "semiannual"
	// PlanAnnual is the 365-day paid tier.
	PlanAnnual PlanType = "annual"
)

// IsValid returns true if the plan type is one of the known tiers.
func (p PlanType) IsValid() bool {
	switch p {
	case PlanTrial, PlanMonthly, PlanSemiannual, PlanAnnual:
		return true
	}
	return false
}

// IsPaid returns true for any tier other than trial.
func (p PlanType) IsPaid() bool {
	return p.IsValid() && p != PlanTrial
}

// SubscriptionStatus defines the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	// StatusActive is a subscription whose paid or trial period is valid.
	StatusActive SubscriptionStatus = "active"
	// StatusExpired is a subscription whose period elapsed without renewal.
	StatusExpired SubscriptionStatus = "expired"
	// StatusCancelled is a subscription terminated by the tenant.
	StatusCancelled SubscriptionStatus = "cancelled"
	// StatusPastDue is a subscription with a failed payment awaiting recovery.
	StatusPastDue SubscriptionStatus = "past_due"
)

// IsValid returns true if the status is one of the known states.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusCancelled, StatusPastDue:
		return true
	}
	return false
}

// Subscription tracks the billing tier and paid-for window for a tenant.
// Rows are never deleted; historical rows remain for fleet reporting, and
// the newest row per tenant is the one that counts.
type Subscription struct {
	ID       uuid.UUID          `json:"id"`
	TenantID uuid.UUID          `json:"tenant_id"`
	PlanType PlanType           `json:"plan_type"`
	Status   SubscriptionStatus `json:"status"`
	// PeriodStart and PeriodEnd bound the currently paid-for window.
	// Set once at creation, never recomputed.
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	// Opaque payment-processor references, stored verbatim.
	ProviderSubscriptionID string    `json:"provider_subscription_id,omitempty"`
	ProviderCustomerID     string    `json:"provider_customer_id,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewSubscription creates an active Subscription covering [now, now+duration).
func NewSubscription(tenantID uuid.UUID, plan PlanType, duration time.Duration) *Subscription {
	now := time.Now()
	return &Subscription{
		ID:          uuid.New(),
		TenantID:    tenantID,
		PlanType:    plan,
		Status:      StatusActive,
		PeriodStart: now,
		PeriodEnd:   now.Add(duration),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive returns true if the subscription status is active.
// It does not consult the period; callers that gate access must also
// check PeriodEnd.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// InPeriod returns true if the given instant falls inside the paid window.
func (s *Subscription) InPeriod(at time.Time) bool {
	return at.Before(s.PeriodEnd)
}

// SubscriptionWithTenant is a subscription joined with tenant display
// metadata for administrative listings.
type SubscriptionWithTenant struct {
	Subscription
	TenantEmail string `json:"tenant_email"`
	TenantName  string `json:"tenant_name"`
}
