// Package plan provides the static catalog mapping billing tiers to
// entitlements, period durations, and list prices.
package plan

import (
	"time"

	"github.com/MacJediWizard/gatekeep/internal/models"
)

// Unlimited is a sentinel value indicating no ceiling on a resource.
const Unlimited = -1

// Features defines the entitlements unlocked by a plan type.
type Features struct {
	MaxCustomers      int  `json:"max_customers"`
	MaxBranches       int  `json:"max_branches"`
	AdvancedAnalytics bool `json:"advanced_analytics"`
	PrioritySupport   bool `json:"priority_support"`
	CustomBranding    bool `json:"custom_branding"`
	APIAccess         bool `json:"api_access"`
}

// planFeatures maps each plan type to its entitlements.
var planFeatures = map[models.PlanType]Features{
	models.PlanTrial: {
		MaxCustomers: 100,
		MaxBranches:  1,
	},
	models.PlanMonthly: {
		MaxCustomers:      Unlimited,
		MaxBranches:       Unlimited,
		AdvancedAnalytics: true,
		PrioritySupport:   true,
	},
	models.PlanSemiannual: {
		MaxCustomers:      Unlimited,
		MaxBranches:       Unlimited,
		AdvancedAnalytics: true,
		PrioritySupport:   true,
		CustomBranding:    true,
		APIAccess:         true,
	},
	models.PlanAnnual: {
		MaxCustomers:      Unlimited,
		MaxBranches:       Unlimited,
		AdvancedAnalytics: true,
		PrioritySupport:   true,
		CustomBranding:    true,
		APIAccess:         true,
	},
}

// planDurations maps each plan type to the length of one paid period.
var planDurations = map[models.PlanType]time.Duration{
	models.PlanTrial:      30 * 24 * time.Hour,
	models.PlanMonthly:    30 * 24 * time.Hour,
	models.PlanSemiannual: 180 * 24 * time.Hour,
	models.PlanAnnual:     365 * 24 * time.Hour,
}

// DefaultDuration is the period length used for unrecognized plan types.
const DefaultDuration = 30 * 24 * time.Hour

// planPrices maps each plan type to its flat list price. This is a coarse
// reporting approximation, not a billing ledger.
var planPrices = map[models.PlanType]float64{
	models.PlanTrial:      0,
	models.PlanMonthly:    2.99,
	models.PlanSemiannual: 9.99,
	models.PlanAnnual:     19.99,
}

// FeaturesFor returns the entitlements for the given plan type.
// Unrecognized plan types fall back to the trial feature set.
func FeaturesFor(p models.PlanType) Features {
	features, ok := planFeatures[p]
	if !ok {
		return planFeatures[models.PlanTrial]
	}
	return features
}

// TrialFeatures returns the trial-tier feature set.
func TrialFeatures() Features {
	return planFeatures[models.PlanTrial]
}

// DurationFor returns the period length for the given plan type.
// Unrecognized plan types fall back to DefaultDuration.
func DurationFor(p models.PlanType) time.Duration {
	d, ok := planDurations[p]
	if !ok {
		return DefaultDuration
	}
	return d
}

// PriceFor returns the flat list price for the given plan type.
// Unrecognized plan types are priced at zero.
func PriceFor(p models.PlanType) float64 {
	return planPrices[p]
}

// IsUnlimited returns true if the given ceiling value represents unlimited.
func IsUnlimited(limit int) bool {
	return limit == Unlimited
}

// AllPlans returns the known plan types in ascending price order.
func AllPlans() []models.PlanType {
	return []models.PlanType{
		models.PlanTrial,
		models.PlanMonthly,
		models.PlanSemiannual,
		models.PlanAnnual,
	}
}

// Info provides display metadata about a plan.
type Info struct {
	Plan     models.PlanType `json:"plan"`
	Name     string          `json:"name"`
	Price    float64         `json:"price"`
	Days     int             `json:"days"`
	Features Features        `json:"features"`
}

// InfoFor returns display metadata for a plan type.
func InfoFor(p models.PlanType) Info {
	info := Info{
		Plan:     p,
		Price:    PriceFor(p),
		Days:     int(DurationFor(p) / (24 * time.Hour)),
		Features: FeaturesFor(p),
	}

	switch p {
	case models.PlanTrial:
		info.Name = "Trial"
	case models.PlanMonthly:
		info.Name = "Monthly"
	case models.PlanSemiannual:
		info.Name = "Semiannual"
	case models.PlanAnnual:
		info.Name = "Annual"
	default:
		info.Name = string(p)
	}

	return info
}
