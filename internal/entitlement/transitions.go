package entitlement

import (
	"fmt"

	"github.com/MacJediWizard/gatekeep/internal/models"
)

// transition is a directed edge in the subscription state machine.
type transition struct {
	from, to models.SubscriptionStatus
}

// allowedTransitions is the legality table for status changes.
// Expired and cancelled are terminal; past_due can recover to active
// (payment retried) or be given up as cancelled.
var allowedTransitions = map[transition]bool{
	{models.StatusActive, models.StatusExpired}:    true,
	{models.StatusActive, models.StatusCancelled}:  true,
	{models.StatusActive, models.StatusPastDue}:    true,
	{models.StatusPastDue, models.StatusActive}:    true,
	{models.StatusPastDue, models.StatusCancelled}: true,
}

// CanTransition reports whether the state machine allows moving from
// one status to another. Same-state moves are allowed as no-ops.
func CanTransition(from, to models.SubscriptionStatus) bool {
	if from == to {
		return true
	}
	return allowedTransitions[transition{from, to}]
}

// IllegalTransitionError reports a status change rejected by the
// transition table.
type IllegalTransitionError struct {
	From models.SubscriptionStatus
	To   models.SubscriptionStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal subscription transition %s -> %s", e.From, e.To)
}
