package services

import (
	"github.com/bizsuite/billing/models"
)

// SuspendAfterFailures is the dunning threshold: the failure that brings the
// consecutive count to this value suspends the subscription.
const SuspendAfterFailures = 3

// DunningOutcome is the decision NextState hands back. It says what the
// subscription's next state is and what side effects the caller must apply;
// it performs none of them itself.
type DunningOutcome struct {
	Status           models.SubscriptionStatus
	FailureCount     int
	Changed          bool
	SuspendTenant    bool
	ReactivateTenant bool
	MarkInvoicePaid  bool
	SuspensionReason string
}

// NextState is the dunning state machine: a pure function from the current
// subscription state and an incoming event to the next state. All
// persistence and gateway side effects live in the orchestrator, which makes
// every transition testable without a database.
func NextState(current models.SubscriptionStatus, failureCount int, event models.WebhookEventType) DunningOutcome {
	out := DunningOutcome{
		Status:       current,
		FailureCount: failureCount,
	}

	// Cancelled is terminal. Late events for a cancelled subscription are
	// recorded in the ledger but change nothing.
	if current == models.SubscriptionStatusCancelled {
		return out
	}

	switch event {
	case models.EventPaymentSucceeded, models.EventInvoicePaid:
		out.Status = models.SubscriptionStatusActive
		out.FailureCount = 0
		out.MarkInvoicePaid = true
		out.Changed = current != models.SubscriptionStatusActive || failureCount != 0
		if current == models.SubscriptionStatusSuspended {
			out.ReactivateTenant = true
		}

	case models.EventPaymentFailed:
		out.FailureCount = failureCount + 1
		out.Changed = true
		if out.FailureCount >= SuspendAfterFailures {
			out.Status = models.SubscriptionStatusSuspended
			out.SuspendTenant = true
			out.SuspensionReason = "consecutive payment failures"
		} else {
			out.Status = models.SubscriptionStatusPastDue
		}

	case models.EventSubscriptionCancelled:
		out.Status = models.SubscriptionStatusCancelled
		out.Changed = true

	case models.EventRefundCompleted, models.EventUnknown:
		// Refunds adjust the financial history, not the dunning state.
	}

	return out
}
