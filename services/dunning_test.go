package services

import (
	"testing"

	"github.com/bizsuite/billing/models"
)

func TestNextState_FailureProgression(t *testing.T) {
	out := NextState(models.SubscriptionStatusActive, 0, models.EventPaymentFailed)
	if out.Status != models.SubscriptionStatusPastDue {
		t.Errorf("first failure: status = %s, want past_due", out.Status)
	}
	if out.FailureCount != 1 {
		t.Errorf("first failure: count = %d, want 1", out.FailureCount)
	}
	if out.SuspendTenant {
		t.Error("first failure must not suspend the tenant")
	}

	out = NextState(models.SubscriptionStatusPastDue, 1, models.EventPaymentFailed)
	if out.Status != models.SubscriptionStatusPastDue || out.FailureCount != 2 {
		t.Errorf("second failure: got (%s, %d), want (past_due, 2)", out.Status, out.FailureCount)
	}

	out = NextState(models.SubscriptionStatusPastDue, 2, models.EventPaymentFailed)
	if out.Status != models.SubscriptionStatusSuspended {
		t.Errorf("third failure: status = %s, want suspended", out.Status)
	}
	if !out.SuspendTenant {
		t.Error("third failure must suspend the tenant")
	}
	if out.SuspensionReason == "" {
		t.Error("suspension must carry a reason")
	}
}

func TestNextState_SuccessResetsFailures(t *testing.T) {
	out := NextState(models.SubscriptionStatusPastDue, 2, models.EventPaymentSucceeded)
	if out.Status != models.SubscriptionStatusActive {
		t.Errorf("status = %s, want active", out.Status)
	}
	if out.FailureCount != 0 {
		t.Errorf("count = %d, want 0", out.FailureCount)
	}
	if !out.MarkInvoicePaid {
		t.Error("payment success must settle the invoice")
	}
	if out.ReactivateTenant {
		t.Error("past_due tenant was never suspended, nothing to reactivate")
	}
}

func TestNextState_SuccessReactivatesSuspended(t *testing.T) {
	out := NextState(models.SubscriptionStatusSuspended, 3, models.EventPaymentSucceeded)
	if out.Status != models.SubscriptionStatusActive {
		t.Errorf("status = %s, want active", out.Status)
	}
	if out.FailureCount != 0 {
		t.Errorf("count = %d, want 0", out.FailureCount)
	}
	if !out.ReactivateTenant {
		t.Error("payment after suspension must reactivate the tenant")
	}
}

func TestNextState_CancelledIsTerminal(t *testing.T) {
	events := []models.WebhookEventType{
		models.EventPaymentSucceeded,
		models.EventPaymentFailed,
		models.EventInvoicePaid,
		models.EventSubscriptionCancelled,
	}
	for _, event := range events {
		out := NextState(models.SubscriptionStatusCancelled, 3, event)
		if out.Status != models.SubscriptionStatusCancelled {
			t.Errorf("%s moved cancelled subscription to %s", event, out.Status)
		}
		if out.Changed {
			t.Errorf("%s marked a cancelled subscription as changed", event)
		}
	}
}

func TestNextState_CancellationEvent(t *testing.T) {
	out := NextState(models.SubscriptionStatusActive, 1, models.EventSubscriptionCancelled)
	if out.Status != models.SubscriptionStatusCancelled {
		t.Errorf("status = %s, want cancelled", out.Status)
	}
}

func TestNextState_RefundIsLogOnly(t *testing.T) {
	out := NextState(models.SubscriptionStatusActive, 1, models.EventRefundCompleted)
	if out.Status != models.SubscriptionStatusActive || out.FailureCount != 1 {
		t.Errorf("refund changed state: got (%s, %d)", out.Status, out.FailureCount)
	}
	if out.Changed {
		t.Error("refund must not mark the subscription changed")
	}
}

func TestNextState_InvoicePaidBehavesLikeSuccess(t *testing.T) {
	out := NextState(models.SubscriptionStatusSuspended, 3, models.EventInvoicePaid)
	if out.Status != models.SubscriptionStatusActive || !out.ReactivateTenant {
		t.Errorf("invoice.paid from suspended: got status %s, reactivate %v", out.Status, out.ReactivateTenant)
	}
}
