package gateways

import (
	"testing"

	stripe "github.com/stripe/stripe-go/v76"

	"github.com/bizsuite/billing/models"
)

func TestStripeIntentStatus(t *testing.T) {
	adapter := NewStripeAdapter("", "", false)

	tests := []struct {
		name string
		pi   *stripe.PaymentIntent
		want models.PaymentStatus
	}{
		{
			name: "succeeded",
			pi:   &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded},
			want: models.PaymentStatusSucceeded,
		},
		{
			name: "refunded charge wins over succeeded intent",
			pi: &stripe.PaymentIntent{
				Status:       stripe.PaymentIntentStatusSucceeded,
				LatestCharge: &stripe.Charge{Refunded: true},
			},
			want: models.PaymentStatusRefunded,
		},
		{
			name: "unrefunded charge keeps intent status",
			pi: &stripe.PaymentIntent{
				Status:       stripe.PaymentIntentStatusProcessing,
				LatestCharge: &stripe.Charge{Refunded: false},
			},
			want: models.PaymentStatusProcessing,
		},
		{
			name: "canceled",
			pi:   &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusCanceled},
			want: models.PaymentStatusCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.intentStatus(tt.pi); got != tt.want {
				t.Errorf("intentStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRazorpayPaidOrderStatus(t *testing.T) {
	adapter := NewRazorpayAdapter("", "", "")

	refunded := []interface{}{
		map[string]interface{}{"id": "pay_1", "status": "refunded"},
	}
	if got := adapter.paidOrderStatus(refunded); got != models.PaymentStatusRefunded {
		t.Errorf("refunded payment: status = %s, want refunded", got)
	}

	captured := []interface{}{
		map[string]interface{}{"id": "pay_1", "status": "captured"},
	}
	if got := adapter.paidOrderStatus(captured); got != models.PaymentStatusSucceeded {
		t.Errorf("captured payment: status = %s, want succeeded", got)
	}

	if got := adapter.paidOrderStatus(nil); got != models.PaymentStatusSucceeded {
		t.Errorf("missing items: status = %s, want succeeded", got)
	}
}
