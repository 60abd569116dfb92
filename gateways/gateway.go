package gateways

import (
	"context"
	"time"

	"github.com/bizsuite/billing/models"
)

// callTimeout bounds every outbound provider call so a hung gateway
// surfaces as a failed intent instead of a hung request.
const callTimeout = 15 * time.Second

// Adapter is the capability contract each payment provider implements.
//
// Constructors never fail on missing credentials; an adapter built without
// them simply reports IsConfigured() == false and the selector routes
// around it.
type Adapter interface {
	Name() string
	IsConfigured() bool

	// CreatePayment always returns an intent. Provider-side errors
	// (declined, timeout, network) come back as a failed intent with the
	// error in metadata, not as a Go error.
	CreatePayment(ctx context.Context, params *models.CreatePaymentParams) *models.PaymentIntent

	// GetPaymentStatus polls the provider and maps its vocabulary onto the
	// canonical payment statuses.
	GetPaymentStatus(ctx context.Context, externalID string) (models.PaymentStatus, error)

	Refund(ctx context.Context, params *models.RefundParams) (*models.RefundResult, error)

	// VerifyWebhookSignature must compare in constant time and return
	// false when no secret is configured.
	VerifyWebhookSignature(rawBody []byte, signature string) bool

	// SignatureHeader names the HTTP header this provider delivers its
	// webhook signature in.
	SignatureHeader() string

	// NormalizeWebhookEvent is a pure mapping from the provider's raw
	// payload to the canonical event. Unrecognized provider event types
	// map to EventUnknown, never to an error.
	NormalizeWebhookEvent(payload []byte) *models.NormalizedWebhookEvent
}

// RecurringAdapter is the optional managed-recurring-billing capability.
// Providers without it have their invoices charged individually.
type RecurringAdapter interface {
	Adapter
	CreateSubscription(ctx context.Context, params *models.CreateGatewaySubscriptionParams) (*models.GatewaySubscription, error)
	CancelSubscription(ctx context.Context, externalSubscriptionID string) error
}

func failedIntent(provider string, params *models.CreatePaymentParams, err error) *models.PaymentIntent {
	return &models.PaymentIntent{
		TenantID:    params.TenantID,
		InvoiceID:   params.InvoiceID,
		Provider:    provider,
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
		Status:      models.PaymentStatusFailed,
		Metadata:    models.JSON{"error": err.Error()},
	}
}

func stringMetadata(params *models.CreatePaymentParams) map[string]string {
	md := map[string]string{
		"tenant_id":  params.TenantID,
		"invoice_id": params.InvoiceID,
	}
	for k, v := range params.Metadata {
		md[k] = v
	}
	return md
}
