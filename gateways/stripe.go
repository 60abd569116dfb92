package gateways

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/bizsuite/billing/models"
)

type StripeAdapter struct {
	secretKey     string
	webhookSecret string
	sandbox       bool
	client        *client.API
}

func NewStripeAdapter(secretKey, webhookSecret string, sandbox bool) *StripeAdapter {
	a := &StripeAdapter{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		sandbox:       sandbox,
	}

	if secretKey != "" {
		sc := &client.API{}
		sc.Init(secretKey, nil)
		a.client = sc
	}

	return a
}

func (a *StripeAdapter) Name() string {
	return "stripe"
}

func (a *StripeAdapter) IsConfigured() bool {
	return a.secretKey != "" && a.client != nil
}

func (a *StripeAdapter) SignatureHeader() string {
	return "Stripe-Signature"
}

func (a *StripeAdapter) CreatePayment(ctx context.Context, params *models.CreatePaymentParams) *models.PaymentIntent {
	if !a.IsConfigured() {
		return failedIntent(a.Name(), params, fmt.Errorf("stripe adapter not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	piParams := &stripe.PaymentIntentParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(params.AmountCents),
		Currency:    stripe.String(params.Currency),
		Description: stripe.String(params.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	piParams.Metadata = stringMetadata(params)

	pi, err := a.client.PaymentIntents.New(piParams)
	if err != nil {
		return failedIntent(a.Name(), params, err)
	}

	intent := &models.PaymentIntent{
		TenantID:     params.TenantID,
		InvoiceID:    params.InvoiceID,
		Provider:     a.Name(),
		ExternalID:   pi.ID,
		AmountCents:  params.AmountCents,
		Currency:     params.Currency,
		Status:       a.mapPaymentIntentStatus(string(pi.Status)),
		ClientSecret: pi.ClientSecret,
		Metadata:     models.JSON{},
	}

	if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
		intent.PaymentURL = pi.NextAction.RedirectToURL.URL
	}

	return intent
}

func (a *StripeAdapter) GetPaymentStatus(ctx context.Context, externalID string) (models.PaymentStatus, error) {
	if !a.IsConfigured() {
		return "", fmt.Errorf("stripe adapter not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	piParams := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	piParams.AddExpand("latest_charge")

	pi, err := a.client.PaymentIntents.Get(externalID, piParams)
	if err != nil {
		return "", fmt.Errorf("stripe payment intent lookup failed: %w", err)
	}

	return a.intentStatus(pi), nil
}

func (a *StripeAdapter) Refund(ctx context.Context, params *models.RefundParams) (*models.RefundResult, error) {
	if !a.IsConfigured() {
		return nil, fmt.Errorf("stripe adapter not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	refundParams := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(params.ExternalPaymentID),
	}
	if params.AmountCents > 0 {
		refundParams.Amount = stripe.Int64(params.AmountCents)
	}
	if params.Reason != "" {
		refundParams.Metadata = map[string]string{"reason": params.Reason}
	}

	ref, err := a.client.Refunds.New(refundParams)
	if err != nil {
		return nil, fmt.Errorf("stripe refund failed: %w", err)
	}

	result := &models.RefundResult{
		ExternalRefundID: ref.ID,
		AmountCents:      ref.Amount,
		Provider:         a.Name(),
	}

	switch ref.Status {
	case stripe.RefundStatusSucceeded:
		result.Status = models.RefundStatusSucceeded
	case stripe.RefundStatusFailed:
		result.Status = models.RefundStatusFailed
	default:
		result.Status = models.RefundStatusPending
	}

	return result, nil
}

func (a *StripeAdapter) CreateSubscription(ctx context.Context, params *models.CreateGatewaySubscriptionParams) (*models.GatewaySubscription, error) {
	if !a.IsConfigured() {
		return nil, fmt.Errorf("stripe adapter not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	subParams := &stripe.SubscriptionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(params.CustomerRef),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(params.ExternalPlanID)},
		},
	}
	if params.Metadata != nil {
		subParams.Metadata = params.Metadata
	}

	sub, err := a.client.Subscriptions.New(subParams)
	if err != nil {
		return nil, fmt.Errorf("stripe subscription creation failed: %w", err)
	}

	return &models.GatewaySubscription{
		ExternalID: sub.ID,
		Provider:   a.Name(),
		Status:     string(sub.Status),
	}, nil
}

func (a *StripeAdapter) CancelSubscription(ctx context.Context, externalSubscriptionID string) error {
	if !a.IsConfigured() {
		return fmt.Errorf("stripe adapter not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := a.client.Subscriptions.Cancel(externalSubscriptionID, &stripe.SubscriptionCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return fmt.Errorf("stripe subscription cancel failed: %w", err)
	}
	return nil
}

// intentStatus folds the refund flag on the settled charge into the
// canonical vocabulary; the PaymentIntent status alone never reports
// refunds.
func (a *StripeAdapter) intentStatus(pi *stripe.PaymentIntent) models.PaymentStatus {
	if pi.LatestCharge != nil && pi.LatestCharge.Refunded {
		return models.PaymentStatusRefunded
	}
	return a.mapPaymentIntentStatus(string(pi.Status))
}

func (a *StripeAdapter) mapPaymentIntentStatus(status string) models.PaymentStatus {
	switch status {
	case "succeeded":
		return models.PaymentStatusSucceeded
	case "processing":
		return models.PaymentStatusProcessing
	case "canceled":
		return models.PaymentStatusCancelled
	case "requires_payment_method", "requires_confirmation", "requires_action", "requires_capture":
		return models.PaymentStatusPending
	default:
		return models.PaymentStatusProcessing
	}
}

func (a *StripeAdapter) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if a.webhookSecret == "" || signature == "" {
		return false
	}

	_, err := webhook.ConstructEvent(rawBody, signature, a.webhookSecret)
	return err == nil
}

// stripeEnvelope is the slice of Stripe's webhook body this engine reads.
type stripeEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object stripeEventObject `json:"object"`
	} `json:"data"`
}

type stripeEventObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	PaymentIntent  string            `json:"payment_intent"`
	Metadata       map[string]string `json:"metadata"`
}

func (a *StripeAdapter) NormalizeWebhookEvent(payload []byte) *models.NormalizedWebhookEvent {
	var env stripeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return &models.NormalizedWebhookEvent{Type: models.EventUnknown, RawPayload: payload}
	}

	ev := &models.NormalizedWebhookEvent{
		EventID:    env.ID,
		Currency:   env.Data.Object.Currency,
		TenantID:   env.Data.Object.Metadata["tenant_id"],
		RawPayload: payload,
	}

	switch env.Type {
	case "payment_intent.succeeded":
		ev.Type = models.EventPaymentSucceeded
		ev.ExternalPaymentID = env.Data.Object.ID
		ev.AmountCents = env.Data.Object.AmountReceived
		if ev.AmountCents == 0 {
			ev.AmountCents = env.Data.Object.Amount
		}
	case "payment_intent.payment_failed":
		ev.Type = models.EventPaymentFailed
		ev.ExternalPaymentID = env.Data.Object.ID
		ev.AmountCents = env.Data.Object.Amount
	case "customer.subscription.deleted":
		ev.Type = models.EventSubscriptionCancelled
		ev.ExternalPaymentID = env.Data.Object.ID
	case "charge.refunded":
		ev.Type = models.EventRefundCompleted
		ev.ExternalPaymentID = env.Data.Object.PaymentIntent
		ev.AmountCents = env.Data.Object.Amount
	case "invoice.paid", "invoice.payment_succeeded":
		ev.Type = models.EventInvoicePaid
		ev.ExternalPaymentID = env.Data.Object.PaymentIntent
		ev.AmountCents = env.Data.Object.Amount
	default:
		ev.Type = models.EventUnknown
	}

	return ev
}
