package gateways

import (
	"context"
	"encoding/json"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	rputils "github.com/razorpay/razorpay-go/utils"

	"github.com/bizsuite/billing/models"
)

type RazorpayAdapter struct {
	keyID         string
	keySecret     string
	webhookSecret string
	client        *razorpay.Client
}

func NewRazorpayAdapter(keyID, keySecret, webhookSecret string) *RazorpayAdapter {
	a := &RazorpayAdapter{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
	if keyID != "" && keySecret != "" {
		a.client = razorpay.NewClient(keyID, keySecret)
	}
	return a
}

func (a *RazorpayAdapter) Name() string {
	return "razorpay"
}

func (a *RazorpayAdapter) IsConfigured() bool {
	return a.client != nil
}

func (a *RazorpayAdapter) SignatureHeader() string {
	return "X-Razorpay-Signature"
}

func (a *RazorpayAdapter) CreatePayment(ctx context.Context, params *models.CreatePaymentParams) *models.PaymentIntent {
	if !a.IsConfigured() {
		return failedIntent(a.Name(), params, fmt.Errorf("razorpay adapter not configured"))
	}

	notes := map[string]interface{}{}
	for k, v := range stringMetadata(params) {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   params.AmountCents,
		"currency": params.Currency,
		"receipt":  params.InvoiceID,
		"notes":    notes,
	}

	order, err := a.client.Order.Create(data, nil)
	if err != nil {
		return failedIntent(a.Name(), params, fmt.Errorf("razorpay order creation failed: %w", err))
	}

	orderID, _ := order["id"].(string)
	status, _ := order["status"].(string)

	return &models.PaymentIntent{
		TenantID:    params.TenantID,
		InvoiceID:   params.InvoiceID,
		Provider:    a.Name(),
		ExternalID:  orderID,
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
		Status:      a.mapOrderStatus(status),
		Metadata:    models.JSON{},
	}
}

func (a *RazorpayAdapter) GetPaymentStatus(ctx context.Context, externalID string) (models.PaymentStatus, error) {
	if !a.IsConfigured() {
		return "", fmt.Errorf("razorpay adapter not configured")
	}

	order, err := a.client.Order.Fetch(externalID, nil, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order lookup failed: %w", err)
	}

	status, _ := order["status"].(string)
	if status != "paid" {
		return a.mapOrderStatus(status), nil
	}

	// Refunds live on the order's payments, not on the order itself.
	payments, err := a.client.Order.Payments(externalID, nil, nil)
	if err != nil {
		return a.mapOrderStatus(status), nil
	}
	return a.paidOrderStatus(payments["items"]), nil
}

// paidOrderStatus reports refunded when a payment on a paid order has been
// fully refunded; Razorpay marks such payments with status "refunded".
func (a *RazorpayAdapter) paidOrderStatus(items interface{}) models.PaymentStatus {
	list, ok := items.([]interface{})
	if !ok {
		return models.PaymentStatusSucceeded
	}
	for _, it := range list {
		payment, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		if status, _ := payment["status"].(string); status == "refunded" {
			return models.PaymentStatusRefunded
		}
	}
	return models.PaymentStatusSucceeded
}

func (a *RazorpayAdapter) Refund(ctx context.Context, params *models.RefundParams) (*models.RefundResult, error) {
	if !a.IsConfigured() {
		return nil, fmt.Errorf("razorpay adapter not configured")
	}

	amount := params.AmountCents
	if amount == 0 {
		payment, err := a.client.Payment.Fetch(params.ExternalPaymentID, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("razorpay payment lookup failed: %w", err)
		}
		amount = asInt64(payment["amount"])
	}

	data := map[string]interface{}{}
	if params.Reason != "" {
		data["notes"] = map[string]interface{}{"reason": params.Reason}
	}

	refund, err := a.client.Payment.Refund(params.ExternalPaymentID, int(amount), data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay refund failed: %w", err)
	}

	refundID, _ := refund["id"].(string)
	status, _ := refund["status"].(string)

	result := &models.RefundResult{
		ExternalRefundID: refundID,
		AmountCents:      amount,
		Provider:         a.Name(),
	}
	switch status {
	case "processed":
		result.Status = models.RefundStatusSucceeded
	case "failed":
		result.Status = models.RefundStatusFailed
	default:
		result.Status = models.RefundStatusPending
	}

	return result, nil
}

func (a *RazorpayAdapter) CreateSubscription(ctx context.Context, params *models.CreateGatewaySubscriptionParams) (*models.GatewaySubscription, error) {
	if !a.IsConfigured() {
		return nil, fmt.Errorf("razorpay adapter not configured")
	}

	notes := map[string]interface{}{}
	for k, v := range params.Metadata {
		notes[k] = v
	}

	data := map[string]interface{}{
		"plan_id":         params.ExternalPlanID,
		"total_count":     120,
		"customer_notify": 1,
		"notes":           notes,
	}

	sub, err := a.client.Subscription.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay subscription creation failed: %w", err)
	}

	subID, _ := sub["id"].(string)
	status, _ := sub["status"].(string)

	return &models.GatewaySubscription{
		ExternalID: subID,
		Provider:   a.Name(),
		Status:     status,
	}, nil
}

func (a *RazorpayAdapter) CancelSubscription(ctx context.Context, externalSubscriptionID string) error {
	if !a.IsConfigured() {
		return fmt.Errorf("razorpay adapter not configured")
	}

	_, err := a.client.Subscription.Cancel(externalSubscriptionID, nil, nil)
	if err != nil {
		return fmt.Errorf("razorpay subscription cancel failed: %w", err)
	}
	return nil
}

func (a *RazorpayAdapter) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if a.webhookSecret == "" || signature == "" {
		return false
	}
	return rputils.VerifyWebhookSignature(string(rawBody), signature, a.webhookSecret)
}

// razorpayEnvelope is the slice of Razorpay's webhook body this engine reads.
type razorpayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"refund"`
		Subscription struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

type razorpayEntity struct {
	ID        string            `json:"id"`
	OrderID   string            `json:"order_id"`
	PaymentID string            `json:"payment_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Notes     map[string]string `json:"notes"`
}

func (a *RazorpayAdapter) NormalizeWebhookEvent(payload []byte) *models.NormalizedWebhookEvent {
	var env razorpayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil || env.Event == "" {
		return &models.NormalizedWebhookEvent{Type: models.EventUnknown, RawPayload: payload}
	}

	ev := &models.NormalizedWebhookEvent{RawPayload: payload}

	var entity razorpayEntity
	switch env.Event {
	case "payment.captured":
		ev.Type = models.EventPaymentSucceeded
		entity = env.Payload.Payment.Entity
		ev.ExternalPaymentID = entity.OrderID
	case "payment.failed":
		ev.Type = models.EventPaymentFailed
		entity = env.Payload.Payment.Entity
		ev.ExternalPaymentID = entity.OrderID
	case "refund.processed":
		ev.Type = models.EventRefundCompleted
		entity = env.Payload.Refund.Entity
		ev.ExternalPaymentID = entity.PaymentID
	case "subscription.cancelled":
		ev.Type = models.EventSubscriptionCancelled
		entity = env.Payload.Subscription.Entity
		ev.ExternalPaymentID = entity.ID
	default:
		ev.Type = models.EventUnknown
		return ev
	}

	// Razorpay webhook bodies carry no top-level event id; the event name
	// plus entity id identifies a delivery uniquely.
	ev.EventID = env.Event + ":" + entity.ID
	ev.AmountCents = entity.Amount
	ev.Currency = entity.Currency
	ev.TenantID = entity.Notes["tenant_id"]

	return ev
}

func (a *RazorpayAdapter) mapOrderStatus(status string) models.PaymentStatus {
	switch status {
	case "paid":
		return models.PaymentStatusSucceeded
	case "attempted":
		return models.PaymentStatusProcessing
	case "created":
		return models.PaymentStatusPending
	default:
		return models.PaymentStatusProcessing
	}
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
