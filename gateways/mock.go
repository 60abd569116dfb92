package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/bizsuite/billing/models"
)

// MockAdapter is a deterministic in-process gateway for development and
// staging environments. It never talks to the network.
type MockAdapter struct {
	enabled       bool
	webhookSecret string
}

func NewMockAdapter(enabled bool, webhookSecret string) *MockAdapter {
	return &MockAdapter{
		enabled:       enabled,
		webhookSecret: webhookSecret,
	}
}

func (a *MockAdapter) Name() string {
	return "mock"
}

func (a *MockAdapter) IsConfigured() bool {
	return a.enabled
}

func (a *MockAdapter) SignatureHeader() string {
	return "X-Mock-Signature"
}

func (a *MockAdapter) CreatePayment(ctx context.Context, params *models.CreatePaymentParams) *models.PaymentIntent {
	if !a.enabled {
		return failedIntent(a.Name(), params, fmt.Errorf("mock adapter not enabled"))
	}

	externalID := "mock_pi_" + params.InvoiceID
	return &models.PaymentIntent{
		TenantID:    params.TenantID,
		InvoiceID:   params.InvoiceID,
		Provider:    a.Name(),
		ExternalID:  externalID,
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
		Status:      models.PaymentStatusPending,
		PaymentURL:  "https://pay.mock.invalid/" + externalID,
		Metadata:    models.JSON{},
	}
}

func (a *MockAdapter) GetPaymentStatus(ctx context.Context, externalID string) (models.PaymentStatus, error) {
	if !a.enabled {
		return "", fmt.Errorf("mock adapter not enabled")
	}
	return models.PaymentStatusPending, nil
}

func (a *MockAdapter) Refund(ctx context.Context, params *models.RefundParams) (*models.RefundResult, error) {
	if !a.enabled {
		return nil, fmt.Errorf("mock adapter not enabled")
	}
	return &models.RefundResult{
		ExternalRefundID: "mock_re_" + params.ExternalPaymentID,
		Status:           models.RefundStatusSucceeded,
		AmountCents:      params.AmountCents,
		Provider:         a.Name(),
	}, nil
}

func (a *MockAdapter) CreateSubscription(ctx context.Context, params *models.CreateGatewaySubscriptionParams) (*models.GatewaySubscription, error) {
	if !a.enabled {
		return nil, fmt.Errorf("mock adapter not enabled")
	}
	return &models.GatewaySubscription{
		ExternalID: "mock_sub_" + params.CustomerRef,
		Provider:   a.Name(),
		Status:     "active",
	}, nil
}

func (a *MockAdapter) CancelSubscription(ctx context.Context, externalSubscriptionID string) error {
	if !a.enabled {
		return fmt.Errorf("mock adapter not enabled")
	}
	return nil
}

func (a *MockAdapter) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if a.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload produces the signature a mock webhook delivery would carry.
// Exposed so dev tooling can post self-consistent events.
func (a *MockAdapter) SignPayload(rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

type mockEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	TenantID    string `json:"tenant_id"`
}

func (a *MockAdapter) NormalizeWebhookEvent(payload []byte) *models.NormalizedWebhookEvent {
	var ev mockEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.ID == "" {
		return &models.NormalizedWebhookEvent{Type: models.EventUnknown, RawPayload: payload}
	}

	eventType := models.WebhookEventType(ev.Type)
	switch eventType {
	case models.EventPaymentSucceeded, models.EventPaymentFailed,
		models.EventSubscriptionCancelled, models.EventRefundCompleted,
		models.EventInvoicePaid:
	default:
		eventType = models.EventUnknown
	}

	return &models.NormalizedWebhookEvent{
		Type:              eventType,
		EventID:           ev.ID,
		ExternalPaymentID: ev.PaymentID,
		AmountCents:       ev.AmountCents,
		Currency:          ev.Currency,
		TenantID:          ev.TenantID,
		RawPayload:        payload,
	}
}
