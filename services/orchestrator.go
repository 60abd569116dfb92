package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bizsuite/billing/gateways"
	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

// Store contracts the orchestrator depends on. Narrow on purpose: tests run
// the full payment and webhook paths against in-memory fakes.

type TenantRepo interface {
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	Suspend(ctx context.Context, id, reason string) error
	Activate(ctx context.Context, id string) error
}

type PlanRepo interface {
	GetByCode(ctx context.Context, code string) (*models.Plan, error)
}

type InvoiceRepo interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error)
	Update(ctx context.Context, invoice *models.Invoice) error
	GetOpenByTenantAndPlan(ctx context.Context, tenantID, planCode string) (*models.Invoice, error)
}

type PaymentRepo interface {
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error
	GetIntentByExternalID(ctx context.Context, provider, externalID string) (*models.PaymentIntent, error)
	AppendTransaction(ctx context.Context, txn *models.TransactionLog) error
	CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	NextAttemptNumber(ctx context.Context, invoiceID string) (int, error)
}

type LedgerRepo interface {
	Claim(ctx context.Context, record *models.WebhookEventRecord) (bool, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
}

type SubscriptionRepo interface {
	GetByTenantID(ctx context.Context, tenantID string) (*models.TenantSubscription, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.TenantSubscription, error)
	Upsert(ctx context.Context, sub *models.TenantSubscription) error
	Update(ctx context.Context, sub *models.TenantSubscription) error
}

type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

type GatewaySelector interface {
	ForCountry(ctx context.Context, country string) (gateways.Adapter, *models.CountryGatewayMapping, error)
}

type AdapterSource interface {
	Get(name string) (gateways.Adapter, bool)
}

// WebhookResult tells the HTTP layer what happened so it can pick the right
// status code. A ProcessingErr with Duplicate == false still gets a 200 ack;
// the failed ledger record is the retry mechanism, not the HTTP status.
type WebhookResult struct {
	EventID       string                  `json:"event_id"`
	Type          models.WebhookEventType `json:"type"`
	Duplicate     bool                    `json:"duplicate"`
	ProcessingErr error                   `json:"-"`
}

type OrchestratorConfig struct {
	InvoiceDueDays int
}

// Orchestrator drives the two billing entry points: charging a tenant's
// subscription invoice and digesting provider webhooks. All dunning
// transitions funnel through it so the state machine has a single writer.
type Orchestrator struct {
	tenants  TenantRepo
	plans    PlanRepo
	invoices InvoiceRepo
	payments PaymentRepo
	ledger   LedgerRepo
	subs     SubscriptionRepo
	tx       Transactor
	selector GatewaySelector
	adapters AdapterSource
	dueDays  int
	logger   *utils.Logger
}

func NewOrchestrator(
	tenants TenantRepo,
	plans PlanRepo,
	invoices InvoiceRepo,
	payments PaymentRepo,
	ledger LedgerRepo,
	subs SubscriptionRepo,
	tx Transactor,
	selector GatewaySelector,
	adapters AdapterSource,
	cfg OrchestratorConfig,
) *Orchestrator {
	dueDays := cfg.InvoiceDueDays
	if dueDays <= 0 {
		dueDays = 7
	}
	return &Orchestrator{
		tenants:  tenants,
		plans:    plans,
		invoices: invoices,
		payments: payments,
		ledger:   ledger,
		subs:     subs,
		tx:       tx,
		selector: selector,
		adapters: adapters,
		dueDays:  dueDays,
		logger:   utils.NewLogger("orchestrator"),
	}
}

// CreateSubscriptionPayment prices the tenant's plan for their billing
// country, opens (or reuses) the invoice, and creates a charge on the
// selected gateway. Every outcome, success or failure, leaves a
// TransactionLog row and a PaymentAttempt behind.
func (o *Orchestrator) CreateSubscriptionPayment(ctx context.Context, tenantID, planCode string) (*models.PaymentResult, error) {
	tenant, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status == models.TenantStatusCancelled {
		return nil, utils.NewAPIError(422, "Tenant is cancelled")
	}

	plan, err := o.plans.GetByCode(ctx, planCode)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, utils.ErrPlanNotFound
	}

	adapter, mapping, err := o.selector.ForCountry(ctx, tenant.BillingCountry)
	if err != nil {
		return nil, err
	}

	invoice, err := o.openInvoice(ctx, tenant, plan, mapping)
	if err != nil {
		return nil, err
	}

	attemptNumber, err := o.payments.NextAttemptNumber(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	intent := adapter.CreatePayment(ctx, &models.CreatePaymentParams{
		TenantID:      tenant.ID,
		InvoiceID:     invoice.ID,
		AmountCents:   invoice.AmountDueCents,
		Currency:      invoice.Currency,
		Description:   invoice.Description,
		CustomerEmail: tenant.BillingEmail,
	})

	if err := o.payments.CreateIntent(ctx, intent); err != nil {
		return nil, err
	}

	errMsg := intentError(intent)
	if err := o.payments.AppendTransaction(ctx, &models.TransactionLog{
		TenantID:    tenant.ID,
		InvoiceID:   invoice.ID,
		IntentID:    intent.ID,
		Provider:    intent.Provider,
		Type:        models.TransactionTypeCharge,
		AmountCents: intent.AmountCents,
		Currency:    intent.Currency,
		Status:      intent.Status,
		Country:     tenant.BillingCountry,
		Vertical:    tenant.Vertical,
		RawResponse: intent.Metadata,
	}); err != nil {
		return nil, err
	}

	if err := o.payments.CreateAttempt(ctx, &models.PaymentAttempt{
		InvoiceID:     invoice.ID,
		TenantID:      tenant.ID,
		AttemptNumber: attemptNumber,
		Provider:      intent.Provider,
		IntentID:      intent.ID,
		Status:        intent.Status,
		ErrorMessage:  errMsg,
	}); err != nil {
		return nil, err
	}

	sub, err := o.ensureSubscription(ctx, tenant, plan, intent.Provider)
	if err != nil {
		return nil, err
	}

	if intent.Status == models.PaymentStatusFailed {
		o.logger.Warn(ctx, "payment creation failed", map[string]interface{}{
			"tenant_id":  tenant.ID,
			"invoice_id": invoice.ID,
			"provider":   intent.Provider,
			"error":      errMsg,
		})
		if err := o.RegisterPaymentFailure(ctx, tenant.ID, invoice.ID, errMsg); err != nil {
			return nil, err
		}
		return &models.PaymentResult{
			Success:   false,
			InvoiceID: invoice.ID,
			IntentID:  intent.ID,
			Provider:  intent.Provider,
			Error:     errMsg,
		}, nil
	}

	o.enrollRecurring(ctx, adapter, tenant, plan, sub)

	o.logger.Info(ctx, "payment created", map[string]interface{}{
		"tenant_id":  tenant.ID,
		"invoice_id": invoice.ID,
		"provider":   intent.Provider,
		"amount":     intent.AmountCents,
		"currency":   intent.Currency,
	})

	return &models.PaymentResult{
		Success:    true,
		InvoiceID:  invoice.ID,
		IntentID:   intent.ID,
		PaymentURL: intent.PaymentURL,
		Provider:   intent.Provider,
	}, nil
}

// openInvoice reuses the tenant's open invoice for the plan when one exists,
// so a retried payment does not double-bill the billing period.
func (o *Orchestrator) openInvoice(ctx context.Context, tenant *models.Tenant, plan *models.Plan, mapping *models.CountryGatewayMapping) (*models.Invoice, error) {
	existing, err := o.invoices.GetOpenByTenantAndPlan(ctx, tenant.ID, plan.Code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, utils.ErrInvoiceNotFound) {
		return nil, err
	}

	subtotal := plan.PriceCentsForCountry(tenant.BillingCountry)
	tax := int64(math.Round(float64(subtotal) * mapping.TaxRate))
	total := subtotal + tax

	invoice := &models.Invoice{
		TenantID:       tenant.ID,
		PlanCode:       plan.Code,
		Status:         models.InvoiceStatusPending,
		Currency:       mapping.Currency,
		SubtotalCents:  subtotal,
		TaxCents:       tax,
		TotalCents:     total,
		AmountDueCents: total,
		TaxName:        mapping.TaxName,
		TaxRate:        mapping.TaxRate,
		DueDate:        time.Now().AddDate(0, 0, o.dueDays),
		Description:    fmt.Sprintf("%s subscription (%sly)", plan.Name, plan.Interval),
	}
	if err := o.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (o *Orchestrator) ensureSubscription(ctx context.Context, tenant *models.Tenant, plan *models.Plan, provider string) (*models.TenantSubscription, error) {
	sub, err := o.subs.GetByTenantID(ctx, tenant.ID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, utils.ErrSubscriptionNotFound) {
		return nil, err
	}

	status := models.SubscriptionStatusActive
	if plan.TrialDays > 0 {
		status = models.SubscriptionStatusTrialing
	}
	sub = &models.TenantSubscription{
		TenantID: tenant.ID,
		PlanCode: plan.Code,
		Status:   status,
		Provider: provider,
	}
	if err := o.subs.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// enrollRecurring moves a new subscription onto provider-managed recurring
// billing when the gateway supports it and the plan is mapped to a provider
// plan. Enrollment is best effort; per-invoice charging keeps working when
// it fails.
func (o *Orchestrator) enrollRecurring(ctx context.Context, adapter gateways.Adapter, tenant *models.Tenant, plan *models.Plan, sub *models.TenantSubscription) {
	recurring, ok := adapter.(gateways.RecurringAdapter)
	if !ok || sub.ExternalSubscriptionID != "" {
		return
	}
	planID := plan.ProviderPlanID(adapter.Name())
	if planID == "" {
		return
	}

	gwSub, err := recurring.CreateSubscription(ctx, &models.CreateGatewaySubscriptionParams{
		TenantID:       tenant.ID,
		PlanCode:       plan.Code,
		CustomerRef:    tenant.BillingEmail,
		ExternalPlanID: planID,
		Metadata:       map[string]string{"tenant_id": tenant.ID, "plan_code": plan.Code},
	})
	if err != nil {
		o.logger.Warn(ctx, "recurring enrollment failed, staying on per-invoice charging", map[string]interface{}{
			"tenant_id": tenant.ID,
			"provider":  adapter.Name(),
			"error":     err.Error(),
		})
		return
	}

	sub.ExternalSubscriptionID = gwSub.ExternalID
	sub.Provider = gwSub.Provider
	if err := o.subs.Update(ctx, sub); err != nil {
		utils.LogError(ctx, err, "failed to persist recurring enrollment", map[string]interface{}{
			"tenant_id": tenant.ID,
		})
	}
}

// CancelSubscription ends a tenant's subscription. A provider-managed copy
// is cancelled on the gateway first; if that call fails the local state is
// left untouched so the caller can retry.
func (o *Orchestrator) CancelSubscription(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	sub, err := o.subs.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	outcome := NextState(sub.Status, sub.PaymentFailureCount, models.EventSubscriptionCancelled)
	if !outcome.Changed {
		return sub, nil
	}

	if sub.ExternalSubscriptionID != "" {
		if adapter, ok := o.adapters.Get(sub.Provider); ok {
			if recurring, ok := adapter.(gateways.RecurringAdapter); ok {
				if err := recurring.CancelSubscription(ctx, sub.ExternalSubscriptionID); err != nil {
					return nil, fmt.Errorf("provider-side subscription cancel failed: %w", err)
				}
			}
		}
	}

	sub.Status = outcome.Status
	sub.PaymentFailureCount = outcome.FailureCount
	if err := o.subs.Update(ctx, sub); err != nil {
		return nil, err
	}

	o.logger.Info(ctx, "subscription cancelled", map[string]interface{}{
		"tenant_id": tenantID,
		"provider":  sub.Provider,
	})
	return sub, nil
}

// HandleWebhookEvent is the single entry point for provider callbacks.
// Order matters: signature first, then the idempotency claim, then
// processing. Nothing touches the ledger before the signature passes, so
// forged payloads cannot poison real event ids.
func (o *Orchestrator) HandleWebhookEvent(ctx context.Context, provider string, rawBody []byte, signature string) (*WebhookResult, error) {
	adapter, ok := o.adapters.Get(provider)
	if !ok {
		return nil, utils.ErrWebhookUnknownProvider
	}

	if !adapter.VerifyWebhookSignature(rawBody, signature) {
		o.logger.Warn(ctx, "webhook signature rejected", map[string]interface{}{
			"provider": provider,
		})
		return nil, utils.ErrWebhookInvalidSignature
	}

	event := adapter.NormalizeWebhookEvent(rawBody)
	if event.EventID == "" {
		return nil, utils.ErrWebhookInvalidPayload
	}

	record := &models.WebhookEventRecord{
		Provider: provider,
		EventID:  event.EventID,
		Type:     event.Type,
		Payload:  payloadJSON(rawBody),
	}

	claimed, err := o.ledger.Claim(ctx, record)
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{EventID: event.EventID, Type: event.Type}
	if !claimed {
		result.Duplicate = true
		o.logger.Info(ctx, "duplicate webhook ignored", map[string]interface{}{
			"provider": provider,
			"event_id": event.EventID,
		})
		return result, nil
	}

	if err := o.applyEvent(ctx, provider, event); err != nil {
		result.ProcessingErr = err
		utils.LogError(ctx, err, "webhook processing failed", map[string]interface{}{
			"provider": provider,
			"event_id": event.EventID,
			"type":     string(event.Type),
		})
		if markErr := o.ledger.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			return result, markErr
		}
		return result, nil
	}

	if err := o.ledger.MarkProcessed(ctx, record.ID); err != nil {
		return result, err
	}

	o.logger.Info(ctx, "webhook processed", map[string]interface{}{
		"provider": provider,
		"event_id": event.EventID,
		"type":     string(event.Type),
	})
	return result, nil
}

func (o *Orchestrator) applyEvent(ctx context.Context, provider string, event *models.NormalizedWebhookEvent) error {
	switch event.Type {
	case models.EventPaymentSucceeded, models.EventInvoicePaid:
		return o.applyPaymentSucceeded(ctx, provider, event)
	case models.EventPaymentFailed:
		return o.applyPaymentFailed(ctx, provider, event)
	case models.EventSubscriptionCancelled:
		return o.applySubscriptionCancelled(ctx, event)
	case models.EventRefundCompleted:
		return o.applyRefundCompleted(ctx, provider, event)
	default:
		// Unknown events are ledgered for dedup and dropped.
		return nil
	}
}

func (o *Orchestrator) applyPaymentSucceeded(ctx context.Context, provider string, event *models.NormalizedWebhookEvent) error {
	intent, err := o.payments.GetIntentByExternalID(ctx, provider, event.ExternalPaymentID)
	if err != nil {
		return fmt.Errorf("no payment intent for external id %s: %w", event.ExternalPaymentID, err)
	}

	return o.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		invoice, err := o.invoices.GetByIDForUpdate(txCtx, intent.InvoiceID)
		if err != nil {
			return err
		}

		// A settled invoice stays settled; a replayed success is a no-op
		// beyond the ledger row already written.
		if !invoice.IsPaid() {
			invoice.MarkPaid(time.Now())
			if err := o.invoices.Update(txCtx, invoice); err != nil {
				return err
			}
		}

		tenant, err := o.tenants.GetByID(txCtx, invoice.TenantID)
		if err != nil {
			return err
		}

		if err := o.payments.AppendTransaction(txCtx, &models.TransactionLog{
			TenantID:    invoice.TenantID,
			InvoiceID:   invoice.ID,
			IntentID:    intent.ID,
			Provider:    provider,
			Type:        models.TransactionTypeWebhook,
			AmountCents: eventAmount(event, invoice),
			Currency:    invoice.Currency,
			Status:      models.PaymentStatusSucceeded,
			Country:     tenant.BillingCountry,
			Vertical:    tenant.Vertical,
			RawResponse: payloadJSON(event.RawPayload),
		}); err != nil {
			return err
		}

		return o.advanceSubscription(txCtx, tenant, invoice.PlanCode, event.Type)
	})
}

func (o *Orchestrator) applyPaymentFailed(ctx context.Context, provider string, event *models.NormalizedWebhookEvent) error {
	intent, err := o.payments.GetIntentByExternalID(ctx, provider, event.ExternalPaymentID)
	if err != nil {
		return fmt.Errorf("no payment intent for external id %s: %w", event.ExternalPaymentID, err)
	}

	tenant, err := o.tenants.GetByID(ctx, intent.TenantID)
	if err != nil {
		return err
	}

	if err := o.payments.AppendTransaction(ctx, &models.TransactionLog{
		TenantID:    intent.TenantID,
		InvoiceID:   intent.InvoiceID,
		IntentID:    intent.ID,
		Provider:    provider,
		Type:        models.TransactionTypeWebhook,
		AmountCents: intent.AmountCents,
		Currency:    intent.Currency,
		Status:      models.PaymentStatusFailed,
		Country:     tenant.BillingCountry,
		Vertical:    tenant.Vertical,
		RawResponse: payloadJSON(event.RawPayload),
	}); err != nil {
		return err
	}

	return o.RegisterPaymentFailure(ctx, intent.TenantID, intent.InvoiceID, "gateway reported payment failure")
}

func (o *Orchestrator) applySubscriptionCancelled(ctx context.Context, event *models.NormalizedWebhookEvent) error {
	tenantID := event.TenantID
	if tenantID == "" && event.ExternalPaymentID != "" {
		// Provider cancellation events reference their own subscription id.
		sub, err := o.subs.GetByExternalID(ctx, event.ExternalPaymentID)
		if err == nil {
			tenantID = sub.TenantID
		}
	}
	if tenantID == "" {
		return fmt.Errorf("cancellation event carries no tenant reference")
	}

	sub, err := o.subs.GetByTenantID(ctx, tenantID)
	if err != nil {
		return err
	}

	outcome := NextState(sub.Status, sub.PaymentFailureCount, models.EventSubscriptionCancelled)
	if !outcome.Changed {
		return nil
	}

	sub.Status = outcome.Status
	sub.PaymentFailureCount = outcome.FailureCount
	return o.subs.Update(ctx, sub)
}

// applyRefundCompleted records the refund in the financial history. Refunds
// never feed the dunning state machine.
func (o *Orchestrator) applyRefundCompleted(ctx context.Context, provider string, event *models.NormalizedWebhookEvent) error {
	txn := &models.TransactionLog{
		Provider:    provider,
		Type:        models.TransactionTypeRefund,
		AmountCents: event.AmountCents,
		Currency:    event.Currency,
		Status:      models.PaymentStatusSucceeded,
		RawResponse: payloadJSON(event.RawPayload),
	}

	intent, err := o.payments.GetIntentByExternalID(ctx, provider, event.ExternalPaymentID)
	if err == nil {
		txn.TenantID = intent.TenantID
		txn.InvoiceID = intent.InvoiceID
		txn.IntentID = intent.ID
		if tenant, terr := o.tenants.GetByID(ctx, intent.TenantID); terr == nil {
			txn.Country = tenant.BillingCountry
			txn.Vertical = tenant.Vertical
		}
	} else {
		txn.TenantID = event.TenantID
	}

	return o.payments.AppendTransaction(ctx, txn)
}

// RegisterPaymentFailure runs one payment failure through the dunning state
// machine and applies its side effects. Shared by the webhook path, failed
// payment creation, and the overdue sweep.
func (o *Orchestrator) RegisterPaymentFailure(ctx context.Context, tenantID, invoiceID, reason string) error {
	sub, err := o.subs.GetByTenantID(ctx, tenantID)
	if err != nil {
		return err
	}

	outcome := NextState(sub.Status, sub.PaymentFailureCount, models.EventPaymentFailed)
	if !outcome.Changed {
		return nil
	}

	sub.Status = outcome.Status
	sub.PaymentFailureCount = outcome.FailureCount
	if outcome.SuspendTenant {
		now := time.Now()
		sub.SuspendedAt = &now
		sub.SuspensionReason = outcome.SuspensionReason
	}
	if err := o.subs.Update(ctx, sub); err != nil {
		return err
	}

	if outcome.SuspendTenant {
		o.logger.Warn(ctx, "tenant suspended by dunning", map[string]interface{}{
			"tenant_id":  tenantID,
			"invoice_id": invoiceID,
			"failures":   outcome.FailureCount,
		})
		return o.tenants.Suspend(ctx, tenantID, outcome.SuspensionReason)
	}
	return nil
}

func (o *Orchestrator) advanceSubscription(ctx context.Context, tenant *models.Tenant, planCode string, event models.WebhookEventType) error {
	sub, err := o.subs.GetByTenantID(ctx, tenant.ID)
	if errors.Is(err, utils.ErrSubscriptionNotFound) {
		sub = &models.TenantSubscription{
			TenantID: tenant.ID,
			PlanCode: planCode,
			Status:   models.SubscriptionStatusActive,
		}
		err = nil
	}
	if err != nil {
		return err
	}

	outcome := NextState(sub.Status, sub.PaymentFailureCount, event)
	now := time.Now()
	sub.LastPaymentAt = &now
	if outcome.Changed {
		sub.Status = outcome.Status
		sub.PaymentFailureCount = outcome.FailureCount
		sub.SuspendedAt = nil
		sub.SuspensionReason = ""
	}
	if err := o.subs.Upsert(ctx, sub); err != nil {
		return err
	}

	if outcome.ReactivateTenant {
		o.logger.Info(ctx, "tenant reactivated after payment", map[string]interface{}{
			"tenant_id": tenant.ID,
		})
		return o.tenants.Activate(ctx, tenant.ID)
	}
	return nil
}

func intentError(intent *models.PaymentIntent) string {
	if intent.Metadata == nil {
		return ""
	}
	if msg, ok := intent.Metadata["error"].(string); ok {
		return msg
	}
	return ""
}

func eventAmount(event *models.NormalizedWebhookEvent, invoice *models.Invoice) int64 {
	if event.AmountCents > 0 {
		return event.AmountCents
	}
	return invoice.TotalCents
}

func payloadJSON(raw []byte) models.JSON {
	var payload models.JSON
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return models.JSON{"raw": string(raw)}
	}
	return payload
}
