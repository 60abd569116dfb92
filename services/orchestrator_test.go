package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bizsuite/billing/gateways"
	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

// memStore is an in-memory implementation of every store contract the
// orchestrator and sweep depend on.
type memStore struct {
	mu       sync.Mutex
	seq      int
	tenants  map[string]*models.Tenant
	plans    map[string]*models.Plan
	invoices map[string]*models.Invoice
	intents  []*models.PaymentIntent
	txns     []*models.TransactionLog
	attempts []*models.PaymentAttempt
	ledger   map[string]*models.WebhookEventRecord
	subs     map[string]*models.TenantSubscription
	lockHeld bool
}

func newMemStore() *memStore {
	return &memStore{
		tenants:  make(map[string]*models.Tenant),
		plans:    make(map[string]*models.Plan),
		invoices: make(map[string]*models.Invoice),
		ledger:   make(map[string]*models.WebhookEventRecord),
		subs:     make(map[string]*models.TenantSubscription),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, utils.ErrTenantNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *memStore) Suspend(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenants[id]
	t.Status = models.TenantStatusSuspended
	t.SuspensionReason = reason
	return nil
}

func (m *memStore) Activate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenants[id]
	t.Status = models.TenantStatusActive
	t.SuspensionReason = ""
	return nil
}

func (m *memStore) GetByCode(ctx context.Context, code string) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[code]
	if !ok {
		return nil, utils.ErrPlanNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memStore) Create(ctx context.Context, invoice *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice.ID = m.nextID("inv")
	invoice.CreatedAt = time.Now()
	copied := *invoice
	m.invoices[invoice.ID] = &copied
	return nil
}

func (m *memStore) getInvoice(id string) (*models.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, utils.ErrInvoiceNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *memStore) GetByIDInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getInvoice(id)
}

func (m *memStore) GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getInvoice(id)
}

func (m *memStore) Update(ctx context.Context, invoice *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *invoice
	m.invoices[invoice.ID] = &copied
	return nil
}

func (m *memStore) GetOpenByTenantAndPlan(ctx context.Context, tenantID, planCode string) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *models.Invoice
	for _, inv := range m.invoices {
		if inv.TenantID != tenantID || inv.PlanCode != planCode {
			continue
		}
		if inv.Status != models.InvoiceStatusPending && inv.Status != models.InvoiceStatusOverdue {
			continue
		}
		if newest == nil || inv.CreatedAt.After(newest.CreatedAt) {
			newest = inv
		}
	}
	if newest == nil {
		return nil, utils.ErrInvoiceNotFound
	}
	copied := *newest
	return &copied, nil
}

func (m *memStore) ListPendingPastDue(ctx context.Context, asOf time.Time, limit int) ([]*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Invoice
	for _, inv := range m.invoices {
		if inv.Status == models.InvoiceStatusPending && inv.DueDate.Before(asOf) {
			copied := *inv
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) MarkOverdue(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.Status != models.InvoiceStatusPending {
		return false, nil
	}
	inv.Status = models.InvoiceStatusOverdue
	return true, nil
}

func (m *memStore) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent.ID = m.nextID("pi")
	copied := *intent
	m.intents = append(m.intents, &copied)
	return nil
}

func (m *memStore) GetIntentByExternalID(ctx context.Context, provider, externalID string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.intents) - 1; i >= 0; i-- {
		if m.intents[i].Provider == provider && m.intents[i].ExternalID == externalID {
			copied := *m.intents[i]
			return &copied, nil
		}
	}
	return nil, errors.New("record not found")
}

func (m *memStore) AppendTransaction(ctx context.Context, txn *models.TransactionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn.ID = m.nextID("txn")
	copied := *txn
	m.txns = append(m.txns, &copied)
	return nil
}

func (m *memStore) CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt.ID = m.nextID("att")
	copied := *attempt
	m.attempts = append(m.attempts, &copied)
	return nil
}

func (m *memStore) NextAttemptNumber(ctx context.Context, invoiceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, a := range m.attempts {
		if a.InvoiceID == invoiceID && a.AttemptNumber > max {
			max = a.AttemptNumber
		}
	}
	return max + 1, nil
}

func (m *memStore) Claim(ctx context.Context, record *models.WebhookEventRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := record.Provider + "|" + record.EventID
	if existing, ok := m.ledger[key]; ok {
		if existing.Status != models.WebhookEventStatusFailed {
			return false, nil
		}
		existing.Status = models.WebhookEventStatusPending
		*record = *existing
		return true, nil
	}
	record.ID = m.nextID("whe")
	record.Status = models.WebhookEventStatusPending
	copied := *record
	m.ledger[key] = &copied
	return true, nil
}

func (m *memStore) MarkProcessed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.ledger {
		if rec.ID == id {
			rec.Status = models.WebhookEventStatusProcessed
		}
	}
	return nil
}

func (m *memStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.ledger {
		if rec.ID == id {
			rec.Status = models.WebhookEventStatusFailed
			rec.ErrorMessage = errMsg
		}
	}
	return nil
}

func (m *memStore) GetByTenantID(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[tenantID]
	if !ok {
		return nil, utils.ErrSubscriptionNotFound
	}
	copied := *sub
	return &copied, nil
}

func (m *memStore) GetByExternalID(ctx context.Context, externalID string) (*models.TenantSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		if sub.ExternalSubscriptionID == externalID {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, utils.ErrSubscriptionNotFound
}

func (m *memStore) Upsert(ctx context.Context, sub *models.TenantSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		sub.ID = m.nextID("sub")
	}
	copied := *sub
	m.subs[sub.TenantID] = &copied
	return nil
}

func (m *memStore) UpdateSub(ctx context.Context, sub *models.TenantSubscription) error {
	return m.Upsert(ctx, sub)
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockHeld {
		return false, nil
	}
	m.lockHeld = true
	return true, nil
}

func (m *memStore) AdvisoryUnlock(ctx context.Context, key int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockHeld = false
	return nil
}

// subRepo adapts memStore to SubscriptionRepo, whose Update collides with
// the invoice Update method name.
type subRepo struct{ *memStore }

func (r subRepo) Update(ctx context.Context, sub *models.TenantSubscription) error {
	return r.memStore.UpdateSub(ctx, sub)
}

type invoiceRepo struct{ *memStore }

func (r invoiceRepo) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	return r.memStore.GetByIDInvoice(ctx, id)
}

const testWebhookSecret = "mock-secret"

func newTestOrchestrator(store *memStore) (*Orchestrator, *gateways.MockAdapter) {
	mock := gateways.NewMockAdapter(true, testWebhookSecret)
	registry := gateways.NewRegistry(mock)
	selector := gateways.NewSelector(registry, []models.CountryGatewayMapping{
		{Country: "india", PrimaryProvider: "mock", Currency: "INR", TaxName: "GST", TaxRate: 0.18},
	}, "")

	orch := NewOrchestrator(
		store, store, invoiceRepo{store}, store, store, subRepo{store},
		store, selector, registry,
		OrchestratorConfig{InvoiceDueDays: 7},
	)
	return orch, mock
}

func seedIndiaTenant(store *memStore) {
	store.tenants["ten-1"] = &models.Tenant{
		ID:             "ten-1",
		Name:           "Sharma Clinics",
		BillingCountry: "india",
		Vertical:       "clinic",
		Status:         models.TenantStatusActive,
		BillingEmail:   "billing@sharma.example",
	}
	store.plans["pro-monthly"] = &models.Plan{
		Code:           "pro-monthly",
		Name:           "Pro",
		Interval:       "month",
		BasePriceCents: 10000,
		BaseCurrency:   "USD",
		CountryPrices:  models.JSON{"india": float64(10000)},
		Active:         true,
	}
}

func TestCreateSubscriptionPayment_IndiaEndToEnd(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	orch, _ := newTestOrchestrator(store)

	result, err := orch.CreateSubscriptionPayment(context.Background(), "ten-1", "pro-monthly")
	if err != nil {
		t.Fatalf("CreateSubscriptionPayment() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("result not successful: %+v", result)
	}
	if result.Provider != "mock" {
		t.Errorf("provider = %s, want mock", result.Provider)
	}

	invoice := store.invoices[result.InvoiceID]
	if invoice.SubtotalCents != 10000 {
		t.Errorf("subtotal = %d, want 10000", invoice.SubtotalCents)
	}
	if invoice.TaxCents != 1800 {
		t.Errorf("GST = %d, want 1800", invoice.TaxCents)
	}
	if invoice.TotalCents != 11800 || invoice.AmountDueCents != 11800 {
		t.Errorf("total/due = %d/%d, want 11800/11800", invoice.TotalCents, invoice.AmountDueCents)
	}
	if invoice.Currency != "INR" {
		t.Errorf("currency = %s, want INR", invoice.Currency)
	}

	if len(store.txns) != 1 || store.txns[0].Type != models.TransactionTypeCharge {
		t.Fatalf("expected one charge transaction, got %+v", store.txns)
	}
	if store.txns[0].Country != "india" || store.txns[0].Vertical != "clinic" {
		t.Errorf("transaction denormalization wrong: %+v", store.txns[0])
	}

	if len(store.attempts) != 1 || store.attempts[0].AttemptNumber != 1 {
		t.Fatalf("expected attempt number 1, got %+v", store.attempts)
	}

	sub := store.subs["ten-1"]
	if sub == nil || sub.Status != models.SubscriptionStatusActive {
		t.Errorf("subscription not created active: %+v", sub)
	}
}

func TestCreateSubscriptionPayment_ReusesOpenInvoice(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	orch, _ := newTestOrchestrator(store)
	ctx := context.Background()

	first, err := orch.CreateSubscriptionPayment(ctx, "ten-1", "pro-monthly")
	if err != nil {
		t.Fatal(err)
	}
	second, err := orch.CreateSubscriptionPayment(ctx, "ten-1", "pro-monthly")
	if err != nil {
		t.Fatal(err)
	}

	if first.InvoiceID != second.InvoiceID {
		t.Errorf("retry opened a second invoice: %s vs %s", first.InvoiceID, second.InvoiceID)
	}
	if len(store.invoices) != 1 {
		t.Errorf("invoice count = %d, want 1", len(store.invoices))
	}
	if len(store.attempts) != 2 || store.attempts[1].AttemptNumber != 2 {
		t.Errorf("attempt numbering wrong: %+v", store.attempts)
	}
}

func TestCreateSubscriptionPayment_UnmappedCountry(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	store.tenants["ten-1"].BillingCountry = "atlantis"
	orch, _ := newTestOrchestrator(store)

	_, err := orch.CreateSubscriptionPayment(context.Background(), "ten-1", "pro-monthly")
	if !errors.Is(err, utils.ErrCountryNotMapped) {
		t.Errorf("error = %v, want ErrCountryNotMapped", err)
	}
}

func mockEventBody(id, eventType, paymentID string, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"payment_id":%q,"amount_cents":%d,"currency":"INR","tenant_id":"ten-1"}`,
		id, eventType, paymentID, amount))
}

func TestHandleWebhookEvent_PaymentSucceededSettlesInvoice(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	orch, mock := newTestOrchestrator(store)
	ctx := context.Background()

	result, err := orch.CreateSubscriptionPayment(ctx, "ten-1", "pro-monthly")
	if err != nil {
		t.Fatal(err)
	}

	body := mockEventBody("evt-1", "payment.succeeded", "mock_pi_"+result.InvoiceID, 11800)
	whResult, err := orch.HandleWebhookEvent(ctx, "mock", body, mock.SignPayload(body))
	if err != nil {
		t.Fatalf("HandleWebhookEvent() error = %v", err)
	}
	if whResult.Duplicate || whResult.ProcessingErr != nil {
		t.Fatalf("unexpected result: %+v", whResult)
	}

	invoice := store.invoices[result.InvoiceID]
	if invoice.Status != models.InvoiceStatusPaid {
		t.Errorf("invoice status = %s, want paid", invoice.Status)
	}
	if invoice.AmountDueCents != 0 || invoice.AmountPaidCents != invoice.TotalCents {
		t.Errorf("settlement broke the amount invariant: %+v", invoice)
	}
	if invoice.PaidAt == nil {
		t.Error("paid invoice has no PaidAt")
	}

	sub := store.subs["ten-1"]
	if sub.Status != models.SubscriptionStatusActive || sub.PaymentFailureCount != 0 {
		t.Errorf("subscription not active with zero failures: %+v", sub)
	}

	rec := store.ledger["mock|evt-1"]
	if rec == nil || rec.Status != models.WebhookEventStatusProcessed {
		t.Errorf("ledger record not processed: %+v", rec)
	}
}

func TestHandleWebhookEvent_DuplicateReplay(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	orch, mock := newTestOrchestrator(store)
	ctx := context.Background()

	result, err := orch.CreateSubscriptionPayment(ctx, "ten-1", "pro-monthly")
	if err != nil {
		t.Fatal(err)
	}

	body := mockEventBody("evt-dup", "payment.succeeded", "mock_pi_"+result.InvoiceID, 11800)
	sig := mock.SignPayload(body)

	if _, err := orch.HandleWebhookEvent(ctx, "mock", body, sig); err != nil {
		t.Fatal(err)
	}
	replay, err := orch.HandleWebhookEvent(ctx, "mock", body, sig)
	if err != nil {
		t.Fatal(err)
	}
	if !replay.Duplicate {
		t.Error("replay not flagged duplicate")
	}

	webhookTxns := 0
	for _, txn := range store.txns {
		if txn.Type == models.TransactionTypeWebhook {
			webhookTxns++
		}
	}
	if webhookTxns != 1 {
		t.Errorf("webhook transactions = %d, want 1 (replay must not double-apply)", webhookTxns)
	}
}

func TestHandleWebhookEvent_BadSignatureTouchesNothing(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	orch, _ := newTestOrchestrator(store)

	body := mockEventBody("evt-forged", "payment.succeeded", "mock_pi_x", 11800)
	_, err := orch.HandleWebhookEvent(context.Background(), "mock", body, "bad-signature")
	if !errors.Is(err, utils.ErrWebhookInvalidSignature) {
		t.Fatalf("error = %v, want ErrWebhookInvalidSignature", err)
	}
	if len(store.ledger) != 0 {
		t.Error("forged event reached the idempotency ledger")
	}
}

func TestHandleWebhookEvent_UnknownProvider(t *testing.T) {
	store := newMemStore()
	orch, _ := newTestOrchestrator(store)

	_, err := orch.HandleWebhookEvent(context.Background(), "acme-pay", []byte(`{}`), "sig")
	if !errors.Is(err, utils.ErrWebhookUnknownProvider) {
		t.Errorf("error = %v, want ErrWebhookUnknownProvider", err)
	}
}

func TestHandleWebhookEvent_FailuresEscalateToSuspension(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	orch, mock := newTestOrchestrator(store)
	ctx := context.Background()

	result, err := orch.CreateSubscriptionPayment(ctx, "ten-1", "pro-monthly")
	if err != nil {
		t.Fatal(err)
	}
	paymentID := "mock_pi_" + result.InvoiceID

	for i := 1; i <= SuspendAfterFailures; i++ {
		body := mockEventBody(fmt.Sprintf("evt-fail-%d", i), "payment.failed", paymentID, 11800)
		whResult, err := orch.HandleWebhookEvent(ctx, "mock", body, mock.SignPayload(body))
		if err != nil {
			t.Fatal(err)
		}
		if whResult.ProcessingErr != nil {
			t.Fatalf("failure %d not processed: %v", i, whResult.ProcessingErr)
		}

		sub := store.subs["ten-1"]
		if sub.PaymentFailureCount != i {
			t.Errorf("after failure %d: count = %d", i, sub.PaymentFailureCount)
		}
		if i < SuspendAfterFailures && sub.Status != models.SubscriptionStatusPastDue {
			t.Errorf("after failure %d: status = %s, want past_due", i, sub.Status)
		}
	}

	sub := store.subs["ten-1"]
	if sub.Status != models.SubscriptionStatusSuspended {
		t.Errorf("status = %s, want suspended", sub.Status)
	}
	if store.tenants["ten-1"].Status != models.TenantStatusSuspended {
		t.Error("tenant not suspended after threshold")
	}

	// Payment after suspension reactivates both subscription and tenant.
	body := mockEventBody("evt-recover", "payment.succeeded", paymentID, 11800)
	if _, err := orch.HandleWebhookEvent(ctx, "mock", body, mock.SignPayload(body)); err != nil {
		t.Fatal(err)
	}
	sub = store.subs["ten-1"]
	if sub.Status != models.SubscriptionStatusActive || sub.PaymentFailureCount != 0 {
		t.Errorf("recovery failed: %+v", sub)
	}
	if store.tenants["ten-1"].Status != models.TenantStatusActive {
		t.Error("tenant not reactivated after payment")
	}
}

func TestHandleWebhookEvent_CancellationByExternalSubscriptionID(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	orch, mock := newTestOrchestrator(store)
	ctx := context.Background()

	store.subs["ten-1"] = &models.TenantSubscription{
		ID:                     "sub-1",
		TenantID:               "ten-1",
		PlanCode:               "pro-monthly",
		Status:                 models.SubscriptionStatusActive,
		Provider:               "mock",
		ExternalSubscriptionID: "mock_sub_ext",
	}

	// Provider cancellation events carry their subscription id, not ours.
	body := []byte(`{"id":"evt-cancel","type":"subscription.cancelled","payment_id":"mock_sub_ext","currency":"INR"}`)
	result, err := orch.HandleWebhookEvent(ctx, "mock", body, mock.SignPayload(body))
	if err != nil {
		t.Fatal(err)
	}
	if result.ProcessingErr != nil {
		t.Fatalf("cancellation not processed: %v", result.ProcessingErr)
	}

	if store.subs["ten-1"].Status != models.SubscriptionStatusCancelled {
		t.Errorf("subscription status = %s, want cancelled", store.subs["ten-1"].Status)
	}
}

func TestCreateSubscriptionPayment_EnrollsManagedRecurring(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	store.plans["pro-monthly"].ProviderPlanIDs = models.JSON{"mock": "mock_plan_pro"}
	orch, _ := newTestOrchestrator(store)

	if _, err := orch.CreateSubscriptionPayment(context.Background(), "ten-1", "pro-monthly"); err != nil {
		t.Fatal(err)
	}

	sub := store.subs["ten-1"]
	if sub.ExternalSubscriptionID == "" {
		t.Fatal("subscription not enrolled on the gateway")
	}
	if sub.Provider != "mock" {
		t.Errorf("provider = %s, want mock", sub.Provider)
	}
}

func TestCancelSubscription_ManagedRecurring(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	store.plans["pro-monthly"].ProviderPlanIDs = models.JSON{"mock": "mock_plan_pro"}
	orch, _ := newTestOrchestrator(store)
	ctx := context.Background()

	if _, err := orch.CreateSubscriptionPayment(ctx, "ten-1", "pro-monthly"); err != nil {
		t.Fatal(err)
	}

	sub, err := orch.CancelSubscription(ctx, "ten-1")
	if err != nil {
		t.Fatalf("CancelSubscription() error = %v", err)
	}
	if sub.Status != models.SubscriptionStatusCancelled {
		t.Errorf("status = %s, want cancelled", sub.Status)
	}
	if store.subs["ten-1"].Status != models.SubscriptionStatusCancelled {
		t.Error("cancellation not persisted")
	}

	// Cancelling again is a no-op, not an error.
	again, err := orch.CancelSubscription(ctx, "ten-1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != models.SubscriptionStatusCancelled {
		t.Errorf("repeat cancel status = %s, want cancelled", again.Status)
	}
}

func TestHandleWebhookEvent_ProcessingFailureIsRetryableOnce(t *testing.T) {
	store := newMemStore()
	seedIndiaTenant(store)
	orch, mock := newTestOrchestrator(store)
	ctx := context.Background()

	// No intent exists for this payment id, so processing fails.
	body := mockEventBody("evt-orphan", "payment.succeeded", "mock_pi_nowhere", 500)
	sig := mock.SignPayload(body)

	result, err := orch.HandleWebhookEvent(ctx, "mock", body, sig)
	if err != nil {
		t.Fatal(err)
	}
	if result.ProcessingErr == nil {
		t.Fatal("expected processing error for orphan event")
	}
	if store.ledger["mock|evt-orphan"].Status != models.WebhookEventStatusFailed {
		t.Error("ledger record not marked failed")
	}

	// Redelivery claims the failed record instead of treating it as a dup.
	retry, err := orch.HandleWebhookEvent(ctx, "mock", body, sig)
	if err != nil {
		t.Fatal(err)
	}
	if retry.Duplicate {
		t.Error("failed record redelivery reported as duplicate")
	}
	if retry.ProcessingErr == nil {
		t.Error("orphan retry should still fail processing")
	}
}
