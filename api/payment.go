package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bizsuite/billing/models"
)

type PaymentOrchestrator interface {
	CreateSubscriptionPayment(ctx context.Context, tenantID, planCode string) (*models.PaymentResult, error)
}

type InvoiceReader interface {
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
}

type AttemptLister interface {
	ListAttempts(ctx context.Context, invoiceID string) ([]*models.PaymentAttempt, error)
}

type PaymentHandler struct {
	orchestrator PaymentOrchestrator
	invoices     InvoiceReader
	attempts     AttemptLister
}

func CreatePaymentHandler(orchestrator PaymentOrchestrator, invoices InvoiceReader, attempts AttemptLister) *PaymentHandler {
	return &PaymentHandler{
		orchestrator: orchestrator,
		invoices:     invoices,
		attempts:     attempts,
	}
}

type CreatePaymentRequest struct {
	TenantID string `json:"tenant_id"`
	PlanCode string `json:"plan_code"`
}

func (h *PaymentHandler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.TenantID == "" || req.PlanCode == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "tenant_id and plan_code are required"})
		return
	}

	result, err := h.orchestrator.CreateSubscriptionPayment(r.Context(), req.TenantID, req.PlanCode)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, result)
}

type invoiceResponse struct {
	Invoice  *models.Invoice          `json:"invoice"`
	Attempts []*models.PaymentAttempt `json:"attempts"`
}

func (h *PaymentHandler) HandleGetInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	invoiceID := mux.Vars(r)["id"]
	invoice, err := h.invoices.GetByID(r.Context(), invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}

	attempts, err := h.attempts.ListAttempts(r.Context(), invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, invoiceResponse{Invoice: invoice, Attempts: attempts})
}
