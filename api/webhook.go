package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bizsuite/billing/gateways"
	"github.com/bizsuite/billing/services"
	"github.com/bizsuite/billing/utils"
)

// maxWebhookBody caps a webhook payload at 1 MiB.
const maxWebhookBody = 1 << 20

type WebhookProcessor interface {
	HandleWebhookEvent(ctx context.Context, provider string, rawBody []byte, signature string) (*services.WebhookResult, error)
}

type AdapterLookup interface {
	Get(name string) (gateways.Adapter, bool)
}

type WebhookHandler struct {
	processor WebhookProcessor
	adapters  AdapterLookup
}

func CreateWebhookHandler(processor WebhookProcessor, adapters AdapterLookup) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		adapters:  adapters,
	}
}

type webhookAck struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// HandleWebhook is the single endpoint for all providers. Once the
// signature and the idempotency claim pass, the response is a 200 even if
// processing failed: the failed ledger record carries the retry, and a
// non-2xx would only make the provider hammer a payload that needs a code
// fix, not a redelivery.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	provider := mux.Vars(r)["provider"]
	adapter, ok := h.adapters.Get(provider)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Unknown webhook provider"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Failed to read request body"})
		return
	}

	signature := r.Header.Get(adapter.SignatureHeader())

	result, err := h.processor.HandleWebhookEvent(r.Context(), provider, body, signature)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrWebhookInvalidSignature):
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
		case errors.Is(err, utils.ErrWebhookUnknownProvider):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, utils.ErrWebhookInvalidPayload):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, webhookAck{
		Status:    "received",
		EventID:   result.EventID,
		Duplicate: result.Duplicate,
	})
}
