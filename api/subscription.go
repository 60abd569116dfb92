package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bizsuite/billing/models"
)

type SubscriptionCanceller interface {
	CancelSubscription(ctx context.Context, tenantID string) (*models.TenantSubscription, error)
}

type SubscriptionHandler struct {
	subscriptions SubscriptionCanceller
}

func CreateSubscriptionHandler(subscriptions SubscriptionCanceller) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

func (h *SubscriptionHandler) HandleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]
	if tenantID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "tenant_id is required"})
		return
	}

	sub, err := h.subscriptions.CancelSubscription(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
