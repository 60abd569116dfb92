package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

type stubCanceller struct {
	sub *models.TenantSubscription
	err error

	gotTenantID string
}

func (s *stubCanceller) CancelSubscription(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	s.gotTenantID = tenantID
	return s.sub, s.err
}

func newSubscriptionRouter(canceller *stubCanceller) *mux.Router {
	handler := CreateSubscriptionHandler(canceller)
	router := mux.NewRouter()
	router.HandleFunc("/subscriptions/{tenant_id}/cancel", handler.HandleCancelSubscription).Methods(http.MethodPost)
	return router
}

func TestHandleCancelSubscription(t *testing.T) {
	canceller := &stubCanceller{sub: &models.TenantSubscription{
		TenantID: "ten-1",
		Status:   models.SubscriptionStatusCancelled,
	}}
	router := newSubscriptionRouter(canceller)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/ten-1/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if canceller.gotTenantID != "ten-1" {
		t.Errorf("tenant id = %q, want ten-1", canceller.gotTenantID)
	}

	var body models.TenantSubscription
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != models.SubscriptionStatusCancelled {
		t.Errorf("status = %s, want cancelled", body.Status)
	}
}

func TestHandleCancelSubscription_NotFound(t *testing.T) {
	canceller := &stubCanceller{err: utils.ErrSubscriptionNotFound}
	router := newSubscriptionRouter(canceller)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/ten-missing/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
