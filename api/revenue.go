package api

import (
	"context"
	"net/http"

	"github.com/bizsuite/billing/models"
)

type RevenueReporter interface {
	Report(ctx context.Context) (*models.RevenueReport, error)
}

type RevenueHandler struct {
	reports RevenueReporter
}

func CreateRevenueHandler(reports RevenueReporter) *RevenueHandler {
	return &RevenueHandler{reports: reports}
}

func (h *RevenueHandler) HandleRevenueReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.reports.Report(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
