package api

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	startedAt time.Time
}

func CreateHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "billing",
		"uptime":  time.Since(h.startedAt).String(),
	})
}
