package api

import (
	"encoding/json"
	"net/http"

	"github.com/bizsuite/billing/utils"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, utils.GetHTTPStatusFromError(err), ErrorResponse{Error: err.Error()})
}
