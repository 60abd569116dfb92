package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func NewAPIErrorWithDetails(code int, message, details string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

var (
	ErrInvalidRequest     = NewAPIError(http.StatusBadRequest, "Invalid request")
	ErrNotFound           = NewAPIError(http.StatusNotFound, "Resource not found")
	ErrConflict           = NewAPIError(http.StatusConflict, "Resource conflict")
	ErrTooManyRequests    = NewAPIError(http.StatusTooManyRequests, "Too many requests")
	ErrInternalServer     = NewAPIError(http.StatusInternalServerError, "Internal server error")
	ErrServiceUnavailable = NewAPIError(http.StatusServiceUnavailable, "Service unavailable")
)

var (
	ErrTenantNotFound       = NewAPIError(http.StatusNotFound, "Tenant not found")
	ErrPlanNotFound         = NewAPIError(http.StatusNotFound, "Plan not found")
	ErrInvoiceNotFound      = NewAPIError(http.StatusNotFound, "Invoice not found")
	ErrSubscriptionNotFound = NewAPIError(http.StatusNotFound, "Subscription not found")
	ErrCountryNotMapped     = NewAPIError(http.StatusUnprocessableEntity, "No gateway mapping for billing country")
)

var (
	ErrNoGatewayAvailable = NewAPIError(http.StatusServiceUnavailable, "No gateway available")
	ErrGatewayTimeout     = NewAPIError(http.StatusGatewayTimeout, "Gateway timeout")
	ErrGatewayError       = NewAPIError(http.StatusBadGateway, "Gateway error")
)

var (
	ErrWebhookInvalidSignature = NewAPIError(http.StatusUnauthorized, "Invalid webhook signature")
	ErrWebhookInvalidPayload   = NewAPIError(http.StatusBadRequest, "Invalid webhook payload")
	ErrWebhookUnknownProvider  = NewAPIError(http.StatusNotFound, "Unknown webhook provider")
	ErrDuplicateEvent          = NewAPIError(http.StatusConflict, "Event already recorded")
)

func WrapError(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	retryable := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"service unavailable",
		"too many requests",
	}

	for _, s := range retryable {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}

func GetHTTPStatusFromError(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "timeout"):
		return http.StatusGatewayTimeout
	case strings.Contains(msg, "rate limit"):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func LogError(ctx context.Context, err error, message string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}

	fields["error"] = err.Error()

	Error(ctx, message, fields)
}
