package models

import "fmt"

// Validation error codes surfaced to callers. These are preconditions, not
// fallback candidates: they propagate unmodified.
const (
	ErrCodeUnauthorizedMoto              = "UnauthorizedMotoPaymentSession"
	ErrCodeInvalidRequestData            = "InvalidRequestData"
	ErrCodePaymentInstrumentNotFound     = "PaymentInstrumentNotFound"
	ErrCodeInvalidPaymentInstrument      = "InvalidPaymentInstrumentDetails"
	ErrCodeSettingsVersionMismatch       = "SettingsVersionMismatch"
	ErrCodeInvalidAccountID              = "InvalidAccountId"
)

// ValidationError is a client error with a machine-readable code. Target
// carries extra correction data, e.g. the settings version the server
// would have selected.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Target  string `json:"target,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// ServiceError is a structured error response from a downstream service.
// The safety net classifies these into Failed or bypassed-to-Succeeded.
type ServiceError struct {
	StatusCode int    `json:"statusCode"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("downstream error %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
}

// Downstream error codes the orchestrator inspects directly.
const (
	DownstreamErrAccountPINotFound = "AccountPINotFound"
)
