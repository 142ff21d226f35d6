package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation errors (VALIDATION_*) - bad input, detected before any network call
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Lifecycle errors (PAYMENT_*)
	ErrorCodePaymentAlreadyProcessed ErrorCode = "PAYMENT_ALREADY_PROCESSED"
	ErrorCodePaymentNotFound         ErrorCode = "PAYMENT_NOT_FOUND"
	ErrorCodePaymentInvalidState     ErrorCode = "PAYMENT_INVALID_STATE"

	// Gateway errors (GATEWAY_*)
	ErrorCodeGatewayError        ErrorCode = "GATEWAY_ERROR"        // structured error body with non-2xx status
	ErrorCodeGatewayConnectivity ErrorCode = "GATEWAY_CONNECTIVITY" // no response obtained at all
	ErrorCodeGatewayProtocol     ErrorCode = "GATEWAY_PROTOCOL"     // response violates the correlation/shape contract

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// Sentinel values used in ErrorDetail when the gateway omits a field.
const (
	UnknownErrorMessage = "Unknown Error"
	UnknownErrorName    = "Unknown Name"
	UnknownErrorDetail  = "Unknown Detail"
)

// ErrorDetail carries the structured error body returned by Saferpay on a
// failed call. StatusCode is nil when no response was received.
type ErrorDetail struct {
	Message    string
	Name       string
	Detail     string
	StatusCode *int
}

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Gateway *ErrorDetail
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Gateway != nil {
		return fmt.Sprintf("%s: %s (gateway: %s: %s)", e.Code, e.Message, e.Gateway.Message, e.Gateway.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithGateway attaches the structured gateway error body to the error
func (e *DomainError) WithGateway(detail *ErrorDetail) *DomainError {
	e.Gateway = detail
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorDetail extracts the structured gateway error body, nil if absent
func GetErrorDetail(err error) *ErrorDetail {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Gateway
	}
	return nil
}

// IsValidationError checks if an error is an input validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField
}

// IsAlreadyProcessedError checks if an error is a lifecycle precondition violation
func IsAlreadyProcessedError(err error) bool {
	return GetErrorCode(err) == ErrorCodePaymentAlreadyProcessed
}

// IsGatewayError checks if an error came back from the gateway as a structured error body
func IsGatewayError(err error) bool {
	return GetErrorCode(err) == ErrorCodeGatewayError
}

// IsConnectivityError checks if an error means no response was obtained
func IsConnectivityError(err error) bool {
	return GetErrorCode(err) == ErrorCodeGatewayConnectivity
}

// IsProtocolError checks if an error means the response violated the wire contract
func IsProtocolError(err error) bool {
	return GetErrorCode(err) == ErrorCodeGatewayProtocol
}

// Common domain errors
var (
	ErrPaymentNotFound = NewDomainError(ErrorCodePaymentNotFound, "payment not found")
	ErrTokenImmutable  = NewDomainError(ErrorCodePaymentInvalidState, "transaction token is already set")
)
