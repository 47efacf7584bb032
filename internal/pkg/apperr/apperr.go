package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes exposed in API responses.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeAlreadySubscribed    = "ALREADY_SUBSCRIBED"
	CodeAlreadyConverted     = "ALREADY_CONVERTED"
	CodeNotActive            = "NOT_ACTIVE"
	CodeMissingPaymentMethod = "MISSING_PAYMENT_METHOD"
	CodeInvalidPlan          = "INVALID_PLAN"
	CodeProvider             = "PROVIDER_ERROR"
	CodeServer               = "SERVER_ERROR"
)

// Error carries a stable code and HTTP status alongside a human-readable
// message. Unexpected failures collapse to SERVER_ERROR at the HTTP boundary
// so internals never leak to callers.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given status, code and message.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap attaches an underlying cause to a new Error.
func Wrap(err error, status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidation, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func AlreadySubscribed() *Error {
	return New(http.StatusBadRequest, CodeAlreadySubscribed, "User already has an active subscription")
}

func AlreadyConverted() *Error {
	return New(http.StatusBadRequest, CodeAlreadyConverted, "Click already converted")
}

func NotActive() *Error {
	return New(http.StatusBadRequest, CodeNotActive, "Subscription is not active")
}

func MissingPaymentMethod() *Error {
	return New(http.StatusBadRequest, CodeMissingPaymentMethod, "Payment method ID is required for Stripe")
}

func InvalidPlan(plan string) *Error {
	return New(http.StatusBadRequest, CodeInvalidPlan, fmt.Sprintf("Invalid subscription plan: %s", plan))
}

// CodeOf extracts the stable code from err, or SERVER_ERROR when err carries
// none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeServer
}

// IsCode reports whether err carries the given stable code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// HTTPStatus extracts the HTTP status from err, defaulting to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
