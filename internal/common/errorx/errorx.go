// Package errorx defines the errors that cross the HTTP boundary. Each one
// carries the status code and the normalized visitor-facing message; internal
// diagnostic detail stays in the server logs.
package errorx

import (
	"errors"
	"net/http"
)

// APIError is an error with an HTTP status and a message safe to return to
// the widget.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// New creates an APIError with the given status and public message.
func New(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

var (
	ErrChatbotNotFound = New(http.StatusNotFound, "Chatbot not found")
	ErrOriginNotAllowed = New(http.StatusForbidden, "Origin not allowed")

	ErrMissingFields  = New(http.StatusBadRequest, "sessionId and message are required")
	ErrMessageTooLong = New(http.StatusBadRequest, "Message too long. Maximum 4096 characters allowed.")
	ErrSessionRequired = New(http.StatusBadRequest, "sessionId is required")

	ErrMissingSignature = New(http.StatusUnauthorized, "Missing signature")
	ErrInvalidSignature = New(http.StatusUnauthorized, "Invalid signature")

	// Upstream webhook failures, normalized so internal diagnostics never
	// leak to the visitor.
	ErrUpstreamTimeout     = New(http.StatusGatewayTimeout, "Request timed out. The AI is taking too long to respond.")
	ErrUpstreamRateLimited = New(http.StatusTooManyRequests, "Too many requests. Please wait a moment.")
	ErrUpstreamUnavailable = New(http.StatusBadGateway, "The AI service is temporarily unavailable.")
	ErrUpstreamFailed      = New(http.StatusBadGateway, "Failed to communicate with backend")

	ErrInternal = New(http.StatusInternalServerError, "Internal server error")
)

// From extracts an APIError from err, falling back to ErrInternal so callers
// never leak raw error text.
func From(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
