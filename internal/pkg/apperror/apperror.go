// Package apperror holds the gateway's error taxonomy and its mapping to HTTP
// responses. Domain packages return (wrapped) values from here; only the HTTP
// layer translates them into status codes.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedEvent: a webhook delivery is missing a required field.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnknownSku: neither the primary nor the (enabled) fallback table maps the SKU.
	ErrUnknownSku = errors.New("unknown sku")
	// ErrUnsupportedEvent: the webhook event type is not one the gateway handles.
	ErrUnsupportedEvent = errors.New("unsupported event")
	// ErrMissingCredential: the selected provider has no API key configured.
	ErrMissingCredential = errors.New("missing provider credential")
	// ErrTimeout: the upstream provider did not answer within the deadline.
	ErrTimeout = errors.New("upstream timeout")
	// ErrPersistence: the store could not be reached or rejected the write.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidRequest: a run request names an unknown agent or provider.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotEntitled: the buyer has no active grant for the requested agent.
	ErrNotEntitled = errors.New("not entitled")
)

// UpstreamError is a non-2xx or unreadable answer from an LLM provider.
type UpstreamError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error (%d) %s: %s", e.Provider, e.Status, e.Code, e.Message)
}

// Persistence wraps a store error so callers can match ErrPersistence while
// keeping the driver error in the chain.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// HTTPStatus maps an error from the domain packages to a response status.
func HTTPStatus(err error) int {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedEvent), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotEntitled):
		return http.StatusForbidden
	case errors.Is(err, ErrUnknownSku), errors.Is(err, ErrUnsupportedEvent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrMissingCredential):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		// nginx convention for a client that went away
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine readable error code used in JSON bodies.
func Code(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedEvent):
		return "malformed_event"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNotEntitled):
		return "not_entitled"
	case errors.Is(err, ErrUnknownSku):
		return "unknown_sku"
	case errors.Is(err, ErrUnsupportedEvent):
		return "unsupported_event"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrTimeout):
		return "upstream_timeout"
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal_server_error"
	}
}

// Message is the fixed client-facing text for an error. Details such as the
// buyer email or upstream bodies stay in the logs.
func Message(err error) string {
	switch Code(err) {
	case "":
		return ""
	case "malformed_event":
		return "Webhook delivery is missing required fields"
	case "invalid_request":
		return "Invalid request"
	case "not_entitled":
		return "No active entitlement for this agent"
	case "unknown_sku":
		return "SKU does not map to any agent"
	case "unsupported_event":
		return "Event type is not supported"
	case "missing_credential":
		return "Provider is not configured"
	case "upstream_timeout":
		return "Provider did not answer in time"
	case "upstream_error":
		return "Provider returned an error"
	case "canceled":
		return "Request canceled"
	default:
		return "Internal server error"
	}
}
