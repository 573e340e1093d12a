package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyMessage  = errors.New("empty message")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrTimeout       = errors.New("timed out")
	ErrUpstream      = errors.New("upstream error")
	ErrEmptyResponse = errors.New("empty response")
	ErrTransport     = errors.New("request failed")
)

// APIError is a non-2xx answer from a provider.
type APIError struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

func newAPIError(status int, message string) *APIError {
	kind := ErrUpstream
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrUnauthorized
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	}
	return &APIError{StatusCode: status, Message: message, Kind: kind}
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// Code names the failure class of err for API clients.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "upstream"
	}
}
