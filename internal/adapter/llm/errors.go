package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrNotConfigured is returned before any network call when Validate is false.
	ErrNotConfigured = errors.New("provider is not configured")
	// ErrUnknownProvider is returned for a provider name or type that is not registered.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrStreamConsumed is yielded when a stream is iterated a second time.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// ProviderError is a failure reported by, or on the way to, a vendor API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		if e.Type != "" {
			return fmt.Sprintf("%s API error [%d]: %s (type: %s)", e.Provider, e.StatusCode, e.Message, e.Type)
		}
		return fmt.Sprintf("%s API error [%d]: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s API error: %s (type: %s)", e.Provider, e.Message, e.Type)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call ran out of time.
func (e *ProviderError) Timeout() bool {
	if e.StatusCode == http.StatusRequestTimeout {
		return true
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Retryable reports whether the same call may succeed if repeated.
func (e *ProviderError) Retryable() bool {
	if e.Timeout() {
		return true
	}
	if e.Type == "overloaded_error" || e.Type == "rate_limit_error" {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err is a retryable provider failure.
func IsRetryable(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Retryable()
}

func transportError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: err.Error(), Err: err}
}
