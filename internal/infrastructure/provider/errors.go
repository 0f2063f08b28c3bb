package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Failure taxonomy for provider calls. Returned errors wrap exactly one of these.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderAuth        = errors.New("provider rejected credential")
	ErrProviderResponse    = errors.New("malformed provider response")
	ErrProviderTimeout     = errors.New("provider request timed out")
)

// StatusError carries the provider's HTTP status for logging. It unwraps to
// ErrProviderAuth or ErrProviderUnavailable.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v: status %d (%s)", e.kind, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%v: status %d", e.kind, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.kind }

func statusError(status int, code, message string) *StatusError {
	kind := ErrProviderAuth
	if status >= 500 || status == 429 {
		kind = ErrProviderUnavailable
	}
	return &StatusError{StatusCode: status, Code: code, Message: message, kind: kind}
}

// classifyTransportError separates deadline expiry from other transport failures.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
