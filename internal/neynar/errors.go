package neynar

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTransient marks connectivity failures (DNS, refused connections, timeouts)
	ErrTransient = errors.New("transient network failure")
	// ErrInvalidResponse marks a response body that is missing expected fields
	ErrInvalidResponse = errors.New("invalid response shape")
)

// APIError is a non-2xx answer from the Neynar API
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("neynar %s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// IsTransient reports whether err is worth retrying: DNS failures, failed
// dials and timeouts. Cancellation and anything else are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportError wraps a failed request. Failures caused by the caller's own
// context ending are never marked transient.
func transportError(ctx context.Context, operation string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("neynar %s: %w", operation, ctx.Err())
	}
	if IsTransient(err) {
		return fmt.Errorf("neynar %s: %w: %v", operation, ErrTransient, err)
	}
	return fmt.Errorf("neynar %s: %w", operation, err)
}
