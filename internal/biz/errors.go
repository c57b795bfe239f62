package biz

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
)

// Error reasons surfaced to API clients. Upstream detail is deliberately
// masked: from the client's perspective the gateway failed, not a specific
// upstream status.
const (
	ReasonValidationFailed    = "VALIDATION_FAILED"
	ReasonUpstreamError       = "UPSTREAM_ERROR"
	ReasonUpstreamUnreachable = "UPSTREAM_UNREACHABLE"
	ReasonServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// NewValidationError reports a client-caused input rejection. It is never
// retried and never touches the circuit breaker.
func NewValidationError(field, reason string) error {
	return errors.New(400, ReasonValidationFailed,
		fmt.Sprintf("invalid parameter %q: %s", field, reason))
}

// NewUpstreamStatusError reports an upstream non-2xx status. The status is
// logged in full but masked in the client-facing message.
func NewUpstreamStatusError(status int) error {
	return errors.New(502, ReasonUpstreamError,
		"upstream directory request failed").WithMetadata(map[string]string{
		"upstream_status": fmt.Sprintf("%d", status),
	})
}

// NewTransportError reports a network-level upstream failure. The original
// cause is preserved for logs while the client sees a generic message.
func NewTransportError(cause error) error {
	return errors.New(502, ReasonUpstreamUnreachable,
		"upstream directory is unreachable").WithCause(cause)
}

// NewServiceUnavailableError reports that the circuit is open and no cached
// fallback exists. Retry is the client's responsibility.
func NewServiceUnavailableError() error {
	return errors.New(503, ReasonServiceUnavailable,
		"service temporarily unavailable")
}

// IsServiceUnavailable reports whether err is a breaker fail-fast rejection.
func IsServiceUnavailable(err error) bool {
	return errors.Reason(err) == ReasonServiceUnavailable
}

// IsUpstreamError reports whether err is an upstream status or transport failure.
func IsUpstreamError(err error) bool {
	r := errors.Reason(err)
	return r == ReasonUpstreamError || r == ReasonUpstreamUnreachable
}
