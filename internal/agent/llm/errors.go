package llm

import (
	"context"
	"errors"
	"net"
)

// Provider failures are classified into these so callers can pick a
// fallback reason without parsing messages.
var (
	ErrTimeout     = errors.New("llm: timeout")
	ErrRateLimited = errors.New("llm: provider rate limited")
	ErrUnavailable = errors.New("llm: provider unavailable")
	ErrMalformed   = errors.New("llm: malformed response")
	ErrDenied      = errors.New("llm: call denied by budget")
)

// Reason maps a provider error to a fallback reason code.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDenied):
		return "budget_exceeded"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "provider_rate_limited"
	case errors.Is(err, ErrMalformed):
		return "malformed_response"
	default:
		return "provider_unavailable"
	}
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrUnavailable
}
