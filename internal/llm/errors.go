package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Generation failure reasons.
const (
	ReasonTimeout         = "timeout"
	ReasonInvalidResponse = "invalid response"
	ReasonQuotaExceeded   = "quota exceeded"
	ReasonUpstream        = "upstream error"
	ReasonNotConfigured   = "not configured"
)

// GenerationError is the single error kind a ReportGenerator returns.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Transient reports whether a retry may succeed.
func (e *GenerationError) Transient() bool {
	return e.Reason == ReasonTimeout || e.Reason == ReasonUpstream
}

// Fail wraps err with reason.
func Fail(reason string, err error) *GenerationError {
	return &GenerationError{Reason: reason, Err: err}
}

// FromTransport classifies a transport-level error from an HTTP call.
func FromTransport(err error) *GenerationError {
	if errors.Is(err, context.DeadlineExceeded) {
		return Fail(ReasonTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Fail(ReasonTimeout, err)
	}
	return Fail(ReasonUpstream, err)
}

// FromStatus classifies a non-2xx provider response.
func FromStatus(status int, err error) *GenerationError {
	switch {
	case status == http.StatusTooManyRequests:
		return Fail(ReasonQuotaExceeded, err)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return Fail(ReasonTimeout, err)
	default:
		return Fail(ReasonUpstream, err)
	}
}
