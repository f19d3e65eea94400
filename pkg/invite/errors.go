// Package invite joins channels and invites a member into them under a
// shared rate budget, retrying throttled and transient failures.
package invite

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Kind classifies remote failures for the retry loop.
type Kind int

const (
	// KindPermanent is never retried.
	KindPermanent Kind = iota
	// KindTransient covers timeouts, network errors and server faults.
	KindTransient
	// KindThrottled is a rate-limit signal, possibly with a Retry-After.
	KindThrottled
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindThrottled:
		return "throttled"
	default:
		return "permanent"
	}
}

// Well-known remote error codes.
const (
	CodeAlreadyInChannel    = "already_in_channel"
	CodeMethodNotSupported  = "method_not_supported_for_channel_type"
	CodeNotInChannel        = "not_in_channel"
	CodeCantInvite          = "cant_invite"
	CodeCantInviteSelf      = "cant_invite_self"
	CodeChannelNotFound     = "channel_not_found"
	CodeUserNotFound        = "user_not_found"
	CodeIsArchived          = "is_archived"
	CodeMissingScope        = "missing_scope"
	CodeRestrictedAction    = "restricted_action"
	CodeRateLimited         = "ratelimited"
	CodeTimeout             = "timeout"
	CodeNetwork             = "network_error"
	CodeUnknown             = "unknown_error"
	CodeServiceUnavailable  = "service_unavailable"
	CodeInternalError       = "internal_error"
	CodeFatalError          = "fatal_error"
	CodeRequestTimeout      = "request_timeout"
	CodeUserIsRestricted    = "user_is_restricted"
	CodeUserIsUltraRestrict = "user_is_ultra_restricted"
)

// ErrAborted marks work stopped by cancellation before it could finish.
var ErrAborted = errors.New("aborted")

// APIError is a classified failure from the remote service.
type APIError struct {
	Op         string
	Channel    string
	Code       string
	Kind       Kind
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Channel, e.Code)
	if e.Err != nil && e.Err.Error() != e.Code {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

// Unwrap returns the underlying transport error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the retry loop may try again.
func (e *APIError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindThrottled
}

// RetriesExhaustedError is returned when a transient or throttled condition
// outlived the attempt ceiling. It is distinct from a permanent failure.
type RetriesExhaustedError struct {
	Attempts int
	Last     *APIError
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last observed error.
func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

// Classify turns any error into an *APIError. Errors that are already
// classified pass through; deadlines and network errors are transient;
// everything else is a permanent unknown_error.
func Classify(op, channel string, err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Op == "" {
			apiErr.Op = op
		}
		if apiErr.Channel == "" {
			apiErr.Channel = channel
		}
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Op: op, Channel: channel, Code: CodeTimeout, Kind: KindTransient, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &APIError{Op: op, Channel: channel, Code: CodeNetwork, Kind: KindTransient, Err: err}
	}

	return &APIError{Op: op, Channel: channel, Code: CodeUnknown, Kind: KindPermanent, Err: err}
}

// CodeOf extracts the remote error code from err, if any.
func CodeOf(err error) string {
	var exhausted *RetriesExhaustedError
	if errors.As(err, &exhausted) && exhausted.Last != nil {
		return exhausted.Last.Code
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
