package resolver

import "fmt"

// Reason explains why a token produced no channels.
type Reason string

const (
	ReasonUnknownGroup   Reason = "unknown group"
	ReasonEmptyGroup     Reason = "empty group"
	ReasonNestedGroup    Reason = "nested group"
	ReasonInvalidToken   Reason = "unparseable token"
	ReasonUnknownChannel Reason = "unknown channel"
	ReasonLookupFailed   Reason = "channel lookup failed"

	// ReasonUnknownChannelOrGroup is a bare word that named neither.
	ReasonUnknownChannelOrGroup Reason = "unknown channel or group"
)

// ResolutionError is a per-token failure. It never aborts resolution of the
// remaining tokens.
type ResolutionError struct {
	Token string
	// Group is set when the token came from inside a group definition.
	Group  string
	Reason Reason
	Err    error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Token, e.Reason)
	if e.Group != "" {
		msg = fmt.Sprintf("%s (in group %s): %s", e.Token, e.Group, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the lookup error, if any.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}
