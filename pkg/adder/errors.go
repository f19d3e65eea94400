package adder

import "fmt"

// PermissionError means the requester may not run the command. It is raised
// before any resolution or remote call.
type PermissionError struct {
	Actor  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied for %s: %s", e.Actor, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the lookup error behind the refusal, if any.
func (e *PermissionError) Unwrap() error {
	return e.Err
}

// UsageError is a malformed command.
type UsageError struct {
	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return e.Message
}
