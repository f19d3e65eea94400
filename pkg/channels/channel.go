// Package channels runs the inbound transports that deliver Slack commands
// to the command registry.
package channels

import "context"

// Channel is an inbound transport (Socket Mode, HTTP Events API).
type Channel interface {
	// ID returns the unique channel identifier.
	ID() string

	// Name returns the human-readable channel name.
	Name() string

	// Start connects the transport. It must return once the transport is
	// accepting events; the work continues in background goroutines.
	Start(ctx context.Context) error

	// Stop stops the transport gracefully. Commands already accepted are
	// allowed to post their final reports before Stop returns.
	Stop(ctx context.Context) error
}
