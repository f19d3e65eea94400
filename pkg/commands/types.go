// Package commands provides the command registry shared by every transport.
package commands

import (
	"context"

	"slackadder/pkg/report"
)

// Transport names carried in CommandRequest.Channel.
const (
	ChannelSlack = "slack"
	ChannelHTTP  = "http"
	ChannelCLI   = "cli"
)

// Command represents a command that can be executed.
type Command struct {
	// Name is the command name (without /)
	Name string
	// Description is a short description of what the command does
	Description string
	// Usage shows how to use the command
	Usage string
	// Handler is the function that executes the command
	Handler CommandHandler
	// RequiresAuth runs the requester checks before the handler.
	RequiresAuth bool
}

// CommandHandler is a function that handles a command.
type CommandHandler func(ctx context.Context, req CommandRequest) (CommandResponse, error)

// CommandRequest contains information about a command invocation.
type CommandRequest struct {
	// Channel is the transport (slack, http, cli)
	Channel string
	// ChatID is the conversation the command was issued in
	ChatID string
	// UserID identifies the user who invoked the command
	UserID string
	// Username is the display name of the user
	Username string
	// Command is the command name
	Command string
	// Args are the command arguments (text after the command)
	Args string
	// Metadata contains transport-specific metadata
	Metadata map[string]string
}

// CommandResponse contains the command execution result.
type CommandResponse struct {
	// Report is the reply to post
	Report *report.Report
}

// Text builds a plain response.
func Text(lines ...string) CommandResponse {
	return CommandResponse{Report: report.Notice(lines...)}
}

// Lines renders the response.
func (r CommandResponse) Lines() []string {
	if r.Report == nil {
		return nil
	}
	return r.Report.Lines()
}

// Authorizer vets the requester of a command. A non-nil report refuses it.
type Authorizer interface {
	Authorize(ctx context.Context, actor, origin string) (*report.Report, error)
}
