// Package adder runs the add command end to end: requester checks, channel
// resolution, the join/invite run and the final report.
package adder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"slackadder/pkg/groups"
	"slackadder/pkg/invite"
	"slackadder/pkg/logger"
	"slackadder/pkg/report"
	"slackadder/pkg/resolver"
)

// Usage is the help text shown with malformed commands.
const Usage = "Usage: `@SlackAdder add @bot_to_invite customers <#channel-one> team-support`\n" +
	"Use `@SlackAdder list` to view available channel groups.\n" +
	"Channel groups come from the channel groups file; the `default` group applies when no channels are provided."

// Guard vets a requester and the conversation the command came from. A
// non-empty reason refuses the request.
type Guard interface {
	Check(ctx context.Context, actor, origin string) (reason string, err error)
}

// Runner executes the join/invite run.
type Runner interface {
	Run(ctx context.Context, target string, channels []resolver.ResolvedChannel) *invite.Run
}

// Catalog is the group store as seen by the service.
type Catalog interface {
	resolver.GroupSource
	List() []groups.Group
	Path() string
}

// Request is one add command.
type Request struct {
	// Actor is the user who issued the command.
	Actor string
	// Target is the mention or ID of the member to invite.
	Target string
	// Tokens are the group and channel arguments.
	Tokens []string
	// Payload is free text split on whitespace and appended to Tokens.
	Payload string
	// Origin is the conversation the command was issued in.
	Origin string
	// Authorized marks requests whose requester was already vetted, or
	// that come from the operator's shell. They skip Authorize.
	Authorized bool
}

// Options configures a Service.
type Options struct {
	Groups       Catalog
	Lookup       resolver.NameLookup
	Guard        Guard
	Runner       Runner
	IsAllowed    func(actor string) bool
	DefaultGroup string
	Logger       *logger.Logger
}

// Service runs add commands.
type Service struct {
	groups       Catalog
	lookup       resolver.NameLookup
	guard        Guard
	runner       Runner
	isAllowed    func(string) bool
	defaultGroup string
	log          *logger.Logger
}

// New creates a service.
func New(opts Options) *Service {
	if opts.IsAllowed == nil {
		opts.IsAllowed = func(string) bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &Service{
		groups:       opts.Groups,
		lookup:       opts.Lookup,
		guard:        opts.Guard,
		runner:       opts.Runner,
		isAllowed:    opts.IsAllowed,
		defaultGroup: opts.DefaultGroup,
		log:          opts.Logger,
	}
}

// Authorize applies the allow-list and the guard. The returned report is
// non-nil exactly when the request is refused.
func (s *Service) Authorize(ctx context.Context, actor, origin string) (*report.Report, error) {
	if !s.isAllowed(actor) {
		s.log.Warn("Unauthorized user", zap.String("user_id", actor))
		return report.PermissionDenied(""), &PermissionError{Actor: actor, Reason: "not on the allow list"}
	}

	if s.guard == nil {
		return nil, nil
	}
	reason, err := s.guard.Check(ctx, actor, origin)
	if err != nil {
		s.log.Error("Requester check failed",
			zap.String("user_id", actor),
			zap.String("origin", origin),
			zap.Error(err))
	}
	if reason != "" {
		return report.PermissionDenied(reason), &PermissionError{Actor: actor, Reason: reason, Err: err}
	}
	return nil, nil
}

// Add runs one add command. The report is always non-nil and ready to post;
// the error is a *PermissionError or *UsageError when the command was
// refused before any work started.
func (s *Service) Add(ctx context.Context, req Request) (*report.Report, error) {
	if !req.Authorized {
		if denied, err := s.Authorize(ctx, req.Actor, req.Origin); denied != nil {
			return denied, err
		}
	}

	target, err := ParseTarget(req.Target)
	if err != nil {
		return usageReport(err), err
	}

	tokens := append(append([]string(nil), req.Tokens...), strings.Fields(req.Payload)...)
	if len(tokens) == 0 {
		if s.defaultGroup == "" || s.groups == nil || !s.groups.Has(s.defaultGroup) {
			err := &UsageError{Message: "Please name channel group(s) and/or channel names."}
			return usageReport(err), err
		}
		tokens = []string{s.defaultGroup}
	}

	res := resolver.Resolve(tokens, s.groups)
	res = resolver.Canonicalize(ctx, res, s.lookup)

	log := s.log.WithFields(zap.String("actor", req.Actor), zap.String("target", target))
	log.Info("Resolved channels",
		zap.Strings("tokens", tokens),
		zap.Int("channels", len(res.Channels)),
		zap.Int("unresolved", len(res.Unresolved)))

	if res.Empty() {
		return report.NothingToDo(res.Unresolved), nil
	}

	run := s.runner.Run(ctx, target, res.Channels)
	return report.SummarizeRun(run, res.Unresolved), nil
}

// ListGroups renders the list reply.
func (s *Service) ListGroups() *report.Report {
	if s.groups == nil || len(s.groups.List()) == 0 {
		file := "the channel groups file"
		if s.groups != nil && s.groups.Path() != "" {
			file = s.groups.Path()
		}
		return report.Notice(fmt.Sprintf("No channel groups defined in %s.", file))
	}

	var lines []string
	for _, g := range s.groups.List() {
		desc := strings.TrimSpace(g.Description)
		if desc == "" {
			desc = "(no description provided)"
		}
		lines = append(lines, fmt.Sprintf("*%s*: %s", g.Name, desc))
	}
	return report.Notice(lines...)
}

func usageReport(err error) *report.Report {
	var usage *UsageError
	if errors.As(err, &usage) {
		return report.Notice(usage.Message, Usage)
	}
	return report.Notice(err.Error(), Usage)
}
