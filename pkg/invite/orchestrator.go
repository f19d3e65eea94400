package invite

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slackadder/pkg/logger"
	"slackadder/pkg/resolver"
)

// Stage is a channel's position in the join-then-invite sequence.
type Stage int

const (
	StagePending Stage = iota
	StageJoined
	StageJoinSkipped
	StageJoinFailed
	StageInvited
	StageInviteFailed
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageJoined:
		return "joined"
	case StageJoinSkipped:
		return "join_skipped"
	case StageJoinFailed:
		return "join_failed"
	case StageInvited:
		return "invited"
	case StageInviteFailed:
		return "invite_failed"
	default:
		return "pending"
	}
}

// Terminal reports whether no further work is planned for the channel.
func (s Stage) Terminal() bool {
	return s == StageJoinFailed || s == StageInvited || s == StageInviteFailed
}

// Outcome is the final state of one channel.
type Outcome struct {
	// Index is the channel's position in the resolver output.
	Index   int
	Channel resolver.ResolvedChannel
	Stage   Stage
	// JoinStage records how the join step ended, even after invite ran.
	JoinStage      Stage
	Attempts       int
	JoinAttempts   int
	InviteAttempts int
	Err            error
	// RetryAfterHonored sums server-advertised waits across both stages.
	RetryAfterHonored time.Duration
}

// Aborted reports whether the channel was left unfinished by cancellation.
func (o Outcome) Aborted() bool {
	return errors.Is(o.Err, ErrAborted)
}

// Run is the result of one orchestration.
type Run struct {
	ID       string
	Target   string
	Outcomes []Outcome
	Started  time.Time
	Finished time.Time
}

// NothingToDo reports whether the run had no channels.
func (r *Run) NothingToDo() bool {
	return len(r.Outcomes) == 0
}

// Duration returns the wall time of the run.
func (r *Run) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Orchestrator drives joins and invites across a worker pool.
type Orchestrator struct {
	client  *Client
	workers int
	log     *logger.Logger
	newID   func() string
}

// NewOrchestrator creates an orchestrator using at most workers concurrent
// channels.
func NewOrchestrator(client *Client, workers int, log *logger.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		client:  client,
		workers: workers,
		log:     log,
		newID:   uuid.NewString,
	}
}

// Run joins and invites target into every channel. It always returns exactly
// one outcome per channel, in the order given. Cancelling ctx stops new
// attempts; in-flight calls finish and unfinished channels carry ErrAborted.
func (o *Orchestrator) Run(ctx context.Context, target string, channels []resolver.ResolvedChannel) *Run {
	run := &Run{
		ID:       o.newID(),
		Target:   target,
		Outcomes: make([]Outcome, len(channels)),
		Started:  time.Now(),
	}
	log := o.log.WithFields(zap.String("run_id", run.ID), zap.String("target", target))

	for i, ch := range channels {
		run.Outcomes[i] = Outcome{Index: i, Channel: ch, Stage: StagePending, JoinStage: StagePending, Err: ErrAborted}
	}
	if len(channels) == 0 {
		run.Finished = run.Started
		log.Info("Nothing to do")
		return run
	}

	log.Info("Starting run", zap.Int("channels", len(channels)), zap.Int("workers", o.workers))

	g := new(errgroup.Group)
	g.SetLimit(o.workers)

	for i := range channels {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out := o.process(ctx, run.Outcomes[i].Channel, target)
			out.Index = i

			run.Outcomes[i] = out

			log.Debug("Channel finished",
				zap.String("channel", out.Channel.ID),
				zap.Stringer("stage", out.Stage),
				zap.Int("attempts", out.Attempts),
				zap.Error(out.Err))
			return nil
		})
	}
	_ = g.Wait()

	run.Finished = time.Now()
	log.Info("Run finished",
		zap.Duration("elapsed", run.Duration()),
		zap.Bool("aborted", ctx.Err() != nil))
	return run
}

func (o *Orchestrator) process(ctx context.Context, ch resolver.ResolvedChannel, target string) Outcome {
	out := Outcome{Channel: ch, Stage: StagePending, JoinStage: StagePending}

	join := o.client.Join(ctx, ch.ID)
	out.JoinAttempts = join.Attempts
	out.Attempts = join.Attempts
	out.RetryAfterHonored += join.RetryAfterHonored

	switch {
	case join.Err == nil:
		out.JoinStage = StageJoined
	case IsAborted(join.Err):
		out.Err = join.Err
		return out
	case joinSkippable(join.Err):
		out.JoinStage = StageJoinSkipped
	default:
		out.JoinStage = StageJoinFailed
		out.Stage = StageJoinFailed
		out.Err = join.Err
		return out
	}
	out.Stage = out.JoinStage

	invite := o.client.Invite(ctx, ch.ID, target)
	out.InviteAttempts = invite.Attempts
	out.RetryAfterHonored += invite.RetryAfterHonored
	if invite.Attempts > 0 {
		out.Attempts = invite.Attempts
	}

	switch {
	case invite.Err == nil:
		out.Stage = StageInvited
	case IsAborted(invite.Err):
		out.Err = invite.Err
	default:
		out.Stage = StageInviteFailed
		out.Err = invite.Err
	}
	return out
}

// joinSkippable covers join failures that still let the invite go ahead:
// the bot is already a member, or the channel type cannot be joined.
func joinSkippable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindPermanent {
		return false
	}
	switch apiErr.Code {
	case CodeAlreadyInChannel, CodeMethodNotSupported:
		return true
	}
	return false
}
