package slack

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"slackadder/pkg/commands"
	"slackadder/pkg/logger"
	"slackadder/pkg/report"
)

const (
	msgMissingInfo      = "Unable to process request: missing user or channel info."
	defaultReplyTimeout = 30 * time.Second
)

var leadingMention = regexp.MustCompile(`^\s*<@[UW][A-Z0-9]+(?:\|[^>]*)?>`)

// Poster delivers replies.
type Poster interface {
	PostReply(ctx context.Context, channel, threadTS, text string) error
	PostEphemeral(ctx context.Context, channel, user, text string) error
}

// DispatcherConfig tunes command execution and reply batching.
type DispatcherConfig struct {
	// CommandTimeout bounds one command; zero means no limit.
	CommandTimeout time.Duration
	// ReplyTimeout bounds posting the replies of one command.
	ReplyTimeout time.Duration
	MaxChars     int
	MaxLines     int
}

// Dispatcher turns Slack events into registry commands. Each command runs in
// its own goroutine; Shutdown cancels the running ones and waits for them to
// post what they have.
type Dispatcher struct {
	log      *logger.Logger
	poster   Poster
	registry *commands.Registry
	cfg      DispatcherConfig

	mu        sync.Mutex
	botUserID string
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(log *logger.Logger, poster Poster, registry *commands.Registry, cfg DispatcherConfig) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaultReplyTimeout
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = report.DefaultMaxChars
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = report.DefaultMaxLines
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		log:      log,
		poster:   poster,
		registry: registry,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetBotUserID records the bot's own user ID, learned from auth.test.
func (d *Dispatcher) SetBotUserID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.botUserID = id
}

// BotUserID returns the bot's user ID.
func (d *Dispatcher) BotUserID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.botUserID
}

// HandleMention dispatches an app_mention. It reports whether a command was
// started.
func (d *Dispatcher) HandleMention(ev *slackevents.AppMentionEvent) bool {
	if ev == nil {
		return false
	}

	botUserID := d.BotUserID()
	if ev.BotID != "" || (botUserID != "" && ev.User == botUserID) {
		return false
	}

	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}

	if ev.User == "" || ev.Channel == "" {
		d.log.Warn("Mention without user or channel",
			zap.String("user_id", ev.User),
			zap.String("channel_id", ev.Channel))
		if ev.Channel != "" {
			d.send("mention", []string{msgMissingInfo}, func(ctx context.Context, text string) error {
				return d.poster.PostReply(ctx, ev.Channel, threadTS, text)
			})
		}
		return false
	}

	name, args := d.registry.Parse(stripMention(ev.Text, botUserID))
	req := commands.CommandRequest{
		Channel:  commands.ChannelSlack,
		ChatID:   ev.Channel,
		UserID:   ev.User,
		Username: ev.User,
		Command:  name,
		Args:     args,
		Metadata: map[string]string{
			"thread_ts": threadTS,
			"event_ts":  ev.EventTimeStamp,
		},
	}

	return d.dispatch(req, func(ctx context.Context, text string) error {
		return d.poster.PostReply(ctx, ev.Channel, threadTS, text)
	})
}

// HandleSlashCommand dispatches a slash command. A slash command named after
// a registered command runs it directly; otherwise the text is parsed like a
// mention. Replies are ephemeral.
func (d *Dispatcher) HandleSlashCommand(cmd slack.SlashCommand) bool {
	if cmd.UserID == "" || cmd.ChannelID == "" {
		d.log.Warn("Slash command without user or channel",
			zap.String("command", cmd.Command))
		return false
	}

	name, args := d.registry.Parse(cmd.Text)
	if _, ok := d.registry.Get(cmd.Command); ok {
		name, args = strings.TrimPrefix(cmd.Command, "/"), strings.TrimSpace(cmd.Text)
	}

	req := commands.CommandRequest{
		Channel:  commands.ChannelSlack,
		ChatID:   cmd.ChannelID,
		UserID:   cmd.UserID,
		Username: cmd.UserName,
		Command:  name,
		Args:     args,
		Metadata: map[string]string{
			"channel_name": cmd.ChannelName,
			"team_id":      cmd.TeamID,
			"team_domain":  cmd.TeamDomain,
			"trigger_id":   cmd.TriggerID,
		},
	}

	return d.dispatch(req, func(ctx context.Context, text string) error {
		return d.poster.PostEphemeral(ctx, cmd.ChannelID, cmd.UserID, text)
	})
}

// Shutdown stops accepting commands, cancels the running ones and waits for
// them to finish or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type replyFunc func(ctx context.Context, text string) error

func (d *Dispatcher) dispatch(req commands.CommandRequest, reply replyFunc) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("Dropping command during shutdown",
			zap.String("command", req.Command),
			zap.String("user_id", req.UserID))
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.run(req, reply)
	}()
	return true
}

func (d *Dispatcher) run(req commands.CommandRequest, reply replyFunc) {
	ctx, cancel := d.commandContext()
	defer cancel()

	start := time.Now()
	resp, err := d.registry.Execute(ctx, req)
	fields := []zap.Field{
		zap.String("command", req.Command),
		zap.String("user_id", req.UserID),
		zap.String("channel_id", req.ChatID),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		d.log.Warn("Command finished with error", append(fields, zap.Error(err))...)
	} else {
		d.log.Info("Command finished", fields...)
	}

	lines := resp.Lines()
	if len(lines) == 0 && err != nil {
		lines = []string{"❌ Command failed: " + err.Error()}
	}
	d.send(req.Command, lines, reply)
}

func (d *Dispatcher) commandContext() (context.Context, context.CancelFunc) {
	if d.cfg.CommandTimeout > 0 {
		return context.WithTimeout(d.ctx, d.cfg.CommandTimeout)
	}
	return context.WithCancel(d.ctx)
}

// send posts lines in batches. It runs detached from shutdown so an aborted
// command still reports what it did.
func (d *Dispatcher) send(command string, lines []string, reply replyFunc) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.ctx), d.cfg.ReplyTimeout)
	defer cancel()

	for _, batch := range report.Batch(lines, d.cfg.MaxChars, d.cfg.MaxLines) {
		if err := reply(ctx, batch); err != nil {
			level := d.log.Error
			if errors.Is(err, context.DeadlineExceeded) {
				level = d.log.Warn
			}
			level("Failed to post reply",
				zap.String("command", command),
				zap.Error(err))
			return
		}
	}
}

// stripMention removes the first mention of the bot. When the bot's ID is
// not known yet a leading mention is taken to be the bot.
func stripMention(text, botUserID string) string {
	if botUserID == "" {
		if loc := leadingMention.FindStringIndex(text); loc != nil {
			text = text[loc[1]:]
		}
		return strings.TrimSpace(text)
	}

	start := strings.Index(text, "<@"+botUserID)
	if start < 0 {
		return strings.TrimSpace(text)
	}
	rest := text[start+2+len(botUserID):]
	if !strings.HasPrefix(rest, ">") && !strings.HasPrefix(rest, "|") {
		return strings.TrimSpace(text)
	}
	end := strings.Index(rest, ">")
	if end < 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:start] + rest[end+1:])
}
