package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"slackadder/pkg/commands"
	"slackadder/pkg/slackapi"
)

type post struct {
	channel, thread, user, text string
	ephemeral                   bool
}

type fakePoster struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (p *fakePoster) PostReply(ctx context.Context, channel, threadTS, text string) error {
	return p.record(ctx, post{channel: channel, thread: threadTS, text: text})
}

func (p *fakePoster) PostEphemeral(ctx context.Context, channel, user, text string) error {
	return p.record(ctx, post{channel: channel, user: user, text: text, ephemeral: true})
}

func (p *fakePoster) record(ctx context.Context, msg post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, msg)
	return p.err
}

func (p *fakePoster) all() []post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]post(nil), p.posts...)
}

func newTestDispatcher(t *testing.T, cfg DispatcherConfig, cmds ...*commands.Command) (*Dispatcher, *fakePoster) {
	t.Helper()

	registry := commands.NewRegistry()
	for _, cmd := range cmds {
		if err := registry.Register(cmd); err != nil {
			t.Fatalf("register %s: %v", cmd.Name, err)
		}
	}
	poster := &fakePoster{}
	d := NewDispatcher(nil, poster, registry, cfg)
	d.SetBotUserID("UBOT")
	return d, poster
}

func echoCommand() *commands.Command {
	return &commands.Command{
		Name: "echo",
		Handler: func(ctx context.Context, req commands.CommandRequest) (commands.CommandResponse, error) {
			return commands.Text(req.UserID + ":" + req.Args), nil
		},
	}
}

func shutdown(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestStripMention(t *testing.T) {
	tests := []struct {
		text, bot, want string
	}{
		{"<@UBOT> add <@U1> eng", "UBOT", "add <@U1> eng"},
		{"<@UBOT|slackadder> list", "UBOT", "list"},
		{"hey <@UBOT> list", "UBOT", "hey  list"},
		{"<@U1> add", "UBOT", "<@U1> add"},
		{"  <@UOTHER> help ", "", "help"},
		{"help", "UBOT", "help"},
	}

	for _, tt := range tests {
		if got := stripMention(tt.text, tt.bot); got != tt.want {
			t.Fatalf("stripMention(%q, %q) = %q, want %q", tt.text, tt.bot, got, tt.want)
		}
	}
}

func TestMentionRepliesInThread(t *testing.T) {
	d, poster := newTestDispatcher(t, DispatcherConfig{}, echoCommand())

	started := d.HandleMention(&slackevents.AppMentionEvent{
		User:      "U1",
		Channel:   "C1",
		Text:      "<@UBOT> echo hello world",
		TimeStamp: "111.222",
	})
	if !started {
		t.Fatalf("expected the mention to start a command")
	}
	shutdown(t, d)

	posts := poster.all()
	if len(posts) != 1 {
		t.Fatalf("expected one reply, got %+v", posts)
	}
	if posts[0].channel != "C1" || posts[0].thread != "111.222" || posts[0].text != "U1:hello world" {
		t.Fatalf("unexpected reply %+v", posts[0])
	}
}

func TestMentionInsideThreadUsesThreadTS(t *testing.T) {
	d, poster := newTestDispatcher(t, DispatcherConfig{}, echoCommand())

	d.HandleMention(&slackevents.AppMentionEvent{
		User:            "U1",
		Channel:         "C1",
		Text:            "<@UBOT> echo",
		TimeStamp:       "111.333",
		ThreadTimeStamp: "111.000",
	})
	shutdown(t, d)

	if posts := poster.all(); len(posts) != 1 || posts[0].thread != "111.000" {
		t.Fatalf("expected reply in the parent thread, got %+v", posts)
	}
}

func TestMentionMissingUser(t *testing.T) {
	d, poster := newTestDispatcher(t, DispatcherConfig{}, echoCommand())

	if d.HandleMention(&slackevents.AppMentionEvent{Channel: "C1", Text: "<@UBOT> echo", TimeStamp: "1.0"}) {
		t.Fatalf("a mention without user must not start a command")
	}
	shutdown(t, d)

	posts := poster.all()
	if len(posts) != 1 || posts[0].text != msgMissingInfo || posts[0].thread != "1.0" {
		t.Fatalf("expected the missing info reply, got %+v", posts)
	}
}

func TestMentionFromBotIsIgnored(t *testing.T) {
	d, poster := newTestDispatcher(t, DispatcherConfig{}, echoCommand())

	if d.HandleMention(&slackevents.AppMentionEvent{User: "UBOT", Channel: "C1", Text: "<@UBOT> echo"}) {
		t.Fatalf("own messages must be ignored")
	}
	if d.HandleMention(&slackevents.AppMentionEvent{User: "U2", BotID: "B1", Channel: "C1", Text: "<@UBOT> echo"}) {
		t.Fatalf("bot messages must be ignored")
	}
	shutdown(t, d)

	if posts := poster.all(); len(posts) != 0 {
		t.Fatalf("expected no replies, got %+v", posts)
	}
}

func TestSlashCommandByNameAndByText(t *testing.T) {
	d, poster := newTestDispatcher(t, DispatcherConfig{}, echoCommand())

	d.HandleSlashCommand(slack.SlashCommand{Command: "/echo", Text: "direct", UserID: "U1", ChannelID: "C1"})
	d.HandleSlashCommand(slack.SlashCommand{Command: "/slackadder", Text: "echo parsed", UserID: "U2", ChannelID: "C1"})
	shutdown(t, d)

	got := map[string]post{}
	for _, p := range poster.all() {
		if !p.ephemeral {
			t.Fatalf("slash replies must be ephemeral: %+v", p)
		}
		got[p.user] = p
	}
	if got["U1"].text != "U1:direct" {
		t.Fatalf("unexpected direct reply %+v", got["U1"])
	}
	if got["U2"].text != "U2:parsed" {
		t.Fatalf("unexpected parsed reply %+v", got["U2"])
	}
}

func TestLongReplyIsBatched(t *testing.T) {
	lines := make([]string, 5)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	many := &commands.Command{
		Name: "many",
		Handler: func(ctx context.Context, req commands.CommandRequest) (commands.CommandResponse, error) {
			return commands.Text(lines...), nil
		},
	}
	d, poster := newTestDispatcher(t, DispatcherConfig{MaxLines: 2}, many)

	d.HandleMention(&slackevents.AppMentionEvent{User: "U1", Channel: "C1", Text: "<@UBOT> many", TimeStamp: "1.0"})
	shutdown(t, d)

	posts := poster.all()
	if len(posts) != 3 {
		t.Fatalf("expected 3 batches, got %d: %+v", len(posts), posts)
	}
	if posts[0].text != "line 0\nline 1" || posts[2].text != "line 4" {
		t.Fatalf("unexpected batches %+v", posts)
	}
}

func TestShutdownCancelsAndStillReports(t *testing.T) {
	running := make(chan struct{})
	slow := &commands.Command{
		Name: "slow",
		Handler: func(ctx context.Context, req commands.CommandRequest) (commands.CommandResponse, error) {
			close(running)
			<-ctx.Done()
			return commands.Text("stopped after 2 of 5 channels"), ctx.Err()
		},
	}
	d, poster := newTestDispatcher(t, DispatcherConfig{}, slow)

	d.HandleMention(&slackevents.AppMentionEvent{User: "U1", Channel: "C1", Text: "<@UBOT> slow", TimeStamp: "1.0"})
	<-running
	shutdown(t, d)

	posts := poster.all()
	if len(posts) != 1 || posts[0].text != "stopped after 2 of 5 channels" {
		t.Fatalf("expected the final report after shutdown, got %+v", posts)
	}

	if d.HandleMention(&slackevents.AppMentionEvent{User: "U1", Channel: "C1", Text: "<@UBOT> slow"}) {
		t.Fatalf("commands must be refused after shutdown")
	}
}

func TestCommandTimeout(t *testing.T) {
	wait := &commands.Command{
		Name: "wait",
		Handler: func(ctx context.Context, req commands.CommandRequest) (commands.CommandResponse, error) {
			<-ctx.Done()
			return commands.CommandResponse{}, ctx.Err()
		},
	}
	d, poster := newTestDispatcher(t, DispatcherConfig{CommandTimeout: 20 * time.Millisecond}, wait)

	d.HandleMention(&slackevents.AppMentionEvent{User: "U1", Channel: "C1", Text: "<@UBOT> wait", TimeStamp: "1.0"})

	deadline := time.Now().Add(5 * time.Second)
	for len(poster.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	shutdown(t, d)

	posts := poster.all()
	if len(posts) != 1 || !strings.HasPrefix(posts[0].text, "❌ Command failed: ") {
		t.Fatalf("expected a failure reply, got %+v", posts)
	}
}

func TestUnknownCommandGetsReply(t *testing.T) {
	d, poster := newTestDispatcher(t, DispatcherConfig{}, echoCommand())

	d.HandleMention(&slackevents.AppMentionEvent{User: "U1", Channel: "C1", Text: "<@UBOT> frobnicate", TimeStamp: "1.0"})
	shutdown(t, d)

	posts := poster.all()
	if len(posts) != 1 || !strings.Contains(posts[0].text, "Unknown command 'frobnicate'.") {
		t.Fatalf("expected the unknown command reply, got %+v", posts)
	}
}

type fakeIdentifier struct {
	id  slackapi.Identity
	err error
}

func (f fakeIdentifier) Identify(context.Context) (slackapi.Identity, error) {
	return f.id, f.err
}

func TestBootstrap(t *testing.T) {
	d, _ := newTestDispatcher(t, DispatcherConfig{})
	d.SetBotUserID("")

	id, err := Bootstrap(context.Background(), fakeIdentifier{id: slackapi.Identity{UserID: "UBOT2", TeamID: "T1"}}, d, nil, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if id.UserID != "UBOT2" || d.BotUserID() != "UBOT2" {
		t.Fatalf("expected the bot user ID to be learned, got %q", d.BotUserID())
	}

	org := fakeIdentifier{id: slackapi.Identity{UserID: "UBOT", EnterpriseID: "E1"}}
	if _, err := Bootstrap(context.Background(), org, d, nil, nil); !errors.Is(err, slackapi.ErrOrgAllowListRequired) {
		t.Fatalf("expected ErrOrgAllowListRequired, got %v", err)
	}
	if _, err := Bootstrap(context.Background(), org, d, []string{"U1"}, nil); err != nil {
		t.Fatalf("org install with an allow list should start: %v", err)
	}

	boom := errors.New("invalid_auth")
	if _, err := Bootstrap(context.Background(), fakeIdentifier{err: boom}, d, nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected the auth error to be wrapped, got %v", err)
	}
}
