// Package slack is the Slack transport: it turns app mentions and slash
// commands into registry commands and posts the replies.
package slack

import (
	"context"
	"fmt"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"slackadder/pkg/config"
	"slackadder/pkg/logger"
	"slackadder/pkg/slackapi"
)

// Channel implements the Slack transport over Socket Mode.
type Channel struct {
	log          *logger.Logger
	config       config.SlackConfig
	client       *slackapi.Client
	dispatcher   *Dispatcher
	socketClient *socketmode.Client

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewChannel creates a new Socket Mode channel.
func NewChannel(log *logger.Logger, cfg config.SlackConfig, client *slackapi.Client, dispatcher *Dispatcher) (*Channel, error) {
	if cfg.BotToken == "" || cfg.AppToken == "" {
		return nil, fmt.Errorf("slack bot_token and app_token are required")
	}

	return &Channel{
		log:          log,
		config:       cfg,
		client:       client,
		dispatcher:   dispatcher,
		socketClient: socketmode.New(client.API()),
	}, nil
}

// ID returns the channel identifier.
func (c *Channel) ID() string {
	return "slack"
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "Slack (Socket Mode)"
}

// Start verifies the credentials and connects.
func (c *Channel) Start(ctx context.Context) error {
	c.log.Info("Starting Slack channel (Socket Mode)")

	if _, err := Bootstrap(ctx, c.client, c.dispatcher, c.config.AllowFrom, c.log); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.eventLoop(runCtx)
	}()
	go func() {
		defer c.wg.Done()
		if err := c.socketClient.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			c.log.Error("Socket Mode connection error", zap.Error(err))
		}
	}()

	c.log.Info("Slack channel started")
	return nil
}

// Stop disconnects, then waits for running commands to post their reports.
func (c *Channel) Stop(ctx context.Context) error {
	c.log.Info("Stopping Slack channel")

	c.mu.Lock()
	cancel := c.cancel
	c.running = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := c.dispatcher.Shutdown(ctx)
	c.wg.Wait()

	c.log.Info("Slack channel stopped")
	return err
}

// IsRunning returns whether the channel is running.
func (c *Channel) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// eventLoop processes Socket Mode events.
func (c *Channel) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.socketClient.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				c.handleEventsAPI(evt)
			case socketmode.EventTypeSlashCommand:
				c.handleSlashCommand(evt)
			case socketmode.EventTypeConnecting:
				c.log.Debug("Connecting to Slack with Socket Mode")
			case socketmode.EventTypeConnected:
				c.log.Info("Connected to Slack with Socket Mode")
			case socketmode.EventTypeConnectionError:
				c.log.Warn("Socket Mode connection failed, retrying")
			case socketmode.EventTypeInvalidAuth:
				c.log.Error("Socket Mode rejected the app token")
			}
		}
	}
}

func (c *Channel) ack(evt socketmode.Event) {
	if evt.Request != nil {
		c.socketClient.Ack(*evt.Request)
	}
}

// handleEventsAPI handles Events API events.
func (c *Channel) handleEventsAPI(evt socketmode.Event) {
	c.ack(evt)

	eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		c.log.Warn("Failed to parse Events API event")
		return
	}

	if ev, ok := eventsAPIEvent.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
		c.dispatcher.HandleMention(ev)
	}
}

// handleSlashCommand handles slash commands.
func (c *Channel) handleSlashCommand(evt socketmode.Event) {
	c.ack(evt)

	cmd, ok := evt.Data.(slack.SlashCommand)
	if !ok {
		c.log.Warn("Failed to parse slash command")
		return
	}

	c.log.Debug("Received slash command",
		zap.String("command", cmd.Command),
		zap.String("user_id", cmd.UserID))

	c.dispatcher.HandleSlashCommand(cmd)
}
