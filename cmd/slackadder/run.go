package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"slackadder/pkg/channels"
	"slackadder/pkg/config"
	"slackadder/pkg/logger"
	"slackadder/pkg/version"
)

// shutdownTimeout leaves running commands time to post their final reports.
const shutdownTimeout = 45 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot",
	Long: `Run the Slack bot in the foreground.

With an app token (SLACK_APP_TOKEN) the bot connects over Socket Mode.
Without one it serves the HTTP Events API on server.port and requires the
signing secret (SLACK_SIGNING_SECRET). When installed as a system service
this command is what the service manager runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runningAsService() {
			return RunService()
		}
		return runForeground()
	},
}

// runningAsService detects a service manager parent.
func runningAsService() bool {
	return os.Getenv("INVOCATION_ID") != "" || // systemd
		os.Getenv("_") == "/bin/launchd" || // launchd
		os.Getenv("SERVICE_NAME") != "" // Windows service
}

func newBotApp(extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		botModules(),
		fx.Invoke(announce),
		fx.StopTimeout(shutdownTimeout),
		fx.NopLogger,
	}
	return fx.New(append(opts, extra...)...)
}

func announce(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config, cm *channels.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			mode := "http"
			if cfg.Slack.SocketMode() {
				mode = "socket"
			}
			names := make([]string, 0)
			for _, ch := range cm.ListChannels() {
				names = append(names, ch.Name())
			}
			log.Info("SlackAdder started",
				zap.String("version", version.GetVersion()),
				zap.String("mode", mode),
				zap.Strings("channels", names),
				zap.Int("allowed_users", len(cfg.Slack.AllowFrom)))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("SlackAdder stopped")
			return nil
		},
	})
}

// runForeground runs until SIGINT or SIGTERM.
func runForeground() error {
	app := newBotApp()
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("starting slackadder: %w", err)
	}

	sig := <-app.Done()
	fmt.Fprintf(os.Stderr, "\nReceived %s, shutting down...\n", sig)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer stopCancel()
	return app.Stop(stopCtx)
}
