package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"slackadder/pkg/commands"
)

var errSomeFailed = errors.New("some channels were not completed")

var addCmd = &cobra.Command{
	Use:   "add <member> [group|#channel|<#C123>|C123]...",
	Short: "Join channels and invite a member, without Slack",
	Long: `Run one add command from the terminal with the bot's credentials.

The member is a user ID (U0123456789) or a mention (<@U0123456789>). With no
groups or channels the configured default group is used. Ctrl+C stops the run
cooperatively; channels already done are reported as such.

Examples:
  slackadder add U0123456789 engineering
  slackadder add U0123456789 #random C0123456789`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runAdd(ctx, cmd.OutOrStdout(), args)
	},
}

func runAdd(ctx context.Context, out io.Writer, args []string) error {
	var registry *commands.Registry
	app := fx.New(
		coreModules(),
		fx.Populate(&registry),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("starting slackadder: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	return executeAdd(ctx, out, registry, args)
}

// executeAdd runs the add command through the registry and prints the report.
func executeAdd(ctx context.Context, out io.Writer, registry *commands.Registry, args []string) error {
	resp, err := registry.Execute(ctx, commands.CommandRequest{
		Channel:  commands.ChannelCLI,
		UserID:   "cli",
		Username: "cli",
		Command:  "add",
		Args:     strings.Join(args, " "),
	})
	for _, line := range resp.Lines() {
		fmt.Fprintln(out, line)
	}
	if err != nil {
		return err
	}
	if resp.Report != nil && resp.Report.Failed() {
		return errSomeFailed
	}
	return nil
}
