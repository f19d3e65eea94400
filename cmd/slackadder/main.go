// Package main is the entry point for the slackadder CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"slackadder/pkg/adder"
	"slackadder/pkg/channels"
	"slackadder/pkg/commands"
	"slackadder/pkg/config"
	"slackadder/pkg/groups"
	"slackadder/pkg/invite"
	"slackadder/pkg/logger"
	"slackadder/pkg/slackapi"
	"slackadder/pkg/state"
	"slackadder/pkg/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "slackadder",
	Short: "slackadder - join channels and invite a member into them",
	Long: `slackadder is a Slack bot that joins a set of channels and invites a
member (usually another bot) into each of them. Channels are named directly
or through channel groups defined in a JSON or YAML file.

Mention the bot in Slack:
  @SlackAdder add @OtherBot engineering #random <#C0123456789>
  @SlackAdder list`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

// coreModules is everything needed to run commands, without the transports.
func coreModules() fx.Option {
	return fx.Options(
		config.NewModule(configPath),
		logger.Module,
		state.Module,
		groups.Module,
		slackapi.Module,
		invite.Module,
		adder.Module,
		commands.Module,
	)
}

// botModules adds the Slack transports to the core.
func botModules() fx.Option {
	return fx.Options(
		coreModules(),
		channels.Module,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
