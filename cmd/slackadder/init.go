package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slackadder/pkg/config"
	"slackadder/pkg/fileutil"
	"slackadder/pkg/groups"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config and channel group file",
	Long: `Write a starter configuration and an example channel group file.

The config is written to --config, or ~/.slackadder/config.yaml when no path
is given. The group file is written next to it. Existing files are kept
unless --force is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := strings.TrimSpace(configPath)
		if target == "" {
			home, err := config.GetConfigHome()
			if err != nil {
				return err
			}
			target = filepath.Join(home, "config.yaml")
		}
		return writeStarterFiles(cmd.OutOrStdout(), target, initForce)
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
}

// writeStarterFiles writes the default config to target and the example
// groups to the default group file beside it.
func writeStarterFiles(out io.Writer, target string, force bool) error {
	target, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	cfg := config.DefaultConfig()
	groupsPath := filepath.Join(filepath.Dir(target), config.DefaultGroupsFile)

	wroteConfig, err := keepExisting(config.SaveToFile(cfg, target, force))
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	printWritten(out, target, wroteConfig)

	data, err := groups.Encode(groupsPath, groups.Example()...)
	if err != nil {
		return err
	}
	wroteGroups, err := keepExisting(fileutil.WriteFileIfMissing(groupsPath, data, 0o644, force))
	if err != nil {
		return fmt.Errorf("write channel groups: %w", err)
	}
	printWritten(out, groupsPath, wroteGroups)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Set slack.bot_token (or SLACK_BOT_TOKEN) in %s\n", target)
	fmt.Fprintln(out, "  2. Set slack.app_token for Socket Mode, or slack.signing_secret for the Events API")
	fmt.Fprintf(out, "  3. Edit the channel groups and check them: slackadder -c %s groups validate\n", target)
	fmt.Fprintf(out, "  4. Start the bot: slackadder -c %s run\n", target)
	return nil
}

// keepExisting turns ErrExists into a false "written" result.
func keepExisting(err error) (bool, error) {
	if errors.Is(err, fileutil.ErrExists) {
		return false, nil
	}
	return err == nil, err
}

func printWritten(out io.Writer, path string, wrote bool) {
	if wrote {
		fmt.Fprintf(out, "✅ Created %s\n", path)
		return
	}
	fmt.Fprintf(out, "📝 Kept existing %s (use --force to overwrite)\n", path)
}
