package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"slackadder/pkg/adder"
	"slackadder/pkg/config"
	"slackadder/pkg/groups"
	"slackadder/pkg/resolver"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Inspect the channel groups file",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the channel groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadGroups(false)
		if err != nil {
			return err
		}
		for _, line := range adder.New(adder.Options{Groups: store}).ListGroups().Lines() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var groupsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the channel groups file",
	Long: `Load the channel groups file and check every member of every group.
Exits non-zero if the file is missing or malformed, or if any member would
be reported as unresolved.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadGroups(true)
		if err != nil {
			return err
		}
		return validateGroups(cmd.OutOrStdout(), store)
	},
}

func init() {
	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsValidateCmd)
}

// loadGroups reads the group file named by the configuration. Slack
// credentials are not needed.
func loadGroups(required bool) (*groups.Store, error) {
	cfg, err := config.NewLoader().Load(configPath)
	if err != nil {
		return nil, err
	}
	return groups.Load(cfg.Groups.File, required || cfg.Groups.Required)
}

// validateGroups resolves each group on its own and reports members that
// would not resolve.
func validateGroups(out io.Writer, store *groups.Store) error {
	problems := 0
	for _, g := range store.List() {
		res := resolver.Resolve([]string{g.Name}, store)
		for _, u := range res.Unresolved {
			problems++
			fmt.Fprintf(out, "%s: %s\n", g.Name, u.Error())
		}
		fmt.Fprintf(out, "%s: %d channel(s)\n", g.Name, len(res.Channels))
	}

	if problems > 0 {
		return fmt.Errorf("%s: %d problem(s) found", store.Path(), problems)
	}
	fmt.Fprintf(out, "%s: OK (%d group(s))\n", store.Path(), store.Len())
	return nil
}
