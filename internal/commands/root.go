package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tallied",
		Short:   "Double-entry bookkeeping with Making Tax Digital submission",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAccountsCommand())
	rootCmd.AddCommand(newPostCommand())
	rootCmd.AddCommand(newVoidCommand())
	rootCmd.AddCommand(newBalanceCommand())
	rootCmd.AddCommand(newPeriodCommand())
	rootCmd.AddCommand(newComputeCommand())
	rootCmd.AddCommand(newObligationsCommand())
	rootCmd.AddCommand(newSubmitCommand())
	rootCmd.AddCommand(newResumeCommand())
	rootCmd.AddCommand(newReconcileCommand())
	rootCmd.AddCommand(newAuthCommand())

	return rootCmd
}
