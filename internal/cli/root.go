package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pugbot",
	Short: "Highlander pick-up game coordinator",
	Long: `pugbot collects signups for 9v9 Highlander pick-up games, elects two
captains, runs the snake draft and hands back both rosters.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
