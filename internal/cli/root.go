package cli

import (
	"github.com/spf13/cobra"

	"worktreectl/internal/logger"
)

// createRootCommand creates the root command with global flags
func createRootCommand(defaultLogLevel string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "worktreectl",
		Short: "Per-branch development environments on git worktrees",
		Long: `worktreectl gives every branch its own git worktree, a reserved set of
frontend, backend and database ports, and a dedicated database container.
It keeps a registry of these environments next to the repository's git data
and can reconcile it with what git and Docker actually have.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			if level == "" {
				level = defaultLogLevel
			}
			logger.SetLevel(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (default from config)")

	return rootCmd
}
