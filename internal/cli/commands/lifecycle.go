package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"worktreectl/internal/cleanup"
	"worktreectl/internal/logger"
	"worktreectl/internal/reconcile"
	"worktreectl/internal/setup"
	"worktreectl/internal/ui"
)

// LifecycleCommands creates the setup, sync and cleanup commands
func LifecycleCommands(deps *Deps) []*cobra.Command {
	commands := []*cobra.Command{}

	// worktreectl setup <branch>
	setupCmd := &cobra.Command{
		Use:   "setup <branch>",
		Short: "Create a worktree with its own ports and database",
		Long: `Create a development environment for a branch:
  - a git worktree under the worktree base directory
  - a reserved frontend, backend and database port
  - a dedicated database container
  - a .worktreectl.yaml descriptor inside the worktree

The branch is created from --from (default: the current branch) when it does not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source, _ := cmd.Flags().GetString("from")
			open, _ := cmd.Flags().GetBool("open")

			ws, err := deps.workspace(ctx)
			if err != nil {
				return HandleError(err)
			}

			orchestrator := setup.New(ws.Registry, ws.Git, ws.Ports, ws.Containers, ws.Scaffolder, ws.Opener)
			env, err := orchestrator.Setup(ctx, setup.Request{Branch: args[0], Source: source, Open: open})
			recordSetup(ctx, openJournal(ctx, deps), args[0], env, err)
			if err != nil {
				return HandleError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Pass("Created worktree for %s", env.Branch))
			printEnvironment(out, *env)
			return nil
		},
	}
	setupCmd.Flags().StringP("from", "f", "", "Source branch for a new branch (default: current branch)")
	setupCmd.Flags().Bool("open", false, "Open the worktree with the configured editor")
	commands = append(commands, setupCmd)

	// worktreectl sync
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Remove registry entries and containers that no longer match git",
		Long: `Compare the registry, git's worktree list and the database containers.
Entries whose worktree is gone and containers no entry owns are reported,
then removed after confirmation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			force, _ := cmd.Flags().GetBool("force")
			verbose, _ := cmd.Flags().GetBool("verbose")

			ws, err := deps.workspace(ctx)
			if err != nil {
				return HandleError(err)
			}

			engine := reconcile.NewEngine(ws.Registry, ws.Git, ws.Containers, deps.Prompter, cmd.OutOrStdout())
			result, err := engine.Run(ctx, reconcile.Options{DryRun: dryRun, Force: force, Verbose: verbose})
			recordSync(ctx, openJournal(ctx, deps), result)
			if err != nil {
				return HandleError(err)
			}
			logger.WithField("removed", len(result.Outcomes)-result.Failed()).Debug("Sync finished")
			return nil
		},
	}
	syncCmd.Flags().Bool("dry-run", false, "Report drift without changing anything")
	syncCmd.Flags().BoolP("force", "y", false, "Skip the confirmation prompt")
	syncCmd.Flags().BoolP("verbose", "v", false, "Show paths and container names in the report")
	commands = append(commands, syncCmd)

	// worktreectl cleanup
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove worktrees together with their databases",
		Long: `Remove worktrees, their database containers and registry entries.
Without --all or --stale a table is shown and worktrees are picked by number,
e.g. "1-3,5", "all" or "cancel".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			all, _ := cmd.Flags().GetBool("all")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			force, _ := cmd.Flags().GetBool("force")

			opts := cleanup.Options{All: all, DryRun: dryRun, Force: force}
			if cmd.Flags().Changed("stale") {
				days, _ := cmd.Flags().GetInt("stale")
				opts.StaleDays = &days
			}

			ws, err := deps.workspace(ctx)
			if err != nil {
				return HandleError(err)
			}

			cleaner := cleanup.NewCleaner(ws.Registry, ws.Git, ws.Containers, deps.Prompter, cmd.OutOrStdout())
			result, err := cleaner.Run(ctx, opts)
			recordCleanup(ctx, openJournal(ctx, deps), result)
			return HandleError(err)
		},
	}
	cleanupCmd.Flags().Bool("all", false, "Remove every registered worktree")
	cleanupCmd.Flags().Int("stale", 0, "Remove worktrees not accessed for at least this many days")
	cleanupCmd.Flags().Bool("dry-run", false, "Show what would be removed")
	cleanupCmd.Flags().BoolP("force", "y", false, "Skip the confirmation prompt")
	commands = append(commands, cleanupCmd)

	return commands
}
