package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"worktreectl/internal/db"
	"worktreectl/internal/errors"
	"worktreectl/internal/registry"
	"worktreectl/internal/setup"
	"worktreectl/internal/ui"
)

// InspectCommands creates the read-only list, status and history commands
func InspectCommands(deps *Deps) []*cobra.Command {
	commands := []*cobra.Command{}

	// worktreectl list
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List registered worktrees",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			ws, err := deps.workspace(cmd.Context())
			if err != nil {
				return HandleError(err)
			}
			envs, err := ws.Registry.ListAll()
			if err != nil {
				return HandleError(err)
			}

			out := cmd.OutOrStdout()
			if output != OutputTable {
				return writeStructured(out, output, envs)
			}

			if len(envs) == 0 {
				fmt.Fprintln(out, "No worktrees registered. Create one with 'worktreectl setup <branch>'.")
				return nil
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "BRANCH\tID\tFRONTEND\tBACKEND\tDATABASE\tLAST ACCESSED\tPATH")
			for _, env := range envs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					env.Branch, env.ID,
					env.Ports.Frontend, env.Ports.Backend, env.Ports.Database,
					formatTime(env.LastAccessed), env.Path)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringP("output", "o", OutputTable, "Output format: table, json or yaml")
	commands = append(commands, listCmd)

	// worktreectl status <branch>
	statusCmd := &cobra.Command{
		Use:   "status <branch>",
		Short: "Show one worktree and check its path and database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := deps.workspace(ctx)
			if err != nil {
				return HandleError(err)
			}

			env, err := ws.Registry.FindByBranch(args[0])
			if errors.HasCode(err, errors.ErrNotFound) {
				// accept the id as well as the branch
				env, err = ws.Registry.Get(registry.DeriveID(args[0]))
			}
			if err != nil {
				return HandleError(err)
			}

			out := cmd.OutOrStdout()
			printEnvironment(out, *env)
			fmt.Fprintln(out)

			if _, statErr := os.Stat(env.Path); statErr != nil {
				fmt.Fprintln(out, ui.Fail("Worktree path is missing (run 'worktreectl sync')"))
			} else {
				fmt.Fprintln(out, ui.Pass("Worktree path exists"))
			}

			if ws.Containers.IsRunning(ctx, env.DBContainerName) {
				fmt.Fprintln(out, ui.Pass("Database container %s is running", env.DBContainerName))
			} else {
				fmt.Fprintln(out, ui.Warn("Database container %s is not running", env.DBContainerName))
			}

			if desc, descErr := setup.ReadDescriptor(env.Path); descErr == nil {
				fmt.Fprintln(out, ui.Info("Database URL: %s", desc.Database.URL))
			}
			return nil
		},
	}
	commands = append(commands, statusCmd)

	// worktreectl history
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent setup, sync and cleanup operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")
			envID, _ := cmd.Flags().GetString("environment")
			output, _ := cmd.Flags().GetString("output")

			database, err := deps.history(ctx)
			if err != nil {
				return HandleError(err)
			}
			if database == nil {
				return HandleError(errors.ConfigInvalid("history is disabled in the [history] config section"))
			}

			events, err := db.NewEventRepository(database).List(ctx, db.EventFilter{EnvironmentID: envID, Limit: limit})
			if err != nil {
				return HandleError(err)
			}

			out := cmd.OutOrStdout()
			if output != OutputTable {
				return writeStructured(out, output, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No history recorded yet.")
				return nil
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "TIME\tACTION\tENVIRONMENT\tSTATUS\tMESSAGE")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					formatTime(e.CreatedAt), e.Action, e.EnvironmentID, e.Status, e.Message)
			}
			return tw.Flush()
		},
	}
	historyCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	historyCmd.Flags().StringP("environment", "e", "", "Only show events of this environment id")
	historyCmd.Flags().StringP("output", "o", OutputTable, "Output format: table, json or yaml")
	commands = append(commands, historyCmd)

	return commands
}
