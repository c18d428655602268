package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"worktreectl/internal/db"
	"worktreectl/internal/logger"
	"worktreectl/internal/server"
	"worktreectl/internal/ui"
)

// ServerCommands creates the serve command
func ServerCommands(deps *Deps) []*cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only status API for this repository",
		Long: `Serve the registry and the history journal over HTTP:
  GET /health
  GET /api/environments
  GET /api/environments/:id
  GET /api/history?limit=N&environment=ID

The server stops on Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg := server.DefaultConfig()
			cfg.Host = deps.Config.Server.Host
			cfg.Port = deps.Config.Server.Port
			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("host") {
				cfg.Host, _ = cmd.Flags().GetString("host")
			}

			ws, err := deps.workspace(ctx)
			if err != nil {
				return HandleError(err)
			}

			var (
				history server.History
				health  server.HealthChecker
			)
			database, err := deps.history(ctx)
			if err != nil {
				logger.WithError(err).Warn("History journal unavailable, serving without it")
			} else if database != nil {
				history = db.NewEventRepository(database)
				health = database
			}

			srv := server.New(cfg, ws.Registry, history, health)
			fmt.Fprintln(cmd.OutOrStdout(), ui.Info("Serving %s on http://%s", ws.RepoRoot, srv.Addr()))
			return srv.Start(ctx)
		},
	}
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default from [server] config)")
	serveCmd.Flags().String("host", "", "Host to bind (default from [server] config)")

	return []*cobra.Command{serveCmd}
}
