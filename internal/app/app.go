// Package app wires configuration, adapters and the CLI together
package app

import (
	"context"
	"os"
	"path/filepath"

	"worktreectl/internal/cli"
	"worktreectl/internal/cli/commands"
	"worktreectl/internal/config"
	"worktreectl/internal/constants"
	"worktreectl/internal/container"
	"worktreectl/internal/db"
	"worktreectl/internal/errors"
	"worktreectl/internal/executor"
	"worktreectl/internal/git"
	"worktreectl/internal/lazy"
	"worktreectl/internal/logger"
	"worktreectl/internal/ports"
	"worktreectl/internal/prompt"
	"worktreectl/internal/registry"
	"worktreectl/internal/setup"
)

// App represents the main application
type App struct {
	Config *config.Config
	CLI    *cli.Manager

	runner    *executor.Process
	workspace *lazy.Lazy[*commands.Workspace]
	history   *lazy.Lazy[*db.DB]
}

// New creates a new application instance
func New() *App {
	return &App{}
}

// Run starts the application
func (a *App) Run(args []string) error {
	return a.RunWithContext(context.Background(), args)
}

// RunWithContext loads the configuration and executes the CLI. Repository
// adapters and the history journal are only built when a command asks.
func (a *App) RunWithContext(ctx context.Context, args []string) error {
	configPath, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}
	a.Config = cfg
	logger.SetLevel(cfg.Log.Level)

	a.runner = executor.New(nil)
	a.workspace = lazy.New(a.loadWorkspace)
	a.history = lazy.New(a.openHistory)
	defer a.Close()

	a.CLI = cli.New(&commands.Deps{
		Config:     cfg,
		ConfigPath: configPath,
		Prompter:   prompt.New(),
		Workspace:  a.workspace.Get,
		History:    a.history.Get,
	})

	if len(args) == 0 {
		return a.CLI.ExecuteWithContext(ctx, []string{"--help"})
	}
	return a.CLI.ExecuteWithContext(ctx, args)
}

// Close releases the history database if it was opened
func (a *App) Close() {
	if a.history == nil {
		return
	}
	if database, ok := a.history.Peek(); ok && database != nil {
		if err := database.Close(); err != nil {
			logger.WithError(err).Debug("Failed to close history database")
		}
	}
}

// loadWorkspace binds the adapters to the repository containing the working directory
func (a *App) loadWorkspace(ctx context.Context) (*commands.Workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to get current directory", err)
	}

	probe := git.New(a.runner, cwd)
	commonDir, err := probe.CommonDir(ctx)
	if err != nil {
		return nil, errors.WrapWithDetails(errors.ErrExternalTool, "not inside a git repository",
			"run worktreectl from a repository or one of its worktrees", err)
	}
	root, err := probe.TopLevel(ctx)
	if err != nil {
		return nil, err
	}

	baseDir := a.Config.Worktrees.BaseDir
	if baseDir == "" {
		baseDir = filepath.Join(filepath.Dir(root), filepath.Base(root)+"-worktrees")
	}

	registryPath := filepath.Join(commonDir, constants.RegistryDirName, constants.RegistryFileName)
	store := registry.NewStore(registryPath, registry.Settings{
		WorktreeBaseDir: baseDir,
		PortRanges:      a.Config.PortRanges(),
	})
	if _, err := store.Init(); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"root":     root,
		"registry": registryPath,
	}).Debug("Resolved workspace")

	containerCfg := a.Config.ContainerConfig()
	return &commands.Workspace{
		RepoRoot:   root,
		Registry:   store,
		Git:        git.New(a.runner, root),
		Containers: container.NewManager(a.runner, containerCfg),
		Ports:      ports.NewAllocator(store, ports.DefaultProbes(a.runner)...),
		Scaffolder: setup.NewDescriptorWriter(containerCfg.User, containerCfg.Password, containerCfg.Database),
		Opener:     setup.NewEditorOpener(a.runner, a.Config.Editor.Command),
	}, nil
}

// openHistory opens the journal, or returns nil when [history] disabled is set
func (a *App) openHistory(ctx context.Context) (*db.DB, error) {
	if a.Config.History.Disabled {
		return nil, nil
	}
	return db.Open(db.DefaultConfig(a.Config.History.Path))
}
