package commands

import (
	"context"

	"worktreectl/internal/cleanup"
	"worktreectl/internal/config"
	"worktreectl/internal/db"
	"worktreectl/internal/prompt"
	"worktreectl/internal/reconcile"
	"worktreectl/internal/registry"
	"worktreectl/internal/setup"
)

// Registry is everything the commands need from the registry store
type Registry interface {
	ListAll() ([]registry.Environment, error)
	Get(id string) (*registry.Environment, error)
	FindByBranch(branch string) (*registry.Environment, error)
	Add(env registry.Environment) (*registry.Environment, error)
	Remove(id string) (*registry.Environment, bool, error)
	Settings() (registry.Settings, error)
	Path() string
}

// Git combines the git operations of setup, sync and cleanup
type Git interface {
	setup.Git
	reconcile.Git
	cleanup.Git
}

// Containers combines the container operations of every command
type Containers interface {
	setup.Containers
	reconcile.Containers
	cleanup.Containers
	IsRunning(ctx context.Context, name string) bool
}

// Workspace holds the adapters bound to the current repository
type Workspace struct {
	RepoRoot   string
	Registry   Registry
	Git        Git
	Containers Containers
	Ports      setup.Ports
	Scaffolder setup.Scaffolder
	Opener     setup.Opener
}

// Deps is what every command group receives. Workspace and History are
// resolved on first use so commands like `config show` work outside a
// repository.
type Deps struct {
	Config     *config.Config
	ConfigPath string
	Prompter   prompt.Prompter

	// Workspace fails when the working directory is not inside a git repository
	Workspace func(ctx context.Context) (*Workspace, error)
	// History returns nil, nil when the journal is disabled
	History func(ctx context.Context) (*db.DB, error)
}

func (d *Deps) workspace(ctx context.Context) (*Workspace, error) {
	return d.Workspace(ctx)
}

// history returns the open journal database or nil
func (d *Deps) history(ctx context.Context) (*db.DB, error) {
	if d.History == nil {
		return nil, nil
	}
	return d.History(ctx)
}
