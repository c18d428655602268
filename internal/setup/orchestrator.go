// Package setup provisions one environment end to end: branch, ports,
// worktree, database container and registry record.
package setup

import (
	"context"
	"path/filepath"

	"worktreectl/internal/errors"
	"worktreectl/internal/executor"
	"worktreectl/internal/git"
	"worktreectl/internal/logger"
	"worktreectl/internal/registry"
	"worktreectl/internal/validation"
)

// Step names reported in StepFailed errors
const (
	StepResolveSource  = "resolve source branch"
	StepDockerCheck    = "check docker"
	StepCreateBranch   = "create branch"
	StepCreateWorktree = "create worktree"
	StepStartDatabase  = "start database"
	StepRegister       = "register environment"
)

type Registry interface {
	ListAll() ([]registry.Environment, error)
	Settings() (registry.Settings, error)
	Add(env registry.Environment) (*registry.Environment, error)
}

type Git interface {
	GetCurrentBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, branch string) bool
	CreateBranch(ctx context.Context, branch, source string) error
	FindWorktree(ctx context.Context, branch string) (*git.Worktree, error)
	CreateWorktree(ctx context.Context, path, branch string) error
}

type Ports interface {
	FindAllPorts(ctx context.Context) (registry.Ports, error)
}

type Containers interface {
	IsAvailable(ctx context.Context) error
	StartDatabase(ctx context.Context, id string, port int) (string, error)
	AppName(id string) string
}

// Opener opens a worktree in the user's editor
type Opener interface {
	Open(ctx context.Context, path string) error
}

// EditorOpener runs a configured editor command with the worktree path
type EditorOpener struct {
	runner  executor.Runner
	command string
}

func NewEditorOpener(runner executor.Runner, command string) *EditorOpener {
	return &EditorOpener{runner: runner, command: command}
}

func (o *EditorOpener) Open(ctx context.Context, path string) error {
	if o.command == "" {
		return errors.ConfigInvalid("no editor command configured")
	}
	_, err := o.runner.Run(ctx, o.command, path)
	return err
}

// Request is one setup invocation
type Request struct {
	Branch string
	// Source defaults to the current branch
	Source string
	Open   bool
}

// Orchestrator composes the adapters into the setup pipeline
type Orchestrator struct {
	registry   Registry
	git        Git
	ports      Ports
	containers Containers
	scaffolder Scaffolder
	opener     Opener
}

// New creates an orchestrator. scaffolder and opener may be nil.
func New(reg Registry, g Git, ports Ports, containers Containers, scaffolder Scaffolder, opener Opener) *Orchestrator {
	return &Orchestrator{
		registry:   reg,
		git:        g,
		ports:      ports,
		containers: containers,
		scaffolder: scaffolder,
		opener:     opener,
	}
}

// Setup provisions req.Branch. Validation, conflict and port exhaustion
// errors are raised before anything is created.
func (o *Orchestrator) Setup(ctx context.Context, req Request) (*registry.Environment, error) {
	if err := validation.BranchName(req.Branch); err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		current, err := o.git.GetCurrentBranch(ctx)
		if errors.HasCode(err, errors.ErrValidationFailed) {
			return nil, err
		}
		if err != nil {
			return nil, errors.StepFailed(StepResolveSource, err)
		}
		source = current
	}
	if err := validation.BranchName(source); err != nil {
		return nil, err
	}

	id := registry.DeriveID(req.Branch)
	if err := o.checkConflicts(ctx, id, req.Branch); err != nil {
		return nil, err
	}

	ports, err := o.ports.FindAllPorts(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := o.registry.Settings()
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(logger.Fields{"branch": req.Branch, "id": id, "source": source})

	if err := o.containers.IsAvailable(ctx); err != nil {
		return nil, errors.StepFailed(StepDockerCheck, err)
	}

	if !o.git.BranchExists(ctx, req.Branch) {
		if err := o.git.CreateBranch(ctx, req.Branch, source); err != nil {
			return nil, errors.StepFailed(StepCreateBranch, err)
		}
	}

	path := filepath.Join(settings.WorktreeBaseDir, id)
	if err := o.git.CreateWorktree(ctx, path, req.Branch); err != nil {
		return nil, errors.StepFailed(StepCreateWorktree, err)
	}
	// stored the way git lists it so sync can match the two
	path = git.CanonicalPath(path)
	log.WithField("path", path).Info("Created worktree")

	dbName, err := o.containers.StartDatabase(ctx, id, ports.Database)
	if err != nil {
		return nil, errors.StepFailed(StepStartDatabase, err).WithContext("path", path)
	}

	env := registry.Environment{
		ID:               id,
		Branch:           req.Branch,
		SourceBranch:     source,
		Path:             path,
		Ports:            ports,
		DBContainerName:  dbName,
		AppContainerName: o.containers.AppName(id),
		Status:           registry.StatusActive,
	}

	if o.scaffolder != nil {
		if err := o.scaffolder.Scaffold(env); err != nil {
			log.WithError(err).Warn("Failed to write environment descriptor")
		}
	}

	added, err := o.registry.Add(env)
	if err != nil {
		return nil, errors.StepFailed(StepRegister, err)
	}

	if req.Open && o.opener != nil {
		if err := o.opener.Open(ctx, path); err != nil {
			log.WithError(err).Warn("Failed to open editor")
		}
	}

	return added, nil
}

func (o *Orchestrator) checkConflicts(ctx context.Context, id, branch string) error {
	if id == "" {
		return errors.InvalidBranchName(branch)
	}

	envs, err := o.registry.ListAll()
	if err != nil {
		return err
	}
	for _, env := range envs {
		if env.ID == id {
			return errors.DuplicateID(id)
		}
		if env.Branch == branch {
			return errors.DuplicateBranch(branch)
		}
	}

	wt, err := o.git.FindWorktree(ctx, branch)
	if err != nil {
		return err
	}
	if wt != nil {
		return errors.BranchCheckedOut(branch, wt.Path)
	}
	return nil
}
