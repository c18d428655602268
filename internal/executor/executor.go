// Package executor runs external tools (git, docker, ss, lsof) behind a
// narrow interface so adapters never build exec.Cmd values themselves.
package executor

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"

	"worktreectl/internal/errors"
	"worktreectl/internal/logger"
)

// CommandExecutor creates commands. Tests substitute it to avoid real processes.
type CommandExecutor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// DefaultCommandExecutor is the real os/exec implementation
type DefaultCommandExecutor struct{}

func (e *DefaultCommandExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// Runner is the strict/safe pair every adapter depends on.
type Runner interface {
	// Run returns trimmed combined output, or an EXTERNAL_TOOL error on a nonzero exit.
	Run(ctx context.Context, name string, args ...string) (string, error)
	// RunSafe returns ("", false) instead of an error.
	RunSafe(ctx context.Context, name string, args ...string) (string, bool)
}

// Process implements Runner on top of a CommandExecutor
type Process struct {
	executor CommandExecutor
	dir      string
}

// New creates a Process runner. A nil executor uses os/exec.
func New(executor CommandExecutor) *Process {
	if executor == nil {
		executor = &DefaultCommandExecutor{}
	}
	return &Process{executor: executor}
}

// WithDir returns a copy of the runner that executes in dir
func (p *Process) WithDir(dir string) *Process {
	return &Process{executor: p.executor, dir: dir}
}

// Run executes the command and fails on a nonzero exit
func (p *Process) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := p.executor.CommandContext(ctx, name, args...)
	if p.dir != "" {
		cmd.Dir = p.dir
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))
	logger.WithFields(logger.Fields{"command": commandLine, "dir": p.dir}).Debug("Running command")

	err := cmd.Run()
	output := strings.TrimSpace(out.String())
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return output, errors.CommandFailed(commandLine, exitCode, output, err)
	}

	return output, nil
}

// RunSafe executes the command and reports failure as ok=false
func (p *Process) RunSafe(ctx context.Context, name string, args ...string) (string, bool) {
	output, err := p.Run(ctx, name, args...)
	if err != nil {
		logger.WithError(err).Debug("Command failed, continuing")
		return "", false
	}
	return output, true
}
