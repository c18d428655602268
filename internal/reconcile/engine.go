// Package reconcile detects and repairs drift between the registry, git's
// worktree metadata and the database containers.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"os"

	"worktreectl/internal/container"
	"worktreectl/internal/errors"
	"worktreectl/internal/git"
	"worktreectl/internal/logger"
	"worktreectl/internal/prompt"
	"worktreectl/internal/registry"
	"worktreectl/internal/ui"
)

// Orphan reasons
const (
	ReasonPathMissing = "Path does not exist"
	ReasonNotTracked  = "Not in git worktree list"
)

// Registry is the subset of the registry store sync uses
type Registry interface {
	ListAll() ([]registry.Environment, error)
	Remove(id string) (*registry.Environment, bool, error)
}

// Git is the subset of the git adapter sync uses
type Git interface {
	ListWorktrees(ctx context.Context) ([]git.Worktree, error)
	PruneWorktrees(ctx context.Context) error
}

// Containers is the subset of the container adapter sync uses
type Containers interface {
	ListDBContainers(ctx context.Context) []string
	ParseDBName(name string) (string, bool)
	RemoveDatabase(ctx context.Context, id string) container.RemovalResult
	RemoveContainer(ctx context.Context, name string) container.RemovalResult
}

// Options control a sync run
type Options struct {
	DryRun  bool
	Force   bool
	Verbose bool
}

// Orphan is a registry entry whose worktree is gone
type Orphan struct {
	Environment registry.Environment `json:"environment"`
	Reason      string               `json:"reason"`
}

// StaleContainer is a database container no registry entry owns
type StaleContainer struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Report is the drift found before any mutation
type Report struct {
	Orphaned []Orphan         `json:"orphaned"`
	Stale    []StaleContainer `json:"stale"`
}

// Total returns the number of items to repair
func (r Report) Total() int {
	return len(r.Orphaned) + len(r.Stale)
}

// Outcome kinds
const (
	KindOrphan    = "orphan"
	KindContainer = "container"
)

// Outcome is the result of repairing one item
type Outcome struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
	Message string `json:"message,omitempty"`
}

// Result describes a whole sync run
type Result struct {
	Report    Report    `json:"report"`
	DryRun    bool      `json:"dryRun"`
	Cancelled bool      `json:"cancelled"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Failed counts outcomes that did not remove their item
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Removed {
			n++
		}
	}
	return n
}

// Engine runs sync
type Engine struct {
	registry   Registry
	git        Git
	containers Containers
	prompter   prompt.Prompter
	out        io.Writer
}

// NewEngine wires the three sources of truth, the prompter and the report writer
func NewEngine(reg Registry, g Git, containers Containers, prompter prompt.Prompter, out io.Writer) *Engine {
	return &Engine{
		registry:   reg,
		git:        g,
		containers: containers,
		prompter:   prompter,
		out:        out,
	}
}

// Analyze classifies drift without changing anything
func (e *Engine) Analyze(ctx context.Context) (Report, error) {
	var report Report

	envs, err := e.registry.ListAll()
	if err != nil {
		return report, err
	}

	worktrees, err := e.git.ListWorktrees(ctx)
	if err != nil {
		return report, err
	}
	tracked := make(map[string]struct{}, len(worktrees))
	for _, wt := range worktrees {
		tracked[git.CanonicalPath(wt.Path)] = struct{}{}
	}

	known := make(map[string]struct{}, len(envs))
	for _, env := range envs {
		known[env.ID] = struct{}{}

		if _, err := os.Stat(env.Path); os.IsNotExist(err) {
			report.Orphaned = append(report.Orphaned, Orphan{Environment: env, Reason: ReasonPathMissing})
			continue
		}
		if _, ok := tracked[git.CanonicalPath(env.Path)]; !ok {
			report.Orphaned = append(report.Orphaned, Orphan{Environment: env, Reason: ReasonNotTracked})
		}
	}

	for _, name := range e.containers.ListDBContainers(ctx) {
		id, ok := e.containers.ParseDBName(name)
		if !ok {
			continue
		}
		if _, ok := known[id]; !ok {
			report.Stale = append(report.Stale, StaleContainer{Name: name, ID: id})
		}
	}

	return report, nil
}

// Run analyzes, prints the report and, unless dry-run or declined, repairs
// every item independently. A PARTIAL_BATCH error is returned after the
// whole batch when any item failed.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	report, err := e.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Report: report, DryRun: opts.DryRun}
	e.printReport(report, opts.Verbose)

	if report.Total() == 0 {
		return result, nil
	}
	if opts.DryRun {
		fmt.Fprintln(e.out, ui.Info("Dry run: no changes made"))
		return result, nil
	}

	if !opts.Force {
		confirmed, err := e.prompter.Confirm(fmt.Sprintf("Remove %d item(s)?", report.Total()))
		if err != nil {
			return nil, err
		}
		if !confirmed {
			result.Cancelled = true
			fmt.Fprintln(e.out, "Cancelled")
			return result, nil
		}
	}

	for _, orphan := range report.Orphaned {
		result.Outcomes = append(result.Outcomes, e.removeOrphan(ctx, orphan))
	}
	for _, stale := range report.Stale {
		result.Outcomes = append(result.Outcomes, e.removeStale(ctx, stale))
	}

	if err := e.git.PruneWorktrees(ctx); err != nil {
		logger.WithError(err).Warn("Failed to prune worktrees")
	}

	e.printOutcomes(result)

	if failed := result.Failed(); failed > 0 {
		return result, errors.PartialBatch("sync", failed, len(result.Outcomes))
	}
	return result, nil
}

func (e *Engine) removeOrphan(ctx context.Context, orphan Orphan) Outcome {
	env := orphan.Environment
	outcome := Outcome{Kind: KindOrphan, Name: env.Branch, ID: env.ID}

	if res := e.containers.RemoveDatabase(ctx, env.ID); res.Status == container.StatusError {
		logger.WithFields(logger.Fields{"id": env.ID, "message": res.Message}).Warn("Database removal failed, removing registry entry anyway")
	}

	if _, _, err := e.registry.Remove(env.ID); err != nil {
		outcome.Message = err.Error()
		return outcome
	}
	outcome.Removed = true
	return outcome
}

func (e *Engine) removeStale(ctx context.Context, stale StaleContainer) Outcome {
	res := e.containers.RemoveContainer(ctx, stale.Name)
	return Outcome{
		Kind:    KindContainer,
		Name:    stale.Name,
		ID:      stale.ID,
		Removed: res.OK(),
		Message: res.Message,
	}
}

func (e *Engine) printReport(report Report, verbose bool) {
	if report.Total() == 0 {
		fmt.Fprintln(e.out, ui.Pass("Registry, worktrees and containers are in sync"))
		return
	}

	fmt.Fprintln(e.out, ui.Heading(fmt.Sprintf("Orphaned registry entries: %d", len(report.Orphaned))))
	for _, o := range report.Orphaned {
		fmt.Fprintf(e.out, "  %s %s\n", o.Environment.Branch, ui.Muted("("+o.Reason+")"))
		if verbose {
			fmt.Fprintf(e.out, "    path: %s\n", o.Environment.Path)
			fmt.Fprintf(e.out, "    database: %s\n", o.Environment.DBContainerName)
		}
	}

	fmt.Fprintln(e.out, ui.Heading(fmt.Sprintf("Stale database containers: %d", len(report.Stale))))
	for _, s := range report.Stale {
		fmt.Fprintf(e.out, "  %s %s\n", s.Name, ui.Muted("(no registry entry for "+s.ID+")"))
	}
}

func (e *Engine) printOutcomes(result *Result) {
	for _, o := range result.Outcomes {
		if o.Removed {
			fmt.Fprintln(e.out, ui.Pass("Removed %s %s", o.Kind, o.Name))
			continue
		}
		fmt.Fprintln(e.out, ui.Fail("Failed to remove %s %s: %s", o.Kind, o.Name, o.Message))
	}

	failed := result.Failed()
	fmt.Fprintf(e.out, "\nRemoved %d, failed %d\n", len(result.Outcomes)-failed, failed)
}
