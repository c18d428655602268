// Package cleanup removes many environments in one batch, selected by
// staleness, all at once or interactively.
package cleanup

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"worktreectl/internal/container"
	"worktreectl/internal/errors"
	"worktreectl/internal/logger"
	"worktreectl/internal/prompt"
	"worktreectl/internal/registry"
	"worktreectl/internal/ui"
)

type Registry interface {
	ListAll() ([]registry.Environment, error)
	Remove(id string) (*registry.Environment, bool, error)
}

type Git interface {
	RemoveWorktree(ctx context.Context, path string) error
	PruneWorktrees(ctx context.Context) error
}

type Containers interface {
	RemoveDatabase(ctx context.Context, id string) container.RemovalResult
	RemoveAppContainer(ctx context.Context, id string) container.RemovalResult
}

// Options select what to remove. All and StaleDays are mutually exclusive;
// with neither set the user picks from a table.
type Options struct {
	All       bool
	StaleDays *int
	DryRun    bool
	Force     bool
}

// ItemResult is the outcome for one environment
type ItemResult struct {
	ID       string                  `json:"id"`
	Branch   string                  `json:"branch"`
	Removed  bool                    `json:"removed"`
	Database container.RemovalResult `json:"database"`
	Worktree string                  `json:"worktreeError,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// Result describes a whole cleanup run
type Result struct {
	Selected  []registry.Environment `json:"selected"`
	DryRun    bool                   `json:"dryRun"`
	Cancelled bool                   `json:"cancelled"`
	Items     []ItemResult           `json:"items"`
}

// Removed counts environments whose registry record is gone
func (r *Result) Removed() int {
	n := 0
	for _, item := range r.Items {
		if item.Removed {
			n++
		}
	}
	return n
}

// Failed counts environments that are still registered
func (r *Result) Failed() int {
	return len(r.Items) - r.Removed()
}

// Cleaner runs bulk cleanup
type Cleaner struct {
	registry   Registry
	git        Git
	containers Containers
	prompter   prompt.Prompter
	out        io.Writer
	now        func() time.Time
}

func NewCleaner(reg Registry, g Git, containers Containers, prompter prompt.Prompter, out io.Writer) *Cleaner {
	return &Cleaner{
		registry:   reg,
		git:        g,
		containers: containers,
		prompter:   prompter,
		out:        out,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for staleness
func (c *Cleaner) SetClock(now func() time.Time) {
	c.now = now
}

func validate(opts Options) error {
	if opts.All && opts.StaleDays != nil {
		return errors.ValidationFailed("mode", "all+stale", "--all and --stale cannot be combined")
	}
	if opts.StaleDays != nil && *opts.StaleDays < 0 {
		return errors.ValidationFailed("stale", strconv.Itoa(*opts.StaleDays), "must be zero or more days")
	}
	return nil
}

// IsStale reports whether env was last accessed at least days ago
func IsStale(env registry.Environment, days int, now time.Time) bool {
	return now.Sub(env.LastAccessed) >= time.Duration(days)*24*time.Hour
}

// Select returns the environments the options pick. cancelled is true when
// the user cancelled the interactive selection.
func (c *Cleaner) Select(ctx context.Context, opts Options) (selected []registry.Environment, cancelled bool, err error) {
	if err := validate(opts); err != nil {
		return nil, false, err
	}

	envs, err := c.registry.ListAll()
	if err != nil {
		return nil, false, err
	}

	switch {
	case opts.All:
		return envs, false, nil
	case opts.StaleDays != nil:
		now := c.now()
		for _, env := range envs {
			if IsStale(env, *opts.StaleDays, now) {
				selected = append(selected, env)
			}
		}
		return selected, false, nil
	case len(envs) == 0:
		return nil, false, nil
	}

	c.printTable(envs)
	input, err := c.prompter.Input("Select worktrees to remove", "1-3,5 | all | cancel")
	if err != nil {
		if errors.HasCode(err, errors.ErrCancelled) {
			return nil, true, nil
		}
		return nil, false, err
	}

	indices, cancelled, err := ParseSelector(input, len(envs))
	if err != nil || cancelled {
		return nil, cancelled, err
	}
	for _, i := range indices {
		selected = append(selected, envs[i])
	}
	return selected, false, nil
}

// Run selects, confirms and removes. Every item is attempted; a
// PARTIAL_BATCH error is returned afterwards when any item failed.
func (c *Cleaner) Run(ctx context.Context, opts Options) (*Result, error) {
	selected, cancelled, err := c.Select(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{Selected: selected, DryRun: opts.DryRun, Cancelled: cancelled}
	if cancelled {
		fmt.Fprintln(c.out, "Cancelled")
		return result, nil
	}
	if len(selected) == 0 {
		fmt.Fprintln(c.out, ui.Info("Nothing to remove"))
		return result, nil
	}

	verb := "Removing"
	if opts.DryRun {
		verb = "Would remove"
	}
	fmt.Fprintln(c.out, ui.Heading(fmt.Sprintf("%s %d worktree(s):", verb, len(selected))))
	for _, env := range selected {
		fmt.Fprintf(c.out, "  %s %s\n", env.Branch, ui.Muted(env.Path))
	}

	if opts.DryRun {
		fmt.Fprintf(c.out, "\nWould remove %d worktree(s)\n", len(selected))
		return result, nil
	}

	if !opts.Force {
		confirmed, err := c.prompter.Confirm(fmt.Sprintf("Remove %d worktree(s)?", len(selected)))
		if err != nil {
			return nil, err
		}
		if !confirmed {
			result.Cancelled = true
			fmt.Fprintln(c.out, "Cancelled")
			return result, nil
		}
	}

	for _, env := range selected {
		result.Items = append(result.Items, c.remove(ctx, env))
	}

	if err := c.git.PruneWorktrees(ctx); err != nil {
		logger.WithError(err).Warn("Failed to prune worktrees")
	}

	c.printSummary(result)

	if failed := result.Failed(); failed > 0 {
		return result, errors.PartialBatch("cleanup", failed, len(result.Items))
	}
	return result, nil
}

// remove runs each step regardless of the others. Only the registry step
// decides success.
func (c *Cleaner) remove(ctx context.Context, env registry.Environment) ItemResult {
	item := ItemResult{ID: env.ID, Branch: env.Branch}
	log := logger.WithFields(logger.Fields{"id": env.ID, "branch": env.Branch})

	item.Database = c.containers.RemoveDatabase(ctx, env.ID)
	if item.Database.Status == container.StatusError {
		log.WithField("message", item.Database.Message).Warn("Database removal failed")
	}

	if res := c.containers.RemoveAppContainer(ctx, env.ID); res.Status == container.StatusError {
		log.WithField("message", res.Message).Debug("App container removal failed")
	}

	if err := c.git.RemoveWorktree(ctx, env.Path); err != nil {
		item.Worktree = err.Error()
		log.WithError(err).Warn("Worktree removal failed")
	}

	if _, _, err := c.registry.Remove(env.ID); err != nil {
		item.Error = err.Error()
		return item
	}
	item.Removed = true
	return item
}

func (c *Cleaner) printTable(envs []registry.Environment) {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tBRANCH\tPATH\tLAST ACCESSED")
	for i, env := range envs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, env.Branch, env.Path, env.LastAccessed.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func (c *Cleaner) printSummary(result *Result) {
	for _, item := range result.Items {
		if item.Removed {
			fmt.Fprintln(c.out, ui.Pass("Removed %s", item.Branch))
			continue
		}
		fmt.Fprintln(c.out, ui.Fail("Failed to remove %s: %s", item.Branch, item.Error))
	}
	fmt.Fprintf(c.out, "\nRemoved %d, failed %d\n", result.Removed(), result.Failed())
}
