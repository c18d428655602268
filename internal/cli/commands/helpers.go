package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"worktreectl/internal/cleanup"
	"worktreectl/internal/db"
	"worktreectl/internal/errors"
	"worktreectl/internal/logger"
	"worktreectl/internal/reconcile"
	"worktreectl/internal/registry"
)

// Output formats accepted by --output
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// writeStructured renders v as JSON or YAML
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.ValidationFailed("output", format, "must be table, json or yaml")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// openJournal returns the history journal, or nil when it is disabled or
// cannot be opened. A broken journal never fails a lifecycle command.
func openJournal(ctx context.Context, deps *Deps) *db.Journal {
	database, err := deps.history(ctx)
	if err != nil {
		logger.WithError(err).Warn("History journal unavailable")
		return nil
	}
	if database == nil {
		return nil
	}
	return db.NewJournal(db.NewEventRepository(database))
}

func recordSetup(ctx context.Context, j *db.Journal, branch string, env *registry.Environment, err error) {
	e := db.Event{
		Action:        db.ActionSetup,
		EnvironmentID: registry.DeriveID(branch),
		Branch:        branch,
	}
	if err != nil {
		e.Status = db.EventFailed
		e.Message = err.Error()
	} else {
		e.Message = env.Path
		e.Details = db.JSONB{
			"source":   env.SourceBranch,
			"frontend": env.Ports.Frontend,
			"backend":  env.Ports.Backend,
			"database": env.Ports.Database,
		}
	}
	j.Record(ctx, e)
}

func recordSync(ctx context.Context, j *db.Journal, result *reconcile.Result) {
	if result == nil {
		return
	}
	for _, o := range result.Outcomes {
		e := db.Event{
			Action:        db.ActionSyncRemove,
			EnvironmentID: o.ID,
			Message:       o.Message,
			Details:       db.JSONB{"kind": o.Kind, "name": o.Name},
		}
		if o.Kind == reconcile.KindOrphan {
			e.Branch = o.Name
		}
		if !o.Removed {
			e.Status = db.EventFailed
		}
		j.Record(ctx, e)
	}
}

func recordCleanup(ctx context.Context, j *db.Journal, result *cleanup.Result) {
	if result == nil {
		return
	}
	for _, item := range result.Items {
		e := db.Event{
			Action:        db.ActionCleanupRemove,
			EnvironmentID: item.ID,
			Branch:        item.Branch,
			Message:       item.Error,
			Details:       db.JSONB{"database": item.Database.Status},
		}
		if item.Worktree != "" {
			e.Details["worktree"] = item.Worktree
		}
		if !item.Removed {
			e.Status = db.EventFailed
		}
		j.Record(ctx, e)
	}
}

func printEnvironment(w io.Writer, env registry.Environment) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", env.ID)
	fmt.Fprintf(tw, "Branch:\t%s\n", env.Branch)
	fmt.Fprintf(tw, "Source:\t%s\n", env.SourceBranch)
	fmt.Fprintf(tw, "Path:\t%s\n", env.Path)
	fmt.Fprintf(tw, "Frontend:\t%d\n", env.Ports.Frontend)
	fmt.Fprintf(tw, "Backend:\t%d\n", env.Ports.Backend)
	fmt.Fprintf(tw, "Database:\t%d (%s)\n", env.Ports.Database, env.DBContainerName)
	fmt.Fprintf(tw, "Status:\t%s\n", env.Status)
	tw.Flush()
}
