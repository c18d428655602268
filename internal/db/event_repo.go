package db

import (
	"context"
	"time"

	"github.com/rs/xid"

	"worktreectl/internal/constants"
	"worktreectl/internal/errors"
	"worktreectl/internal/logger"
)

// EventFilter narrows a history listing
type EventFilter struct {
	EnvironmentID string
	Limit         int
}

// EventRepository handles database operations for events
type EventRepository struct {
	db  *DB
	now func() time.Time
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

// Record stores an event, filling its id, run id and timestamp when empty
func (r *EventRepository) Record(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = xid.New().String()
	}
	if e.RunID == "" {
		e.RunID = logger.RunID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	if e.Status == "" {
		e.Status = EventOK
	}

	query := `
		INSERT INTO events (id, run_id, action, environment_id, branch, status, message, details, created_at)
		VALUES (:id, :run_id, :action, :environment_id, :branch, :status, :message, :details, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return errors.DatabaseQueryError("insert event", err)
	}
	return nil
}

// List returns the newest events first
func (r *EventRepository) List(ctx context.Context, filter EventFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	if limit > constants.MaxHistoryLimit {
		limit = constants.MaxHistoryLimit
	}

	query := `
		SELECT id, run_id, action, environment_id, branch, status, message, details, created_at
		FROM events
		WHERE 1=1`
	args := []interface{}{}

	if filter.EnvironmentID != "" {
		query += " AND environment_id = ?"
		args = append(args, filter.EnvironmentID)
	}

	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	events := []Event{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, errors.DatabaseQueryError("list events", err)
	}
	return events, nil
}

// Count returns the number of stored events
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM events"); err != nil {
		return 0, errors.DatabaseQueryError("count events", err)
	}
	return n, nil
}

// Journal records events without failing the operation being journaled.
// A nil Journal is valid and records nothing.
type Journal struct {
	repo *EventRepository
}

// NewJournal wraps a repository
func NewJournal(repo *EventRepository) *Journal {
	return &Journal{repo: repo}
}

// Record stores e and logs instead of returning a failure
func (j *Journal) Record(ctx context.Context, e Event) {
	if j == nil || j.repo == nil {
		return
	}
	if err := j.repo.Record(ctx, &e); err != nil {
		logger.WithError(err).WithField("action", e.Action).Warn("Failed to record history event")
	}
}
