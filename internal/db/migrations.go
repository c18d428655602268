package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	"worktreectl/internal/errors"
)

// GetCurrentVersion returns the applied schema version, or 0 before the
// first migration
func (db *DB) GetCurrentVersion(ctx context.Context) (uint, error) {
	var version uint
	query := `SELECT version FROM schema_migrations LIMIT 1`

	if err := db.GetContext(ctx, &version, query); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.DatabaseQueryError(query, err)
	}

	return version, nil
}
