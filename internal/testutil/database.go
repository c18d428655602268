package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"worktreectl/internal/db"
)

// SetupTestDB creates a migrated in-memory history database
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(db.DefaultConfig(db.MemoryDSN))
	require.NoError(t, err)

	t.Cleanup(func() {
		database.Close()
	})

	return database
}
