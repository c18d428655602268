package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"worktreectl/internal/registry"
)

// NewRegistry creates an initialized registry file in a temp dir whose
// worktree base dir is baseDir
func NewRegistry(t *testing.T, baseDir string) *registry.Store {
	t.Helper()
	store := registry.NewStore(filepath.Join(t.TempDir(), "worktreectl", "registry.json"), registry.DefaultSettings(baseDir))
	_, err := store.Init()
	require.NoError(t, err)
	return store
}

// Environment builds a registry record for id at path using the default container prefix
func Environment(id, branch, path string, ports registry.Ports) registry.Environment {
	return registry.Environment{
		ID:               id,
		Branch:           branch,
		SourceBranch:     "main",
		Path:             path,
		Ports:            ports,
		DBContainerName:  "db-wt-" + id,
		AppContainerName: "app-wt-" + id,
		Status:           registry.StatusActive,
	}
}
