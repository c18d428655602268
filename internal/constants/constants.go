// Package constants defines application-wide constants to avoid magic numbers
package constants

import "time"

// File System Permissions
const (
	// DirPermissions is the standard directory permissions for created directories
	DirPermissions = 0755

	// FilePermissions is the standard file permissions for the registry and descriptors
	FilePermissions = 0644
)

// Registry layout
const (
	// RegistryDirName is the directory under the git common dir holding the registry
	RegistryDirName = "worktreectl"

	// RegistryFileName is the registry document name
	RegistryFileName = "registry.json"

	// DescriptorFileName is the environment descriptor written into each worktree
	DescriptorFileName = ".worktreectl.yaml"

	// HistoryFileName is the sqlite journal under the data dir
	HistoryFileName = "history.db"
)

// Default port ranges, inclusive
const (
	DefaultFrontendPortMin = 5173
	DefaultFrontendPortMax = 5199
	DefaultBackendPortMin  = 3001
	DefaultBackendPortMax  = 3099
	DefaultDatabasePortMin = 7432
	DefaultDatabasePortMax = 7499

	// Database range written by older releases, rewritten on load
	LegacyDatabasePortMin = 5432
	LegacyDatabasePortMax = 5499
)

// Network Port Validation
const (
	MinPortNumber = 1
	MaxPortNumber = 65535
)

// Containers
const (
	DefaultContainerPrefix  = "wt-"
	DefaultDatabaseImage    = "postgres:16-alpine"
	DefaultDatabaseUser     = "postgres"
	DefaultDatabasePassword = "postgres"
	DefaultDatabaseName     = "app"
	DefaultDatabasePort     = 5432

	// DefaultReadyAttempts bounds database readiness polling
	DefaultReadyAttempts = 30

	// DefaultReadyInterval is the fixed delay between readiness probes
	DefaultReadyInterval = 1 * time.Second
)

// HTTP Configuration
const (
	DefaultServerHost            = "localhost"
	DefaultServerPort            = 7780
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerShutdownTimeout = 5 * time.Second
)

// History
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)
