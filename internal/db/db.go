// Package db stores the operation history journal in SQLite
package db

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"worktreectl/internal/constants"
	"worktreectl/internal/errors"
	"worktreectl/internal/xdg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// Config represents database configuration
type Config struct {
	// DSN is the SQLite file path or MemoryDSN
	DSN string
	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int
	// ConnMaxLifetime is the maximum lifetime of a connection
	ConnMaxLifetime time.Duration
}

// DefaultPath returns the XDG-compliant journal path
func DefaultPath() string {
	dataDir, err := xdg.DataDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "share", "worktreectl", constants.HistoryFileName)
	}
	return filepath.Join(dataDir, constants.HistoryFileName)
}

// DefaultConfig returns the configuration for the journal at path. SQLite
// allows one writer, so a single connection is used.
func DefaultConfig(path string) *Config {
	if path == "" {
		path = DefaultPath()
	}
	return &Config{
		DSN:             path,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 0,
	}
}

// DB wraps sqlx.DB with additional functionality
type DB struct {
	*sqlx.DB
	config *Config
}

// New opens the database
func New(cfg *Config) (*DB, error) {
	if cfg == nil {
		cfg = DefaultConfig("")
	}

	if cfg.DSN != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), constants.DirPermissions); err != nil {
			return nil, errors.DatabaseConnectionError(fmt.Errorf("failed to create database directory: %w", err))
		}
	}

	db, err := sqlx.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errors.DatabaseConnectionError(err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseConnectionError(fmt.Errorf("failed to ping database: %w", err))
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.DatabaseConnectionError(fmt.Errorf("failed to set busy timeout: %w", err))
	}

	return &DB{
		DB:     db,
		config: cfg,
	}, nil
}

// Open opens the database and applies pending migrations
func Open(cfg *Config) (*DB, error) {
	database, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Migrate runs database migrations
func (db *DB) Migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.DatabaseMigrationError(fmt.Errorf("failed to create migration source: %w", err))
	}

	dbInstance, err := sqlite3.WithInstance(db.DB.DB, &sqlite3.Config{})
	if err != nil {
		return errors.DatabaseMigrationError(fmt.Errorf("failed to create sqlite3 driver instance: %w", err))
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbInstance)
	if err != nil {
		return errors.DatabaseMigrationError(fmt.Errorf("failed to create migrator: %w", err))
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.DatabaseMigrationError(err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Path returns the DSN the database was opened with
func (db *DB) Path() string {
	return db.config.DSN
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return errors.DatabaseQueryError("SELECT 1", err)
	}
	return nil
}
