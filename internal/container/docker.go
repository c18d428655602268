package container

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"worktreectl/internal/constants"
	"worktreectl/internal/executor"
	"worktreectl/internal/logger"
)

// Removal statuses reported by RemoveDatabase and RemoveAppContainer
const (
	StatusRemoved  = "removed"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

const (
	managedLabel = "worktreectl.managed=true"
	idLabel      = "worktreectl.id"
)

// RemovalResult is the non-throwing outcome of a container removal
type RemovalResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the container is gone, whether or not it existed
func (r RemovalResult) OK() bool {
	return r.Status == StatusRemoved || r.Status == StatusNotFound
}

// Config holds database container settings
type Config struct {
	Prefix        string
	Image         string
	User          string
	Password      string
	Database      string
	InternalPort  int
	ReadyAttempts int
	ReadyInterval time.Duration
}

// DefaultConfig returns the built-in postgres settings
func DefaultConfig() Config {
	return Config{
		Prefix:        constants.DefaultContainerPrefix,
		Image:         constants.DefaultDatabaseImage,
		User:          constants.DefaultDatabaseUser,
		Password:      constants.DefaultDatabasePassword,
		Database:      constants.DefaultDatabaseName,
		InternalPort:  constants.DefaultDatabasePort,
		ReadyAttempts: constants.DefaultReadyAttempts,
		ReadyInterval: constants.DefaultReadyInterval,
	}
}

// Manager drives per-environment containers through the docker CLI
type Manager struct {
	Naming
	runner executor.Runner
	cfg    Config
}

// NewManager creates a docker-backed container manager
func NewManager(runner executor.Runner, cfg Config) *Manager {
	if cfg.ReadyAttempts < 1 {
		cfg.ReadyAttempts = 1
	}
	return &Manager{
		Naming: Naming{Prefix: cfg.Prefix},
		runner: runner,
		cfg:    cfg,
	}
}

func (m *Manager) docker(ctx context.Context, args ...string) (string, error) {
	return m.runner.Run(ctx, "docker", args...)
}

// listNames returns container names matching a docker name filter
func (m *Manager) listNames(ctx context.Context, all bool, filter string) []string {
	args := []string{"ps"}
	if all {
		args = append(args, "-a")
	}
	args = append(args, "--filter", "name="+filter, "--format", "{{.Names}}")

	output, ok := m.runner.RunSafe(ctx, "docker", args...)
	if !ok {
		return nil
	}

	var names []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// docker's name filter is a regex match, so the result is compared exactly as well
func (m *Manager) matchExact(ctx context.Context, all bool, name string) bool {
	for _, candidate := range m.listNames(ctx, all, "^"+name+"$") {
		if candidate == name {
			return true
		}
	}
	return false
}

// Exists reports whether a container with exactly this name exists
func (m *Manager) Exists(ctx context.Context, name string) bool {
	return m.matchExact(ctx, true, name)
}

// IsRunning reports whether a container with exactly this name is running
func (m *Manager) IsRunning(ctx context.Context, name string) bool {
	return m.matchExact(ctx, false, name)
}

// Start starts an existing container
func (m *Manager) Start(ctx context.Context, name string) error {
	if output, err := m.docker(ctx, "start", name); err != nil {
		return newContainerError("start", name, output, err)
	}
	return nil
}

// Stop stops a container; missing or stopped targets are not an error
func (m *Manager) Stop(ctx context.Context, name string) error {
	return m.tolerant(ctx, "stop", name, "stop", name)
}

// Remove removes a container; a missing target is not an error
func (m *Manager) Remove(ctx context.Context, name string) error {
	return m.tolerant(ctx, "remove", name, "rm", name)
}

// RemoveVolume removes a named volume; a missing volume is not an error
func (m *Manager) RemoveVolume(ctx context.Context, name string) error {
	return m.tolerant(ctx, "remove volume of", name, "volume", "rm", name)
}

func (m *Manager) tolerant(ctx context.Context, operation, name string, args ...string) error {
	output, err := m.docker(ctx, args...)
	if err == nil || isMissing(output) {
		return nil
	}
	return newContainerError(operation, name, output, err)
}

// StartDatabase creates or starts the database container for id and waits
// until it accepts connections. It returns the container name.
func (m *Manager) StartDatabase(ctx context.Context, id string, port int) (string, error) {
	name := m.DBName(id)
	log := logger.WithFields(logger.Fields{"container": name, "port": port})

	switch {
	case m.IsRunning(ctx, name):
		log.Debug("Database container already running")
	case m.Exists(ctx, name):
		log.Info("Starting existing database container")
		if err := m.Start(ctx, name); err != nil {
			return "", err
		}
	default:
		log.Info("Creating database container")
		if output, err := m.docker(ctx, m.runArgs(id, name, port)...); err != nil {
			return "", newContainerError("create", name, output, err)
		}
	}

	if err := m.waitReady(ctx, name); err != nil {
		return "", err
	}
	return name, nil
}

func (m *Manager) runArgs(id, name string, port int) []string {
	return []string{
		"run", "-d",
		"--name", name,
		"--label", managedLabel,
		"--label", idLabel + "=" + id,
		"-e", "POSTGRES_USER=" + m.cfg.User,
		"-e", "POSTGRES_PASSWORD=" + m.cfg.Password,
		"-e", "POSTGRES_DB=" + m.cfg.Database,
		"-v", name + ":/var/lib/postgresql/data",
		"-p", strconv.Itoa(port) + ":" + strconv.Itoa(m.cfg.InternalPort),
		"--health-cmd", "pg_isready -U " + m.cfg.User,
		"--health-interval", "2s",
		"--health-timeout", "5s",
		"--health-retries", "10",
		m.cfg.Image,
	}
}

// waitReady polls pg_isready at a constant interval for a bounded number of attempts
func (m *Manager) waitReady(ctx context.Context, name string) error {
	attempts := 0
	probe := func() error {
		attempts++
		_, err := m.docker(ctx, "exec", name, "pg_isready", "-U", m.cfg.User)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.cfg.ReadyInterval), uint64(m.cfg.ReadyAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(probe, policy); err != nil {
		return &ContainerError{
			Type:        ErrorTypeNotReady,
			Operation:   "wait for",
			ContainerID: name,
			Message:     fmt.Sprintf("database container %s not ready after %d attempts", name, attempts),
			Underlying:  err,
		}
	}

	logger.WithFields(logger.Fields{"container": name, "attempts": attempts}).Debug("Database ready")
	return nil
}

// RemoveDatabase removes the database container of id and its volume
func (m *Manager) RemoveDatabase(ctx context.Context, id string) RemovalResult {
	return m.RemoveContainer(ctx, m.DBName(id))
}

// RemoveAppContainer removes the app container of id and its volume
func (m *Manager) RemoveAppContainer(ctx context.Context, id string) RemovalResult {
	return m.RemoveContainer(ctx, m.AppName(id))
}

// RemoveContainer stops, removes and drops the volume of a container by name.
// It never returns an error; failures are reported in the result.
func (m *Manager) RemoveContainer(ctx context.Context, name string) RemovalResult {
	log := logger.WithField("container", name)

	if !m.Exists(ctx, name) {
		if err := m.RemoveVolume(ctx, name); err != nil {
			log.WithError(err).Debug("Volume removal failed")
		}
		return RemovalResult{Status: StatusNotFound}
	}

	if m.IsRunning(ctx, name) {
		if err := m.Stop(ctx, name); err != nil {
			log.WithError(err).Warn("Failed to stop container")
		}
	}

	if err := m.Remove(ctx, name); err != nil {
		return RemovalResult{Status: StatusError, Message: GetUserMessage(err)}
	}

	if err := m.RemoveVolume(ctx, name); err != nil {
		log.WithError(err).Warn("Failed to remove volume")
	}

	log.Info("Removed container")
	return RemovalResult{Status: StatusRemoved}
}

// ListDBContainers returns every container named like an environment database
func (m *Manager) ListDBContainers(ctx context.Context) []string {
	var names []string
	for _, name := range m.listNames(ctx, true, "^"+m.DBNamePrefix()) {
		if _, ok := m.ParseDBName(name); ok {
			names = append(names, name)
		}
	}
	return names
}

// IsAvailable reports whether the docker daemon answers
func (m *Manager) IsAvailable(ctx context.Context) error {
	if output, err := m.docker(ctx, "info", "--format", "{{.ServerVersion}}"); err != nil {
		cerr := newContainerError("query", "", output, err)
		cerr.Type = ErrorTypeRuntimeNotFound
		cerr.Message = "docker is not available"
		return cerr
	}
	return nil
}
