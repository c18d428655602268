// Package config loads the user configuration from TOML
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"worktreectl/internal/constants"
	"worktreectl/internal/container"
	"worktreectl/internal/errors"
	"worktreectl/internal/registry"
	"worktreectl/internal/validation"
	"worktreectl/internal/xdg"
)

// EnvConfigPath overrides the config file location
const EnvConfigPath = "WORKTREECTL_CONFIG"

// Config represents the worktreectl configuration
type Config struct {
	Log        LogConfig        `toml:"log" json:"log" yaml:"log"`
	Ports      PortsConfig      `toml:"ports" json:"ports" yaml:"ports"`
	Worktrees  WorktreesConfig  `toml:"worktrees" json:"worktrees" yaml:"worktrees"`
	Containers ContainersConfig `toml:"containers" json:"containers" yaml:"containers"`
	Database   DatabaseConfig   `toml:"database" json:"database" yaml:"database"`
	Server     ServerConfig     `toml:"server" json:"server" yaml:"server"`
	Editor     EditorConfig     `toml:"editor" json:"editor" yaml:"editor"`
	History    HistoryConfig    `toml:"history" json:"history" yaml:"history"`
}

type LogConfig struct {
	Level string `toml:"level" json:"level" yaml:"level"` // debug, info, warn, error
}

// PortsConfig seeds the port ranges of newly created registries
type PortsConfig struct {
	Frontend registry.PortRange `toml:"frontend" json:"frontend" yaml:"frontend"`
	Backend  registry.PortRange `toml:"backend" json:"backend" yaml:"backend"`
	Database registry.PortRange `toml:"database" json:"database" yaml:"database"`
}

type WorktreesConfig struct {
	// BaseDir defaults to <repo>/../<repo name>-worktrees
	BaseDir string `toml:"base_dir" json:"base_dir" yaml:"base_dir"`
}

type ContainersConfig struct {
	Prefix string `toml:"prefix" json:"prefix" yaml:"prefix"`
}

type DatabaseConfig struct {
	Image         string `toml:"image" json:"image" yaml:"image"`
	User          string `toml:"user" json:"user" yaml:"user"`
	Password      string `toml:"password" json:"password" yaml:"password"`
	Name          string `toml:"name" json:"name" yaml:"name"`
	InternalPort  int    `toml:"internal_port" json:"internal_port" yaml:"internal_port"`
	ReadyAttempts int    `toml:"ready_attempts" json:"ready_attempts" yaml:"ready_attempts"`
	ReadyInterval string `toml:"ready_interval" json:"ready_interval" yaml:"ready_interval"` // Go duration, e.g. "1s"
}

type ServerConfig struct {
	Host string `toml:"host" json:"host" yaml:"host"`
	Port int    `toml:"port" json:"port" yaml:"port"`
}

type EditorConfig struct {
	Command string `toml:"command" json:"command" yaml:"command"`
}

type HistoryConfig struct {
	Disabled bool   `toml:"disabled" json:"disabled" yaml:"disabled"`
	Path     string `toml:"path" json:"path" yaml:"path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "warn"},
		Ports: PortsConfig{
			Frontend: registry.PortRange{Min: constants.DefaultFrontendPortMin, Max: constants.DefaultFrontendPortMax},
			Backend:  registry.PortRange{Min: constants.DefaultBackendPortMin, Max: constants.DefaultBackendPortMax},
			Database: registry.PortRange{Min: constants.DefaultDatabasePortMin, Max: constants.DefaultDatabasePortMax},
		},
		Containers: ContainersConfig{Prefix: constants.DefaultContainerPrefix},
		Database: DatabaseConfig{
			Image:         constants.DefaultDatabaseImage,
			User:          constants.DefaultDatabaseUser,
			Password:      constants.DefaultDatabasePassword,
			Name:          constants.DefaultDatabaseName,
			InternalPort:  constants.DefaultDatabasePort,
			ReadyAttempts: constants.DefaultReadyAttempts,
			ReadyInterval: constants.DefaultReadyInterval.String(),
		},
		Server: ServerConfig{
			Host: constants.DefaultServerHost,
			Port: constants.DefaultServerPort,
		},
		Editor: EditorConfig{Command: "code"},
	}
}

// GetConfigDir returns the XDG config directory for worktreectl
func GetConfigDir() (string, error) {
	return xdg.ConfigDir()
}

// Path returns the config file location, honouring WORKTREECTL_CONFIG
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads the configuration from the default location
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration at path. A missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		config := DefaultConfig()
		if err := expandPaths(config); err != nil {
			return nil, err
		}
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrFileRead, "Failed to read configuration", err).WithContext("path", path)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.ConfigParseError(path, err)
	}

	applyDefaults(&config)

	if err := expandPaths(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills every field left empty in the file
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
	if config.Ports.Frontend == (registry.PortRange{}) {
		config.Ports.Frontend = defaults.Ports.Frontend
	}
	if config.Ports.Backend == (registry.PortRange{}) {
		config.Ports.Backend = defaults.Ports.Backend
	}
	if config.Ports.Database == (registry.PortRange{}) {
		config.Ports.Database = defaults.Ports.Database
	}
	if config.Containers.Prefix == "" {
		config.Containers.Prefix = defaults.Containers.Prefix
	}
	if config.Database.Image == "" {
		config.Database.Image = defaults.Database.Image
	}
	if config.Database.User == "" {
		config.Database.User = defaults.Database.User
	}
	if config.Database.Password == "" {
		config.Database.Password = defaults.Database.Password
	}
	if config.Database.Name == "" {
		config.Database.Name = defaults.Database.Name
	}
	if config.Database.InternalPort == 0 {
		config.Database.InternalPort = defaults.Database.InternalPort
	}
	if config.Database.ReadyAttempts == 0 {
		config.Database.ReadyAttempts = defaults.Database.ReadyAttempts
	}
	if config.Database.ReadyInterval == "" {
		config.Database.ReadyInterval = defaults.Database.ReadyInterval
	}
	if config.Server.Host == "" {
		config.Server.Host = defaults.Server.Host
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Editor.Command == "" {
		config.Editor.Command = defaults.Editor.Command
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	ranges := map[string]registry.PortRange{
		"ports.frontend": c.Ports.Frontend,
		"ports.backend":  c.Ports.Backend,
		"ports.database": c.Ports.Database,
	}
	for field, r := range ranges {
		if err := validation.PortRange(field, r.Min, r.Max); err != nil {
			return err
		}
	}

	if err := validation.ContainerPrefix(c.Containers.Prefix); err != nil {
		return err
	}
	if c.Database.ReadyAttempts < 1 {
		return errors.ConfigInvalid("database.ready_attempts must be at least 1")
	}
	if _, err := time.ParseDuration(c.Database.ReadyInterval); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("database.ready_interval: %v", err))
	}
	if c.Server.Port < constants.MinPortNumber || c.Server.Port > constants.MaxPortNumber {
		return errors.ConfigInvalid(fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}
	return nil
}

// Save writes the configuration to path
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, constants.FilePermissions)
}

// PortRanges returns the configured ranges keyed by service type
func (c *Config) PortRanges() map[registry.ServiceType]registry.PortRange {
	return map[registry.ServiceType]registry.PortRange{
		registry.Frontend: c.Ports.Frontend,
		registry.Backend:  c.Ports.Backend,
		registry.Database: c.Ports.Database,
	}
}

// ContainerConfig returns the container adapter settings
func (c *Config) ContainerConfig() container.Config {
	interval, err := time.ParseDuration(c.Database.ReadyInterval)
	if err != nil {
		interval = constants.DefaultReadyInterval
	}
	return container.Config{
		Prefix:        c.Containers.Prefix,
		Image:         c.Database.Image,
		User:          c.Database.User,
		Password:      c.Database.Password,
		Database:      c.Database.Name,
		InternalPort:  c.Database.InternalPort,
		ReadyAttempts: c.Database.ReadyAttempts,
		ReadyInterval: interval,
	}
}

// expandPaths expands tilde paths in the configuration
func expandPaths(config *Config) error {
	if !strings.HasPrefix(config.Worktrees.BaseDir, "~/") && !strings.HasPrefix(config.History.Path, "~/") {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if strings.HasPrefix(config.Worktrees.BaseDir, "~/") {
		config.Worktrees.BaseDir = filepath.Join(homeDir, config.Worktrees.BaseDir[2:])
	}
	if strings.HasPrefix(config.History.Path, "~/") {
		config.History.Path = filepath.Join(homeDir, config.History.Path[2:])
	}
	return nil
}
