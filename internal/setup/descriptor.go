package setup

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"worktreectl/internal/constants"
	"worktreectl/internal/errors"
	"worktreectl/internal/registry"
)

// Descriptor is written into each worktree so app tooling can find its
// ports and database without reading the registry.
type Descriptor struct {
	ID           string         `yaml:"id"`
	Branch       string         `yaml:"branch"`
	SourceBranch string         `yaml:"sourceBranch"`
	Ports        registry.Ports `yaml:"ports"`
	Database     DatabaseInfo   `yaml:"database"`
	AppContainer string         `yaml:"appContainer"`
}

// DatabaseInfo describes how to reach the environment database from the host
type DatabaseInfo struct {
	Container string `yaml:"container"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
}

// Scaffolder writes per-environment files into a fresh worktree
type Scaffolder interface {
	Scaffold(env registry.Environment) error
}

// DescriptorWriter writes the .worktreectl.yaml descriptor
type DescriptorWriter struct {
	User     string
	Password string
	Database string
}

func NewDescriptorWriter(user, password, database string) *DescriptorWriter {
	return &DescriptorWriter{User: user, Password: password, Database: database}
}

// NewDescriptor builds the descriptor of env
func (w *DescriptorWriter) NewDescriptor(env registry.Environment) Descriptor {
	return Descriptor{
		ID:           env.ID,
		Branch:       env.Branch,
		SourceBranch: env.SourceBranch,
		Ports:        env.Ports,
		AppContainer: env.AppContainerName,
		Database: DatabaseInfo{
			Container: env.DBContainerName,
			Host:      "localhost",
			Port:      env.Ports.Database,
			User:      w.User,
			Name:      w.Database,
			URL: fmt.Sprintf("postgres://%s:%s@localhost:%d/%s",
				w.User, w.Password, env.Ports.Database, w.Database),
		},
	}
}

func (w *DescriptorWriter) Scaffold(env registry.Environment) error {
	data, err := yaml.Marshal(w.NewDescriptor(env))
	if err != nil {
		return errors.Wrap(errors.ErrInternal, "Failed to encode environment descriptor", err)
	}

	path := filepath.Join(env.Path, constants.DescriptorFileName)
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.Wrap(errors.ErrFileWrite, "Failed to write environment descriptor", err).
			WithContext("path", path)
	}
	return nil
}

// ReadDescriptor loads the descriptor from a worktree
func ReadDescriptor(worktreePath string) (*Descriptor, error) {
	path := filepath.Join(worktreePath, constants.DescriptorFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrFileRead, "Failed to read environment descriptor", err).
			WithContext("path", path)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.ConfigParseError(path, err)
	}
	return &d, nil
}
