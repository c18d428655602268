package registry

import (
	"time"

	"worktreectl/internal/constants"
)

// ServiceType is one of the port-reserving services of an environment
type ServiceType string

const (
	Frontend ServiceType = "frontend"
	Backend  ServiceType = "backend"
	Database ServiceType = "database"
)

// ServiceTypes lists every service type in allocation order
var ServiceTypes = []ServiceType{Frontend, Backend, Database}

// StatusActive marks an environment created by setup
const StatusActive = "active"

// PortRange is an inclusive port interval
type PortRange struct {
	Min int `json:"min" toml:"min" yaml:"min"`
	Max int `json:"max" toml:"max" yaml:"max"`
}

// Contains reports whether port lies in the range
func (r PortRange) Contains(port int) bool {
	return port >= r.Min && port <= r.Max
}

// Ports holds one port per service type
type Ports struct {
	Frontend int `json:"frontend" yaml:"frontend"`
	Backend  int `json:"backend" yaml:"backend"`
	Database int `json:"database" yaml:"database"`
}

// Get returns the port of a service type
func (p Ports) Get(t ServiceType) int {
	switch t {
	case Frontend:
		return p.Frontend
	case Backend:
		return p.Backend
	case Database:
		return p.Database
	}
	return 0
}

// Set assigns the port of a service type
func (p *Ports) Set(t ServiceType, port int) {
	switch t {
	case Frontend:
		p.Frontend = port
	case Backend:
		p.Backend = port
	case Database:
		p.Database = port
	}
}

// Environment is one registered worktree
type Environment struct {
	ID               string    `json:"id" yaml:"id"`
	Branch           string    `json:"branch" yaml:"branch"`
	SourceBranch     string    `json:"sourceBranch" yaml:"sourceBranch"`
	Path             string    `json:"path" yaml:"path"`
	Ports            Ports     `json:"ports" yaml:"ports"`
	DBContainerName  string    `json:"dbContainerName" yaml:"dbContainerName"`
	AppContainerName string    `json:"appContainerName" yaml:"appContainerName"`
	Status           string    `json:"status" yaml:"status"`
	CreatedAt        time.Time `json:"createdAt" yaml:"createdAt"`
	LastAccessed     time.Time `json:"lastAccessed" yaml:"lastAccessed"`
}

// Settings holds allocation settings persisted with the registry
type Settings struct {
	WorktreeBaseDir string                    `json:"worktreeBaseDir"`
	PortRanges      map[ServiceType]PortRange `json:"portRanges,omitempty"`
}

// Registry is the whole persisted document
type Registry struct {
	Worktrees []Environment `json:"worktrees"`
	Settings  Settings      `json:"settings"`
}

// DefaultPortRanges returns the built-in port ranges
func DefaultPortRanges() map[ServiceType]PortRange {
	return map[ServiceType]PortRange{
		Frontend: {Min: constants.DefaultFrontendPortMin, Max: constants.DefaultFrontendPortMax},
		Backend:  {Min: constants.DefaultBackendPortMin, Max: constants.DefaultBackendPortMax},
		Database: {Min: constants.DefaultDatabasePortMin, Max: constants.DefaultDatabasePortMax},
	}
}

// DefaultSettings returns settings for a fresh registry
func DefaultSettings(worktreeBaseDir string) Settings {
	return Settings{
		WorktreeBaseDir: worktreeBaseDir,
		PortRanges:      DefaultPortRanges(),
	}
}

func (r *Registry) find(id string) int {
	for i := range r.Worktrees {
		if r.Worktrees[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) findBranch(branch string) int {
	for i := range r.Worktrees {
		if r.Worktrees[i].Branch == branch {
			return i
		}
	}
	return -1
}
