// Package registry persists the set of known environments as a single JSON
// document. Every mutation is a read-modify-write of the whole file with no
// locking, so concurrent invocations resolve as last-writer-wins.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"worktreectl/internal/constants"
	"worktreectl/internal/errors"
	"worktreectl/internal/logger"
)

// Store reads and writes the registry file
type Store struct {
	path     string
	defaults Settings
	now      func() time.Time
}

// NewStore creates a store for the file at path. defaults seed new files and
// fill settings missing from older ones.
func NewStore(path string, defaults Settings) *Store {
	if defaults.PortRanges == nil {
		defaults.PortRanges = DefaultPortRanges()
	}
	return &Store{
		path:     path,
		defaults: defaults,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Path returns the registry file location
func (s *Store) Path() string {
	return s.path
}

// Init creates the registry file if absent, otherwise loads it and rewrites
// it when legacy fields had to be filled in.
func (s *Store) Init() (*Registry, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		reg := &Registry{
			Worktrees: []Environment{},
			Settings:  s.copyDefaults(),
		}
		if err := s.Save(reg); err != nil {
			return nil, err
		}
		logger.WithField("path", s.path).Info("Created worktree registry")
		return reg, nil
	}

	reg, migrated, err := s.load()
	if err != nil {
		return nil, err
	}
	if migrated {
		if err := s.Save(reg); err != nil {
			return nil, err
		}
		logger.WithField("path", s.path).Info("Migrated worktree registry settings")
	}
	return reg, nil
}

// Load reads the whole registry. A missing file yields an empty registry.
func (s *Store) Load() (*Registry, error) {
	reg, _, err := s.load()
	return reg, err
}

func (s *Store) load() (*Registry, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Registry{Worktrees: []Environment{}, Settings: s.copyDefaults()}, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrFileRead, "Failed to read registry", err).
			WithContext("path", s.path)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, false, errors.Wrap(errors.ErrJSONUnmarshal, "Failed to parse registry", err).
			WithContext("path", s.path)
	}

	migrated := s.migrate(&reg)
	return &reg, migrated, nil
}

// migrate fills fields older registry files lack. Reports whether anything changed.
func (s *Store) migrate(reg *Registry) bool {
	changed := false

	if reg.Worktrees == nil {
		reg.Worktrees = []Environment{}
	}
	if reg.Settings.WorktreeBaseDir == "" && s.defaults.WorktreeBaseDir != "" {
		reg.Settings.WorktreeBaseDir = s.defaults.WorktreeBaseDir
		changed = true
	}
	if reg.Settings.PortRanges == nil {
		reg.Settings.PortRanges = make(map[ServiceType]PortRange)
	}
	for _, t := range ServiceTypes {
		r, ok := reg.Settings.PortRanges[t]
		if !ok || r.Min == 0 || r.Max == 0 {
			reg.Settings.PortRanges[t] = s.defaults.PortRanges[t]
			changed = true
		}
	}

	legacy := PortRange{Min: constants.LegacyDatabasePortMin, Max: constants.LegacyDatabasePortMax}
	if reg.Settings.PortRanges[Database] == legacy {
		reg.Settings.PortRanges[Database] = s.defaults.PortRanges[Database]
		changed = true
	}

	return changed
}

// Save writes the whole registry with 2-space indentation and a trailing newline
func (s *Store) Save(reg *Registry) error {
	if reg.Worktrees == nil {
		reg.Worktrees = []Environment{}
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrJSONMarshal, "Failed to encode registry", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), constants.DirPermissions); err != nil {
		return errors.Wrap(errors.ErrFileWrite, "Failed to create registry directory", err).
			WithContext("path", s.path)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return errors.Wrap(errors.ErrFileWrite, "Failed to write registry", err).
			WithContext("path", s.path)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new registry
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(constants.FilePermissions); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Add registers a new environment, stamping createdAt and lastAccessed.
// A duplicate id or branch is a CONFLICT and leaves the file untouched.
func (s *Store) Add(env Environment) (*Environment, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}

	if reg.find(env.ID) >= 0 {
		return nil, errors.DuplicateID(env.ID)
	}
	if reg.findBranch(env.Branch) >= 0 {
		return nil, errors.DuplicateBranch(env.Branch)
	}

	now := s.now().UTC()
	env.CreatedAt = now
	env.LastAccessed = now
	reg.Worktrees = append(reg.Worktrees, env)

	if err := s.Save(reg); err != nil {
		return nil, err
	}
	return &env, nil
}

// Update applies mutate to the environment with the given id and refreshes
// lastAccessed. The id itself cannot be changed.
func (s *Store) Update(id string, mutate func(*Environment)) (*Environment, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}

	i := reg.find(id)
	if i < 0 {
		return nil, errors.WorktreeNotFound(id)
	}

	env := reg.Worktrees[i]
	if mutate != nil {
		mutate(&env)
	}
	env.ID = id
	env.LastAccessed = s.now().UTC()
	reg.Worktrees[i] = env

	if err := s.Save(reg); err != nil {
		return nil, err
	}
	return &env, nil
}

// Remove deletes the environment with the given id. found is false when it
// was not registered, which is not an error.
func (s *Store) Remove(id string) (removed *Environment, found bool, err error) {
	reg, err := s.Load()
	if err != nil {
		return nil, false, err
	}

	i := reg.find(id)
	if i < 0 {
		return nil, false, nil
	}

	env := reg.Worktrees[i]
	reg.Worktrees = append(reg.Worktrees[:i], reg.Worktrees[i+1:]...)

	if err := s.Save(reg); err != nil {
		return nil, false, err
	}
	return &env, true, nil
}

// Get returns the environment with the given id
func (s *Store) Get(id string) (*Environment, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	if i := reg.find(id); i >= 0 {
		env := reg.Worktrees[i]
		return &env, nil
	}
	return nil, errors.WorktreeNotFound(id)
}

// FindByBranch returns the environment registered for branch
func (s *Store) FindByBranch(branch string) (*Environment, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	if i := reg.findBranch(branch); i >= 0 {
		env := reg.Worktrees[i]
		return &env, nil
	}
	return nil, errors.WorktreeNotFound(branch).WithContext("branch", branch)
}

// GetUsedPorts returns every registered port of a service type
func (s *Store) GetUsedPorts(t ServiceType) ([]int, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}

	ports := make([]int, 0, len(reg.Worktrees))
	for _, env := range reg.Worktrees {
		if p := env.Ports.Get(t); p != 0 {
			ports = append(ports, p)
		}
	}
	return ports, nil
}

// ListAll returns every registered environment
func (s *Store) ListAll() ([]Environment, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return reg.Worktrees, nil
}

// Settings returns the persisted allocation settings
func (s *Store) Settings() (Settings, error) {
	reg, err := s.Load()
	if err != nil {
		return Settings{}, err
	}
	return reg.Settings, nil
}

func (s *Store) copyDefaults() Settings {
	ranges := make(map[ServiceType]PortRange, len(s.defaults.PortRanges))
	for k, v := range s.defaults.PortRanges {
		ranges[k] = v
	}
	return Settings{
		WorktreeBaseDir: s.defaults.WorktreeBaseDir,
		PortRanges:      ranges,
	}
}
