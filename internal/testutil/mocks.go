package testutil

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"worktreectl/internal/container"
	"worktreectl/internal/git"
	"worktreectl/internal/validation"
)

// callRecorder tracks method calls and injected errors for the fakes below
type callRecorder struct {
	mu     sync.RWMutex
	calls  map[string][]interface{}
	errors map[string]error
}

// SetError sets an error to be returned for a specific method
func (r *callRecorder) SetError(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errors == nil {
		r.errors = make(map[string]error)
	}
	r.errors[method] = err
}

// GetCalls returns the arguments of every call made to a method
func (r *callRecorder) GetCalls(method string) []interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]interface{}(nil), r.calls[method]...)
}

// CallCount returns how many times a method was called
func (r *callRecorder) CallCount(method string) int {
	return len(r.GetCalls(method))
}

func (r *callRecorder) record(method string, arg interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string][]interface{})
	}
	r.calls[method] = append(r.calls[method], arg)
	return r.errors[method]
}

// MockGit is an in-memory git adapter. Worktree creation and removal also
// touch the filesystem so path checks behave as with real git.
type MockGit struct {
	callRecorder
	stateMu       sync.Mutex
	Branches      map[string]bool
	Worktrees     []git.Worktree
	CurrentBranch string
}

// NewMockGit creates a fake repository with a main branch checked out
func NewMockGit() *MockGit {
	return &MockGit{
		Branches:      map[string]bool{"main": true},
		CurrentBranch: "main",
	}
}

// AddWorktree registers a worktree as if git tracked it
func (m *MockGit) AddWorktree(path, branch string) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.Worktrees = append(m.Worktrees, git.Worktree{Path: path, Branch: branch})
	m.Branches[branch] = true
}

func (m *MockGit) BranchExists(ctx context.Context, branch string) bool {
	m.record("BranchExists", branch)
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.Branches[branch]
}

func (m *MockGit) CreateBranch(ctx context.Context, branch, source string) error {
	if err := m.record("CreateBranch", []string{branch, source}); err != nil {
		return err
	}
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.Branches[branch] = true
	return nil
}

func (m *MockGit) GetCurrentBranch(ctx context.Context) (string, error) {
	if err := m.record("GetCurrentBranch", nil); err != nil {
		return "", err
	}
	return m.CurrentBranch, nil
}

func (m *MockGit) ListWorktrees(ctx context.Context) ([]git.Worktree, error) {
	if err := m.record("ListWorktrees", nil); err != nil {
		return nil, err
	}
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return append([]git.Worktree(nil), m.Worktrees...), nil
}

func (m *MockGit) FindWorktree(ctx context.Context, branch string) (*git.Worktree, error) {
	worktrees, err := m.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}
	for i := range worktrees {
		if worktrees[i].Branch == branch {
			return &worktrees[i], nil
		}
	}
	return nil, nil
}

func (m *MockGit) CreateWorktree(ctx context.Context, path, branch string) error {
	if err := m.record("CreateWorktree", []string{path, branch}); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}
	m.AddWorktree(path, branch)
	return nil
}

func (m *MockGit) RemoveWorktree(ctx context.Context, path string) error {
	if err := m.record("RemoveWorktree", path); err != nil {
		return err
	}
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	for i, wt := range m.Worktrees {
		if git.CanonicalPath(wt.Path) == git.CanonicalPath(path) {
			m.Worktrees = append(m.Worktrees[:i], m.Worktrees[i+1:]...)
			return os.RemoveAll(path)
		}
	}
	return nil
}

func (m *MockGit) PruneWorktrees(ctx context.Context) error {
	return m.record("PruneWorktrees", nil)
}

func (m *MockGit) IsValidBranchName(name string) bool {
	return validation.IsValidBranchName(name)
}

// MockContainers is an in-memory container adapter keyed by container name
type MockContainers struct {
	callRecorder
	container.Naming
	stateMu sync.Mutex
	// Running maps existing container names to their running state
	Running map[string]bool
	// Results overrides the removal result for a container name
	Results map[string]container.RemovalResult
}

// NewMockContainers creates an empty fake engine using the default prefix
func NewMockContainers() *MockContainers {
	return &MockContainers{
		Naming:  container.Naming{Prefix: "wt-"},
		Running: make(map[string]bool),
		Results: make(map[string]container.RemovalResult),
	}
}

// Add registers an existing container
func (m *MockContainers) Add(name string, running bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.Running[name] = running
}

// Has reports whether a container exists
func (m *MockContainers) Has(name string) bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	_, ok := m.Running[name]
	return ok
}

func (m *MockContainers) IsRunning(ctx context.Context, name string) bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.Running[name]
}

func (m *MockContainers) IsAvailable(ctx context.Context) error {
	return m.record("IsAvailable", nil)
}

func (m *MockContainers) StartDatabase(ctx context.Context, id string, port int) (string, error) {
	if err := m.record("StartDatabase", []interface{}{id, port}); err != nil {
		return "", err
	}
	name := m.DBName(id)
	m.Add(name, true)
	return name, nil
}

func (m *MockContainers) RemoveDatabase(ctx context.Context, id string) container.RemovalResult {
	return m.RemoveContainer(ctx, m.DBName(id))
}

func (m *MockContainers) RemoveAppContainer(ctx context.Context, id string) container.RemovalResult {
	return m.RemoveContainer(ctx, m.AppName(id))
}

func (m *MockContainers) RemoveContainer(ctx context.Context, name string) container.RemovalResult {
	m.record("RemoveContainer", name)

	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if result, ok := m.Results[name]; ok {
		return result
	}
	if _, ok := m.Running[name]; !ok {
		return container.RemovalResult{Status: container.StatusNotFound}
	}
	delete(m.Running, name)
	return container.RemovalResult{Status: container.StatusRemoved}
}

func (m *MockContainers) ListDBContainers(ctx context.Context) []string {
	m.record("ListDBContainers", nil)

	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	var names []string
	for name := range m.Running {
		if _, ok := m.ParseDBName(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns every existing container name, sorted
func (m *MockContainers) Names() []string {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	names := make([]string, 0, len(m.Running))
	for name := range m.Running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MockPrompter is a testify mock of prompt.Prompter
type MockPrompter struct {
	mock.Mock
}

func (m *MockPrompter) Confirm(title string) (bool, error) {
	args := m.Called(title)
	return args.Bool(0), args.Error(1)
}

func (m *MockPrompter) Input(title, placeholder string) (string, error) {
	args := m.Called(title, placeholder)
	return args.String(0), args.Error(1)
}
