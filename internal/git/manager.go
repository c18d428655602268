package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"worktreectl/internal/constants"
	"worktreectl/internal/errors"
	"worktreectl/internal/executor"
	"worktreectl/internal/logger"
	"worktreectl/internal/validation"
)

const remoteName = "origin"

// Worktree is one entry of `git worktree list`
type Worktree struct {
	Path   string `json:"path"`
	Branch string `json:"branch"`
}

// Manager wraps branch and worktree operations for one repository.
// Refs are resolved with go-git; worktree mutations go through the git CLI.
type Manager struct {
	runner   executor.Runner
	repoPath string
}

// New creates a Git manager for the repository containing repoPath
func New(runner executor.Runner, repoPath string) *Manager {
	return &Manager{
		runner:   runner,
		repoPath: repoPath,
	}
}

func (m *Manager) git(ctx context.Context, args ...string) (string, error) {
	return m.runner.Run(ctx, "git", append([]string{"-C", m.repoPath}, args...)...)
}

func (m *Manager) gitSafe(ctx context.Context, args ...string) (string, bool) {
	return m.runner.RunSafe(ctx, "git", append([]string{"-C", m.repoPath}, args...)...)
}

func (m *Manager) open() (*git.Repository, error) {
	return git.PlainOpenWithOptions(m.repoPath, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// refExists resolves a reference with go-git, falling back to the CLI when
// the repository cannot be opened.
func (m *Manager) refExists(ctx context.Context, repo *git.Repository, name plumbing.ReferenceName) bool {
	if repo != nil {
		_, err := repo.Reference(name, true)
		return err == nil
	}
	_, ok := m.gitSafe(ctx, "rev-parse", "--verify", "--quiet", name.String())
	return ok
}

// BranchExists reports whether branch exists locally or on origin
func (m *Manager) BranchExists(ctx context.Context, branch string) bool {
	repo, err := m.open()
	if err != nil {
		logger.WithError(err).Debug("go-git open failed, resolving refs with git CLI")
		repo = nil
	}

	if m.refExists(ctx, repo, plumbing.NewBranchReferenceName(branch)) {
		return true
	}
	return m.refExists(ctx, repo, plumbing.NewRemoteReferenceName(remoteName, branch))
}

// CreateBranch fetches origin and creates branch from source, using the local
// source branch when present and origin/<source> otherwise.
func (m *Manager) CreateBranch(ctx context.Context, branch, source string) error {
	if _, ok := m.gitSafe(ctx, "fetch", remoteName); !ok {
		logger.WithField("remote", remoteName).Warn("Failed to fetch, creating branch from local refs")
	}

	repo, err := m.open()
	if err != nil {
		repo = nil
	}

	base := source
	if !m.refExists(ctx, repo, plumbing.NewBranchReferenceName(source)) {
		base = remoteName + "/" + source
	}

	if _, err := m.git(ctx, "branch", branch, base); err != nil {
		return errors.Wrap(errors.ErrExternalTool, fmt.Sprintf("failed to create branch %s from %s", branch, base), err)
	}

	logger.WithFields(logger.Fields{"branch": branch, "base": base}).Info("Created branch")
	return nil
}

// GetCurrentBranch returns the checked-out branch name
func (m *Manager) GetCurrentBranch(ctx context.Context) (string, error) {
	if repo, err := m.open(); err == nil {
		if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
			return head.Name().Short(), nil
		}
	}

	out, err := m.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.Wrap(errors.ErrExternalTool, "failed to determine current branch", err)
	}
	if out == "HEAD" {
		return "", errors.DetachedHead()
	}
	return out, nil
}

// ListWorktrees returns every worktree git knows about that has a branch checked out
func (m *Manager) ListWorktrees(ctx context.Context) ([]Worktree, error) {
	out, err := m.git(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, errors.Wrap(errors.ErrExternalTool, "failed to list worktrees", err)
	}
	return ParseWorktreeList(out), nil
}

// ParseWorktreeList parses `git worktree list --porcelain` output.
// Records without both a path and a branch (bare, detached) are dropped.
func ParseWorktreeList(output string) []Worktree {
	var worktrees []Worktree
	var current Worktree

	flush := func() {
		if current.Path != "" && current.Branch != "" {
			worktrees = append(worktrees, current)
		}
		current = Worktree{}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "worktree":
			current.Path = value
		case "branch":
			current.Branch = strings.TrimPrefix(value, "refs/heads/")
		}
	}
	flush()

	return worktrees
}

// FindWorktree returns the worktree that has branch checked out, or nil
func (m *Manager) FindWorktree(ctx context.Context, branch string) (*Worktree, error) {
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


// CreateWorktree checks out branch into a new worktree at path
func (m *Manager) CreateWorktree(ctx context.Context, path, branch string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	if _, err := m.git(ctx, "worktree", "add", absPath, branch); err != nil {
		return errors.Wrap(errors.ErrExternalTool, "failed to create worktree", err).
			WithContext("path", absPath)
	}

	logger.WithFields(logger.Fields{"path": absPath, "branch": branch}).Info("Created worktree")
	return nil
}

// RemoveWorktree force-removes the worktree at path. A path git does not
// track is left alone and is not an error.
func (m *Manager) RemoveWorktree(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	worktrees, err := m.ListWorktrees(ctx)
	if err != nil {
		return err
	}

	tracked := false
	for _, wt := range worktrees {
		if samePath(wt.Path, absPath) {
			tracked = true
			break
		}
	}
	if !tracked {
		logger.WithField("path", absPath).Info("Worktree not registered with git, nothing to remove")
		return nil
	}

	if _, err := m.git(ctx, "worktree", "remove", "--force", absPath); err != nil {
		return errors.Wrap(errors.ErrExternalTool, "failed to remove worktree", err).
			WithContext("path", absPath)
	}
	return nil
}

// PruneWorktrees clears git metadata of worktrees whose directories are gone
func (m *Manager) PruneWorktrees(ctx context.Context) error {
	if _, err := m.git(ctx, "worktree", "prune"); err != nil {
		return errors.Wrap(errors.ErrExternalTool, "failed to prune worktrees", err)
	}
	return nil
}

// IsValidBranchName reports whether name is acceptable as a worktree branch
func (m *Manager) IsValidBranchName(name string) bool {
	return validation.IsValidBranchName(name)
}

// CommonDir returns the absolute git common directory, shared by all worktrees
func (m *Manager) CommonDir(ctx context.Context) (string, error) {
	out, err := m.git(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", errors.Wrap(errors.ErrExternalTool, "not a git repository", err)
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(m.repoPath, out)
	}
	return filepath.Clean(out), nil
}

// TopLevel returns the root of the main working tree
func (m *Manager) TopLevel(ctx context.Context) (string, error) {
	commonDir, err := m.CommonDir(ctx)
	if err != nil {
		return "", err
	}
	// the main worktree owns the common dir
	if filepath.Base(commonDir) == ".git" {
		return filepath.Dir(commonDir), nil
	}
	out, err := m.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.Wrap(errors.ErrExternalTool, "failed to resolve repository root", err)
	}
	return out, nil
}

// CanonicalPath returns path made absolute with symlinks resolved, the form
// `git worktree list` prints. Missing trailing components are kept as given
// below the deepest existing ancestor.
func CanonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs
	}
	return filepath.Join(CanonicalPath(parent), filepath.Base(abs))
}

func samePath(a, b string) bool {
	return CanonicalPath(a) == CanonicalPath(b)
}
