//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"worktreectl/internal/cleanup"
	"worktreectl/internal/executor"
	"worktreectl/internal/git"
	"worktreectl/internal/ports"
	"worktreectl/internal/prompt"
	"worktreectl/internal/reconcile"
	"worktreectl/internal/registry"
	"worktreectl/internal/setup"
	"worktreectl/internal/testutil"
)

// LifecycleTestSuite drives setup, sync and cleanup against a real git
// repository. Containers are faked so Docker is not required.
type LifecycleTestSuite struct {
	suite.Suite
	repoPath   string
	baseDir    string
	gitMgr     *git.Manager
	store      *registry.Store
	containers *testutil.MockContainers
	out        *bytes.Buffer
}

func TestLifecycleSuite(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	suite.Run(t, new(LifecycleTestSuite))
}

func (s *LifecycleTestSuite) SetupTest() {
	root := s.T().TempDir()
	s.repoPath = filepath.Join(root, "app")
	s.baseDir = filepath.Join(root, "app-worktrees")
	s.Require().NoError(os.MkdirAll(s.repoPath, 0755))

	s.git("init", "-b", "main")
	s.git("config", "user.email", "dev@example.com")
	s.git("config", "user.name", "Dev")
	s.Require().NoError(os.WriteFile(filepath.Join(s.repoPath, "README.md"), []byte("# app\n"), 0644))
	s.git("add", "README.md")
	s.git("commit", "-m", "initial")

	runner := executor.New(nil)
	s.gitMgr = git.New(runner, s.repoPath)

	commonDir, err := s.gitMgr.CommonDir(context.Background())
	s.Require().NoError(err)
	s.store = registry.NewStore(filepath.Join(commonDir, "worktreectl", "registry.json"), registry.DefaultSettings(s.baseDir))
	_, err = s.store.Init()
	s.Require().NoError(err)

	s.containers = testutil.NewMockContainers()
	s.out = &bytes.Buffer{}
}

// useBaseDir points the registry at a different worktree base dir
func (s *LifecycleTestSuite) useBaseDir(baseDir string) {
	commonDir, err := s.gitMgr.CommonDir(context.Background())
	s.Require().NoError(err)
	s.store = registry.NewStore(filepath.Join(commonDir, "worktreectl", "registry.json"), registry.DefaultSettings(baseDir))
	s.Require().NoError(s.store.Save(&registry.Registry{Settings: registry.DefaultSettings(baseDir)}))
}

// assertSyncKeeps runs a forced sync and checks that env survives it
func (s *LifecycleTestSuite) assertSyncKeeps(env *registry.Environment) {
	ctx := context.Background()
	engine := reconcile.NewEngine(s.store, s.gitMgr, s.containers, &prompt.Static{}, s.out)
	report, err := engine.Analyze(ctx)
	s.Require().NoError(err)
	s.Empty(report.Orphaned)

	_, err = engine.Run(ctx, reconcile.Options{Force: true})
	s.Require().NoError(err)

	stored, err := s.store.Get(env.ID)
	s.Require().NoError(err)
	s.Equal(env.Path, stored.Path)
	s.Contains(s.containers.Names(), env.DBContainerName)
}

// assertCleanupRemoves runs cleanup --all and checks the worktree is gone from git
func (s *LifecycleTestSuite) assertCleanupRemoves(env *registry.Environment) {
	ctx := context.Background()
	cleaner := cleanup.NewCleaner(s.store, s.gitMgr, s.containers, &prompt.Static{}, s.out)
	_, err := cleaner.Run(ctx, cleanup.Options{All: true, Force: true})
	s.Require().NoError(err)

	s.NoDirExists(env.Path)
	wt, err := s.gitMgr.FindWorktree(ctx, env.Branch)
	s.Require().NoError(err)
	s.Nil(wt)
}

func (s *LifecycleTestSuite) TestRelativeBaseDir() {
	s.T().Chdir(s.repoPath)
	s.useBaseDir("../app-worktrees")

	env := s.setup("feature/a")
	s.True(filepath.IsAbs(env.Path))
	s.Equal(git.CanonicalPath(filepath.Join(s.baseDir, "feature-a")), env.Path)

	s.assertSyncKeeps(env)
	s.assertCleanupRemoves(env)
}

func (s *LifecycleTestSuite) TestSymlinkedBaseDir() {
	target := filepath.Join(filepath.Dir(s.repoPath), "target-worktrees")
	s.Require().NoError(os.MkdirAll(target, 0755))
	link := filepath.Join(filepath.Dir(s.repoPath), "linked-worktrees")
	s.Require().NoError(os.Symlink(target, link))
	s.useBaseDir(link)

	env := s.setup("feature/b")
	resolved, err := filepath.EvalSymlinks(filepath.Join(target, "feature-b"))
	s.Require().NoError(err)
	s.Equal(resolved, env.Path)

	s.assertSyncKeeps(env)
	s.assertCleanupRemoves(env)
}

func (s *LifecycleTestSuite) git(args ...string) {
	cmd := exec.Command("git", append([]string{"-C", s.repoPath}, args...)...)
	out, err := cmd.CombinedOutput()
	s.Require().NoError(err, string(out))
}

func (s *LifecycleTestSuite) setup(branch string) *registry.Environment {
	o := setup.New(s.store, s.gitMgr, ports.NewAllocator(s.store), s.containers,
		setup.NewDescriptorWriter("postgres", "postgres", "app"), nil)
	env, err := o.Setup(context.Background(), setup.Request{Branch: branch})
	s.Require().NoError(err)
	return env
}

func (s *LifecycleTestSuite) TestSetupCreatesTrackedWorktree() {
	ctx := context.Background()
	env := s.setup("feature/login")

	s.Equal(git.CanonicalPath(filepath.Join(s.baseDir, "feature-login")), env.Path)
	s.Equal("main", env.SourceBranch)
	s.DirExists(env.Path)
	s.FileExists(filepath.Join(env.Path, ".worktreectl.yaml"))
	s.True(s.gitMgr.BranchExists(ctx, "feature/login"))

	wt, err := s.gitMgr.FindWorktree(ctx, "feature/login")
	s.Require().NoError(err)
	s.Require().NotNil(wt)
	s.Equal(env.Path, wt.Path)

	// a second setup of the same branch is rejected before anything is created
	o := setup.New(s.store, s.gitMgr, ports.NewAllocator(s.store), s.containers, nil, nil)
	_, err = o.Setup(ctx, setup.Request{Branch: "feature/login"})
	s.Error(err)
}

func (s *LifecycleTestSuite) TestSyncRemovesDeletedWorktree() {
	ctx := context.Background()
	kept := s.setup("feature/kept")
	gone := s.setup("feature/gone")
	s.Require().NoError(os.RemoveAll(gone.Path))

	engine := reconcile.NewEngine(s.store, s.gitMgr, s.containers, &prompt.Static{}, s.out)
	result, err := engine.Run(ctx, reconcile.Options{Force: true})
	s.Require().NoError(err)
	s.Require().Len(result.Report.Orphaned, 1)
	s.Equal(reconcile.ReasonPathMissing, result.Report.Orphaned[0].Reason)

	envs, err := s.store.ListAll()
	s.Require().NoError(err)
	s.Require().Len(envs, 1)
	s.Equal(kept.ID, envs[0].ID)

	// prune dropped git's record of the deleted worktree
	worktrees, err := s.gitMgr.ListWorktrees(ctx)
	s.Require().NoError(err)
	for _, wt := range worktrees {
		s.NotEqual("feature/gone", wt.Branch)
	}
}

func (s *LifecycleTestSuite) TestCleanupAllRemovesWorktrees() {
	ctx := context.Background()
	a := s.setup("feature/a")
	b := s.setup("feature/b")

	cleaner := cleanup.NewCleaner(s.store, s.gitMgr, s.containers, &prompt.Static{}, s.out)
	result, err := cleaner.Run(ctx, cleanup.Options{All: true, Force: true})
	s.Require().NoError(err)
	s.Equal(2, result.Removed())

	s.NoDirExists(a.Path)
	s.NoDirExists(b.Path)
	s.Empty(s.containers.Names())

	worktrees, err := s.gitMgr.ListWorktrees(ctx)
	s.Require().NoError(err)
	s.Len(worktrees, 1, "only the main worktree remains")
}
