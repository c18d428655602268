package reconcile_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"worktreectl/internal/container"
	"worktreectl/internal/errors"
	"worktreectl/internal/reconcile"
	"worktreectl/internal/registry"
	"worktreectl/internal/testutil"
)

type fixture struct {
	base       string
	store      *registry.Store
	git        *testutil.MockGit
	containers *testutil.MockContainers
	prompter   *testutil.MockPrompter
	out        *bytes.Buffer
	engine     *reconcile.Engine
}

// newFixture registers three environments:
//
//	healthy:  on disk and tracked by git
//	gone:     tracked by git but missing on disk
//	untracked: on disk but unknown to git
//
// plus database containers for healthy and gone and a stale one for ghost.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		base:       base,
		store:      testutil.NewRegistry(t, base),
		git:        testutil.NewMockGit(),
		containers: testutil.NewMockContainers(),
		prompter:   &testutil.MockPrompter{},
		out:        &bytes.Buffer{},
	}

	healthy := filepath.Join(base, "healthy")
	untracked := filepath.Join(base, "untracked")
	require.NoError(t, os.MkdirAll(healthy, 0755))
	require.NoError(t, os.MkdirAll(untracked, 0755))

	f.git.AddWorktree(healthy, "healthy")
	f.git.AddWorktree(filepath.Join(base, "gone"), "gone")

	for i, id := range []string{"healthy", "gone", "untracked"} {
		ports := registry.Ports{Frontend: 5173 + i, Backend: 3001 + i, Database: 7432 + i}
		_, err := f.store.Add(testutil.Environment(id, id, filepath.Join(base, id), ports))
		require.NoError(t, err)
	}

	f.containers.Add("db-wt-healthy", true)
	f.containers.Add("db-wt-gone", false)
	f.containers.Add("db-wt-ghost", true)
	f.containers.Add("app-wt-ghost", true)

	f.engine = reconcile.NewEngine(f.store, f.git, f.containers, f.prompter, f.out)
	return f
}

func (f *fixture) ids(t *testing.T) []string {
	t.Helper()
	envs, err := f.store.ListAll()
	require.NoError(t, err)
	ids := make([]string, 0, len(envs))
	for _, env := range envs {
		ids = append(ids, env.ID)
	}
	return ids
}

func TestEngine_Analyze(t *testing.T) {
	f := newFixture(t)

	report, err := f.engine.Analyze(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Orphaned, 2)
	assert.Equal(t, "gone", report.Orphaned[0].Environment.ID)
	assert.Equal(t, reconcile.ReasonPathMissing, report.Orphaned[0].Reason)
	assert.Equal(t, "untracked", report.Orphaned[1].Environment.ID)
	assert.Equal(t, reconcile.ReasonNotTracked, report.Orphaned[1].Reason)

	assert.Equal(t, []reconcile.StaleContainer{{Name: "db-wt-ghost", ID: "ghost"}}, report.Stale)
	assert.Equal(t, 3, report.Total())
}

func TestEngine_PathMissingTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	// gone is neither on disk nor tracked
	f.git.Worktrees = f.git.Worktrees[:1]

	report, err := f.engine.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconcile.ReasonPathMissing, report.Orphaned[0].Reason)
}

func TestEngine_DryRunChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	worktreesBefore, _ := f.git.ListWorktrees(ctx)
	containersBefore := f.containers.Names()

	result, err := f.engine.Run(ctx, reconcile.Options{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Empty(t, result.Outcomes)

	after, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	worktreesAfter, _ := f.git.ListWorktrees(ctx)

	assert.Equal(t, before, after)
	assert.Equal(t, worktreesBefore, worktreesAfter)
	assert.Equal(t, containersBefore, f.containers.Names())
	assert.Zero(t, f.git.CallCount("PruneWorktrees"))
	f.prompter.AssertNotCalled(t, "Confirm", mock.Anything)

	assert.Contains(t, f.out.String(), "Orphaned registry entries: 2")
	assert.Contains(t, f.out.String(), "Stale database containers: 1")
	assert.Contains(t, f.out.String(), "Dry run")
}

func TestEngine_ForceRemovesDrift(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.Run(context.Background(), reconcile.Options{Force: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"healthy"}, f.ids(t))
	assert.Equal(t, []string{"app-wt-ghost", "db-wt-healthy"}, f.containers.Names())
	assert.Equal(t, 1, f.git.CallCount("PruneWorktrees"))
	assert.Len(t, result.Outcomes, 3)
	assert.Zero(t, result.Failed())
	f.prompter.AssertNotCalled(t, "Confirm", mock.Anything)

	// report precedes the summary even when forced
	out := f.out.String()
	assert.Less(t, bytes.Index([]byte(out), []byte("Orphaned registry entries")), bytes.Index([]byte(out), []byte("Removed 3")))
}

func TestEngine_DeclinedConfirmationChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.prompter.On("Confirm", "Remove 3 item(s)?").Return(false, nil)

	result, err := f.engine.Run(context.Background(), reconcile.Options{})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)

	assert.Equal(t, []string{"healthy", "gone", "untracked"}, f.ids(t))
	assert.True(t, f.containers.Has("db-wt-ghost"))
	assert.Zero(t, f.git.CallCount("PruneWorktrees"))
	f.prompter.AssertExpectations(t)
}

func TestEngine_ConfirmedRun(t *testing.T) {
	f := newFixture(t)
	f.prompter.On("Confirm", mock.Anything).Return(true, nil)

	_, err := f.engine.Run(context.Background(), reconcile.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"healthy"}, f.ids(t))
	f.prompter.AssertExpectations(t)
}

func TestEngine_PartialFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.containers.Add("db-wt-ghost2", false)
	f.containers.Results["db-wt-ghost"] = container.RemovalResult{Status: container.StatusError, Message: "device busy"}
	// database removal failure of an orphan does not keep its registry record
	f.containers.Results["db-wt-gone"] = container.RemovalResult{Status: container.StatusError, Message: "device busy"}

	result, err := f.engine.Run(context.Background(), reconcile.Options{Force: true})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPartialBatch))

	assert.Equal(t, []string{"healthy"}, f.ids(t))
	assert.False(t, f.containers.Has("db-wt-ghost2"))
	assert.True(t, f.containers.Has("db-wt-ghost"))
	assert.Equal(t, 1, result.Failed())
	assert.Len(t, result.Outcomes, 4)
	assert.Equal(t, 1, f.git.CallCount("PruneWorktrees"))
	assert.Contains(t, f.out.String(), "device busy")
}

func TestEngine_InSync(t *testing.T) {
	base := t.TempDir()
	store := testutil.NewRegistry(t, base)
	g := testutil.NewMockGit()
	prompter := &testutil.MockPrompter{}
	out := &bytes.Buffer{}

	result, err := reconcile.NewEngine(store, g, testutil.NewMockContainers(), prompter, out).
		Run(context.Background(), reconcile.Options{})
	require.NoError(t, err)
	assert.Zero(t, result.Report.Total())
	assert.Contains(t, out.String(), "in sync")
	prompter.AssertNotCalled(t, "Confirm", mock.Anything)
	assert.Zero(t, g.CallCount("PruneWorktrees"))
}

func TestEngine_GitListFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.git.SetError("ListWorktrees", errors.New(errors.ErrExternalTool, "git unavailable"))

	_, err := f.engine.Run(context.Background(), reconcile.Options{Force: true})
	require.Error(t, err)
	assert.Len(t, f.ids(t), 3)
}
