package cleanup_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"worktreectl/internal/cleanup"
	"worktreectl/internal/container"
	"worktreectl/internal/errors"
	"worktreectl/internal/registry"
	"worktreectl/internal/testutil"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store      *registry.Store
	git        *testutil.MockGit
	containers *testutil.MockContainers
	prompter   *testutil.MockPrompter
	out        *bytes.Buffer
	cleaner    *cleanup.Cleaner
}

// newFixture registers a (10 days idle), b (7 days idle) and c (1 day idle),
// each with a worktree on disk and a database container.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		store:      testutil.NewRegistry(t, base),
		git:        testutil.NewMockGit(),
		containers: testutil.NewMockContainers(),
		prompter:   &testutil.MockPrompter{},
		out:        &bytes.Buffer{},
	}

	idle := map[string]time.Duration{"a": 10 * 24 * time.Hour, "b": 7 * 24 * time.Hour, "c": 24 * time.Hour}
	for i, id := range []string{"a", "b", "c"} {
		path := filepath.Join(base, id)
		require.NoError(t, os.MkdirAll(path, 0755))
		f.git.AddWorktree(path, "feature/"+id)
		f.containers.Add("db-wt-"+id, true)

		accessed := now.Add(-idle[id])
		f.store.SetClock(func() time.Time { return accessed })
		ports := registry.Ports{Frontend: 5173 + i, Backend: 3001 + i, Database: 7432 + i}
		_, err := f.store.Add(testutil.Environment(id, "feature/"+id, path, ports))
		require.NoError(t, err)
	}

	f.cleaner = cleanup.NewCleaner(f.store, f.git, f.containers, f.prompter, f.out)
	f.cleaner.SetClock(func() time.Time { return now })
	return f
}

func (f *fixture) ids(t *testing.T) []string {
	t.Helper()
	envs, err := f.store.ListAll()
	require.NoError(t, err)
	ids := []string{}
	for _, env := range envs {
		ids = append(ids, env.ID)
	}
	return ids
}

func days(n int) *int { return &n }

func TestCleaner_StaleIsInclusive(t *testing.T) {
	f := newFixture(t)

	selected, _, err := f.cleaner.Select(context.Background(), cleanup.Options{StaleDays: days(7)})
	require.NoError(t, err)

	var ids []string
	for _, env := range selected {
		ids = append(ids, env.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestCleaner_AllAndStaleAreExclusive(t *testing.T) {
	f := newFixture(t)

	_, err := f.cleaner.Run(context.Background(), cleanup.Options{All: true, StaleDays: days(3)})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrValidationFailed))
	assert.Len(t, f.ids(t), 3)
}

func TestCleaner_DryRun(t *testing.T) {
	f := newFixture(t)

	result, err := f.cleaner.Run(context.Background(), cleanup.Options{All: true, DryRun: true})
	require.NoError(t, err)

	assert.Len(t, result.Selected, 3)
	assert.Empty(t, result.Items)
	assert.Equal(t, []string{"a", "b", "c"}, f.ids(t))
	assert.Len(t, f.containers.Names(), 3)
	assert.Zero(t, f.git.CallCount("PruneWorktrees"))
	f.prompter.AssertNotCalled(t, "Confirm", mock.Anything)
	assert.Contains(t, f.out.String(), "Would remove 3 worktree(s)")
}

func TestCleaner_ForceAll(t *testing.T) {
	f := newFixture(t)

	result, err := f.cleaner.Run(context.Background(), cleanup.Options{All: true, Force: true})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Removed())
	assert.Empty(t, f.ids(t))
	assert.Empty(t, f.containers.Names())
	assert.Empty(t, f.git.Worktrees)
	assert.Equal(t, 1, f.git.CallCount("PruneWorktrees"))
	assert.Contains(t, f.out.String(), "Removed 3, failed 0")
}

func TestCleaner_StepsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.containers.Results["db-wt-a"] = container.RemovalResult{Status: container.StatusError, Message: "busy"}
	f.git.SetError("RemoveWorktree", errors.New(errors.ErrExternalTool, "locked"))

	result, err := f.cleaner.Run(context.Background(), cleanup.Options{StaleDays: days(7), Force: true})
	require.NoError(t, err)

	// registry removal decides success
	assert.Equal(t, 2, result.Removed())
	assert.Equal(t, []string{"c"}, f.ids(t))
	assert.Equal(t, container.StatusError, result.Items[0].Database.Status)
	assert.NotEmpty(t, result.Items[0].Worktree)
	assert.Equal(t, 2, f.git.CallCount("RemoveWorktree"))
}

func TestCleaner_RegistryFailureIsPartial(t *testing.T) {
	f := newFixture(t)
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	// a registry that cannot be written fails every item without aborting the batch
	require.NoError(t, os.Chmod(f.store.Path(), 0444))

	result, err := f.cleaner.Run(context.Background(), cleanup.Options{All: true, Force: true})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPartialBatch))
	assert.Equal(t, 3, result.Failed())
	assert.Equal(t, 3, f.git.CallCount("RemoveWorktree"))
	assert.Equal(t, 1, f.git.CallCount("PruneWorktrees"))
}

func TestCleaner_InteractiveSelection(t *testing.T) {
	f := newFixture(t)
	f.prompter.On("Input", mock.Anything, mock.Anything).Return("1,3", nil)
	f.prompter.On("Confirm", "Remove 2 worktree(s)?").Return(true, nil)

	result, err := f.cleaner.Run(context.Background(), cleanup.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Removed())
	assert.Equal(t, []string{"b"}, f.ids(t))
	assert.Contains(t, f.out.String(), "BRANCH")
	assert.Contains(t, f.out.String(), "feature/b")
	f.prompter.AssertExpectations(t)
}

func TestCleaner_InteractiveCancel(t *testing.T) {
	f := newFixture(t)
	f.prompter.On("Input", mock.Anything, mock.Anything).Return("cancel", nil)

	result, err := f.cleaner.Run(context.Background(), cleanup.Options{})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Len(t, f.ids(t), 3)
	f.prompter.AssertNotCalled(t, "Confirm", mock.Anything)
}

func TestCleaner_DeclinedConfirmation(t *testing.T) {
	f := newFixture(t)
	f.prompter.On("Confirm", mock.Anything).Return(false, nil)

	result, err := f.cleaner.Run(context.Background(), cleanup.Options{All: true})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Len(t, f.ids(t), 3)
	assert.Zero(t, f.git.CallCount("PruneWorktrees"))
}

func TestCleaner_NothingSelected(t *testing.T) {
	f := newFixture(t)

	result, err := f.cleaner.Run(context.Background(), cleanup.Options{StaleDays: days(30)})
	require.NoError(t, err)
	assert.Empty(t, result.Selected)
	assert.Contains(t, f.out.String(), "Nothing to remove")
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      []int
		cancelled bool
		wantErr   bool
	}{
		{name: "single", input: "2", want: []int{1}},
		{name: "range and index", input: "1-3,5", want: []int{0, 1, 2, 4}},
		{name: "overlap deduplicated", input: "3,1-3", want: []int{0, 1, 2}},
		{name: "spaces", input: " 1 , 4 - 5 ", want: []int{0, 3, 4}},
		{name: "all", input: "ALL", want: []int{0, 1, 2, 3, 4}},
		{name: "cancel", input: "cancel", cancelled: true},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "past end", input: "6", wantErr: true},
		{name: "reversed range", input: "3-1", wantErr: true},
		{name: "garbage", input: "x", wantErr: true},
		{name: "open range", input: "2-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cancelled, err := cleanup.ParseSelector(tt.input, 5)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrValidationFailed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cancelled, cancelled)
			assert.Equal(t, tt.want, got)
		})
	}
}
