package restore_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"restic-backup-service/src/repository"
	"restic-backup-service/src/workflow/restore"
)

type mockRestorer struct {
	mock.Mock
}

func (m *mockRestorer) Restore(ctx context.Context, repo, snapshotID, target string) error {
	args := m.Called(ctx, repo, snapshotID, target)
	return args.Error(0)
}

func selectionOf(window repository.TimeWindow, repos ...repository.Data) restore.Selection {
	return restore.NewSelection("web01", repos, window)
}

func TestExecutor_RestoresEachPairIntoItsOwnStagingDir(t *testing.T) {
	root := t.TempDir()
	home := data(repository.UserHome, "alice", snap("h1", at(1, 0), "/home/alice"))
	docs := data(repository.UserHome, "alice/Documents", snap("d1", at(2, 0), "/home/alice/Documents"))

	m := &mockRestorer{}
	underRoot := mock.MatchedBy(func(target string) bool { return strings.HasPrefix(target, root+string(filepath.Separator)) })
	m.On("Restore", mock.Anything, "repo:web01/user_home/alice", "h1", underRoot).Return(nil).Once()
	m.On("Restore", mock.Anything, "repo:web01/user_home/alice/Documents", "d1", underRoot).Return(nil).Once()

	var progress bytes.Buffer
	exec := restore.NewExecutor(m, locator, root, 2, false, &progress, zerolog.Nop())
	outcomes := exec.Run(context.Background(), selectionOf(repository.WindowOf(at(3, 0)), home, docs))

	m.AssertExpectations(t)
	require.Len(t, outcomes, 2)
	assert.NotEqual(t, outcomes[0].StagingPath, outcomes[1].StagingPath)
	assert.Equal(t, filepath.Join(root, "01_user_home_alice"), outcomes[0].StagingPath)
	assert.Equal(t, filepath.Join(root, "02_user_home_alice_Documents"), outcomes[1].StagingPath)
	for _, o := range outcomes {
		assert.Equal(t, restore.StatusSucceeded, o.Status)
		assert.DirExists(t, o.StagingPath)
	}
	assert.Contains(t, progress.String(), "[restore 2/2]")
}

func TestExecutor_DryRunDoesNotRestore(t *testing.T) {
	m := &mockRestorer{}
	exec := restore.NewExecutor(m, locator, t.TempDir(), 1, true, nil, zerolog.Nop())
	outcomes := exec.Run(context.Background(), selectionOf(repository.WindowOf(at(3, 0)),
		data(repository.System, "etc", snap("e1", at(1, 0), "/etc"))))

	m.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, outcomes, 1)
	assert.Equal(t, restore.StatusSkipped, outcomes[0].Status)
	assert.Equal(t, restore.ReasonDryRun, outcomes[0].Reason)
	assert.NoDirExists(t, outcomes[0].StagingPath)
}

func TestExecutor_FailureIsRecordedPerPair(t *testing.T) {
	m := &mockRestorer{}
	m.On("Restore", mock.Anything, "repo:web01/system/etc", "e1", mock.Anything).Return(errors.New("wrong password"))
	m.On("Restore", mock.Anything, "repo:web01/system/srv", "s1", mock.Anything).Return(nil)

	exec := restore.NewExecutor(m, locator, t.TempDir(), 0, false, nil, zerolog.Nop())
	outcomes := exec.Run(context.Background(), selectionOf(repository.WindowOf(at(3, 0)),
		data(repository.System, "etc", snap("e1", at(1, 0), "/etc")),
		data(repository.System, "srv", snap("s1", at(1, 0), "/srv")),
		data(repository.System, "var", snap("v1", at(9, 0), "/var")),
	))

	require.Len(t, outcomes, 3)
	assert.Equal(t, restore.StatusFailed, outcomes[0].Status)
	var rerr *restore.RestoreError
	require.ErrorAs(t, outcomes[0].Err, &rerr)
	assert.Equal(t, "e1", rerr.SnapshotID)
	assert.Equal(t, restore.StatusSucceeded, outcomes[1].Status)
	assert.Equal(t, restore.StatusSkipped, outcomes[2].Status)
	assert.Equal(t, "/var", outcomes[2].OriginalPath)
}

func TestExecutor_CancelledBeforeStart(t *testing.T) {
	m := &mockRestorer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := restore.NewExecutor(m, locator, t.TempDir(), 1, false, nil, zerolog.Nop())
	outcomes := exec.Run(ctx, selectionOf(repository.WindowOf(at(3, 0)),
		data(repository.System, "etc", snap("e1", at(1, 0), "/etc"))))

	m.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, restore.StatusFailed, outcomes[0].Status)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
}

func TestExecutor_StartedRestoreIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &mockRestorer{}
	m.On("Restore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			cancel()
			restoreCtx := args.Get(0).(context.Context)
			assert.NoError(t, restoreCtx.Err())
			assert.NoError(t, os.MkdirAll(args.String(3), 0o755))
		}).Return(nil)

	exec := restore.NewExecutor(m, locator, t.TempDir(), 1, false, nil, zerolog.Nop())
	outcomes := exec.Run(ctx, selectionOf(repository.WindowOf(at(3, 0)),
		data(repository.System, "etc", snap("e1", at(1, 0), "/etc"))))
	assert.Equal(t, restore.StatusSucceeded, outcomes[0].Status)
}
