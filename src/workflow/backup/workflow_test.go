package backup_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restic-backup-service/src/discovery"
	"restic-backup-service/src/repository"
	"restic-backup-service/src/restic"
	"restic-backup-service/src/workflow/backup"
)

type fakeEngine struct {
	mu       sync.Mutex
	ensured  []string
	requests []restic.BackupRequest
	fail     map[string]error // by path
	summary  restic.BackupSummary
}

func (f *fakeEngine) EnsureRepository(_ context.Context, repo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, repo)
	return nil
}

func (f *fakeEngine) Backup(_ context.Context, _ string, req restic.BackupRequest, onStatus func(restic.BackupStatus)) (restic.BackupSummary, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	err := f.fail[req.Path]
	f.mu.Unlock()
	if onStatus != nil {
		onStatus(restic.BackupStatus{PercentDone: 0.5})
	}
	if err != nil {
		return restic.BackupSummary{}, err
	}
	return f.summary, nil
}

type env struct {
	root    string
	home    string
	volumes string
	engine  *fakeEngine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		root:    root,
		home:    filepath.Join(root, "home"),
		volumes: filepath.Join(root, "volumes"),
		engine:  &fakeEngine{fail: map[string]error{}, summary: restic.BackupSummary{SnapshotID: "abc123", FilesNew: 3}},
	}
	for _, d := range []string{e.home, e.volumes} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	return e
}

func (e *env) mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(append([]string{e.root}, parts...)...)
	require.NoError(t, os.MkdirAll(p, 0o755))
	return p
}

func (e *env) workflow(concurrency int, dryRun bool, configured ...string) *backup.Workflow {
	return backup.NewWorkflow(backup.Deps{
		Engine:      e.engine,
		Locator:     discovery.LocatorFunc(func(a repository.Address) string { return "s3:x/" + a.Key() }),
		Categorizer: repository.NewCategorizer(e.home, e.volumes),
		Host:        "web01",
		Paths:       configured,
		Concurrency: concurrency,
		DryRun:      dryRun,
		Log:         zerolog.Nop(),
	})
}

func TestRun_BacksUpEachPathWithCategoryTag(t *testing.T) {
	e := newEnv(t)
	alice := e.mkdir(t, "home", "alice")
	pg := e.mkdir(t, "volumes", "pg")
	etc := e.mkdir(t, "etc", "nginx")

	out, err := e.workflow(2, false).Run(context.Background(), []string{alice, pg, etc})
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, 3, out.Succeeded())

	require.Len(t, out.Tasks, 3)
	assert.Equal(t, repository.Address{Host: "web01", Category: repository.UserHome, Segment: "alice"}, out.Tasks[0].Address)
	assert.Equal(t, "s3:x/web01/docker_volume/pg", out.Tasks[1].Repository)
	assert.Equal(t, repository.System, out.Tasks[2].Address.Category)
	assert.Equal(t, "abc123", out.Tasks[2].Summary.SnapshotID)

	tags := map[string][]string{}
	for _, r := range e.engine.requests {
		assert.Equal(t, "web01", r.Host)
		tags[r.Path] = r.Tags
	}
	assert.Equal(t, []string{"user-path"}, tags[alice])
	assert.Equal(t, []string{"docker-volume"}, tags[pg])
	assert.Equal(t, []string{"system-path"}, tags[etc])
	assert.Len(t, e.engine.ensured, 3)
}

func TestRun_DefaultsToConfiguredPathsAndDockerVolumes(t *testing.T) {
	e := newEnv(t)
	etc := e.mkdir(t, "etc")
	e.mkdir(t, "volumes", "redis")
	e.mkdir(t, "volumes", "app")
	require.NoError(t, os.WriteFile(filepath.Join(e.volumes, "metadata.db"), nil, 0o644))
	e.mkdir(t, "volumes", "backingFsBlockDev")

	out, err := e.workflow(1, true, etc, etc).Run(context.Background(), nil)
	require.NoError(t, err)
	var paths []string
	for _, task := range out.Tasks {
		paths = append(paths, task.Path)
		assert.Equal(t, backup.StatusPlanned, task.Status)
	}
	assert.Equal(t, []string{etc, filepath.Join(e.volumes, "app"), filepath.Join(e.volumes, "redis")}, paths)
	assert.Empty(t, e.engine.requests, "dry run never calls restic")
}

func TestRun_NothingToBackup(t *testing.T) {
	e := newEnv(t)
	_, err := e.workflow(1, false).Run(context.Background(), nil)
	assert.ErrorIs(t, err, backup.ErrNothingToBackup)
}

func TestRun_OnePathPerRepository(t *testing.T) {
	e := newEnv(t)
	etc := e.mkdir(t, "etc", "nginx")
	out, err := e.workflow(2, false).Run(context.Background(), []string{etc, etc + "/"})
	require.NoError(t, err)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, etc, out.Tasks[0].Path)
	assert.Len(t, e.engine.requests, 1)

	e = newEnv(t)
	flat := e.mkdir(t, "srv", "a_b")
	nested := e.mkdir(t, "srv", "a", "b")
	out, err = e.workflow(2, false).Run(context.Background(), []string{flat, nested})
	require.NoError(t, err)
	require.Len(t, out.Tasks, 2)
	assert.Equal(t, out.Tasks[0].Address, out.Tasks[1].Address)
	assert.Equal(t, backup.StatusSucceeded, out.Tasks[0].Status)
	assert.Equal(t, backup.StatusSkipped, out.Tasks[1].Status)
	assert.Equal(t, "same repository as "+flat, out.Tasks[1].Reason)
	assert.Len(t, e.engine.requests, 1)
}

func TestRun_InvalidAndMissingPathsFailAlone(t *testing.T) {
	e := newEnv(t)
	etc := e.mkdir(t, "etc")
	out, err := e.workflow(2, false).Run(context.Background(), []string{"relative/path", filepath.Join(e.root, "missing"), etc})
	require.NoError(t, err)
	require.Len(t, out.Tasks, 3)

	var invalid *repository.InvalidPathError
	assert.ErrorAs(t, out.Tasks[0].Err, &invalid)
	assert.Equal(t, backup.StatusFailed, out.Tasks[0].Status)
	assert.ErrorIs(t, out.Tasks[1].Err, os.ErrNotExist)
	assert.Equal(t, backup.StatusSucceeded, out.Tasks[2].Status)
	assert.Equal(t, 2, out.Failed())
	assert.False(t, out.OK())
	assert.Len(t, e.engine.requests, 1)
}

func TestRun_IncompleteSnapshotIsWarning(t *testing.T) {
	e := newEnv(t)
	etc := e.mkdir(t, "etc")
	e.engine.summary.Incomplete = true
	out, err := e.workflow(1, false).Run(context.Background(), []string{etc})
	require.NoError(t, err)
	assert.Equal(t, backup.StatusWarning, out.Tasks[0].Status)
	assert.Equal(t, 1, out.Succeeded())
	assert.True(t, out.OK())
}

func TestRun_FailureDoesNotStopOthers(t *testing.T) {
	e := newEnv(t)
	a := e.mkdir(t, "srv", "a")
	b := e.mkdir(t, "srv", "b")
	e.engine.fail[a] = &restic.CommandError{Command: "backup", ExitCode: 1, Kind: restic.ErrLocked, Err: errors.New("exit status 1")}
	out, err := e.workflow(1, false).Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, backup.StatusFailed, out.Tasks[0].Status)
	assert.ErrorIs(t, out.Tasks[0].Err, restic.ErrLocked)
	assert.Equal(t, backup.StatusSucceeded, out.Tasks[1].Status)
}

func TestRun_AuthenticationFailureAbortsQueue(t *testing.T) {
	e := newEnv(t)
	a := e.mkdir(t, "srv", "a")
	b := e.mkdir(t, "srv", "b")
	c := e.mkdir(t, "srv", "c")
	e.engine.fail[a] = &restic.CommandError{Command: "backup", ExitCode: 1, Kind: restic.ErrAuthentication, Err: errors.New("exit status 1")}

	out, err := e.workflow(1, false).Run(context.Background(), []string{a, b, c})
	assert.ErrorIs(t, err, restic.ErrAuthentication)
	assert.Equal(t, backup.StatusFailed, out.Tasks[0].Status)
	for _, task := range out.Tasks[1:] {
		assert.Equal(t, backup.StatusSkipped, task.Status)
		assert.Equal(t, backup.ReasonAborted, task.Reason)
	}
	assert.Len(t, e.engine.requests, 1)
}
