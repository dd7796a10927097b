package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"restic-backup-service/src/discovery"
	"restic-backup-service/src/repository"
	"restic-backup-service/src/restic"
	"restic-backup-service/src/util/progress"
)

// ErrNothingToBackup is returned when neither arguments, configuration nor
// the docker volume root yield a path.
var ErrNothingToBackup = errors.New("no paths to back up")

// Engine is the restic capability a backup needs.
type Engine interface {
	EnsureRepository(ctx context.Context, repo string) error
	Backup(ctx context.Context, repo string, req restic.BackupRequest, onStatus func(restic.BackupStatus)) (restic.BackupSummary, error)
}

// Deps are the collaborators of a Workflow.
type Deps struct {
	Engine      Engine
	Locator     discovery.Locator
	Categorizer repository.Categorizer
	Host        string
	// Paths are used when Run gets no explicit paths.
	Paths       []string
	Concurrency int
	DryRun      bool
	Out         io.Writer
	Log         zerolog.Logger
}

// Workflow backs up paths into their per-category repositories.
type Workflow struct {
	deps Deps
	log  zerolog.Logger
}

func NewWorkflow(deps Deps) *Workflow {
	if deps.Concurrency < 1 {
		deps.Concurrency = discovery.DefaultConcurrency
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	return &Workflow{deps: deps, log: deps.Log.With().Str("component", "backup-workflow").Logger()}
}

// Run backs up paths, or the configured paths plus every docker volume when
// paths is empty. A failing path never stops the others, except for an
// authentication failure: it is returned and tasks that had not started yet
// are recorded as skipped.
func (w *Workflow) Run(ctx context.Context, paths []string) (Outcome, error) {
	out := Outcome{Host: w.deps.Host}
	if len(paths) == 0 {
		paths = append(append([]string{}, w.deps.Paths...), w.dockerVolumes()...)
	}
	paths = dedupe(paths)
	if len(paths) == 0 {
		return out, ErrNothingToBackup
	}

	out.Tasks = make([]TaskOutcome, len(paths))
	var runnable []int
	claimed := make(map[repository.Address]string, len(paths))
	for i, p := range paths {
		t, err := w.plan(p)
		out.Tasks[i] = TaskOutcome{Task: t}
		if err != nil {
			out.Tasks[i].Status = StatusFailed
			out.Tasks[i].Err = err
			out.Tasks[i].Reason = err.Error()
			w.log.Warn().Err(err).Str("path", p).Msg("path rejected")
			continue
		}
		// At most one task per repository.
		if other, ok := claimed[t.Address]; ok {
			out.Tasks[i].Status = StatusSkipped
			out.Tasks[i].Reason = "same repository as " + other
			w.log.Warn().Str("path", p).Str("repository", t.Address.String()).Str("other", other).Msg("path shares a repository, skipping")
			continue
		}
		claimed[t.Address] = p
		runnable = append(runnable, i)
	}

	if w.deps.DryRun {
		for _, i := range runnable {
			out.Tasks[i].Status = StatusPlanned
			out.Tasks[i].Reason = ReasonDryRun
		}
		return out, nil
	}

	tracker := progress.NewTracker(w.deps.Out, "backup", len(runnable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.deps.Concurrency)
	for _, i := range runnable {
		i := i
		g.Go(func() error {
			t := &out.Tasks[i]
			if gctx.Err() != nil {
				t.Status = StatusSkipped
				t.Reason = ReasonAborted
				if ctx.Err() != nil {
					t.Reason = ctx.Err().Error()
				}
				tracker.Done(t.Path, string(t.Status))
				return nil
			}
			err := w.runTask(ctx, t, tracker)
			tracker.Done(t.Path, string(t.Status))
			if restic.IsFatal(err) {
				return err
			}
			return nil
		})
	}
	return out, g.Wait()
}

func (w *Workflow) plan(path string) (Task, error) {
	t := Task{Path: path}
	addr, err := w.deps.Categorizer.Address(w.deps.Host, path)
	if err != nil {
		return t, err
	}
	t.Address = addr
	t.Repository = w.deps.Locator.RepositoryURL(addr)
	if _, err := os.Stat(path); err != nil {
		return t, fmt.Errorf("backup source: %w", err)
	}
	return t, nil
}

// runTask executes one backup and records its result in t. In-flight backups
// run on the caller's ctx so an abort triggered by another task does not kill
// them.
func (w *Workflow) runTask(ctx context.Context, t *TaskOutcome, tracker *progress.Tracker) error {
	start := time.Now()
	log := w.log.With().Str("path", t.Path).Str("repository", t.Address.String()).Logger()
	fail := func(err error) error {
		t.Status = StatusFailed
		t.Err = err
		t.Reason = err.Error()
		t.Duration = time.Since(start)
		log.Error().Err(err).Msg("backup failed")
		return err
	}
	if err := w.deps.Engine.EnsureRepository(ctx, t.Repository); err != nil {
		return fail(err)
	}
	req := restic.BackupRequest{
		Path: t.Path,
		Host: w.deps.Host,
		Tags: []string{t.Address.Category.BackupTag()},
	}
	log.Info().Msg("backup started")
	summary, err := w.deps.Engine.Backup(ctx, t.Repository, req, func(s restic.BackupStatus) {
		tracker.Update(t.Path, s.PercentDone)
	})
	if err != nil {
		return fail(err)
	}
	t.Summary = summary
	t.Duration = time.Since(start)
	t.Status = StatusSucceeded
	if summary.Incomplete {
		t.Status = StatusWarning
		t.Reason = "some files could not be read"
	}
	log.Info().Str("snapshot", summary.SnapshotID).Uint64("files_new", summary.FilesNew).
		Uint64("files_changed", summary.FilesChanged).Uint64("data_added", summary.DataAdded).
		Dur("duration", t.Duration).Msg("backup finished")
	return nil
}

// dockerVolumes lists the volume directories below the docker volume root.
func (w *Workflow) dockerVolumes() []string {
	root := w.deps.Categorizer.DockerVolumeRoot
	if root == "" {
		return nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Warn().Err(err).Str("root", root).Msg("cannot list docker volumes")
		}
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || repository.IsReservedVolumeEntry(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(root, e.Name()))
	}
	sort.Strings(out)
	return out
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if p == "" {
			continue
		}
		if trimmed := strings.TrimRight(p, "/"); trimmed != "" {
			p = trimmed
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
