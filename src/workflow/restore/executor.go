package restore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"restic-backup-service/src/discovery"
	"restic-backup-service/src/util/progress"
)

// Restorer extracts a snapshot into a target directory.
type Restorer interface {
	Restore(ctx context.Context, repo, snapshotID, target string) error
}

// Executor runs the restores of a Selection with bounded concurrency.
type Executor struct {
	restorer    Restorer
	locator     discovery.Locator
	stagingRoot string
	concurrency int
	dryRun      bool
	out         io.Writer
	log         zerolog.Logger
}

// NewExecutor returns an Executor restoring below stagingRoot.
func NewExecutor(restorer Restorer, locator discovery.Locator, stagingRoot string, concurrency int, dryRun bool, out io.Writer, log zerolog.Logger) *Executor {
	if concurrency < 1 {
		concurrency = discovery.DefaultConcurrency
	}
	return &Executor{
		restorer:    restorer,
		locator:     locator,
		stagingRoot: stagingRoot,
		concurrency: concurrency,
		dryRun:      dryRun,
		out:         out,
		log:         log.With().Str("component", "restore").Logger(),
	}
}

// Run restores every pair and returns one outcome per pair followed by a
// skipped outcome per ineligible repository. A failing pair never stops the
// others. Once a restore has started it runs to completion even if ctx is
// cancelled; pairs not yet started when ctx is done are recorded as failed.
func (e *Executor) Run(ctx context.Context, sel Selection) []PairOutcome {
	outcomes := make([]PairOutcome, len(sel.Pairs))
	tracker := progress.NewTracker(e.out, "restore", len(sel.Pairs))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i, pair := range sel.Pairs {
		i, pair := i, pair
		g.Go(func() error {
			outcomes[i] = e.restoreOne(ctx, i, pair)
			tracker.Done(pair.Repository.Address.String(), string(outcomes[i].Status))
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range sel.Ineligible {
		outcomes = append(outcomes, PairOutcome{
			Address:      d.Address,
			OriginalPath: d.OriginalPath(),
			Status:       StatusSkipped,
			Reason:       ReasonNoEligibleSnapshot,
		})
	}
	return outcomes
}

func (e *Executor) restoreOne(ctx context.Context, i int, pair Pair) PairOutcome {
	addr := pair.Repository.Address
	out := PairOutcome{
		Address:      addr,
		OriginalPath: pair.Repository.OriginalPath(),
		SnapshotID:   pair.Snapshot.ID,
		SnapshotTime: pair.Snapshot.Time,
		SourcePaths:  pair.Snapshot.Paths,
		StagingPath:  filepath.Join(e.stagingRoot, stagingName(i, pair)),
	}
	if e.dryRun {
		out.Status = StatusSkipped
		out.Reason = ReasonDryRun
		return out
	}
	fail := func(err error) PairOutcome {
		out.Status = StatusFailed
		out.Err = &RestoreError{Address: addr, SnapshotID: pair.Snapshot.ID, Err: err}
		out.Reason = out.Err.Error()
		e.log.Error().Err(err).Str("repository", addr.String()).Str("snapshot", pair.Snapshot.ShortID).Msg("restore failed")
		return out
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(out.StagingPath, 0o700); err != nil {
		return fail(fmt.Errorf("create staging directory: %w", err))
	}
	e.log.Info().Str("repository", addr.String()).Str("snapshot", pair.Snapshot.ShortID).Str("target", out.StagingPath).Msg("restoring snapshot")
	if err := e.restorer.Restore(context.WithoutCancel(ctx), e.locator.RepositoryURL(addr), pair.Snapshot.ID, out.StagingPath); err != nil {
		return fail(err)
	}
	out.Status = StatusSucceeded
	out.Destination = out.StagingPath
	return out
}

// stagingName gives every pair its own directory so repositories with
// overlapping paths (a home directory and a folder inside it) never mix.
func stagingName(i int, pair Pair) string {
	a := pair.Repository.Address
	return fmt.Sprintf("%02d_%s_%s", i+1, a.Category, strings.ReplaceAll(a.Segment, "/", "_"))
}
