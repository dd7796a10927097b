package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"restic-backup-service/src/repository"
	"restic-backup-service/src/restic"
	"restic-backup-service/src/safety"
)

type resticDetectorFunc func(context.Context) (restic.BinaryInfo, error)

var detectResticFn resticDetectorFunc = restic.Detect

// Engine is everything the commands ask of restic.
type Engine interface {
	EnsureRepository(ctx context.Context, repo string) error
	Snapshots(ctx context.Context, repo string) ([]repository.Snapshot, error)
	Restore(ctx context.Context, repo, snapshotID, target string) error
	Stats(ctx context.Context, repo, path string) (restic.StatsResult, error)
	Backup(ctx context.Context, repo string, req restic.BackupRequest, onStatus func(restic.BackupStatus)) (restic.BackupSummary, error)
}

type engineFactory func(restic.BinaryInfo, restic.Credentials, zerolog.Logger) (Engine, error)

var newEngineFn engineFactory = func(bin restic.BinaryInfo, creds restic.Credentials, log zerolog.Logger) (Engine, error) {
	e, err := restic.NewEngine(bin, creds, log)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func checkResticBinary(cmd *cobra.Command, interactive bool) (restic.BinaryInfo, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	info, err := detectResticFn(ctx)
	if err != nil {
		return restic.BinaryInfo{}, err
	}
	if restic.IsCompatible(info.Version) {
		return info, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Warning: restic %s detected; restic-backup-service requires %s or newer.\n", info.Version, restic.RequiredVersion)
	if !interactive {
		return restic.BinaryInfo{}, fmt.Errorf("restic %s is older than required %s", info.Version, restic.RequiredVersion)
	}

	opts := getSafetyOptions(cmd)
	if opts.Yes || opts.Force {
		return info, nil
	}
	ok, err := safety.Confirm(opts, cmd.InOrStdin(), cmd.OutOrStdout(), "Proceed with unsupported restic version?")
	if err != nil {
		return restic.BinaryInfo{}, err
	}
	if !ok {
		return restic.BinaryInfo{}, errors.New("aborted: restic version is below supported minimum")
	}
	return info, nil
}

// SetResticDetectorForTest allows tests to stub the restic detection pipeline.
// The returned function restores the previous detector.
func SetResticDetectorForTest(fn resticDetectorFunc) func() {
	prev := detectResticFn
	detectResticFn = fn
	return func() {
		detectResticFn = prev
	}
}

// SetEngineFactoryForTest replaces the restic engine constructor.
func SetEngineFactoryForTest(fn func(restic.BinaryInfo, restic.Credentials, zerolog.Logger) (Engine, error)) func() {
	prev := newEngineFn
	newEngineFn = fn
	return func() {
		newEngineFn = prev
	}
}
