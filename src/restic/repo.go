package restic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"restic-backup-service/src/repository"
)

// exitIncomplete is restic's exit status for a snapshot that was saved while
// some source files could not be read.
const exitIncomplete = 3

// Credentials are passed to every restic process through its environment.
type Credentials struct {
	Password        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// Engine runs restic against repositories addressed by URL. Engine is safe
// for concurrent use; every call starts its own process.
type Engine struct {
	bin   BinaryInfo
	creds Credentials
	log   zerolog.Logger
}

// NewEngine returns an Engine for the detected binary.
func NewEngine(bin BinaryInfo, creds Credentials, log zerolog.Logger) (*Engine, error) {
	if bin.Path == "" {
		return nil, errors.New("restic binary info is required")
	}
	if creds.Password == "" {
		return nil, errors.New("restic password must not be empty")
	}
	return &Engine{bin: bin, creds: creds, log: log.With().Str("component", "restic").Logger()}, nil
}

// EnsureRepository verifies that repo has been initialised and runs
// `restic init` when it has not.
func (e *Engine) EnsureRepository(ctx context.Context, repo string) error {
	_, _, err := e.runCommand(ctx, repo, []string{"cat", "config"}, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotRepository) {
		return err
	}
	e.log.Info().Str("repo", repo).Msg("initialising repository")
	if _, _, initErr := e.runCommand(ctx, repo, []string{"init"}, nil); initErr != nil {
		return initErr
	}
	return nil
}

// Snapshots lists every snapshot in repo, oldest first.
func (e *Engine) Snapshots(ctx context.Context, repo string) ([]repository.Snapshot, error) {
	stdout, _, err := e.runCommand(ctx, repo, []string{"snapshots", "--json"}, nil)
	if err != nil {
		return nil, err
	}
	return ParseSnapshots([]byte(stdout))
}

// Restore extracts snapshotID into target. restic recreates the recorded
// absolute paths below target.
func (e *Engine) Restore(ctx context.Context, repo, snapshotID, target string) error {
	_, _, err := e.runCommand(ctx, repo, []string{"restore", snapshotID, "--target", target}, nil)
	return err
}

// StatsResult is the output of `restic stats --json`.
type StatsResult struct {
	TotalSize      uint64 `json:"total_size"`
	TotalFileCount uint64 `json:"total_file_count"`
	SnapshotsCount int    `json:"snapshots_count"`
}

// Stats reports the raw data size of the latest snapshot of path.
func (e *Engine) Stats(ctx context.Context, repo, path string) (StatsResult, error) {
	args := []string{"stats", "latest", "--mode", "raw-data", "--json"}
	if path != "" {
		args = append(args, "--path", path)
	}
	stdout, _, err := e.runCommand(ctx, repo, args, nil)
	if err != nil {
		return StatsResult{}, err
	}
	var res StatsResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		return StatsResult{}, fmt.Errorf("restic: parse stats json: %w", err)
	}
	return res, nil
}

// Backup runs `restic backup --json` for req.Path. Status messages are passed
// to onStatus as they arrive; onStatus may be nil.
func (e *Engine) Backup(ctx context.Context, repo string, req BackupRequest, onStatus func(BackupStatus)) (BackupSummary, error) {
	args := []string{"backup", req.Path, "--json"}
	if req.Host != "" {
		args = append(args, "--host", req.Host)
	}
	for _, tag := range req.Tags {
		args = append(args, "--tag", tag)
	}
	cmd := exec.CommandContext(ctx, e.bin.Path, args...)
	cmd.Env = e.env(repo)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return BackupSummary{}, fmt.Errorf("restic: capture stdout: %w", err)
	}
	e.log.Debug().Str("repo", repo).Strs("args", args).Msg("running restic")
	if err := cmd.Start(); err != nil {
		return BackupSummary{}, fmt.Errorf("restic: start backup: %w", err)
	}

	var summary BackupSummary
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		status, sum := parseBackupLine(scanner.Text())
		switch {
		case status != nil && onStatus != nil:
			onStatus(*status)
		case sum != nil:
			summary = *sum
		}
	}
	// Drain anything left so Wait does not block on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()
	if waitErr != nil {
		if exitCode(waitErr) == exitIncomplete && summary.SnapshotID != "" {
			summary.Incomplete = true
			e.log.Warn().Str("path", req.Path).Msg("backup saved but some source files could not be read")
			return summary, nil
		}
		return summary, e.commandError(ctx, "backup", waitErr, stderrBuf.String())
	}
	return summary, nil
}

func (e *Engine) env(repo string) []string {
	env := os.Environ()
	env = append(env, fmt.Sprintf("RESTIC_REPOSITORY=%s", repo))
	env = append(env, fmt.Sprintf("RESTIC_PASSWORD=%s", e.creds.Password))
	if e.creds.AccessKeyID != "" {
		env = append(env, fmt.Sprintf("AWS_ACCESS_KEY_ID=%s", e.creds.AccessKeyID))
	}
	if e.creds.SecretAccessKey != "" {
		env = append(env, fmt.Sprintf("AWS_SECRET_ACCESS_KEY=%s", e.creds.SecretAccessKey))
	}
	if e.creds.Region != "" {
		env = append(env, fmt.Sprintf("AWS_DEFAULT_REGION=%s", e.creds.Region))
	}
	return env
}

func (e *Engine) runCommand(ctx context.Context, repo string, args []string, stdin io.Reader) (string, string, error) {
	cmd := exec.CommandContext(ctx, e.bin.Path, args...)
	cmd.Env = e.env(repo)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	e.log.Debug().Str("repo", repo).Strs("args", args).Msg("running restic")
	if err := cmd.Run(); err != nil {
		return stdoutBuf.String(), stderrBuf.String(), e.commandError(ctx, args[0], err, stderrBuf.String())
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}

func (e *Engine) commandError(ctx context.Context, command string, err error, stderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("restic %s: %w", command, ctxErr)
	}
	return &CommandError{
		Command:  command,
		ExitCode: exitCode(err),
		Stderr:   strings.TrimSpace(stderr),
		Kind:     Classify(stderr),
		Err:      err,
	}
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
