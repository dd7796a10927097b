package restic

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// RequiredVersion defines the minimum restic release we support.
const RequiredVersion = "0.17.0"

// BinaryInfo describes a detected restic CLI binary.
type BinaryInfo struct {
	Path    string
	Version string
}

var versionRegexp = regexp.MustCompile(`restic\s+([0-9]+\.[0-9]+\.[0-9]+(?:-[A-Za-z0-9.]+)?)`)

// Detect locates the restic binary on PATH, queries its version, and returns
// the gathered metadata. The context is used to bound the version subprocess.
func Detect(ctx context.Context) (BinaryInfo, error) {
	exe, err := exec.LookPath("restic")
	if err != nil {
		return BinaryInfo{}, fmt.Errorf("restic binary not found on PATH: %w", err)
	}
	ver, err := queryVersion(ctx, exe)
	if err != nil {
		return BinaryInfo{}, err
	}
	return BinaryInfo{Path: exe, Version: ver}, nil
}

// IsCompatible reports whether the provided version satisfies the minimum
// supported restic release.
func IsCompatible(version string) bool {
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false
	}
	return !v.LessThan(semver.MustParse(RequiredVersion))
}

// queryVersion executes `restic version` and parses the semantic version from
// its output.
func queryVersion(ctx context.Context, exe string) (string, error) {
	// Guard against commands that hang by applying a short timeout.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, exe, "version")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("restic: capture stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("restic: capture stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("restic: start version command: %w", err)
	}

	version, parseErr := parseVersion(stdout)
	if version == "" && parseErr == nil {
		// Fall back to scanning stderr when stdout did not contain the version.
		version, parseErr = parseVersion(stderr)
	}
	waitErr := cmd.Wait()
	if parseErr != nil {
		return "", parseErr
	}
	if version == "" {
		return "", errors.New("restic: could not parse version output")
	}
	if waitErr != nil {
		return "", fmt.Errorf("restic: version command failed: %w", waitErr)
	}
	return version, nil
}

func parseVersion(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if matches := versionRegexp.FindStringSubmatch(line); len(matches) == 2 {
			return matches[1], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("restic: read version output: %w", err)
	}
	return "", nil
}

// ExtractVersion is a helper that derives the restic version string from the
// supplied command output. It is primarily exposed for testing.
func ExtractVersion(output string) (string, error) {
	return parseVersion(strings.NewReader(output))
}
