package restore

import (
	"errors"
	"fmt"
	"strings"

	"restic-backup-service/src/discovery"
	"restic-backup-service/src/repository"
)

var (
	// ErrNoRepositories is wrapped in a DiscoveryError when a host has no
	// repositories at all.
	ErrNoRepositories = errors.New("no repositories found")
	// ErrNoSnapshots is wrapped in a DiscoveryError when every repository of
	// a host is empty.
	ErrNoSnapshots = errors.New("no repository holds any snapshot")
)

// NoHostsFoundError is returned when the repository base holds no hosts.
type NoHostsFoundError struct {
	Base string
}

func (e *NoHostsFoundError) Error() string {
	if e.Base == "" {
		return "no hosts found in repository base"
	}
	return fmt.Sprintf("no hosts found in %s", e.Base)
}

// RepositoryScanFailure is returned when every repository scan of a host
// failed.
type RepositoryScanFailure struct {
	Host     string
	Failures []*discovery.ScanError
}

func (e *RepositoryScanFailure) Error() string {
	causes := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		causes = append(causes, f.Error())
	}
	return fmt.Sprintf("all %d repository scans for host %s failed: %s", len(e.Failures), e.Host, strings.Join(causes, "; "))
}

func (e *RepositoryScanFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// RestoreError is the failure of one (repository, snapshot) restore.
type RestoreError struct {
	Address    repository.Address
	SnapshotID string
	Err        error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore %s snapshot %s: %v", e.Address, e.SnapshotID, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }
