package discovery

import (
	"fmt"

	"restic-backup-service/src/repository"
)

// DiscoveryError means the repository tree could not be enumerated.
type DiscoveryError struct {
	Op     string
	Prefix string
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Prefix == "" {
		return fmt.Sprintf("discovery: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("discovery: %s %q: %v", e.Op, e.Prefix, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ScanError is a failure to read one repository's snapshots.
type ScanError struct {
	Address repository.Address
	Err     error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Address, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// CacheConsistencyError reports two scans of the same address within one
// invocation that returned different snapshot sets. It indicates a bug.
type CacheConsistencyError struct {
	Address  repository.Address
	Cached   int
	Incoming int
}

func (e *CacheConsistencyError) Error() string {
	return fmt.Sprintf("snapshot cache: conflicting scan results for %s (%d cached, %d incoming snapshots)", e.Address, e.Cached, e.Incoming)
}
