package restore

import (
	"time"

	"restic-backup-service/src/discovery"
	"restic-backup-service/src/repository"
)

// Status of one restore pair.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Reasons recorded on skipped pairs.
const (
	ReasonNoEligibleSnapshot = "no eligible snapshot"
	ReasonDryRun             = "dry run"
	ReasonConflictDeclined   = "destination not empty; overwrite declined"
)

// PairOutcome is the final state of one repository in a restore.
type PairOutcome struct {
	Address      repository.Address
	OriginalPath string
	SnapshotID   string
	SnapshotTime time.Time
	// SourcePaths are the paths recorded in the restored snapshot.
	SourcePaths []string
	Status      Status
	Action      PostAction
	// StagingPath is where restic restored the data.
	StagingPath string
	// Destination is where the data ended up after the post action.
	Destination string
	Reason      string
	Err         error
}

// Result summarises an outcome for the user.
type Result string

const (
	ResultFullSuccess    Result = "full success"
	ResultPartialSuccess Result = "partial success"
	ResultTotalFailure   Result = "total failure"
	ResultCancelled      Result = "cancelled"
	ResultDryRun         Result = "dry run"
)

// Outcome is returned by Workflow.Run.
type Outcome struct {
	State        State
	Host         string
	Window       repository.TimeWindow
	StagingDir   string
	Pairs        []PairOutcome
	ScanWarnings []*discovery.ScanError
}

func (o Outcome) filter(s Status) []PairOutcome {
	var out []PairOutcome
	for _, p := range o.Pairs {
		if p.Status == s {
			out = append(out, p)
		}
	}
	return out
}

func (o Outcome) Succeeded() []PairOutcome { return o.filter(StatusSucceeded) }
func (o Outcome) Skipped() []PairOutcome   { return o.filter(StatusSkipped) }
func (o Outcome) Failed() []PairOutcome    { return o.filter(StatusFailed) }

// Result classifies the outcome. Partial success covers any mix of
// succeeded pairs with skipped pairs, failed pairs, or scan warnings. A run
// that only skipped pairs for a dry run is reported as a dry run.
func (o Outcome) Result() Result {
	if o.State == Cancelled {
		return ResultCancelled
	}
	ok := len(o.Succeeded())
	if ok == 0 {
		if len(o.Failed()) == 0 && o.plannedOnly() {
			return ResultDryRun
		}
		return ResultTotalFailure
	}
	if ok == len(o.Pairs) && len(o.ScanWarnings) == 0 {
		return ResultFullSuccess
	}
	return ResultPartialSuccess
}

func (o Outcome) plannedOnly() bool {
	for _, p := range o.Skipped() {
		if p.Reason == ReasonDryRun {
			return true
		}
	}
	return false
}
