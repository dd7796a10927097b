package backup

import (
	"time"

	"restic-backup-service/src/repository"
	"restic-backup-service/src/restic"
)

// Status of one backup task.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	// StatusWarning means a snapshot was saved but some files were unreadable.
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	// StatusPlanned is used by dry runs.
	StatusPlanned Status = "planned"
)

const (
	ReasonAborted = "aborted after authentication failure"
	ReasonDryRun  = "dry run"
)

// Task is one path to back up into one repository.
type Task struct {
	Path       string
	Address    repository.Address
	Repository string
}

// TaskOutcome is the final state of a Task.
type TaskOutcome struct {
	Task
	Status   Status
	Summary  restic.BackupSummary
	Reason   string
	Err      error
	Duration time.Duration
}

// Outcome is returned by Workflow.Run. Tasks keep the order of the input
// paths; paths rejected before execution are part of Tasks as failures.
type Outcome struct {
	Host  string
	Tasks []TaskOutcome
}

func (o Outcome) count(statuses ...Status) int {
	n := 0
	for _, t := range o.Tasks {
		for _, s := range statuses {
			if t.Status == s {
				n++
			}
		}
	}
	return n
}

// Succeeded counts tasks that produced a snapshot, with or without warnings.
func (o Outcome) Succeeded() int { return o.count(StatusSucceeded, StatusWarning) }
func (o Outcome) Failed() int    { return o.count(StatusFailed) }
func (o Outcome) Skipped() int   { return o.count(StatusSkipped) }

// OK reports whether no task failed or was skipped.
func (o Outcome) OK() bool {
	return o.Failed() == 0 && o.Skipped() == 0
}
