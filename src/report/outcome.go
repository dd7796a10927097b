package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"restic-backup-service/src/workflow/backup"
	"restic-backup-service/src/workflow/restore"
)

func restoreStatus(s restore.Status) string {
	switch s {
	case restore.StatusSucceeded:
		return good(string(s))
	case restore.StatusSkipped:
		return warn(string(s))
	}
	return bad(string(s))
}

// WriteRestoreOutcome prints one line per repository and the overall result.
func WriteRestoreOutcome(w io.Writer, o restore.Outcome) {
	if o.State == restore.Cancelled && len(o.Pairs) == 0 {
		fmt.Fprintln(w, warn("Restore cancelled, nothing was restored."))
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s, %s\n", heading("Restore of"), o.Host, o.Window.Label())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range o.Pairs {
		path := p.OriginalPath
		if path == "" {
			path = p.Address.Subpath()
		}
		detail := p.Destination
		if p.Reason != "" && p.Status != restore.StatusSucceeded {
			detail = p.Reason
		}
		snap := shortID(p.SnapshotID)
		if snap == "" {
			snap = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", restoreStatus(p.Status), path, snap, detail)
	}
	tw.Flush()
	for _, f := range o.ScanWarnings {
		fmt.Fprintf(w, "%s %s\n", warn("warning:"), f.Error())
	}
	fmt.Fprintf(w, "Result: %s (%d succeeded, %d skipped, %d failed)\n",
		resultColor(o.Result()), len(o.Succeeded()), len(o.Skipped()), len(o.Failed()))
	if o.StagingDir != "" && len(o.Succeeded()) > 0 {
		fmt.Fprintf(w, "Staging directory: %s\n", o.StagingDir)
	}
}

func resultColor(r restore.Result) string {
	switch r {
	case restore.ResultFullSuccess, restore.ResultDryRun:
		return good(string(r))
	case restore.ResultPartialSuccess, restore.ResultCancelled:
		return warn(string(r))
	}
	return bad(string(r))
}

func backupStatus(s backup.Status) string {
	switch s {
	case backup.StatusSucceeded, backup.StatusPlanned:
		return good(string(s))
	case backup.StatusWarning, backup.StatusSkipped:
		return warn(string(s))
	}
	return bad(string(s))
}

// WriteBackupOutcome prints one line per path and a summary.
func WriteBackupOutcome(w io.Writer, o backup.Outcome) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", heading("Backup of"), o.Host)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range o.Tasks {
		var detail string
		switch t.Status {
		case backup.StatusSucceeded, backup.StatusWarning:
			detail = fmt.Sprintf("snapshot %s, %d new, %d changed, %s added",
				shortID(t.Summary.SnapshotID), t.Summary.FilesNew, t.Summary.FilesChanged, Size(t.Summary.DataAdded))
			if t.Reason != "" {
				detail += " (" + t.Reason + ")"
			}
		case backup.StatusPlanned:
			detail = "-> " + t.Address.String()
		default:
			detail = t.Reason
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", backupStatus(t.Status), t.Path, detail)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d succeeded, %d failed, %d skipped\n", o.Succeeded(), o.Failed(), o.Skipped())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
