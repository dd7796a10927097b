package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"restic-backup-service/src/report"
	"restic-backup-service/src/workflow/restore"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// parseTimestamp accepts RFC 3339 or "YYYY-MM-DD HH:MM[:SS]" read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (want RFC 3339 or \"YYYY-MM-DD HH:MM[:SS]\" in UTC)", s)
}

func newRestoreCmd(stdout, stderr io.Writer) *cobra.Command {
	var host, path, timestamp, postAction string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Interactively restore repositories of a host to a point in time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := restore.Options{Host: host, Path: path}
			if timestamp != "" {
				at, err := parseTimestamp(timestamp)
				if err != nil {
					return err
				}
				opts.At = at
			}
			action, err := restore.ParsePostAction(postAction)
			if err != nil {
				return err
			}
			opts.PostAction = action

			svc, err := loadServices(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			wf := restore.NewWorkflow(restore.Deps{
				Scanner:      svc.scanner,
				Restorer:     svc.engine,
				Locator:      svc.target,
				Selector:     newSelectorFn(cmd),
				Safety:       getSafetyOptions(cmd),
				StagingDir:   svc.cfg.StagingDir,
				InvocationID: svc.invocation,
				Concurrency:  svc.cfg.Concurrency,
				DefaultHost:  svc.cfg.Hostname,
				Out:          stderr,
				Log:          svc.log,
			})
			out, err := wf.Run(commandContext(cmd), opts)
			var noHosts *restore.NoHostsFoundError
			if errors.As(err, &noHosts) && noHosts.Base == "" {
				noHosts.Base = svc.target.String()
			}
			if err != nil {
				return err
			}
			report.WriteRestoreOutcome(stdout, out)
			if n := len(out.Failed()); n > 0 && out.State != restore.Cancelled {
				return fmt.Errorf("restore finished with %s: %d of %d repositories failed", out.Result(), n, len(out.Pairs))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&host, "host", "H", "", "Restore from this host without asking")
	cmd.Flags().StringVarP(&path, "path", "p", "", "Restore only the repository of this original path")
	cmd.Flags().StringVarP(&timestamp, "timestamp", "t", "", "Restore the 5-minute window containing this UTC time")
	cmd.Flags().StringVar(&postAction, "post-action", "", "What to do with restored data: copy|move|leave")
	return cmd
}
