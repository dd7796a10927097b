package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"restic-backup-service/src/report"
	"restic-backup-service/src/repository"
	"restic-backup-service/src/workflow/backup"
)

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "run [paths...]",
		Short: "Back up paths (default: BACKUP_PATHS plus every docker volume)",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			wf := backup.NewWorkflow(backup.Deps{
				Engine:      svc.engine,
				Locator:     svc.target,
				Categorizer: repository.NewCategorizer(svc.cfg.HomeRoot, svc.cfg.DockerVolumeRoot),
				Host:        svc.cfg.Hostname,
				Paths:       svc.cfg.BackupPaths,
				Concurrency: svc.cfg.Concurrency,
				DryRun:      getSafetyOptions(cmd).DryRun,
				Out:         stderr,
				Log:         svc.log,
			})
			out, runErr := wf.Run(commandContext(cmd), args)
			if len(out.Tasks) > 0 {
				report.WriteBackupOutcome(stdout, out)
			}
			if runErr != nil {
				return runErr
			}
			if n := out.Failed(); n > 0 {
				return fmt.Errorf("%d of %d backups failed", n, len(out.Tasks))
			}
			return nil
		},
	}
}
