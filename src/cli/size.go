package cli

import (
	"io"

	"github.com/spf13/cobra"

	"restic-backup-service/src/report"
	"restic-backup-service/src/repository"
)

func newSizeCmd(stdout, stderr io.Writer) *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "size <path>",
		Short: "Show the size of the latest backup of a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(outputFlag(cmd))
			if err != nil {
				return err
			}
			svc, err := loadServices(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()
			if host == "" {
				host = svc.cfg.Hostname
			}
			addr, err := repository.NewCategorizer(svc.cfg.HomeRoot, svc.cfg.DockerVolumeRoot).Address(host, args[0])
			if err != nil {
				return err
			}
			repo := svc.target.RepositoryURL(addr)
			stats, err := svc.engine.Stats(commandContext(cmd), repo, args[0])
			if err != nil {
				return err
			}
			return report.WriteSize(stdout, format, report.SizeReport{
				Path:       args[0],
				Repository: repo,
				TotalSize:  stats.TotalSize,
				FileCount:  stats.TotalFileCount,
			})
		},
	}
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host whose backup to measure (default: this host)")
	cmd.Flags().StringP("output", "o", "text", "Output format: text|json|yaml")
	return cmd
}
