package cli

import (
	"io"

	"github.com/spf13/cobra"

	"restic-backup-service/src/report"
)

func newListCmd(stdout, stderr io.Writer) *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the repositories and snapshots of a host",
		Args:  cobra.NoArgs,
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
			res, err := svc.scanner.ScanHost(commandContext(cmd), host)
			if err != nil {
				return err
			}
			return report.WriteListing(stdout, format, report.NewListing(host, res))
		},
	}
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to list (default: this host)")
	cmd.Flags().StringP("output", "o", "text", "Output format: text|json|yaml")
	return cmd
}
