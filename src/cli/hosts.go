package cli

import (
	"io"

	"github.com/spf13/cobra"

	"restic-backup-service/src/report"
)

func newHostsCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List the hosts that have repositories under the repository base",
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
			hosts, err := svc.scanner.DiscoverHosts(commandContext(cmd))
			if err != nil {
				return err
			}
			return report.WriteHosts(stdout, format, hosts)
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format: text|json|yaml")
	return cmd
}
