package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"restic-backup-service/src/config"
)

func newInitCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample .env configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultEnvFile
			if len(args) == 1 {
				path = args[0]
			} else if f, _ := cmd.Root().PersistentFlags().GetString("env-file"); f != "" {
				path = f
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Wrote sample configuration to %s; edit it before running a backup.\n", path)
			return nil
		},
	}
}
