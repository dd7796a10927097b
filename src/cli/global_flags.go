package cli

import (
	"github.com/spf13/cobra"

	"restic-backup-service/src/config"
	"restic-backup-service/src/safety"
)

// addGlobalFlags adds persistent configuration and safety flags to the root command.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "Load environment variables from this file (existing variables win)")
	cmd.PersistentFlags().String("config", "", "Optional YAML config file with the same keys as the environment")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.PersistentFlags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
	cmd.PersistentFlags().Bool("force", false, "Force potentially dangerous operations (implies --yes)")
}

// getSafetyOptions reads global flags into a safety.Options struct.
func getSafetyOptions(cmd *cobra.Command) safety.Options {
	dry, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	yes, _ := cmd.Root().PersistentFlags().GetBool("yes")
	force, _ := cmd.Root().PersistentFlags().GetBool("force")
	return safety.Options{DryRun: dry, Yes: yes, Force: force}
}

func getConfigOptions(cmd *cobra.Command) config.Options {
	envFile, _ := cmd.Root().PersistentFlags().GetString("env-file")
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	return config.Options{EnvFile: envFile, ConfigFile: cfgFile}
}
