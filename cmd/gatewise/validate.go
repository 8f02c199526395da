package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gatewise-hq/gatewise/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting the server.

Validation covers the server settings, the Redis connection settings, the
per-tier quota tables (every tier must cover every quota class), and the
usage log retention schedule. Environment overrides are applied the same
way the run command applies them.

Examples:
  # Validate the default config path
  gatewise validate

  # Validate a specific file
  gatewise validate --config /etc/gatewise/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
		if cfg.Redis.Enabled() {
			fmt.Println("  mode: distributed (redis)")
		} else {
			fmt.Println("  mode: local (single instance)")
		}
		if verbose {
			fmt.Printf("  listen: %s\n", cfg.Server.ListenAddress)
			fmt.Printf("  usage log: enabled=%v path=%s\n", cfg.UsageLog.Enabled, cfg.UsageLog.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
