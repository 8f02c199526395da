package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gatewise",
	Short: "Gatewise - tiered admission control for product APIs",
	Long: `Gatewise enforces per-tier, per-class rate limits in front of product APIs.

Every request is checked against two windows before it reaches a handler:
  - a rolling one-minute burst window
  - a daily quota window aligned to UTC midnight

Limits are resolved from the caller's subscription tier (free, pro,
unlimited) and the endpoint's quota class (public, search, ai). Counters
live in-process for single instances or in Redis for fleets.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
