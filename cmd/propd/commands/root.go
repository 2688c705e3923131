// Package commands implements propd's CLI, grounded on dittofs's
// cmd/dfs/commands cobra layout.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "propd",
	Short: "propd - a key-value property database daemon",
	Long: `propd is a single long-lived daemon that owns the property store:
a persistent namespace and an optional volatile namespace, reachable over a
Unix-domain socket with a compact binary request framing, supporting get,
set, delete, list, commit, reload, and glob-pattern change-notification
watchers.

Use "propd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: none; built-in defaults and PROPD_* environment variables apply)")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("propd %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
