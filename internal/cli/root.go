// Package cli implements the ignition command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	jsonOut bool
)

// rootCmd is the base command when ignition is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "ignition",
	Short: "Async readiness signal coordinator",
	Long: `ignition runs a set of named readiness operations under a configurable
execution model and reports what succeeded, failed, timed out, was
skipped, or was cancelled.

Quick start:
  ignition run signals.yaml       Run once and print the result
  ignition serve signals.yaml     Run once then serve health/ready/ws
  ignition replay recording.json  Replay a saved recording`,
	SilenceUsage: true,
}

// Execute adds all child commands to rootCmd and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "directory searched for an optional viper config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print the recorded snapshot as JSON instead of a table")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newReplayCmd())
}

// initConfig sets viper's IGNITION_ environment prefix and reads an
// optional viper config file from the --config directory, mirroring
// the teacher's viper setup in internal/cli/root.go. No viper value is
// applied to the registration file: run and serve use only what the
// YAML file declares.
func initConfig() {
	if cfgFile != "" {
		viper.AddConfigPath(cfgFile)
	}
	viper.SetEnvPrefix("IGNITION")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}
