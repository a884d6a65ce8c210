package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/config"
)

// Version information (can be set at build time)
var (
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "queuemaster",
	Short: "Launch the QueueMaster dev server with one command",
	Long: `QueueMaster finds the package manager, starts the app's dev server and
keeps an eye on it until you quit.

Usage:
  queuemaster           Start the server with the dashboard
  queuemaster install   Install the app's dependencies
  queuemaster doctor    Check that everything needed is in place`,
	Version:           version,
	PersistentPreRunE: loadApp,
	RunE:              runStart,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&appDirFlag, "app-dir", "", "Directory of the app (default: the launcher's directory)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to the configuration file (default: <app-dir>/"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")
	addStartFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(doctorCmd)
}

func main() {
	err := rootCmd.Execute()
	if current != nil {
		current.close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
