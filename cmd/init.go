package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/config"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ui"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .queuemaster.yaml into the app directory",
	Long: `The init command writes the launcher configuration with its defaults:
- The package manager (the one the lock files point at)
- The dev script and port
- How long a stopping server gets before it is killed

Edit the file to change how the server is started.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, args []string) error {
	a := current
	force, _ := cmd.Flags().GetBool("force")

	outputPath := configFlag
	if outputPath == "" {
		outputPath = filepath.Join(a.dir, config.FileName)
	}

	// Check if file already exists
	if _, err := os.Stat(outputPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s. Use --force to overwrite", outputPath)
	}

	cfg := config.Default()
	cfg.Manager = string(toolchain.DetectManager(a.dir))

	if err := config.Write(outputPath, cfg); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	ui.Success(fmt.Sprintf("Configuration written to %s", outputPath))
	ui.Info("Run 'queuemaster' to start your app")
	return nil
}
