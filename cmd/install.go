package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ui"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the app's dependencies",
	Long: `The install command runs the package manager's install in the app
directory and streams its output. The package manager is found the same way
'start' finds it.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	a := current

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := a.supervisor(ui.NewConsoleReporter(os.Stdout))
	defer sup.Close()

	if err := sup.Install(ctx); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}
	ui.Success(fmt.Sprintf("Dependencies installed with %s", toolchain.DisplayName(a.manager())))
	return nil
}
