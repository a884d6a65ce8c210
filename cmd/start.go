package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ports"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/supervisor"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ui"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dev server",
	Long: `The start command launches the app's dev script through the package
manager and shows a dashboard with the server's URLs and output.

It will:
- Find npm (or the configured manager) even when PATH does not include it
- Install dependencies first when node_modules is missing
- Stop the server cleanly when you quit`,
	RunE: runStart,
}

func init() {
	addStartFlags(startCmd)
}

func addStartFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-tui", false, "Disable the dashboard (use plain scrolling output)")
	cmd.Flags().Bool("no-install", false, "Do not install dependencies when node_modules is missing")
	cmd.Flags().Bool("auto-start", false, "Start the server as soon as the dashboard opens (default: saved preference)")
}

// stateWatcher forwards terminal states of the server.
type stateWatcher struct {
	supervisor.NopReporter
	states chan supervisor.State
}

func (w stateWatcher) OnStateChanged(st supervisor.State) {
	if st != supervisor.StateStopped && st != supervisor.StateFailed {
		return
	}
	select {
	case w.states <- st:
	default:
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	a := current
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	noInstall, _ := cmd.Flags().GetBool("no-install")

	count := a.session.IncrementLaunchCount()
	record := a.session.Load()
	lastSession := a.session.LastSessionInfo()
	a.log.Info("launch", "count", count, "app_dir", a.dir)

	installFirst := a.cfg.AutoInstall && !noInstall && !a.dependenciesInstalled()

	if noTUI {
		ui.Info(fmt.Sprintf("%s • Launch #%d", lastSession, count))
		return runConsole(cmd.Context(), a, installFirst)
	}

	autoStart := a.session.AutoStart()
	if cmd.Flags().Changed("auto-start") {
		autoStart, _ = cmd.Flags().GetBool("auto-start")
	}

	var lastNetworkURL string
	if record.LastNetworkAddr != "" {
		lastNetworkURL = ports.NetworkURL(record.LastNetworkAddr, a.cfg.Port)
	}

	runner := ui.NewDashboardRunner(nil, ui.DashboardConfig{
		AppDir:         a.dir,
		LaunchCount:    count,
		LastSession:    lastSession,
		LastNetworkURL: lastNetworkURL,
		AutoStart:      autoStart,
		InstallFirst:   installFirst,
		Bell:           record.Bell,
		MaxLogLines:    1000,
	})
	dashboard := runner.Dashboard()

	sup := a.supervisor(dashboard)
	defer sup.Close()
	dashboard.SetController(sup)

	if err := runner.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

// runConsole starts the server with plain output and waits for it to exit
// or for an interrupt.
func runConsole(ctx context.Context, a *app, installFirst bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := stateWatcher{states: make(chan supervisor.State, 1)}
	sup := a.supervisor(supervisor.MultiReporter(ui.NewConsoleReporter(os.Stdout), watcher))
	defer sup.Close()

	if installFirst {
		if err := sup.Install(ctx); err != nil {
			return fmt.Errorf("install failed: %w", err)
		}
	}

	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	select {
	case <-ctx.Done():
		budget := a.cfg.GracePeriod + a.cfg.KillTimeout + 2*time.Second
		stopCtx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()
		return sup.Stop(stopCtx)
	case st := <-watcher.states:
		if st == supervisor.StateFailed {
			return errors.New("server failed")
		}
		return nil
	}
}
