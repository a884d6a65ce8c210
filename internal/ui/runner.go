package ui

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// DashboardConfig holds configuration for the dashboard
type DashboardConfig struct {
	AppDir         string
	LaunchCount    int
	LastSession    string
	LastNetworkURL string
	// AutoStart starts the server as soon as the dashboard opens.
	AutoStart bool
	// InstallFirst runs the dependency install before anything else.
	InstallFirst bool
	// Bell rings the terminal bell when the server comes up or fails.
	Bell        bool
	MaxLogLines int
}

// DashboardRunner manages the TUI dashboard lifecycle
type DashboardRunner struct {
	dashboard *DashboardModel
	program   *tea.Program
	mu        sync.Mutex
	running   bool
}

// NewDashboardRunner creates a new dashboard runner
func NewDashboardRunner(ctrl Controller, config DashboardConfig) *DashboardRunner {
	return &DashboardRunner{dashboard: NewDashboard(ctrl, config)}
}

// Dashboard returns the model. Pass it to the supervisor as its reporter.
func (dr *DashboardRunner) Dashboard() *DashboardModel {
	return dr.dashboard
}

// Run shows the dashboard until the user quits or SIGTERM arrives.
func (dr *DashboardRunner) Run() error {
	dr.mu.Lock()
	if dr.running {
		dr.mu.Unlock()
		return errors.New("dashboard already running")
	}
	dr.running = true
	dr.program = tea.NewProgram(
		dr.dashboard,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	dr.mu.Unlock()

	// ctrl+c arrives as a key in raw mode; this covers kill and hangup
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			dr.Stop()
		case <-dr.dashboard.done:
		}
	}()

	_, err := dr.program.Run()
	dr.dashboard.Close()

	dr.mu.Lock()
	dr.running = false
	dr.mu.Unlock()
	return err
}

// Stop asks the dashboard to quit. The program exits once the server is down.
func (dr *DashboardRunner) Stop() {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if !dr.running || dr.program == nil {
		return
	}
	dr.program.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
}

// IsRunning returns whether the dashboard is running
func (dr *DashboardRunner) IsRunning() bool {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.running
}
