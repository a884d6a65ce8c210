package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/doctor"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ui"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the app can be started",
	Long: `The doctor command checks:
- Where the package manager and Node.js were found
- Whether package.json has the dev script and dependencies are installed
- Whether the dev server port is free`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a := current

	spinner := ui.NewSpinner("Checking environment...")
	spinner.Start()
	d := doctor.Diagnose(cmd.Context(), doctor.Params{
		AppDir:   a.dir,
		Script:   a.cfg.Script,
		Port:     a.cfg.Port,
		Resolver: a.resolver(),
	})
	spinner.Stop()

	fmt.Println()
	fmt.Printf("📁 App:      %s\n", d.AppDir)

	deps := d.Dependencies
	if deps.ManagerInstalled {
		fmt.Printf("📦 %s:%s %s (%s)\n", deps.Manager, pad(deps.Manager, 8), deps.ManagerPath, deps.ManagerStrategy)
	} else {
		fmt.Printf("📦 %s:%s not found\n", deps.Manager, pad(deps.Manager, 8))
	}
	if deps.DetectedManager != "" {
		fmt.Printf("   lock files point at %s; set 'manager' in the configuration to use it\n", deps.DetectedManager)
	}

	if d.Runtime.Installed {
		fmt.Printf("🟢 Node.js:  %s (%s)\n", d.Runtime.Version, d.Runtime.Path)
	} else {
		fmt.Println("🔴 Node.js:  not found")
	}
	fmt.Printf("🔌 Port:     %s\n", d.Port.Detail)
	if d.Port.NextFree > 0 {
		fmt.Printf("   port %d is free; set 'port' in the configuration to use it\n", d.Port.NextFree)
	}

	h := d.Host
	fmt.Printf("💻 Host:     %s %s, %d CPUs, %s / %s memory, up %s\n",
		h.OS, h.Platform, h.CPUs, ui.FormatBytes(h.MemoryUsed), ui.FormatBytes(h.MemoryTotal), h.Uptime)
	fmt.Println()

	if d.Healthy {
		ui.Success("Everything looks good. Run 'queuemaster' to start.")
		for _, issue := range d.Issues {
			ui.Warn(issue)
		}
		return nil
	}

	for _, issue := range d.Issues {
		ui.Error(issue)
	}
	if !deps.Installed && deps.ConfigFile != "" {
		ui.Info(fmt.Sprintf("Fix with: queuemaster install (runs '%s')", deps.InstallCommand))
	}
	return fmt.Errorf("%d problem(s) found", len(d.Issues))
}

func pad(label string, width int) string {
	n := width - len(label)
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("%*s", n, "")
}
