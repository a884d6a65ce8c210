package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ports"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
)

// Resolver finds the package manager.
type Resolver interface {
	Manager() toolchain.Manager
	Resolve(ctx context.Context) (toolchain.Location, error)
}

// RuntimeStatus represents the status of a runtime check
type RuntimeStatus struct {
	Name      string
	Installed bool
	Version   string
	Path      string
}

// DependencyStatus represents the status of the app's dependencies
type DependencyStatus struct {
	Manager          string // npm, pnpm, yarn or bun
	ConfigFile       string // package.json when present
	Script           string
	HasScript        bool   // package.json defines Script
	Installed        bool   // node_modules exists
	InstallCommand   string // Command to install dependencies
	ManagerInstalled bool   // Is the package manager itself installed?
	ManagerPath      string
	ManagerStrategy  string
	ManagerHint      string // Hint for installing the package manager
	DetectedManager  string // manager the lockfiles point at, if different
}

// PortStatus describes the dev server port.
type PortStatus struct {
	Port      int
	Available bool
	Detail    string
	// NextFree is the first free port above a busy Port.
	NextFree int
}

// HostStatus summarizes the machine the launcher runs on.
type HostStatus struct {
	OS          string
	Platform    string
	Uptime      time.Duration
	CPUs        int
	MemoryUsed  uint64
	MemoryTotal uint64
}

// Diagnosis contains the full health check results
type Diagnosis struct {
	AppDir       string
	Runtime      RuntimeStatus
	Dependencies DependencyStatus
	Port         PortStatus
	Host         HostStatus
	Healthy      bool
	Issues       []string
}

// Params configures a diagnosis. Zero-valued hooks use the real host.
type Params struct {
	AppDir   string
	Script   string
	Port     int
	Resolver Resolver
	System   *toolchain.System

	PortStatus func(ctx context.Context, port int) PortStatus
	Host       func(ctx context.Context) HostStatus
}

// Diagnose checks the health of the app at params.AppDir
func Diagnose(ctx context.Context, params Params) Diagnosis {
	sys := toolchain.HostSystem()
	if params.System != nil {
		sys = *params.System
	}
	if params.PortStatus == nil {
		params.PortStatus = checkPort
	}
	if params.Host == nil {
		params.Host = checkHost
	}

	diagnosis := Diagnosis{
		AppDir:  params.AppDir,
		Healthy: true,
		Issues:  []string{},
	}

	loc, resolveErr := params.Resolver.Resolve(ctx)
	diagnosis.Dependencies = checkDependencies(params, loc, resolveErr)
	diagnosis.Runtime = checkRuntime(ctx, sys, loc)
	diagnosis.Port = params.PortStatus(ctx, params.Port)
	diagnosis.Host = params.Host(ctx)

	if !diagnosis.Dependencies.ManagerInstalled {
		diagnosis.fail(diagnosis.Dependencies.ManagerHint)
	}
	if !diagnosis.Runtime.Installed {
		diagnosis.fail(diagnosis.Runtime.Name + " runtime is not installed")
	}
	if diagnosis.Dependencies.ConfigFile == "" {
		diagnosis.fail("package.json not found in " + params.AppDir)
	} else {
		if !diagnosis.Dependencies.HasScript {
			diagnosis.fail(fmt.Sprintf("package.json has no %q script", params.Script))
		}
		if !diagnosis.Dependencies.Installed {
			diagnosis.fail("Dependencies are not installed")
		}
	}
	if !diagnosis.Port.Available {
		// A busy port is a warning: it may be our own server.
		diagnosis.Issues = append(diagnosis.Issues, diagnosis.Port.Detail)
	}

	return diagnosis
}

func (d *Diagnosis) fail(issue string) {
	d.Healthy = false
	d.Issues = append(d.Issues, issue)
}

// checkRuntime runs node from the directory the package manager was found in,
// falling back to PATH.
func checkRuntime(ctx context.Context, sys toolchain.System, loc toolchain.Location) RuntimeStatus {
	status := RuntimeStatus{Name: "Node.js"}

	node := "node"
	if loc.RuntimeDir != "" {
		node = sys.RuntimePath(loc.RuntimeDir)
	}

	ctx, cancel := context.WithTimeout(ctx, toolchain.DefaultProbeTimeout)
	defer cancel()

	out, err := sys.Run(ctx, node, "--version")
	if err != nil {
		return status
	}
	status.Installed = true
	status.Version = strings.TrimSpace(out)
	status.Path = node
	if !filepath.IsAbs(node) {
		if p, err := sys.LookPath(node); err == nil {
			status.Path = p
		}
	}
	return status
}

type packageJSON struct {
	Scripts map[string]string `json:"scripts"`
}

// checkDependencies checks package.json, node_modules and the package manager
func checkDependencies(params Params, loc toolchain.Location, resolveErr error) DependencyStatus {
	manager := params.Resolver.Manager()
	status := DependencyStatus{
		Manager:        toolchain.DisplayName(manager),
		Script:         params.Script,
		InstallCommand: string(manager) + " " + strings.Join(toolchain.InstallArgs(manager, params.AppDir), " "),
	}

	if resolveErr == nil {
		status.ManagerInstalled = true
		status.ManagerPath = loc.Executable
		status.ManagerStrategy = loc.Strategy
	} else {
		status.ManagerHint = resolveErr.Error()
		var nf *toolchain.NotFoundError
		if errors.As(resolveErr, &nf) {
			status.ManagerHint = nf.Error() + ". " + nf.Hint()
		}
	}

	if detected := toolchain.DetectManager(params.AppDir); detected != manager {
		status.DetectedManager = toolchain.DisplayName(detected)
	}

	data, err := os.ReadFile(filepath.Join(params.AppDir, "package.json"))
	if err != nil {
		return status
	}
	status.ConfigFile = "package.json"

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err == nil {
		_, status.HasScript = pkg.Scripts[params.Script]
	}

	if info, err := os.Stat(filepath.Join(params.AppDir, "node_modules")); err == nil && info.IsDir() {
		status.Installed = true
	}
	return status
}

func checkPort(ctx context.Context, port int) PortStatus {
	status := PortStatus{
		Port:      port,
		Available: ports.IsPortAvailable(port),
		Detail:    ports.GetPortStatus(ctx, port),
	}
	if !status.Available {
		status.NextFree = ports.FindAvailablePort(port + 1)
	}
	return status
}

func checkHost(ctx context.Context) HostStatus {
	status := HostStatus{OS: runtime.GOOS}

	if info, err := host.InfoWithContext(ctx); err == nil {
		status.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
		status.Uptime = time.Duration(info.Uptime) * time.Second
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		status.CPUs = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemoryUsed = vm.Used
		status.MemoryTotal = vm.Total
	}
	return status
}
