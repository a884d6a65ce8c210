package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
)

type stubResolver struct {
	loc toolchain.Location
	err error
}

func (s stubResolver) Manager() toolchain.Manager { return toolchain.NPM }

func (s stubResolver) Resolve(context.Context) (toolchain.Location, error) {
	return s.loc, s.err
}

func nodeSystem(versions map[string]string) *toolchain.System {
	return &toolchain.System{
		GOOS: "linux",
		LookPath: func(file string) (string, error) {
			return "/usr/bin/" + file, nil
		},
		Run: func(_ context.Context, name string, args ...string) (string, error) {
			if v, ok := versions[name]; ok {
				return v, nil
			}
			return "", errors.New("exec: not found")
		},
	}
}

func writeApp(t *testing.T, pkg string, installed bool) string {
	t.Helper()
	dir := t.TempDir()
	if pkg != "" {
		if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkg), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if installed {
		if err := os.Mkdir(filepath.Join(dir, "node_modules"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func baseParams(appDir string, r Resolver, sys *toolchain.System) Params {
	return Params{
		AppDir:   appDir,
		Script:   "dev",
		Port:     3000,
		Resolver: r,
		System:   sys,
		PortStatus: func(_ context.Context, port int) PortStatus {
			return PortStatus{Port: port, Available: true, Detail: "Port 3000 is available"}
		},
		Host: func(context.Context) HostStatus { return HostStatus{OS: "linux", CPUs: 4} },
	}
}

func TestDiagnoseHealthy(t *testing.T) {
	dir := writeApp(t, `{"scripts":{"dev":"vite"}}`, true)
	r := stubResolver{loc: toolchain.Location{
		Manager:    toolchain.NPM,
		Executable: "/opt/node/bin/npm",
		RuntimeDir: "/opt/node/bin",
		Strategy:   toolchain.StrategyWellKnown,
	}}
	sys := nodeSystem(map[string]string{"/opt/node/bin/node": "v20.11.0\n"})

	d := Diagnose(context.Background(), baseParams(dir, r, sys))

	if !d.Healthy {
		t.Fatalf("expected healthy, issues: %v", d.Issues)
	}
	if d.Runtime.Version != "v20.11.0" || d.Runtime.Path != "/opt/node/bin/node" {
		t.Errorf("unexpected runtime %+v", d.Runtime)
	}
	if d.Dependencies.ManagerPath != "/opt/node/bin/npm" || d.Dependencies.ManagerStrategy != toolchain.StrategyWellKnown {
		t.Errorf("unexpected manager %+v", d.Dependencies)
	}
	if d.Dependencies.InstallCommand != "npm install" {
		t.Errorf("unexpected install command %q", d.Dependencies.InstallCommand)
	}
	if d.Host.CPUs != 4 {
		t.Errorf("host check not used: %+v", d.Host)
	}
}

func TestDiagnoseMissingToolchain(t *testing.T) {
	dir := writeApp(t, `{"scripts":{"dev":"vite"}}`, true)
	r := stubResolver{err: &toolchain.NotFoundError{Manager: toolchain.NPM}}

	d := Diagnose(context.Background(), baseParams(dir, r, nodeSystem(nil)))

	if d.Healthy {
		t.Fatal("expected unhealthy diagnosis")
	}
	if d.Dependencies.ManagerInstalled {
		t.Error("manager should be reported missing")
	}
	if !strings.Contains(d.Dependencies.ManagerHint, "https://nodejs.org/") {
		t.Errorf("hint missing install URL: %q", d.Dependencies.ManagerHint)
	}
	if d.Runtime.Installed {
		t.Error("runtime should be reported missing")
	}
}

func TestDiagnoseAppProblems(t *testing.T) {
	tests := []struct {
		name      string
		pkg       string
		installed bool
		issue     string
	}{
		{"no package.json", "", false, "package.json not found"},
		{"missing script", `{"scripts":{"build":"vite build"}}`, true, `no "dev" script`},
		{"dependencies missing", `{"scripts":{"dev":"vite"}}`, false, "Dependencies are not installed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeApp(t, tt.pkg, tt.installed)
			r := stubResolver{loc: toolchain.Location{Executable: "/usr/bin/npm"}}
			sys := nodeSystem(map[string]string{"node": "v18.0.0"})

			d := Diagnose(context.Background(), baseParams(dir, r, sys))

			if d.Healthy {
				t.Fatal("expected unhealthy diagnosis")
			}
			if !strings.Contains(strings.Join(d.Issues, "\n"), tt.issue) {
				t.Errorf("expected issue %q, got %v", tt.issue, d.Issues)
			}
			if d.Runtime.Path != "/usr/bin/node" {
				t.Errorf("expected PATH lookup for node, got %q", d.Runtime.Path)
			}
		})
	}
}

func TestDiagnoseBusyPortIsWarning(t *testing.T) {
	dir := writeApp(t, `{"scripts":{"dev":"vite"}}`, true)
	r := stubResolver{loc: toolchain.Location{Executable: "/usr/bin/npm"}}
	params := baseParams(dir, r, nodeSystem(map[string]string{"node": "v18.0.0"}))
	params.PortStatus = func(_ context.Context, port int) PortStatus {
		return PortStatus{Port: port, Detail: "Port 3000 is in use (PID 42)"}
	}

	d := Diagnose(context.Background(), params)

	if !d.Healthy {
		t.Errorf("busy port should not make the app unhealthy: %v", d.Issues)
	}
	if len(d.Issues) != 1 || d.Issues[0] != "Port 3000 is in use (PID 42)" {
		t.Errorf("unexpected issues %v", d.Issues)
	}
}

func TestDiagnoseReportsLockfileManager(t *testing.T) {
	dir := writeApp(t, `{"scripts":{"dev":"vite"}}`, true)
	if err := os.WriteFile(filepath.Join(dir, "pnpm-lock.yaml"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	r := stubResolver{loc: toolchain.Location{Executable: "/usr/bin/npm"}}

	d := Diagnose(context.Background(), baseParams(dir, r, nodeSystem(map[string]string{"node": "v18.0.0"})))

	if d.Dependencies.DetectedManager != "pnpm" {
		t.Errorf("expected pnpm from lockfile, got %q", d.Dependencies.DetectedManager)
	}
}
