package toolchain

import (
	"os"
	"path/filepath"
	"strings"
)

// Manager is a JavaScript package manager the launcher can drive.
type Manager string

const (
	NPM  Manager = "npm"
	PNPM Manager = "pnpm"
	Yarn Manager = "yarn"
	Bun  Manager = "bun"

	// Auto selects the manager from the lock files in the app directory.
	Auto Manager = "auto"
)

// ParseManager maps a configuration value to a Manager. The empty string maps to npm.
func ParseManager(name string) (Manager, bool) {
	switch Manager(strings.ToLower(strings.TrimSpace(name))) {
	case "", NPM:
		return NPM, true
	case PNPM:
		return PNPM, true
	case Yarn:
		return Yarn, true
	case Bun:
		return Bun, true
	case Auto:
		return Auto, true
	default:
		return "", false
	}
}

// DetectManager checks for lock files in the app directory and returns the
// manager that owns them. Priority: pnpm > bun > yarn > npm.
func DetectManager(appDir string) Manager {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(appDir, name))
		return err == nil
	}

	switch {
	case exists("pnpm-lock.yaml"), exists("pnpm-workspace.yaml"), usesWorkspaceProtocol(appDir):
		return PNPM
	case exists("bun.lockb"), exists("bun.lock"):
		return Bun
	case exists("yarn.lock"):
		return Yarn
	default:
		return NPM
	}
}

// usesWorkspaceProtocol reports whether package.json uses the pnpm-only
// workspace: protocol, which means a lock file may simply not exist yet.
func usesWorkspaceProtocol(appDir string) bool {
	data, err := os.ReadFile(filepath.Join(appDir, "package.json"))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "\"workspace:")
}

// InstallHint returns the remediation text shown when a manager cannot be found.
func InstallHint(m Manager) string {
	switch m {
	case PNPM:
		return "Please run 'corepack enable pnpm' to continue."
	case Yarn:
		return "Please run 'corepack enable yarn' to continue."
	case Bun:
		return "Please install bun from https://bun.sh or run 'curl -fsSL https://bun.sh/install | bash'"
	default:
		return "Please install Node.js from https://nodejs.org/"
	}
}

// DisplayName returns a user-friendly name for the package manager
func DisplayName(m Manager) string {
	switch m {
	case PNPM:
		return "pnpm"
	case Yarn:
		return "Yarn"
	case Bun:
		return "Bun"
	case NPM, "":
		return "npm"
	default:
		return string(m)
	}
}

// RunArgs returns the arguments that run a package.json script. All supported
// managers share the `run <script>` form.
func RunArgs(script string) []string {
	return []string{"run", script}
}

// InstallArgs returns the arguments that install dependencies.
func InstallArgs(m Manager, appDir string) []string {
	if m == PNPM {
		if _, err := os.Stat(filepath.Join(appDir, "pnpm-workspace.yaml")); err == nil {
			return []string{"install", "-r"}
		}
	}
	return []string{"install"}
}
