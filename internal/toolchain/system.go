package toolchain

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// System is the slice of the host the resolver looks at. Tests replace the
// functions to simulate other machines.
type System struct {
	GOOS     string
	Getenv   func(key string) string
	Stat     func(path string) (fs.FileInfo, error)
	LookPath func(file string) (string, error)
	// Run executes name with args and returns its standard output. A non-zero
	// exit status is reported as an error.
	Run func(ctx context.Context, name string, args ...string) (string, error)
}

// HostSystem returns a System backed by the running operating system.
func HostSystem() System {
	return System{
		GOOS:     runtime.GOOS,
		Getenv:   os.Getenv,
		Stat:     os.Stat,
		LookPath: exec.LookPath,
		Run: func(ctx context.Context, name string, args ...string) (string, error) {
			out, err := exec.CommandContext(ctx, name, args...).Output()
			return string(out), err
		},
	}
}

func (s System) windows() bool {
	return s.GOOS == "windows"
}

// exists reports whether path names a regular file.
func (s System) exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := s.Stat(path)
	return err == nil && !info.IsDir()
}

// executableNames returns the file names a manager binary can have.
func executableNames(goos string, m Manager) []string {
	name := string(m)
	if name == "" || m == Auto {
		name = string(NPM)
	}
	if goos == "windows" {
		return []string{name + ".cmd", name}
	}
	return []string{name}
}

// runtimeName returns the file name of the Node.js runtime binary.
func runtimeName(goos string) string {
	if goos == "windows" {
		return "node.exe"
	}
	return "node"
}

// RuntimePath returns the path of the Node.js runtime inside dir.
func (s System) RuntimePath(dir string) string {
	return filepath.Join(dir, runtimeName(s.GOOS))
}

// Environment returns a copy of base with dir prepended to PATH. An empty dir
// returns an unchanged copy.
func Environment(base []string, dir string) []string {
	return environment(runtime.GOOS, base, dir)
}

func environment(goos string, base []string, dir string) []string {
	env := make([]string, 0, len(base)+1)
	sep := string(os.PathListSeparator)
	if goos == "windows" {
		sep = ";"
	}

	found := false
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if ok && dir != "" && isPathKey(goos, key) && !found {
			found = true
			if value == "" {
				kv = key + "=" + dir
			} else {
				kv = key + "=" + dir + sep + value
			}
		}
		env = append(env, kv)
	}
	if !found && dir != "" {
		env = append(env, "PATH="+dir)
	}
	return env
}

func isPathKey(goos, key string) bool {
	if goos == "windows" {
		return strings.EqualFold(key, "PATH")
	}
	return key == "PATH"
}
