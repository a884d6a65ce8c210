package toolchain

import (
	"context"
	"path/filepath"
	"strings"
)

// Strategy names, in the order DefaultStrategies runs them.
const (
	StrategyPath           = "path"
	StrategyWellKnown      = "well-known"
	StrategyRuntimeSibling = "runtime-sibling"
	StrategyLocate         = "locate"
)

// DefaultStrategies returns the built-in search order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyPath, Probe: probePath},
		{Name: StrategyWellKnown, Probe: probeWellKnown},
		{Name: StrategyRuntimeSibling, Probe: probeRuntimeSibling},
		{Name: StrategyLocate, Probe: probeLocate},
	}
}

// probePath runs each executable name with --version and accepts the first
// one that exits cleanly.
func probePath(ctx context.Context, s *Search) (string, bool) {
	for _, name := range s.Names() {
		out, err := s.Run(ctx, name, "--version")
		if err != nil {
			continue
		}
		s.version = strings.TrimSpace(out)

		if s.System.LookPath != nil {
			if abs, err := s.System.LookPath(name); err == nil {
				if p, err := filepath.Abs(abs); err == nil {
					return p, true
				}
				return abs, true
			}
		}
		return name, true
	}
	return "", false
}

func probeWellKnown(_ context.Context, s *Search) (string, bool) {
	for _, dir := range s.Dirs {
		for _, name := range s.Names() {
			if path := filepath.Join(dir, name); s.Check(path) {
				return path, true
			}
		}
	}
	return "", false
}

// probeRuntimeSibling finds the runtime binary and accepts an executable
// installed next to it.
func probeRuntimeSibling(_ context.Context, s *Search) (string, bool) {
	runtimeBin := runtimeName(s.System.GOOS)
	for _, dir := range s.Dirs {
		if !s.Check(filepath.Join(dir, runtimeBin)) {
			continue
		}
		for _, name := range s.Names() {
			if path := filepath.Join(dir, name); s.Check(path) {
				return path, true
			}
		}
	}
	return "", false
}

// probeLocate asks the system locate utility for the executable, then for
// the runtime binary and its sibling.
func probeLocate(ctx context.Context, s *Search) (string, bool) {
	for _, name := range s.Names() {
		if path, ok := locate(ctx, s, name); ok {
			return path, true
		}
	}

	runtimePath, ok := locate(ctx, s, runtimeName(s.System.GOOS))
	if !ok {
		return "", false
	}
	dir := filepath.Dir(runtimePath)
	for _, name := range s.Names() {
		if path := filepath.Join(dir, name); s.Check(path) {
			return path, true
		}
	}
	return "", false
}

// locate runs `where` on Windows and `which` elsewhere and returns the first
// reported path that exists.
func locate(ctx context.Context, s *Search, name string) (string, bool) {
	var (
		out string
		err error
	)
	if s.System.windows() {
		out, err = s.Run(ctx, "cmd", "/c", "where", name)
	} else {
		out, err = s.Run(ctx, "which", name)
	}
	if err != nil {
		return "", false
	}

	line := firstPath(out)
	if line == "" || !s.Check(line) {
		return "", false
	}
	return line, true
}

// firstPath returns the first non-empty line of out that is not an
// informational message.
func firstPath(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "INFO:") {
			continue
		}
		return line
	}
	return ""
}
