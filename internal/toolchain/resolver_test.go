package toolchain

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSystem returns a linux System whose commands all fail unless a
// response is registered in runs, keyed by the full command line.
func fakeSystem(env map[string]string, runs map[string]string) *System {
	return &System{
		GOOS:   "linux",
		Getenv: func(key string) string { return env[key] },
		Stat:   os.Stat,
		LookPath: func(file string) (string, error) {
			return "", errors.New("not on PATH")
		},
		Run: func(_ context.Context, name string, args ...string) (string, error) {
			line := strings.TrimSpace(name + " " + strings.Join(args, " "))
			if out, ok := runs[line]; ok {
				return out, nil
			}
			return "", errors.New("exit status 1")
		},
	}
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestResolveAllStrategiesFail(t *testing.T) {
	sys := fakeSystem(map[string]string{"HOME": t.TempDir()}, nil)
	sys.Stat = func(string) (fs.FileInfo, error) { return nil, fs.ErrNotExist }

	r := New(Options{System: sys})
	_, err := r.Resolve(context.Background())

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, NPM, notFound.Manager)
	require.NotEmpty(t, notFound.Searched)
	require.Contains(t, notFound.Hint(), "https://nodejs.org/")
}

func TestResolveWindowsWithoutEnvironment(t *testing.T) {
	sys := fakeSystem(nil, nil)
	sys.GOOS = "windows"
	sys.Stat = func(string) (fs.FileInfo, error) { return nil, fs.ErrNotExist }

	_, err := New(Options{System: sys}).Resolve(context.Background())

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Contains(t, notFound.Searched, "npm.cmd --version")
	require.Contains(t, notFound.Searched, "cmd /c where npm.cmd")
}

func TestResolvePathStrategy(t *testing.T) {
	dir := t.TempDir()
	npm := touch(t, filepath.Join(dir, "bin", "npm"))

	sys := fakeSystem(nil, map[string]string{"npm --version": "10.2.0\n"})
	sys.LookPath = func(file string) (string, error) { return npm, nil }

	loc, err := New(Options{System: sys}).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, npm, loc.Executable)
	require.Equal(t, filepath.Dir(npm), loc.RuntimeDir)
	require.Equal(t, "10.2.0", loc.Version)
	require.Equal(t, StrategyPath, loc.Strategy)
}

func TestResolveSearchDirs(t *testing.T) {
	dir := t.TempDir()
	npm := touch(t, filepath.Join(dir, "npm"))

	loc, err := New(Options{
		System:     fakeSystem(nil, nil),
		SearchDirs: []string{filepath.Join(dir, "missing"), dir},
	}).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, npm, loc.Executable)
	require.Equal(t, dir, loc.RuntimeDir)
	require.Equal(t, StrategyWellKnown, loc.Strategy)
}

func TestResolveRuntimeSibling(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "node"))
	npm := touch(t, filepath.Join(dir, "npm"))

	loc, err := New(Options{
		System:     fakeSystem(nil, nil),
		SearchDirs: []string{dir},
		Strategies: []Strategy{DefaultStrategies()[2]},
	}).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, npm, loc.Executable)
	require.Equal(t, StrategyRuntimeSibling, loc.Strategy)
}

func TestResolveLocate(t *testing.T) {
	dir := t.TempDir()
	npm := touch(t, filepath.Join(dir, "npm"))

	loc, err := New(Options{
		System:     fakeSystem(nil, map[string]string{"which npm": npm + "\n"}),
		Strategies: []Strategy{DefaultStrategies()[3]},
	}).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, npm, loc.Executable)
	require.Equal(t, StrategyLocate, loc.Strategy)
}

func TestResolveLocateRejectsMissingPath(t *testing.T) {
	sys := fakeSystem(nil, map[string]string{"which npm": "/nonexistent/npm\n"})

	_, err := New(Options{
		System:     sys,
		Strategies: []Strategy{DefaultStrategies()[3]},
	}).Resolve(context.Background())

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResolveRecoversFromPanickingProbe(t *testing.T) {
	dir := t.TempDir()
	npm := touch(t, filepath.Join(dir, "npm"))

	loc, err := New(Options{
		System:     fakeSystem(nil, nil),
		SearchDirs: []string{dir},
		Strategies: []Strategy{
			{Name: "broken", Probe: func(context.Context, *Search) (string, bool) { panic("boom") }},
			DefaultStrategies()[1],
		},
	}).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, npm, loc.Executable)
}

func TestResolveHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{System: fakeSystem(nil, nil)}).Resolve(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRuntimeDirFromLocate(t *testing.T) {
	dir := t.TempDir()
	node := touch(t, filepath.Join(dir, "node"))

	r := New(Options{System: fakeSystem(nil, map[string]string{"which node": node})})

	got, ok := r.RuntimeDir(context.Background(), "npm")
	require.True(t, ok)
	require.Equal(t, dir, got)

	_, ok = New(Options{System: fakeSystem(nil, nil)}).RuntimeDir(context.Background(), "npm")
	require.False(t, ok)
}

func TestEnvironment(t *testing.T) {
	tests := []struct {
		name string
		goos string
		base []string
		dir  string
		want []string
	}{
		{
			name: "prepends to PATH",
			goos: "linux",
			base: []string{"HOME=/home/me", "PATH=/usr/bin:/bin"},
			dir:  "/opt/node/bin",
			want: []string{"HOME=/home/me", "PATH=/opt/node/bin:/usr/bin:/bin"},
		},
		{
			name: "adds PATH when absent",
			goos: "linux",
			base: []string{"HOME=/home/me"},
			dir:  "/opt/node/bin",
			want: []string{"HOME=/home/me", "PATH=/opt/node/bin"},
		},
		{
			name: "empty dir leaves env unchanged",
			goos: "linux",
			base: []string{"PATH=/usr/bin"},
			dir:  "",
			want: []string{"PATH=/usr/bin"},
		},
		{
			name: "windows key is case insensitive",
			goos: "windows",
			base: []string{`Path=C:\Windows`},
			dir:  `C:\Program Files\nodejs`,
			want: []string{`Path=C:\Program Files\nodejs;C:\Windows`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := environment(tt.goos, tt.base, tt.dir)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFirstPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/usr/local/bin/npm\n", "/usr/local/bin/npm"},
		{"C:\\nodejs\\npm.cmd\r\nC:\\other\\npm\r\n", "C:\\nodejs\\npm.cmd"},
		{"INFO: Could not find files for the given pattern(s).\r\n", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := firstPath(tt.in); got != tt.want {
			t.Errorf("firstPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
