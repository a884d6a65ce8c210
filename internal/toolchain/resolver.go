package toolchain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds every command a probe runs.
const DefaultProbeTimeout = 5 * time.Second

// Location is a resolved package-manager executable.
type Location struct {
	Manager    Manager
	Executable string
	// RuntimeDir is the directory holding the Node.js runtime. Empty when it
	// could not be determined; the child then inherits PATH unchanged.
	RuntimeDir string
	// Version is set when the executable was verified by running it.
	Version  string
	Strategy string
}

// NotFoundError is returned when every strategy failed.
type NotFoundError struct {
	Manager  Manager
	Searched []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (searched %d locations)", DisplayName(e.Manager), len(e.Searched))
}

// Hint returns the remediation message for the missing manager.
func (e *NotFoundError) Hint() string {
	return InstallHint(e.Manager)
}

// Strategy is one way of finding the executable. Probe returns the path it
// found and true, or false to let the next strategy run.
type Strategy struct {
	Name  string
	Probe func(ctx context.Context, s *Search) (string, bool)
}

// Search is the state shared by the strategies of a single resolution.
type Search struct {
	System   System
	Manager  Manager
	Dirs     []string
	timeout  time.Duration
	searched []string
	version  string
}

// Check records path as searched and reports whether it is an existing file.
func (s *Search) Check(path string) bool {
	s.searched = append(s.searched, path)
	return s.System.exists(path)
}

// Run runs a command bounded by the probe timeout.
func (s *Search) Run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.searched = append(s.searched, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return s.System.Run(ctx, name, args...)
}

// Names returns the executable names of the manager on this system.
func (s *Search) Names() []string {
	return executableNames(s.System.GOOS, s.Manager)
}

// Options configures a Resolver.
type Options struct {
	Manager Manager
	// SearchDirs are probed before the well-known install directories.
	SearchDirs   []string
	ProbeTimeout time.Duration
	System       *System
	Strategies   []Strategy
	Logger       *slog.Logger
}

// Resolver locates a package-manager executable.
type Resolver struct {
	sys        System
	manager    Manager
	dirs       []string
	timeout    time.Duration
	strategies []Strategy
	log        *slog.Logger
}

// New creates a Resolver. Zero-valued options fall back to the host system,
// npm, and DefaultStrategies.
func New(opts Options) *Resolver {
	r := &Resolver{
		sys:        HostSystem(),
		manager:    opts.Manager,
		timeout:    opts.ProbeTimeout,
		strategies: opts.Strategies,
		log:        opts.Logger,
	}
	if opts.System != nil {
		r.sys = *opts.System
	}
	if r.manager == "" || r.manager == Auto {
		r.manager = NPM
	}
	if r.timeout <= 0 {
		r.timeout = DefaultProbeTimeout
	}
	if r.strategies == nil {
		r.strategies = DefaultStrategies()
	}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r.log = r.log.With("component", "toolchain")
	r.dirs = append(append([]string{}, opts.SearchDirs...), wellKnownDirs(r.sys)...)
	return r
}

// Manager returns the package manager this resolver looks for.
func (r *Resolver) Manager() Manager {
	return r.manager
}

// Resolve runs the strategies in order and returns the first hit. It never
// panics; all failures surface as *NotFoundError.
func (r *Resolver) Resolve(ctx context.Context) (Location, error) {
	search := &Search{
		System:  r.sys,
		Manager: r.manager,
		Dirs:    r.dirs,
		timeout: r.timeout,
	}

	for _, strategy := range r.strategies {
		if err := ctx.Err(); err != nil {
			return Location{}, err
		}
		path, ok := r.probe(ctx, strategy, search)
		if !ok {
			continue
		}

		loc := Location{
			Manager:    r.manager,
			Executable: path,
			Strategy:   strategy.Name,
		}
		if dir, ok := r.RuntimeDir(ctx, path); ok {
			loc.RuntimeDir = dir
		}
		if strategy.Name == StrategyPath {
			loc.Version = search.version
		}
		r.log.Debug("toolchain resolved", "strategy", strategy.Name, "path", path, "runtime_dir", loc.RuntimeDir)
		return loc, nil
	}

	r.log.Warn("toolchain not found", "manager", r.manager, "searched", len(search.searched))
	return Location{}, &NotFoundError{Manager: r.manager, Searched: search.searched}
}

func (r *Resolver) probe(ctx context.Context, strategy Strategy, search *Search) (path string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("toolchain probe panicked", "strategy", strategy.Name, "panic", rec)
			path, ok = "", false
		}
	}()
	return strategy.Probe(ctx, search)
}

// RuntimeDir returns the directory of the Node.js runtime for executable:
// its own directory when it is an absolute existing path, otherwise the
// directory of the runtime binary reported by the locate utility.
func (r *Resolver) RuntimeDir(ctx context.Context, executable string) (string, bool) {
	if filepath.IsAbs(executable) && r.sys.exists(executable) {
		return filepath.Dir(executable), true
	}

	search := &Search{System: r.sys, timeout: r.timeout}
	path, ok := locate(ctx, search, runtimeName(r.sys.GOOS))
	if !ok {
		return "", false
	}
	return filepath.Dir(path), true
}

// wellKnownDirs lists the directories Node.js installers commonly use.
func wellKnownDirs(sys System) []string {
	var dirs []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		for _, d := range dirs {
			if d == dir {
				return
			}
		}
		dirs = append(dirs, dir)
	}
	fromEnv := func(key string, elem ...string) string {
		base := sys.Getenv(key)
		if base == "" {
			return ""
		}
		return filepath.Join(append([]string{base}, elem...)...)
	}

	if sys.windows() {
		add(`C:\Program Files\nodejs`)
		add(`C:\Program Files (x86)\nodejs`)
		add(fromEnv("ProgramFiles", "nodejs"))
		add(fromEnv("ProgramFiles(x86)", "nodejs"))
		add(fromEnv("LOCALAPPDATA", "Programs", "nodejs"))
		add(fromEnv("APPDATA", "npm"))
		return dirs
	}

	add("/usr/local/bin")
	add("/opt/homebrew/bin")
	add("/usr/bin")
	add(sys.Getenv("NVM_BIN"))
	add(fromEnv("VOLTA_HOME", "bin"))
	add(fromEnv("HOME", ".volta", "bin"))
	add(fromEnv("HOME", ".local", "bin"))
	add("/snap/bin")
	return dirs
}
