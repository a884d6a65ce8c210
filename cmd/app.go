package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/config"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ports"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/session"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/supervisor"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
)

var (
	appDirFlag   string
	configFlag   string
	logLevelFlag string

	current *app
)

// app is what every command needs: the app directory, its configuration,
// a logger and the session preferences.
type app struct {
	dir      string
	cfg      config.Config
	log      *slog.Logger
	closeLog func() error
	session  *session.Session
}

func loadApp(cmd *cobra.Command, _ []string) error {
	dir := appDirFlag
	if dir == "" {
		dir = config.AppDir()
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve app directory: %w", err)
	}

	cfg, err := config.Load(dir, configFlag)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	log, closeLog, err := newLogger(level, logsToFile(cmd))
	if err != nil {
		return err
	}

	var store session.Store
	fs, err := session.OpenFileStore(config.SessionPath())
	if err != nil {
		log.Warn("session store unavailable, preferences will not be kept", "path", config.SessionPath(), "error", err)
		store = session.NewMemoryStore()
	} else {
		store = fs
	}

	current = &app{
		dir:      dir,
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		session:  session.New(store, log),
	}
	log.Debug("launcher ready", "app_dir", dir, "manager", cfg.Manager, "script", cfg.Script, "port", cfg.Port)
	return nil
}

// logsToFile reports whether the dashboard will own the terminal. Only the
// start commands define --no-tui.
func logsToFile(cmd *cobra.Command) bool {
	noTUI, err := cmd.Flags().GetBool("no-tui")
	return err == nil && !noTUI
}

func newLogger(level string, toFile bool) (*slog.Logger, func() error, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var w io.Writer = os.Stderr
	closeLog := func() error { return nil }
	if toFile {
		w = io.Discard
		path := config.LogPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				w = f
				closeLog = f.Close
			}
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), closeLog, nil
}

func (a *app) close() {
	if err := a.closeLog(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to close log file:", err)
	}
}

func (a *app) manager() toolchain.Manager {
	m, _ := toolchain.ParseManager(a.cfg.Manager)
	if m == toolchain.Auto {
		m = toolchain.DetectManager(a.dir)
	}
	return m
}

// resolver searches the configured directories and, first, the directory
// the toolchain was found in last time.
func (a *app) resolver() *toolchain.Resolver {
	dirs := a.cfg.SearchDirs
	if last := a.session.Load().LastToolchainPath; last != "" {
		dirs = append([]string{filepath.Dir(last)}, dirs...)
	}
	return toolchain.New(toolchain.Options{
		Manager:    a.manager(),
		SearchDirs: dirs,
		Logger:     a.log,
	})
}

func (a *app) supervisor(r supervisor.Reporter) *supervisor.Supervisor {
	res := a.resolver()
	return supervisor.New(supervisor.Options{
		AppDir:          a.dir,
		Manager:         res.Manager(),
		Script:          a.cfg.Script,
		Port:            a.cfg.Port,
		GracePeriod:     a.cfg.GracePeriod,
		KillTimeout:     a.cfg.KillTimeout,
		BenignExitCodes: a.cfg.BenignExitCodes,
		Resolver:        res,
		Reporter:        r,
		Session:         a.session,
		Address:         ports.SiteLocalAddress,
		Logger:          a.log,
	})
}

func (a *app) dependenciesInstalled() bool {
	info, err := os.Stat(filepath.Join(a.dir, "node_modules"))
	return err == nil && info.IsDir()
}
