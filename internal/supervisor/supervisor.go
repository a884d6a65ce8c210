// Package supervisor owns the lifecycle of the dev server process.
//
// A Supervisor runs a single goroutine that processes commands one at a
// time. Only that goroutine touches the child process and changes the
// state, so start, stop and the natural-exit path never race. Output
// streams and the exit wait run on their own goroutines and report back
// through the Reporter and the command queue respectively.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ports"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/pump"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
)

// Resolver finds the package-manager executable.
type Resolver interface {
	Resolve(ctx context.Context) (toolchain.Location, error)
}

// SessionRecorder persists session data at run boundaries.
type SessionRecorder interface {
	Save(networkAddr, toolchainPath string) error
}

// Options configures a Supervisor. Zero values take the defaults noted.
type Options struct {
	// AppDir is the working directory of the child.
	AppDir  string
	Manager toolchain.Manager
	// Script is the package.json script to run. Default "dev".
	Script string
	// Port is the dev server port. Default 3000.
	Port int
	// GracePeriod is how long Stop waits after asking the child to exit
	// before killing it. Default 1s.
	GracePeriod time.Duration
	// KillTimeout bounds the wait after a kill. Default 5s.
	KillTimeout time.Duration
	// BenignExitCodes are natural exit codes that are not reported as
	// abnormal. Empty means the default {0, 1}.
	BenignExitCodes []int

	Resolver Resolver
	Spawner  Spawner
	Reporter Reporter
	Session  SessionRecorder
	// Address returns the site-local address used in the network URL.
	Address func() string
	// PortOwner reports whether port is taken and by which PID.
	PortOwner func(ctx context.Context, port int) (inUse bool, pid int)
	// Environ returns the environment the child inherits.
	Environ func() []string
	Logger  *slog.Logger
}

type mode int

const (
	modeServer mode = iota
	modeInstall
)

// child is a spawned process. Fields below done are written by the exit
// waiter before done is closed.
type child struct {
	id          string
	mode        mode
	proc        Process
	loc         toolchain.Location
	networkAddr string
	result      chan error

	done      chan struct{}
	code      int
	waitErr   error
	streamErr error
}

type (
	startCmd   struct{ reply chan error }
	stopCmd    struct{ reply chan struct{} }
	installCmd struct{ reply chan installReply }
	exitEvent  struct{ c *child }
)

type installReply struct {
	done <-chan error
	err  error
}

// Supervisor starts, watches and stops one child process at a time.
type Supervisor struct {
	opts   Options
	log    *slog.Logger
	report Reporter

	state     atomic.Int32
	cmds      chan any
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// current is owned by the loop goroutine.
	current *child
}

// New creates a Supervisor and starts its command loop. Call Close to
// release it.
func New(opts Options) *Supervisor {
	if opts.Manager == "" || opts.Manager == toolchain.Auto {
		opts.Manager = toolchain.NPM
	}
	if opts.Script == "" {
		opts.Script = "dev"
	}
	if opts.Port == 0 {
		opts.Port = ports.DefaultPort
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = time.Second
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = 5 * time.Second
	}
	if len(opts.BenignExitCodes) == 0 {
		opts.BenignExitCodes = []int{0, 1}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Resolver == nil {
		opts.Resolver = toolchain.New(toolchain.Options{Manager: opts.Manager, Logger: opts.Logger})
	}
	if opts.Spawner == nil {
		opts.Spawner = ExecSpawner{}
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	if opts.Address == nil {
		opts.Address = ports.SiteLocalAddress
	}
	if opts.PortOwner == nil {
		opts.PortOwner = defaultPortOwner
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}

	s := &Supervisor{
		opts:    opts,
		log:     opts.Logger.With("component", "supervisor"),
		report:  opts.Reporter,
		cmds:    make(chan any, 16),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

func defaultPortOwner(ctx context.Context, port int) (bool, int) {
	if ports.IsPortAvailable(port) {
		return false, 0
	}
	return true, ports.GetProcessOnPort(ctx, port)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// IsRunning reports whether the server is starting or running.
func (s *Supervisor) IsRunning() bool {
	st := s.State()
	return st == StateStarting || st == StateRunning
}

// Start launches the dev server and returns once it is running. It returns
// ErrAlreadyRunning when a server is already starting or running.
func (s *Supervisor) Start(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, startCmd{reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the current child, gracefully first, and returns once it is
// gone. Without a child it does nothing.
func (s *Supervisor) Stop(ctx context.Context) error {
	reply := make(chan struct{})
	if err := s.send(ctx, stopCmd{reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Install runs the package manager's install command and waits for it.
// A non-zero exit is returned as *AbnormalExitError.
func (s *Supervisor) Install(ctx context.Context) error {
	reply := make(chan installReply, 1)
	if err := s.send(ctx, installCmd{reply: reply}); err != nil {
		return err
	}

	var r installReply
	select {
	case r = <-reply:
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	if r.err != nil {
		return r.err
	}

	select {
	case err := <-r.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops any child and ends the command loop.
func (s *Supervisor) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.stopped
}

func (s *Supervisor) send(ctx context.Context, cmd any) error {
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}
	select {
	case s.cmds <- cmd:
		return nil
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) loop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.quit:
			if s.current != nil {
				s.stop()
			}
			return
		case cmd := <-s.cmds:
			s.handle(cmd)
		}
	}
}

func (s *Supervisor) handle(cmd any) {
	switch c := cmd.(type) {
	case startCmd:
		c.reply <- s.start()
	case stopCmd:
		s.stop()
		close(c.reply)
	case installCmd:
		c.reply <- s.install()
	case exitEvent:
		s.exited(c.c)
	}
}

func (s *Supervisor) start() error {
	if st := s.State(); st == StateStarting || st == StateRunning {
		s.log.Debug("start ignored", "state", st)
		s.report.OnNotice(LevelInfo, "Server is already running")
		return ErrAlreadyRunning
	}

	s.setState(StateStarting)
	s.report.OnNotice(LevelInfo, "Starting server...")

	ctx := context.Background()
	loc, err := s.resolve(ctx)
	if err != nil {
		s.setState(StateFailed)
		return err
	}

	if prev := s.current; prev != nil {
		s.report.OnNotice(LevelInfo, "Stopping previous process...")
		s.terminate(prev)
		s.current = nil
		s.release(prev)
	}

	if inUse, pid := s.opts.PortOwner(ctx, s.opts.Port); inUse {
		msg := fmt.Sprintf("Port %d is already in use", s.opts.Port)
		if pid > 0 {
			msg = fmt.Sprintf("%s (PID %d)", msg, pid)
		}
		s.log.Warn("port in use", "port", s.opts.Port, "pid", pid)
		s.report.OnNotice(LevelWarn, msg)
	}

	launch := SpawnConfig{
		Path: loc.Executable,
		Args: toolchain.RunArgs(s.opts.Script),
		Dir:  s.opts.AppDir,
		Env:  toolchain.Environment(s.opts.Environ(), loc.RuntimeDir),
	}
	proc, err := s.opts.Spawner.Spawn(ctx, launch)
	if err != nil {
		s.log.Error("failed to spawn server", "path", launch.Path, "error", err)
		s.report.OnNotice(LevelError, "Failed to start server: "+err.Error())
		s.setState(StateFailed)
		return &SpawnError{Path: launch.Path, Args: launch.Args, Err: err}
	}

	c := s.attach(proc, modeServer, loc)
	c.networkAddr = s.opts.Address()
	s.current = c
	s.log.Info("server started", "run_id", c.id, "pid", proc.Pid(), "path", loc.Executable, "dir", launch.Dir)

	s.setState(StateRunning)
	s.report.OnNotice(LevelSuccess, "Server started")
	s.report.OnURLsReady(ports.LocalURL(s.opts.Port), ports.NetworkURL(c.networkAddr, s.opts.Port))
	return nil
}

func (s *Supervisor) install() installReply {
	if s.current != nil {
		s.report.OnNotice(LevelWarn, "Another process is running; stop it before installing")
		return installReply{err: ErrAlreadyRunning}
	}

	ctx := context.Background()
	loc, err := s.resolve(ctx)
	if err != nil {
		return installReply{err: err}
	}

	launch := SpawnConfig{
		Path: loc.Executable,
		Args: toolchain.InstallArgs(s.opts.Manager, s.opts.AppDir),
		Dir:  s.opts.AppDir,
		Env:  toolchain.Environment(s.opts.Environ(), loc.RuntimeDir),
	}
	proc, err := s.opts.Spawner.Spawn(ctx, launch)
	if err != nil {
		s.log.Error("failed to spawn install", "path", launch.Path, "error", err)
		s.report.OnNotice(LevelError, "Installing dependencies... failed: "+err.Error())
		return installReply{err: &SpawnError{Path: launch.Path, Args: launch.Args, Err: err}}
	}

	c := s.attach(proc, modeInstall, loc)
	s.current = c
	s.log.Info("install started", "run_id", c.id, "pid", proc.Pid(), "path", loc.Executable)
	s.report.OnNotice(LevelInfo, "Installing dependencies...")
	return installReply{done: c.result}
}

// resolve finds the toolchain and reports a missing one.
func (s *Supervisor) resolve(ctx context.Context) (toolchain.Location, error) {
	loc, err := s.opts.Resolver.Resolve(ctx)
	if err != nil {
		missing := &ToolchainMissingError{Err: err}
		s.log.Error("toolchain not found", "error", err)
		s.report.OnNotice(LevelError, fmt.Sprintf("%s not found.", toolchain.DisplayName(s.opts.Manager)))
		s.report.OnNotice(LevelError, missing.Hint())
		return toolchain.Location{}, missing
	}
	s.log.Debug("using toolchain", "path", loc.Executable, "strategy", loc.Strategy)
	return loc, nil
}

// attach starts the output pumps and the exit waiter for proc.
func (s *Supervisor) attach(proc Process, m mode, loc toolchain.Location) *child {
	c := &child{
		id:   uuid.NewString(),
		mode: m,
		proc: proc,
		loc:  loc,
		done: make(chan struct{}),
	}
	if m == modeInstall {
		c.result = make(chan error, 1)
	}
	log := s.log.With("run_id", c.id)

	streams := []struct {
		name    string
		r       io.Reader
		isError bool
	}{
		{"stdout", proc.Stdout(), false},
		{"stderr", proc.Stderr(), true},
	}

	var g errgroup.Group
	for _, stream := range streams {
		g.Go(func() error {
			p := pump.Pump{Stream: stream.name, IsError: stream.isError, Sink: s.report, Log: log}
			if err := p.Run(stream.r); err != nil {
				readErr := &StreamReadError{Stream: stream.name, Err: err}
				s.report.OnNotice(LevelWarn, readErr.Error())
				return readErr
			}
			return nil
		})
	}

	go func() {
		code, err := proc.Wait()
		streamErr := g.Wait()

		c.code, c.waitErr, c.streamErr = code, err, streamErr
		close(c.done)

		select {
		case s.cmds <- exitEvent{c: c}:
		case <-s.stopped:
		}
	}()
	return c
}

// exited handles a natural exit. A child already torn down by stop is
// ignored.
func (s *Supervisor) exited(c *child) {
	if s.current != c {
		return
	}
	s.current = nil
	log := s.log.With("run_id", c.id)

	if c.streamErr != nil {
		log.Debug("output stream failed earlier", "error", c.streamErr)
	}

	if c.mode == modeInstall {
		s.finishInstall(c)
		return
	}

	switch {
	case c.waitErr != nil:
		log.Error("server wait failed", "error", c.waitErr)
		s.report.OnNotice(LevelError, "Server process error: "+c.waitErr.Error())
	case !slices.Contains(s.opts.BenignExitCodes, c.code):
		err := &AbnormalExitError{Code: c.code}
		log.Warn("server exited abnormally", "error", err)
		s.report.OnNotice(LevelWarn, fmt.Sprintf("Server stopped with exit code: %d", c.code))
	default:
		log.Info("server exited", "code", c.code)
	}

	s.setState(StateStopped)
	s.persist(c)
	s.report.OnNotice(LevelInfo, "Server stopped")
}

// stop tears down the current child.
func (s *Supervisor) stop() {
	c := s.current
	if c == nil {
		return
	}

	if c.mode == modeServer {
		s.setState(StateStopping)
		s.report.OnNotice(LevelInfo, "Stopping server...")
	} else {
		s.report.OnNotice(LevelInfo, "Cancelling install...")
	}

	s.terminate(c)
	s.current = nil

	if c.mode == modeInstall {
		s.release(c)
		return
	}

	s.log.Info("server stopped", "run_id", c.id)
	s.setState(StateStopped)
	s.persist(c)
	s.report.OnNotice(LevelInfo, "Server stopped")
}

// release finishes a child that was stopped rather than exiting on its own.
func (s *Supervisor) release(c *child) {
	if c.result != nil {
		c.result <- ErrStopped
	}
}

// terminate asks c to exit, waits the grace period, then kills it and its
// descendants.
func (s *Supervisor) terminate(c *child) {
	log := s.log.With("run_id", c.id, "pid", c.proc.Pid())

	if err := c.proc.Terminate(); err != nil {
		log.Debug("terminate failed", "error", err)
	}

	grace := time.NewTimer(s.opts.GracePeriod)
	defer grace.Stop()
	select {
	case <-c.done:
		return
	case <-grace.C:
	}

	log.Warn("process still running after grace period, killing")
	if err := c.proc.Kill(); err != nil {
		log.Warn("kill failed", "error", err)
	}

	deadline := time.NewTimer(s.opts.KillTimeout)
	defer deadline.Stop()
	select {
	case <-c.done:
	case <-deadline.C:
		log.Error("process did not exit after kill")
	}
}

func (s *Supervisor) finishInstall(c *child) {
	var err error
	switch {
	case c.waitErr != nil:
		err = c.waitErr
	case c.code != 0:
		err = &AbnormalExitError{Code: c.code}
	}

	if err != nil {
		s.log.Warn("install failed", "run_id", c.id, "error", err)
		s.report.OnNotice(LevelError, "Installing dependencies... failed: "+err.Error())
	} else {
		s.log.Info("install completed", "run_id", c.id)
		s.report.OnNotice(LevelSuccess, "Installing dependencies... completed!")
		s.persist(c)
	}
	c.result <- err
}

func (s *Supervisor) persist(c *child) {
	if s.opts.Session == nil {
		return
	}
	if err := s.opts.Session.Save(c.networkAddr, c.loc.Executable); err != nil {
		s.log.Warn("failed to save session", "error", err)
	}
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	s.log.Debug("state changed", "state", st)
	s.report.OnStateChanged(st)
}
