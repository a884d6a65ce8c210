package supervisor

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
)

type fakeResolver struct {
	loc toolchain.Location
	err error
}

func (r fakeResolver) Resolve(context.Context) (toolchain.Location, error) {
	return r.loc, r.err
}

func npmAt(path string) fakeResolver {
	return fakeResolver{loc: toolchain.Location{Manager: toolchain.NPM, Executable: path, Strategy: toolchain.StrategyWellKnown}}
}

// fakeProcess is driven by the test: output is written through emit, and
// exit ends it.
type fakeProcess struct {
	pid     int
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter
	exitCh  chan int
	once    sync.Once

	// exitOnTerminate makes Terminate end the process with code 143.
	exitOnTerminate bool
	terminated      atomic.Int32
	killed          atomic.Int32
}

func newFakeProcess(pid int, exitOnTerminate bool) *fakeProcess {
	p := &fakeProcess{pid: pid, exitCh: make(chan int, 1), exitOnTerminate: exitOnTerminate}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Pid() int          { return p.pid }
func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }

func (p *fakeProcess) Wait() (int, error) {
	return <-p.exitCh, nil
}

func (p *fakeProcess) Terminate() error {
	p.terminated.Add(1)
	if p.exitOnTerminate {
		p.exit(143)
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.killed.Add(1)
	p.exit(137)
	return nil
}

func (p *fakeProcess) emit(t *testing.T, line string, isError bool) {
	t.Helper()
	w := p.stdoutW
	if isError {
		w = p.stderrW
	}
	_, err := w.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func (p *fakeProcess) exit(code int) {
	p.once.Do(func() {
		p.stdoutW.Close()
		p.stderrW.Close()
		p.exitCh <- code
	})
}

type fakeSpawner struct {
	mu       sync.Mutex
	launches []SpawnConfig
	procs    []*fakeProcess
	err      error
	newProc  func(n int) *fakeProcess
}

func (s *fakeSpawner) Spawn(_ context.Context, launch SpawnConfig) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.launches = append(s.launches, launch)
	var p *fakeProcess
	if s.newProc != nil {
		p = s.newProc(len(s.procs))
	} else {
		p = newFakeProcess(1000+len(s.procs), true)
	}
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *fakeSpawner) proc(i int) *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[i]
}

func (s *fakeSpawner) launch(i int) SpawnConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches[i]
}

type notice struct {
	level Level
	text  string
}

type recordingReporter struct {
	mu      sync.Mutex
	states  []State
	lines   []string
	errors  []bool
	urls    [][2]string
	notices []notice
}

func (r *recordingReporter) OnStateChanged(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingReporter) OnLine(text string, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
	r.errors = append(r.errors, isError)
}

func (r *recordingReporter) OnURLsReady(localURL, networkURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, [2]string{localURL, networkURL})
}

func (r *recordingReporter) OnNotice(level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{level, text})
}

func (r *recordingReporter) stateLog() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recordingReporter) lineLog() ([]string, []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...), append([]bool(nil), r.errors...)
}

func (r *recordingReporter) countState(st State) int {
	n := 0
	for _, s := range r.stateLog() {
		if s == st {
			n++
		}
	}
	return n
}

func (r *recordingReporter) noticesAt(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.level == level {
			out = append(out, n.text)
		}
	}
	return out
}

type countingSession struct {
	mu    sync.Mutex
	saves []string
}

func (c *countingSession) Save(networkAddr, toolchainPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, networkAddr+"|"+toolchainPath)
	return nil
}

func (c *countingSession) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.saves)
}

var errNoSuchFile = errors.New("exec: no such file or directory")

type harness struct {
	sup      *Supervisor
	spawner  *fakeSpawner
	reporter *recordingReporter
	session  *countingSession
}

func newHarness(t *testing.T, resolver Resolver, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		spawner:  &fakeSpawner{},
		reporter: &recordingReporter{},
		session:  &countingSession{},
	}
	opts := Options{
		AppDir:      "/opt/queuemaster",
		GracePeriod: 50 * time.Millisecond,
		KillTimeout: time.Second,
		Resolver:    resolver,
		Spawner:     h.spawner,
		Reporter:    h.reporter,
		Session:     h.session,
		Address:     func() string { return "192.168.0.12" },
		PortOwner:   func(context.Context, int) (bool, int) { return false, 0 },
		Environ:     func() []string { return []string{"PATH=/usr/bin"} },
	}
	for _, m := range mutate {
		m(&opts)
	}
	h.sup = New(opts)
	t.Cleanup(h.sup.Close)
	return h
}

func (h *harness) waitForState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.sup.State() == want }, 2*time.Second, 5*time.Millisecond,
		"state = %v, want %v", h.sup.State(), want)
}
