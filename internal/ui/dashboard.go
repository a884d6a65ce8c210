package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/supervisor"
)

// Controller is the part of the supervisor the dashboard drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Install(ctx context.Context) error
}

const (
	actionStart   = "start"
	actionStop    = "stop"
	actionInstall = "install"
)

// Message types
type (
	tickMsg           time.Time
	resourceUpdateMsg ResourceStats
	stateMsg          supervisor.State
	lineMsg           LogLine
	urlsMsg           struct{ local, network string }
	actionDoneMsg     struct {
		action string
		err    error
	}
)

// DashboardModel is the bubbletea model for the launcher dashboard. It is
// also a supervisor.Reporter: events are queued on updateChan and applied
// inside Update.
type DashboardModel struct {
	ctrl   Controller
	cfg    DashboardConfig
	ctx    context.Context
	cancel context.CancelFunc

	state      supervisor.State
	startedAt  time.Time
	localURL   string
	networkURL string
	detected   URLCandidate
	status     string
	busy       string

	logs      *LogBuffer
	resources ResourceStats

	width    int
	height   int
	viewport viewport.Model
	showHelp bool
	quitting bool

	keys       keyMap
	styles     *Styles
	updateChan chan tea.Msg
	done       chan struct{}
	closeOnce  sync.Once

	now      func() time.Time
	openURL  func(string) error
	copyText func(string) error
	statsFn  func(context.Context) ResourceStats
	bell     func()
}

// keyMap defines the keybindings
type keyMap struct {
	Start       key.Binding
	Stop        key.Binding
	Install     key.Binding
	OpenLocal   key.Binding
	OpenNetwork key.Binding
	CopyNetwork key.Binding
	ClearLogs   key.Binding
	Up          key.Binding
	Down        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start server"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop server"),
		),
		Install: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "install dependencies"),
		),
		OpenLocal: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open in browser"),
		),
		OpenNetwork: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "open network URL"),
		),
		CopyNetwork: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy network URL"),
		),
		ClearLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "clear logs"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) all() []key.Binding {
	return []key.Binding{
		k.Start, k.Stop, k.Install, k.OpenLocal, k.OpenNetwork,
		k.CopyNetwork, k.ClearLogs, k.Up, k.Down, k.Help, k.Quit,
	}
}

// NewDashboard creates the dashboard model for ctrl.
func NewDashboard(ctrl Controller, cfg DashboardConfig) *DashboardModel {
	vp := viewport.New(80, 20)
	vp.SetContent("")
	vp.MouseWheelEnabled = true

	ctx, cancel := context.WithCancel(context.Background())
	return &DashboardModel{
		ctrl:       ctrl,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		logs:       NewLogBuffer(cfg.MaxLogLines),
		resources:  ResourceStats{CPUTemp: -1},
		viewport:   vp,
		keys:       defaultKeyMap(),
		styles:     DefaultStyles(),
		updateChan: make(chan tea.Msg, 100),
		done:       make(chan struct{}),
		now:        time.Now,
		openURL:    openInBrowser,
		copyText:   clipboard.WriteAll,
		statsFn:    GetResourceStats,
		bell:       ringBell,
	}
}

// SetController attaches the supervisor. Call it before the program runs.
func (m *DashboardModel) SetController(ctrl Controller) {
	m.ctrl = ctrl
}

// Init implements tea.Model
func (m *DashboardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.listenForUpdates(), m.fetchResourceStats()}
	if boot := m.bootCmd(); boot != nil {
		cmds = append(cmds, boot)
	}
	return tea.Batch(cmds...)
}

// tickCmd returns a command that ticks every second
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listenForUpdates listens for supervisor events
func (m *DashboardModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.updateChan:
			return msg
		case <-m.done:
			return nil
		}
	}
}

// bootCmd installs and/or starts the server when the dashboard opens.
func (m *DashboardModel) bootCmd() tea.Cmd {
	install, start := m.cfg.InstallFirst, m.cfg.AutoStart
	if m.ctrl == nil || (!install && !start) {
		return nil
	}
	return func() tea.Msg {
		if install {
			if err := m.ctrl.Install(m.ctx); err != nil || !start {
				return actionDoneMsg{action: actionInstall, err: err}
			}
		}
		return actionDoneMsg{action: actionStart, err: m.ctrl.Start(m.ctx)}
	}
}

// control runs a supervisor action off the event loop.
func (m *DashboardModel) control(action string) tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	m.busy = action
	return func() tea.Msg {
		var err error
		switch action {
		case actionStart:
			err = m.ctrl.Start(m.ctx)
		case actionStop:
			err = m.ctrl.Stop(m.ctx)
		case actionInstall:
			err = m.ctrl.Install(m.ctx)
		}
		return actionDoneMsg{action: action, err: err}
	}
}

// Update implements tea.Model
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Sequence(m.control(actionStop), tea.Quit)

		case key.Matches(msg, m.keys.Start):
			if m.state.Active() {
				m.status = "Server is already running"
				break
			}
			cmds = append(cmds, m.control(actionStart))

		case key.Matches(msg, m.keys.Stop):
			cmds = append(cmds, m.control(actionStop))

		case key.Matches(msg, m.keys.Install):
			cmds = append(cmds, m.control(actionInstall))

		case key.Matches(msg, m.keys.OpenLocal):
			m.open(m.browserURL())

		case key.Matches(msg, m.keys.OpenNetwork):
			m.open(m.networkURL)

		case key.Matches(msg, m.keys.CopyNetwork):
			m.copyNetworkURL()

		case key.Matches(msg, m.keys.ClearLogs):
			m.logs.Clear()
			m.updateViewportContent()

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-8, 20)
		m.viewport.Height = max(msg.Height-18, 5)
		m.updateViewportContent()

	case tickMsg:
		cmds = append(cmds, tickCmd(), m.fetchResourceStats())

	case resourceUpdateMsg:
		m.resources = ResourceStats(msg)

	case stateMsg:
		m.applyState(supervisor.State(msg))
		cmds = append(cmds, m.listenForUpdates())

	case lineMsg:
		m.appendLine(LogLine(msg))
		cmds = append(cmds, m.listenForUpdates())

	case urlsMsg:
		m.localURL, m.networkURL = msg.local, msg.network
		cmds = append(cmds, m.listenForUpdates())

	case actionDoneMsg:
		m.busy = ""
		if msg.err != nil && !errors.Is(msg.err, supervisor.ErrStopped) && !errors.Is(msg.err, context.Canceled) {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *DashboardModel) applyState(st supervisor.State) {
	m.state = st
	switch st {
	case supervisor.StateRunning:
		m.startedAt = m.now()
	case supervisor.StateStarting:
		m.detected = URLCandidate{}
	case supervisor.StateStopped, supervisor.StateFailed, supervisor.StateIdle:
		m.startedAt = time.Time{}
	}
	if m.cfg.Bell && (st == supervisor.StateRunning || st == supervisor.StateFailed) {
		m.bell()
	}
}

// ringBell writes BEL to stderr; stdout belongs to the renderer.
func ringBell() {
	fmt.Fprint(os.Stderr, "\a")
}

func (m *DashboardModel) appendLine(line LogLine) {
	if line.Notice {
		m.status = line.Text
	} else if c, ok := DetectURL(line.Text); ok && (m.detected.URL == "" || c.Priority >= m.detected.Priority) {
		m.detected = c
	}
	m.logs.Append(line)
	m.updateViewportContent()
}

// browserURL prefers the URL the dev server announced over the configured one.
func (m *DashboardModel) browserURL() string {
	if m.detected.URL != "" {
		return m.detected.URL
	}
	return m.localURL
}

func (m *DashboardModel) open(url string) {
	if url == "" {
		m.status = "Server has no URL yet"
		return
	}
	if err := m.openURL(url); err != nil {
		m.status = fmt.Sprintf("Could not open browser: %v", err)
		return
	}
	m.status = "Opened " + url
}

func (m *DashboardModel) copyNetworkURL() {
	url := m.networkURL
	if url == "" {
		url = m.cfg.LastNetworkURL
	}
	if url == "" {
		m.status = "Server has no network URL yet"
		return
	}
	if err := m.copyText(url); err != nil {
		m.status = fmt.Sprintf("Clipboard unavailable: %v", err)
		return
	}
	m.status = "Copied " + url
}

// openInBrowser opens a URL in the default browser
func openInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// fetchResourceStats fetches system resource statistics
func (m *DashboardModel) fetchResourceStats() tea.Cmd {
	return func() tea.Msg {
		return resourceUpdateMsg(m.statsFn(m.ctx))
	}
}

// updateViewportContent updates the viewport with current logs
func (m *DashboardModel) updateViewportContent() {
	atBottom := m.viewport.AtBottom()

	lines := m.logs.GetAll()
	rendered := make([]string, len(lines))
	for i, l := range lines {
		rendered[i] = m.renderLogLine(l)
	}
	m.viewport.SetContent(strings.Join(rendered, "\n"))

	// Only auto-scroll to bottom if user was already at the bottom
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *DashboardModel) renderLogLine(l LogLine) string {
	ts := m.styles.LogTime.Render(l.At.Format(timeFormat))
	switch {
	case l.Notice:
		style, icon := m.styles.noticeStyle(l.Level)
		return ts + " " + icon + " " + style.Render(l.Text)
	case l.IsError:
		return ts + " " + m.styles.LogError.Render(l.Text)
	default:
		return ts + " " + m.styles.LogLine.Render(l.Text)
	}
}

// View implements tea.Model
func (m *DashboardModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderInfo())
	b.WriteString("\n")
	b.WriteString(m.renderResourceMonitor())
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.styles.LogViewport.Width(m.contentWidth()).Render(m.viewport.View()))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Dim.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return m.styles.App.Render(b.String())
}

func (m *DashboardModel) contentWidth() int {
	return max(m.width-4, 40)
}

// renderHeader renders the dashboard header
func (m *DashboardModel) renderHeader() string {
	title := "🚀 QueueMaster"

	status := m.styles.stateBadge(m.state)
	if m.busy != "" {
		status += " | " + m.busy + "..."
	}
	if !m.startedAt.IsZero() {
		status += " | Up " + m.now().Sub(m.startedAt).Truncate(time.Second).String()
	}
	if m.resources.CPUTemp > 0 {
		status += fmt.Sprintf(" | Temp: %.0f°C", m.resources.CPUTemp)
	}

	width := m.contentWidth()
	padding := max(width-lipgloss.Width(title)-lipgloss.Width(status), 1)
	return m.styles.Header.Width(width).Render(title + strings.Repeat(" ", padding) + status)
}

func (m *DashboardModel) renderInfo() string {
	url := func(u, fallback string) string {
		if u == "" {
			return m.styles.Dim.Render(fallback)
		}
		return m.styles.URL.Render(u)
	}

	network := url(m.networkURL, "not running")
	if m.networkURL == "" && m.cfg.LastNetworkURL != "" {
		network = m.styles.Dim.Render(m.cfg.LastNetworkURL + " (last session)")
	}

	lines := []string{
		"Local:   " + url(m.localURL, "not running"),
		"Network: " + network,
	}
	if m.detected.URL != "" && m.detected.URL != m.localURL {
		lines = append(lines, "Server:  "+url(m.detected.URL, ""))
	}

	meta := fmt.Sprintf("Launch #%d", m.cfg.LaunchCount)
	if m.cfg.LastSession != "" {
		meta += " • " + m.cfg.LastSession
	}
	if m.cfg.AppDir != "" {
		meta += " • " + m.cfg.AppDir
	}
	lines = append(lines, m.styles.Dim.Render(meta))

	return strings.Join(lines, "\n")
}

// renderResourceMonitor renders the resource monitor
func (m *DashboardModel) renderResourceMonitor() string {
	parts := []string{
		m.renderProgressBar("CPU", m.resources.CPUPercent/100, 20),
		m.renderProgressBar("Mem", m.resources.MemPercent/100, 20),
	}
	if m.resources.MemoryTotal > 0 {
		parts = append(parts, m.styles.Dim.Render(
			FormatBytes(m.resources.MemoryUsed)+" / "+FormatBytes(m.resources.MemoryTotal)))
	}
	return m.styles.MonitorBox.Render(strings.Join(parts, "  "))
}

// renderProgressBar renders a progress bar
func (m *DashboardModel) renderProgressBar(label string, progress float64, width int) string {
	progress = min(max(progress, 0), 1)

	filled := int(progress * float64(width))
	empty := width - filled

	bar := m.styles.ProgressFill.Render(strings.Repeat("█", filled)) +
		m.styles.ProgressEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("%s [%s] %5.1f%%", label, bar, progress*100)
}

func (m *DashboardModel) renderHelp() string {
	var b strings.Builder
	for _, k := range m.keys.all() {
		h := k.Help()
		fmt.Fprintf(&b, "%-8s %s\n", m.styles.HelpKey.Render(h.Key), h.Desc)
	}
	return m.styles.LogViewport.Width(m.contentWidth()).Render(strings.TrimSuffix(b.String(), "\n"))
}

// renderFooter renders the footer with help text
func (m *DashboardModel) renderFooter() string {
	action := fmt.Sprintf("%s start", m.styles.HelpKey.Render("s"))
	if m.state.Active() {
		action = fmt.Sprintf("%s stop • %s open • %s copy URL",
			m.styles.HelpKey.Render("x"),
			m.styles.HelpKey.Render("o"),
			m.styles.HelpKey.Render("c"))
	}
	help := fmt.Sprintf("%s • %s install • %s scroll • %s help • %s quit",
		action,
		m.styles.HelpKey.Render("i"),
		m.styles.HelpKey.Render("↑↓"),
		m.styles.HelpKey.Render("?"),
		m.styles.HelpKey.Render("q"))

	return m.styles.Footer.Width(m.contentWidth()).Render(help)
}

// send queues msg for the event loop. It gives up once the dashboard is closed.
func (m *DashboardModel) send(msg tea.Msg) {
	select {
	case m.updateChan <- msg:
	case <-m.done:
	}
}

func (m *DashboardModel) OnStateChanged(state supervisor.State) {
	m.send(stateMsg(state))
}

func (m *DashboardModel) OnLine(text string, isError bool) {
	m.send(lineMsg(LogLine{At: m.now(), Text: text, IsError: isError}))
}

func (m *DashboardModel) OnURLsReady(localURL, networkURL string) {
	m.send(urlsMsg{local: localURL, network: networkURL})
}

func (m *DashboardModel) OnNotice(level supervisor.Level, text string) {
	m.send(lineMsg(LogLine{At: m.now(), Text: text, Notice: true, Level: level}))
}

// Close releases reporters blocked on the dashboard and cancels in-flight
// controller calls.
func (m *DashboardModel) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.cancel()
	})
}
