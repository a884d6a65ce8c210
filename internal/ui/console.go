package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/supervisor"
)

// ConsoleReporter writes supervisor events to a plain terminal, one line
// per event. It is used when the dashboard is disabled.
type ConsoleReporter struct {
	mu     sync.Mutex
	out    io.Writer
	styles *Styles
	now    func() time.Time

	// Timestamps prefixes child output with the wall clock time.
	Timestamps bool
}

func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:        out,
		styles:     DefaultStyles(),
		now:        time.Now,
		Timestamps: true,
	}
}

func (c *ConsoleReporter) OnStateChanged(state supervisor.State) {
	c.printf("%s\n", c.styles.stateBadge(state))
}

func (c *ConsoleReporter) OnLine(text string, isError bool) {
	if isError {
		text = c.styles.LogError.Render(text)
	}
	if c.Timestamps {
		text = c.styles.LogTime.Render("["+c.now().Format(timeFormat)+"]") + " " + text
	}
	c.printf("%s\n", text)
}

func (c *ConsoleReporter) OnURLsReady(localURL, networkURL string) {
	c.printf("  ➜ Local:   %s\n  ➜ Network: %s\n",
		c.styles.URL.Render(localURL), c.styles.URL.Render(networkURL))
}

func (c *ConsoleReporter) OnNotice(level supervisor.Level, text string) {
	style, icon := c.styles.noticeStyle(level)
	c.printf("%s %s\n", icon, style.Render(text))
}

func (c *ConsoleReporter) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
