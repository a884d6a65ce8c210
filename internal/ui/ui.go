package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects the print helpers. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

func printLine(icon, msg string) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, icon, msg)
}

type Spinner struct {
	msg     string
	running bool
}

func NewSpinner(message string) *Spinner {
	return &Spinner{msg: message}
}

func (s *Spinner) Start() {
	if s == nil || s.running {
		return
	}
	s.running = true
	printLine("⏳", s.msg)
}

func (s *Spinner) Stop() {
	if s == nil || !s.running {
		return
	}
	s.running = false
	printLine("  ", "Done")
}

func Success(msg string) {
	printLine("✅", msg)
}

func Info(msg string) {
	printLine("ℹ️", msg)
}

func Warn(msg string) {
	printLine("⚠️ ", msg)
}

func Error(msg string) {
	printLine("❌", msg)
}
