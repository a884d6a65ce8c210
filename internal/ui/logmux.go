package ui

import (
	"sync"
	"time"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/supervisor"
)

const timeFormat = "15:04:05"

// LogLine is one entry of the dashboard log: child output or a notice.
type LogLine struct {
	At      time.Time
	Text    string
	IsError bool
	// Notice marks launcher messages, which carry a Level.
	Notice bool
	Level  supervisor.Level
}

// LogBuffer provides a simple ring buffer for logs
type LogBuffer struct {
	lines    []LogLine
	maxLines int
	mu       sync.RWMutex
}

// NewLogBuffer creates a new log buffer
func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 1000
	}
	return &LogBuffer{
		lines:    make([]LogLine, 0, maxLines),
		maxLines: maxLines,
	}
}

// Append adds a line to the buffer
func (lb *LogBuffer) Append(line LogLine) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.lines) >= lb.maxLines {
		// Remove oldest line
		copy(lb.lines, lb.lines[1:])
		lb.lines = lb.lines[:len(lb.lines)-1]
	}
	lb.lines = append(lb.lines, line)
}

// GetAll returns all lines in the buffer
func (lb *LogBuffer) GetAll() []LogLine {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	result := make([]LogLine, len(lb.lines))
	copy(result, lb.lines)
	return result
}

// GetLast returns the last n lines
func (lb *LogBuffer) GetLast(n int) []LogLine {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if n >= len(lb.lines) {
		result := make([]LogLine, len(lb.lines))
		copy(result, lb.lines)
		return result
	}

	result := make([]LogLine, n)
	copy(result, lb.lines[len(lb.lines)-n:])
	return result
}

// Clear clears all lines from the buffer
func (lb *LogBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.lines = lb.lines[:0]
}

// Len returns the number of lines in the buffer
func (lb *LogBuffer) Len() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return len(lb.lines)
}
