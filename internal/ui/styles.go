package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/supervisor"
)

// Styles holds all lipgloss styles for the dashboard and console
type Styles struct {
	App    lipgloss.Style
	Header lipgloss.Style
	Footer lipgloss.Style
	Title  lipgloss.Style
	Dim    lipgloss.Style
	URL    lipgloss.Style

	// State styles
	StateIdle     lipgloss.Style
	StateBusy     lipgloss.Style
	StateRunning  lipgloss.Style
	StateStopped  lipgloss.Style
	StateFailed   lipgloss.Style
	NoticeSuccess lipgloss.Style
	NoticeWarn    lipgloss.Style

	// Monitor styles
	MonitorBox    lipgloss.Style
	ProgressFill  lipgloss.Style
	ProgressEmpty lipgloss.Style

	// Log styles
	LogViewport lipgloss.Style
	LogTime     lipgloss.Style
	LogLine     lipgloss.Style
	LogError    lipgloss.Style

	HelpKey lipgloss.Style
}

// DefaultStyles returns the default color scheme
func DefaultStyles() *Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#666", Dark: "#999"}
	highlight := lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#AD8EE6"}
	success := lipgloss.AdaptiveColor{Light: "#00AA00", Dark: "#00FF00"}
	warning := lipgloss.AdaptiveColor{Light: "#AAAA00", Dark: "#FFFF00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#AA0000", Dark: "#FF0000"}
	info := lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#00AAFF"}

	return &Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(subtle).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(subtle).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(subtle).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight),

		Dim: lipgloss.NewStyle().
			Foreground(subtle),

		URL: lipgloss.NewStyle().
			Bold(true).
			Foreground(success).
			Underline(true),

		StateIdle: lipgloss.NewStyle().
			Foreground(subtle),

		StateBusy: lipgloss.NewStyle().
			Foreground(warning),

		StateRunning: lipgloss.NewStyle().
			Foreground(info).
			Bold(true),

		StateStopped: lipgloss.NewStyle().
			Foreground(warning),

		StateFailed: lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true),

		NoticeSuccess: lipgloss.NewStyle().
			Foreground(success),

		NoticeWarn: lipgloss.NewStyle().
			Foreground(warning),

		MonitorBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Padding(0, 1),

		ProgressFill: lipgloss.NewStyle().
			Foreground(success),

		ProgressEmpty: lipgloss.NewStyle().
			Foreground(subtle),

		LogViewport: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(0, 1),

		LogTime: lipgloss.NewStyle().
			Foreground(subtle),

		LogLine: lipgloss.NewStyle(),

		LogError: lipgloss.NewStyle().
			Foreground(errorColor),

		HelpKey: lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true),
	}
}

// stateBadge renders a state indicator
func (s *Styles) stateBadge(state supervisor.State) string {
	var style lipgloss.Style
	var icon string

	switch state {
	case supervisor.StateRunning:
		style, icon = s.StateRunning, "●"
	case supervisor.StateStarting, supervisor.StateStopping:
		style, icon = s.StateBusy, "◌"
	case supervisor.StateStopped:
		style, icon = s.StateStopped, "○"
	case supervisor.StateFailed:
		style, icon = s.StateFailed, "✗"
	default:
		style, icon = s.StateIdle, "○"
	}
	return style.Render(icon + " " + state.String())
}

// noticeStyle returns the style and icon for a notice level.
func (s *Styles) noticeStyle(level supervisor.Level) (lipgloss.Style, string) {
	switch level {
	case supervisor.LevelSuccess:
		return s.NoticeSuccess, "✅"
	case supervisor.LevelWarn:
		return s.NoticeWarn, "⚠️"
	case supervisor.LevelError:
		return s.StateFailed, "❌"
	default:
		return s.Dim, "ℹ️"
	}
}
