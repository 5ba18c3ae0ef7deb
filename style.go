package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#5aa9ff"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#6b7280"}

	colorRunning = lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#f59e0b"}
	colorDone    = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"}
	colorStopped = lipgloss.AdaptiveColor{Light: "#9a3412", Dark: "#fb923c"}

	colorSelectedBg = lipgloss.AdaptiveColor{Light: "#e5e7eb", Dark: "#1f2937"}
	colorSelectedFg = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#f9fafb"}
	colorStatusBg   = lipgloss.AdaptiveColor{Light: "#f1f5f9", Dark: "#111827"}
	colorModalBg    = lipgloss.AdaptiveColor{Light: "#f8fafc", Dark: "#0f172a"}
	colorModalFg    = lipgloss.AdaptiveColor{Light: "#0f172a", Dark: "#e2e8f0"}

	titleStyle    = lipgloss.NewStyle().Bold(true)
	sectionStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	selectedStyle = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg).Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(colorMuted).Faint(true)

	tabStyle       = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Padding(0, 1)

	sidebarStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	outputStyle        = lipgloss.NewStyle().Border(lipgloss.NormalBorder())
	outputContentStyle = lipgloss.NewStyle().Padding(0, 1)
	helpStyle          = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	statusBarStyle     = lipgloss.NewStyle().Foreground(colorMuted).Background(colorStatusBg)
	modalStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Background(colorModalBg).Foreground(colorModalFg).Padding(1, 2)
	modalTitleStyle    = lipgloss.NewStyle().Bold(true)
	modalKeyStyle      = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	modalHintStyle     = lipgloss.NewStyle().Foreground(colorMuted)
)

// ansiPalette maps the 16 SGR color indexes to the usual terminal palette.
var ansiPalette = [16]lipgloss.Color{
	lipgloss.Color("#000000"),
	lipgloss.Color("#cd3131"),
	lipgloss.Color("#0dbc79"),
	lipgloss.Color("#e5e510"),
	lipgloss.Color("#2472c8"),
	lipgloss.Color("#bc3fbc"),
	lipgloss.Color("#11a8cd"),
	lipgloss.Color("#e5e5e5"),
	lipgloss.Color("#666666"),
	lipgloss.Color("#f14c4c"),
	lipgloss.Color("#23d18b"),
	lipgloss.Color("#f5f543"),
	lipgloss.Color("#3b8eea"),
	lipgloss.Color("#d670d6"),
	lipgloss.Color("#29b8db"),
	lipgloss.Color("#ffffff"),
}

// renderSegments paints parsed SGR segments with lipgloss styles.
func renderSegments(segs []AnsiSegment) string {
	var out strings.Builder
	for _, seg := range segs {
		style := lipgloss.NewStyle()
		if seg.Color >= 0 && seg.Color < len(ansiPalette) {
			style = style.Foreground(ansiPalette[seg.Color])
		}
		if seg.Bold {
			style = style.Bold(true)
		}
		if seg.Color == AnsiNone && !seg.Bold {
			out.WriteString(seg.Text)
			continue
		}
		out.WriteString(style.Render(seg.Text))
	}
	return out.String()
}

// renderTerminalLine recolors one stored session line for display.
func renderTerminalLine(line string) string {
	return renderSegments(ParseANSILine(line))
}

func sessionStateStyle(state SessionState) lipgloss.Style {
	switch state {
	case StateRunning:
		return lipgloss.NewStyle().Foreground(colorRunning)
	case StateFinished:
		return lipgloss.NewStyle().Foreground(colorDone)
	case StateStopped:
		return lipgloss.NewStyle().Foreground(colorStopped)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted)
	}
}

func sessionStateLabel(state SessionState) string {
	switch state {
	case StateRunning:
		return "running"
	case StateFinished:
		return "done"
	case StateStopped:
		return "stopped"
	default:
		return "new"
	}
}
