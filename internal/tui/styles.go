package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorPink     lipgloss.Color = "#f5c2e7"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(colorPink)
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	labelStyle    = lipgloss.NewStyle().Foreground(colorOverlay1)
	textStyle     = lipgloss.NewStyle().Foreground(colorText)
	footerStyle   = lipgloss.NewStyle().Foreground(colorOverlay1)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSurface1).Padding(0, 1)
	pendingStyle  = lipgloss.NewStyle().Foreground(colorTeal)
	successStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	warningStyle  = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle    = lipgloss.NewStyle().Foreground(colorRed)
	selectedStyle = lipgloss.NewStyle().Foreground(colorPink).Bold(true)
)

func phaseStyle(p Phase) lipgloss.Style {
	switch p {
	case PhasePending:
		return pendingStyle
	case PhaseSucceeded:
		return successStyle
	case PhaseMissingInput:
		return warningStyle
	case PhaseFailed:
		return errorStyle
	default:
		return labelStyle
	}
}
