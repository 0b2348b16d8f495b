package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/kinview/pkg/model"
)

// Adaptive colors for light and dark terminals.
var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorFemale  = lipgloss.AdaptiveColor{Light: "#B0407A", Dark: "#FF79C6"}
	ColorMale    = lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#8BE9FD"}
	ColorNeutral = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorEdge    = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#44475A"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext).
			Padding(0, 1)

	statusAccent = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	statusWarn = lipgloss.NewStyle().
			Foreground(ColorWarning)

	edgeStyle = lipgloss.NewStyle().Foreground(ColorEdge)
)

func genderStyle(g model.Gender) lipgloss.Style {
	switch g {
	case model.GenderFemale:
		return lipgloss.NewStyle().Foreground(ColorFemale)
	case model.GenderMale:
		return lipgloss.NewStyle().Foreground(ColorMale)
	default:
		return lipgloss.NewStyle().Foreground(ColorNeutral)
	}
}
