package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent    = lipgloss.Color("#50E3C2")
	mutedText = lipgloss.Color("#8CA1AE")
	upColor   = lipgloss.Color("10")
	downColor = lipgloss.Color("9")
	pickBG    = lipgloss.Color("#F6AE2D")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mutedText)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	cellStyle     = lipgloss.NewStyle()
	upStyle       = lipgloss.NewStyle().Foreground(upColor)
	downStyle     = lipgloss.NewStyle().Foreground(downColor)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(pickBG)
	cursorStyle   = lipgloss.NewStyle().Underline(true)
)
