package common

import "github.com/charmbracelet/lipgloss"

const (
	COLOR_GREY      = "241"
	COLOR_MAGENTA   = "170"
	COLOR_LIGHTBLUE = "69"
)

var (
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREY)).Padding(0, 2)
	CaptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_MAGENTA)).Padding(2)
	ActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_LIGHTBLUE))
	FadedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREY)).Italic(true)
)

func DefaultWindowWidth(width int) int {
	return width - 10
}

func DefaultWindowHeight(height int) int {
	return height - 10
}
