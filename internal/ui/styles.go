package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
const (
	ColorPrimary = "87"  // Cyan
	ColorSuccess = "42"  // Green
	ColorError   = "196" // Red
	ColorWarning = "214" // Orange
	ColorInfo    = "244" // Gray
	ColorMetric  = "207" // Pink
)

// DefaultWidth is the content width used by the boxed sections.
const DefaultWidth = 60

var (
	baseBlockStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Align(lipgloss.Center).
			Foreground(lipgloss.Color(ColorPrimary)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorPrimary)).
			Width(DefaultWidth)

	ProgressStyle = baseBlockStyle.
			BorderForeground(lipgloss.Color(ColorMetric)).
			Width(DefaultWidth)

	StatusBlockStyle = baseBlockStyle.
				BorderForeground(lipgloss.Color(ColorInfo)).
				Width(DefaultWidth)

	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorInfo))
)
