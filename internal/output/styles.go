package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Never use inline lipgloss.Color literals elsewhere.
var (
	// ColorCyan is used for identifiable nouns: project names, paths, refs.
	ColorCyan = lipgloss.Color("14")

	// ColorYellow is used for warnings such as unresolved placeholders.
	ColorYellow = lipgloss.Color("220")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")

	colorGreen   = lipgloss.Color("82")
	colorBoldRed = lipgloss.Color("204")
	colorDimGray = lipgloss.Color("240")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns (project names, paths, refs).
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleDim styles structural chrome (tree connectors, descriptions).
	StyleDim = lipgloss.NewStyle().Foreground(colorDimGray)

	// StyleBold styles headings and tree roots.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleWarning styles non-fatal warnings.
	StyleWarning = lipgloss.NewStyle().Foreground(ColorYellow)
)

// File status constants used in generation summaries.
const (
	StatusWritten    = "written"
	StatusReplaced   = "replaced"
	StatusUnresolved = "unresolved"
	statusFailed     = "failed"
)

// statusStyle returns the lipgloss style for a status string.
// Unknown statuses return an unstyled default.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case StatusWritten:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case StatusReplaced:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusUnresolved:
		return lipgloss.NewStyle().Foreground(ColorYellow).Faint(true)
	case statusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(colorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// minLabelColumnWidth keeps status words aligned.
const minLabelColumnWidth = 40

// FormatStatusLine renders a label with a right-aligned, color-coded status.
func FormatStatusLine(label, status string) string {
	padding := minLabelColumnWidth - len(label)
	if padding < 2 {
		padding = 2
	}
	return StyleNoun.Render(label) + strings.Repeat(" ", padding) + statusStyle(status).Render(status)
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}

// FormatWarningCount renders a warning count, e.g. "3 unresolved placeholders".
func FormatWarningCount(n int, noun string) string {
	if n == 1 {
		return StyleWarning.Render(fmt.Sprintf("1 %s", noun))
	}
	return StyleWarning.Render(fmt.Sprintf("%d %ss", n, noun))
}
