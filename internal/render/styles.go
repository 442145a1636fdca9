package render

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	subjectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Width(20)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

var statusStyles = map[string]lipgloss.Style{
	"planned":     mutedStyle,
	"in_progress": lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
	"completed":   okStyle,
	"skipped":     warnStyle,
}

// heatRamp shades a score in [0,1] from cold to hot.
var heatRamp = []rune(" ░▒▓█")
