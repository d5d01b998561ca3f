package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/adreview/internal/model"
)

// Color palette.
var (
	colorRed       = lipgloss.Color("#ff5555")
	colorGreen     = lipgloss.Color("#50fa7b")
	colorYellow    = lipgloss.Color("#f1fa8c")
	colorBlue      = lipgloss.Color("#8be9fd")
	colorPurple    = lipgloss.Color("#bd93f9")
	colorDim       = lipgloss.Color("#6272a4")
	colorBgLight   = lipgloss.Color("#343746")
	colorFg        = lipgloss.Color("#f8f8f2")
	colorOrange    = lipgloss.Color("#ffb86c")
	colorBorder    = lipgloss.Color("#44475a")
	colorHighlight = lipgloss.Color("#44475a")
)

// Style definitions.
var (
	// Material list
	listStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	itemSelectedStyle = lipgloss.NewStyle().
				Foreground(colorFg).
				Background(colorHighlight).
				Bold(true)

	idStyle = lipgloss.NewStyle().
		Foreground(colorDim).
		Width(6).
		Align(lipgloss.Right)

	// Detail panel
	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true).
			Padding(0, 0, 1, 0)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(10)

	reasonStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	// Manual review modal
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorPurple).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true).
			Padding(0, 0, 1, 0)

	fieldErrorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Italic(true)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Background(colorBgLight).
			Padding(0, 1)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Background(colorBgLight).
			Bold(true)

	noticeSuccessStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	noticeErrorStyle = lipgloss.NewStyle().
				Foreground(colorRed).
				Bold(true)

	noticeInfoStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	// Session summary
	summaryHeaderStyle = lipgloss.NewStyle().
				Foreground(colorBlue).
				Bold(true).
				Padding(1, 0)

	summaryApprovedStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	summaryRejectedStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	summaryPendingStyle = lipgloss.NewStyle().
				Foreground(colorYellow)

	// Help bar
	helpBarStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)

// severityStyle maps a status severity to its tag color.
func severityStyle(s model.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case model.SeveritySuccess:
		return base.Foreground(colorGreen)
	case model.SeverityError:
		return base.Foreground(colorRed)
	case model.SeverityWarning:
		return base.Foreground(colorOrange)
	case model.SeverityInfo:
		return base.Foreground(colorBlue)
	default:
		return base.Foreground(colorDim)
	}
}
