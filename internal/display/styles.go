package display

import "github.com/charmbracelet/lipgloss"

// Static styles for rendered replies
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	RedCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	BlackCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	CardIDStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// stateStyles colours lobby states.
var stateStyles = map[string]lipgloss.Style{
	"online":  lipgloss.NewStyle().Foreground(lipgloss.Color("#96CEB4")),
	"ready":   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
	"game":    lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")),
	"offline": lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
}
