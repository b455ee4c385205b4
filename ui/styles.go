package ui

import "github.com/charmbracelet/lipgloss"

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	subtleFg  = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	panelBg   = lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B6FFE4")).
			Background(darkGreen).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(darkGreen).
			Background(panelBg).
			Padding(0, 1)

	textStyle   = lipgloss.NewStyle()
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mouthStyle  = lipgloss.NewStyle().Foreground(mintGreen).Bold(true)
	meterStyle  = lipgloss.NewStyle().Foreground(mintGreen)
	meterOff    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"})
	helpStyle   = lipgloss.NewStyle().Foreground(subtleFg)

	stateStyles = map[string]lipgloss.Style{
		"idle":      lipgloss.NewStyle().Foreground(lipgloss.Color("247")),
		"thinking":  lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		"narrating": lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		"menu":      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)
