package terminal

import "github.com/charmbracelet/lipgloss"

// Shared styles for interactive output.
var (
	StyleBanner  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	StyleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	StyleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	StyleDanger  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	StyleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	StyleCommand = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
)

// TierStyle returns the display style matching a risk tier name.
func TierStyle(tier string) lipgloss.Style {
	switch tier {
	case "HIGH":
		return StyleDanger
	case "MEDIUM":
		return StyleWarn
	default:
		return StyleSuccess
	}
}
