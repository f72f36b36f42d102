package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the terminal widget.
type Styles struct {
	Header    lipgloss.Style
	Launcher  lipgloss.Style
	User      lipgloss.Style
	UserText  lipgloss.Style
	Bot       lipgloss.Style
	Timestamp lipgloss.Style
	Typing    lipgloss.Style
	Input     lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles returns the indigo palette of the web widget.
func DefaultStyles() Styles {
	primary := lipgloss.Color("#4f46e5")
	muted := lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}

	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primary).
			Padding(0, 1),
		Launcher: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true).
			Padding(1, 2),
		User: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			MarginTop(1),
		UserText: lipgloss.NewStyle().
			PaddingLeft(2),
		Bot: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8b5cf6")).
			MarginTop(1),
		Timestamp: lipgloss.NewStyle().Foreground(muted),
		Typing:    lipgloss.NewStyle().Foreground(muted).Italic(true),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary),
		Help:  lipgloss.NewStyle().Foreground(muted),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")),
	}
}
